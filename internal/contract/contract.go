// Package contract provides a thin binding layer for invoking contract
// methods through a wallet provider: ABI packing, eth_call reads, gas
// estimation, transaction submission, and confirmation waits.
package contract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// Binding couples a deployed address with its parsed ABI.
type Binding struct {
	addr common.Address
	abi  abi.ABI
}

// NewBinding parses the ABI JSON and binds it to the deployed address.
func NewBinding(addr common.Address, abiJSON string) (*Binding, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, warderr.Wrap(err, "parsing contract ABI")
	}
	return &Binding{addr: addr, abi: parsed}, nil
}

// Address returns the bound contract address.
func (b *Binding) Address() common.Address {
	return b.addr
}

// callMsg is the transaction object shape shared by eth_call,
// eth_estimateGas, and eth_sendTransaction.
type callMsg struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Data string `json:"data"`
	Gas  string `json:"gas,omitempty"`
}

// Call performs a read-only eth_call of the method and returns the
// unpacked outputs.
func (b *Binding) Call(ctx context.Context, p provider.Provider, from common.Address, method string, args ...any) ([]any, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, warderr.Wrap(err, "packing %s call", method)
	}

	msg := callMsg{To: b.addr.Hex(), Data: hexutil.Encode(data)}
	if from != (common.Address{}) {
		msg.From = from.Hex()
	}

	raw, err := p.Request(ctx, "eth_call", msg, "latest")
	if err != nil {
		return nil, err
	}

	var resultHex string
	if err := json.Unmarshal(raw, &resultHex); err != nil {
		return nil, warderr.Wrap(err, "decoding %s result", method)
	}
	resultBytes, err := hexutil.Decode(resultHex)
	if err != nil {
		return nil, warderr.Wrap(err, "decoding %s result bytes", method)
	}

	out, err := b.abi.Unpack(method, resultBytes)
	if err != nil {
		return nil, warderr.Wrap(err, "unpacking %s result", method)
	}
	return out, nil
}

// EstimateGas estimates gas for invoking the method from the given
// account. The raw estimate is returned; callers apply PadGasLimit.
func (b *Binding) EstimateGas(ctx context.Context, p provider.Provider, from common.Address, method string, args ...any) (uint64, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return 0, warderr.Wrap(err, "packing %s call", method)
	}

	msg := callMsg{From: from.Hex(), To: b.addr.Hex(), Data: hexutil.Encode(data)}
	raw, err := p.Request(ctx, "eth_estimateGas", msg)
	if err != nil {
		return 0, err
	}

	var gasHex string
	if err := json.Unmarshal(raw, &gasHex); err != nil {
		return 0, warderr.Wrap(err, "decoding gas estimate")
	}
	return hexutil.DecodeUint64(gasHex)
}

// Send submits a transaction invoking the method with an explicit gas
// limit and returns the transaction hash. Signing happens inside the
// wallet provider.
func (b *Binding) Send(ctx context.Context, p provider.Provider, from common.Address, gasLimit uint64, method string, args ...any) (string, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return "", warderr.Wrap(err, "packing %s call", method)
	}

	msg := callMsg{
		From: from.Hex(),
		To:   b.addr.Hex(),
		Data: hexutil.Encode(data),
		Gas:  hexutil.EncodeUint64(gasLimit),
	}

	raw, err := p.Request(ctx, "eth_sendTransaction", msg)
	if err != nil {
		return "", err
	}

	var txHash string
	if err := json.Unmarshal(raw, &txHash); err != nil {
		return "", warderr.Wrap(err, "decoding transaction hash")
	}
	return txHash, nil
}

// PadGasLimit applies the uniform 20% safety margin every transaction
// in this client uses on top of the raw estimate.
func PadGasLimit(estimate uint64) uint64 {
	return estimate * 120 / 100
}
