package contract

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// Receipt status values.
const (
	StatusFailed    uint64 = 0
	StatusSucceeded uint64 = 1
)

// Receipt is the subset of a transaction receipt the client inspects.
type Receipt struct {
	TxHash      string
	Status      uint64
	BlockNumber uint64
	GasUsed     uint64
}

// Succeeded reports whether the mined transaction executed without
// reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// rawReceipt mirrors the eth_getTransactionReceipt JSON shape.
type rawReceipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	BlockNumber     string `json:"blockNumber"`
	GasUsed         string `json:"gasUsed"`
}

// DefaultConfirmInterval is the receipt polling cadence.
const DefaultConfirmInterval = 2 * time.Second

// WaitMined polls for the transaction receipt until it appears or the
// context ends. One receipt equals one confirmation.
func WaitMined(ctx context.Context, p provider.Provider, txHash string, interval time.Duration) (*Receipt, error) {
	if interval <= 0 {
		interval = DefaultConfirmInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := getReceipt(ctx, p, txHash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, warderr.WithCause(warderr.ErrNetworkOrTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// getReceipt fetches the receipt, returning nil while the transaction
// is still pending.
func getReceipt(ctx context.Context, p provider.Provider, txHash string) (*Receipt, error) {
	raw, err := p.Request(ctx, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var decoded rawReceipt
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, warderr.Wrap(err, "decoding receipt")
	}

	status, err := hexutil.DecodeUint64(decoded.Status)
	if err != nil {
		return nil, warderr.Wrap(err, "decoding receipt status")
	}
	blockNumber, err := hexutil.DecodeUint64(decoded.BlockNumber)
	if err != nil {
		return nil, warderr.Wrap(err, "decoding receipt block number")
	}
	gasUsed, _ := hexutil.DecodeUint64(decoded.GasUsed)

	return &Receipt{
		TxHash:      decoded.TransactionHash,
		Status:      status,
		BlockNumber: blockNumber,
		GasUsed:     gasUsed,
	}, nil
}
