// Package devserver serves the backing cashback API shapes over an
// in-memory store, for local development and REST-strategy testing.
package devserver

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Warder-Sonic/warder-wallet/internal/chain"
	"github.com/Warder-Sonic/warder-wallet/internal/warderapi"
)

// Claim rejections mirror the deployed contract's revert strings.
var (
	errBelowMinimum     = errors.New("Below minimum claim amount")    //nolint:staticcheck // matches contract revert text
	errInsufficientPool = errors.New("Insufficient contract balance") //nolint:staticcheck // matches contract revert text
)

// Store is the in-memory backing state.
type Store struct {
	mu       sync.Mutex
	balances map[string]*big.Int // keyed by lowercased address
	txs      []warderapi.Transaction
	claims   int64

	minimum    *big.Int
	feeRateBps int64
	decimals   int
}

// NewStore creates an empty store with the given claim parameters.
func NewStore(minimum *big.Int, feeRateBps int64, decimals int) *Store {
	return &Store{
		balances:   make(map[string]*big.Int),
		minimum:    new(big.Int).Set(minimum),
		feeRateBps: feeRateBps,
		decimals:   decimals,
	}
}

// SeedBalance sets an account's claimable balance.
func (s *Store) SeedBalance(address string, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[strings.ToLower(address)] = new(big.Int).Set(amount)
}

// SeedTransaction appends an indexed transaction.
func (s *Store) SeedTransaction(tx warderapi.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
}

// Balance returns the service-side balance view for an address. An
// unknown address has a zero balance, not an error.
func (s *Store) Balance(address string) warderapi.WalletBalance {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balances[strings.ToLower(address)]
	if balance == nil {
		balance = big.NewInt(0)
	}

	var recent []warderapi.Transaction
	for _, tx := range s.txs {
		if strings.EqualFold(tx.From, address) {
			recent = append(recent, tx)
		}
	}
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	return warderapi.WalletBalance{
		UserAddress:        address,
		CashbackBalance:    chain.FormatUnits(balance, s.decimals),
		RecentTransactions: recent,
	}
}

// Transactions returns one page of indexed transactions.
func (s *Store) Transactions(page, limit int, filters warderapi.TransactionFilters) warderapi.TransactionPage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []warderapi.Transaction
	for _, tx := range s.txs {
		if filters.User != "" && !strings.EqualFold(tx.From, filters.User) {
			continue
		}
		if filters.Dex != "" && !strings.EqualFold(tx.DexName, filters.Dex) {
			continue
		}
		if filters.Processed != nil && tx.Processed != *filters.Processed {
			continue
		}
		matched = append(matched, tx)
	}

	total := len(matched)
	pages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return warderapi.TransactionPage{
		Transactions: matched[start:end],
		Pagination: warderapi.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}
}

// ProcessClaim pays out the requested amount, applying the fee split.
// The error strings match what the deployed contract reverts with so
// REST-strategy clients classify them identically.
func (s *Store) ProcessClaim(address, amount string) (warderapi.ClaimResult, error) {
	requested, err := chain.ParseUnits(amount, s.decimals)
	if err != nil {
		return warderapi.ClaimResult{}, fmt.Errorf("invalid amount %q", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(address)
	balance := s.balances[key]
	if balance == nil {
		balance = big.NewInt(0)
	}

	if requested.Cmp(s.minimum) < 0 {
		return warderapi.ClaimResult{}, errBelowMinimum
	}
	if requested.Cmp(balance) > 0 {
		return warderapi.ClaimResult{}, errInsufficientPool
	}

	fee := new(big.Int).Mul(requested, big.NewInt(s.feeRateBps))
	fee.Div(fee, big.NewInt(10000))
	net := new(big.Int).Sub(requested, fee)

	s.balances[key] = new(big.Int).Sub(balance, requested)
	s.claims++

	txHash := crypto.Keccak256Hash(
		[]byte(fmt.Sprintf("%s:%s:%d:%d", key, amount, s.claims, time.Now().UnixNano())),
	).Hex()

	return warderapi.ClaimResult{
		UserAddress:     address,
		ClaimedAmount:   chain.FormatUnits(requested, s.decimals),
		FeeAmount:       chain.FormatUnits(fee, s.decimals),
		NetAmount:       chain.FormatUnits(net, s.decimals),
		TransactionHash: txHash,
	}, nil
}
