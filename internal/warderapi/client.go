// Package warderapi is the client for the backing cashback API: indexed
// swap transactions, per-user balances, and custodial claim processing.
package warderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Warder-Sonic/warder-wallet/internal/chain"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// DefaultTimeout bounds every API request.
const DefaultTimeout = 10 * time.Second

// Transaction is one indexed swap with its cashback accrual state.
type Transaction struct {
	Hash            string  `json:"hash"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	Value           string  `json:"value"`
	BlockNumber     int64   `json:"blockNumber"`
	Timestamp       string  `json:"timestamp"`
	GasUsed         string  `json:"gasUsed"`
	GasPrice        string  `json:"gasPrice,omitempty"`
	ContractAddress string  `json:"contractAddress"`
	DexName         string  `json:"dexName,omitempty"`
	SwapType        string  `json:"swapType,omitempty"`
	Processed       bool    `json:"processed"`
	CashbackAmount  string  `json:"cashbackAmount"`
	CashbackRate    float64 `json:"cashbackRate"`
	TreasuryTxHash  string  `json:"treasuryTxHash,omitempty"`
	ProcessedAt     string  `json:"processedAt,omitempty"`
}

// Pagination describes the page window of a transaction listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// TransactionPage is one page of indexed transactions.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// WalletBalance is the service-side view of a user's claimable cashback.
type WalletBalance struct {
	UserAddress        string        `json:"userAddress"`
	CashbackBalance    string        `json:"cashbackBalance"`
	RecentTransactions []Transaction `json:"recentTransactions"`
}

// ClaimResult is the outcome of a service-processed claim.
type ClaimResult struct {
	UserAddress     string `json:"userAddress"`
	ClaimedAmount   string `json:"claimedAmount"`
	FeeAmount       string `json:"feeAmount"`
	NetAmount       string `json:"netAmount"`
	TransactionHash string `json:"transactionHash"`
}

// TransactionFilters narrows a transaction listing. Zero values mean
// no filtering on that dimension.
type TransactionFilters struct {
	User      string
	Dex       string
	Processed *bool
}

// Client talks to the backing API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *chain.RateLimiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter substitutes the request rate limiter.
func WithRateLimiter(rl *chain.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    chain.DefaultRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the wire wrapper: {data} on success, {error} otherwise.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Transactions fetches one page of indexed transactions.
func (c *Client) Transactions(ctx context.Context, page, limit int, filters TransactionFilters) (*TransactionPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	if filters.User != "" {
		query.Set("user", filters.User)
	}
	if filters.Dex != "" {
		query.Set("dex", filters.Dex)
	}
	if filters.Processed != nil {
		query.Set("processed", strconv.FormatBool(*filters.Processed))
	}

	var out TransactionPage
	if err := c.get(ctx, "/api/transactions?"+query.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance fetches the service-side claimable balance for an address.
func (c *Client) Balance(ctx context.Context, address string) (*WalletBalance, error) {
	var out WalletBalance
	if err := c.get(ctx, "/api/users/"+url.PathEscape(address)+"/balance", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessClaim asks the service to pay out the given amount to the user.
func (c *Client) ProcessClaim(ctx context.Context, userAddress, amount string) (*ClaimResult, error) {
	body := map[string]string{
		"userAddress": userAddress,
		"amount":      amount,
	}

	var out ClaimResult
	if err := c.post(ctx, "/api/claim/process", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return warderr.Wrap(err, "encoding request body")
	}
	return c.do(ctx, http.MethodPost, path, encoded, out)
}

// do performs one request with rate limiting and retry, decoding the
// {data}/{error} envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx, path); err != nil {
		return warderr.WithCause(warderr.ErrNetworkOrTimeout, err)
	}

	raw, err := chain.Retry(ctx, func() (json.RawMessage, error) {
		return c.doOnce(ctx, method, path, body)
	})
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return warderr.Wrap(err, "decoding %s response", path)
		}
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, warderr.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, chain.WrapRetryable(warderr.WithCause(warderr.ErrNetworkOrTimeout, err))
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, chain.WrapRetryable(warderr.WithCause(warderr.ErrNetworkOrTimeout, err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, warderr.WithDetails(warderr.ErrRateLimited, map[string]string{
			"endpoint": path,
		})
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, chain.WrapRetryable(apiError(resp.StatusCode, payload))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apiError(resp.StatusCode, payload)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, warderr.Wrap(err, "decoding response envelope")
	}
	if env.Error != "" {
		return nil, warderr.WithDetails(warderr.ErrAPIError, map[string]string{
			"reason": env.Error,
		})
	}
	return env.Data, nil
}

// apiError turns a non-2xx response into a structured error, preferring
// the service's own {error} message over the status line.
func apiError(status int, payload []byte) error {
	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Error != "" {
		return warderr.WithDetails(warderr.ErrAPIError, map[string]string{
			"reason": env.Error,
		})
	}
	return warderr.WithDetails(warderr.ErrAPIError, map[string]string{
		"status": fmt.Sprintf("%d %s", status, http.StatusText(status)),
	})
}

// String implements fmt.Stringer for log output.
func (c *Client) String() string {
	return fmt.Sprintf("warderapi(%s)", c.baseURL)
}
