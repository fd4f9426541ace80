// Package errors provides structured error handling for the Warder wallet
// client. It defines sentinel errors for every failure class the
// connection, balance, and claim flows can surface, plus helpers for
// adding context, details, and suggestions.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes for the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitRejected   = 3 // User rejected a wallet prompt
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied or insufficient funds
)

// WalletError is the structured error type for the Warder client.
type WalletError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *WalletError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *WalletError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for WalletError.
func (e *WalletError) Is(target error) bool {
	var t *WalletError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &WalletError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	// Connection errors.
	ErrUserRejected = &WalletError{
		Code:       "USER_REJECTED",
		Message:    "request was cancelled in the wallet",
		Suggestion: "retry and approve the prompt in your wallet",
		ExitCode:   ExitRejected,
	}

	ErrProviderBusy = &WalletError{
		Code:       "PROVIDER_BUSY",
		Message:    "a wallet request is already pending",
		Suggestion: "open your wallet extension and resolve the pending prompt",
		ExitCode:   ExitGeneral,
	}

	ErrNoWalletFound = &WalletError{
		Code:       "NO_WALLET_FOUND",
		Message:    "no compatible wallet detected",
		Suggestion: "install MetaMask, Rabby, or OKX wallet",
		ExitCode:   ExitNotFound,
	}

	ErrWalletNotFound = &WalletError{
		Code:     "WALLET_NOT_FOUND",
		Message:  "wallet not found",
		ExitCode: ExitNotFound,
	}

	ErrValidationFailed = &WalletError{
		Code:     "VALIDATION_FAILED",
		Message:  "wallet signer does not match the connected account",
		ExitCode: ExitGeneral,
	}

	ErrNotConnected = &WalletError{
		Code:       "NOT_CONNECTED",
		Message:    "no wallet connected",
		Suggestion: "connect a wallet first",
		ExitCode:   ExitGeneral,
	}

	// Chain errors.
	ErrChainMismatch = &WalletError{
		Code:       "CHAIN_MISMATCH",
		Message:    "wallet is on the wrong network",
		Suggestion: "switch to the target network",
		ExitCode:   ExitGeneral,
	}

	ErrUnknownChain = &WalletError{
		Code:     "UNKNOWN_CHAIN",
		Message:  "target network is not registered in the wallet",
		ExitCode: ExitGeneral,
	}

	// Claim errors.
	ErrInsufficientBalance = &WalletError{
		Code:     "INSUFFICIENT_BALANCE",
		Message:  "cashback balance is below the minimum claim amount",
		ExitCode: ExitPermission,
	}

	ErrInsufficientFunds = &WalletError{
		Code:       "INSUFFICIENT_FUNDS",
		Message:    "insufficient funds to cover the transaction fee",
		Suggestion: "fund the account with native currency for gas",
		ExitCode:   ExitPermission,
	}

	ErrContractRejected = &WalletError{
		Code:     "CONTRACT_REJECTED",
		Message:  "contract rejected the transaction",
		ExitCode: ExitGeneral,
	}

	ErrTxFailed = &WalletError{
		Code:     "TX_FAILED",
		Message:  "transaction was mined but reverted",
		ExitCode: ExitGeneral,
	}

	ErrClaimInFlight = &WalletError{
		Code:     "CLAIM_IN_FLIGHT",
		Message:  "a claim is already in progress",
		ExitCode: ExitGeneral,
	}

	ErrApprovalInFlight = &WalletError{
		Code:     "APPROVAL_IN_FLIGHT",
		Message:  "an approval is already in progress",
		ExitCode: ExitGeneral,
	}

	ErrNotApproved = &WalletError{
		Code:       "NOT_APPROVED",
		Message:    "token spending has not been approved",
		Suggestion: "approve the cashback contract to spend the token",
		ExitCode:   ExitPermission,
	}

	// Network errors.
	ErrNetworkOrTimeout = &WalletError{
		Code:       "NETWORK_OR_TIMEOUT",
		Message:    "network unreachable or the request timed out",
		Suggestion: "check connectivity and retry",
		ExitCode:   ExitGeneral,
	}

	ErrRetryable = &WalletError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: ExitGeneral,
	}

	ErrRateLimited = &WalletError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: ExitGeneral,
	}

	// Input errors.
	ErrInvalidAddress = &WalletError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &WalletError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	// Config errors.
	ErrConfigInvalid = &WalletError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	// API errors.
	ErrAPIError = &WalletError{
		Code:     "API_ERROR",
		Message:  "backing API returned an error",
		ExitCode: ExitGeneral,
	}
)

// New creates a new WalletError with the given code and message.
func New(code, message string) *WalletError {
	return &WalletError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    fmt.Sprintf("%s: %s", msg, we.Message),
			Details:    we.Details,
			Suggestion: we.Suggestion,
			Cause:      err,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    details,
			Suggestion: we.Suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    we.Details,
			Suggestion: suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel error.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    we.Details,
			Suggestion: we.Suggestion,
			Cause:      cause,
			ExitCode:   we.ExitCode,
		}
	}
	return err
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var we *WalletError
	if errors.As(err, &we) {
		return we.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
