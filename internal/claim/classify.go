package claim

import (
	"strings"

	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// Revert reason substrings the contract is known to emit.
const (
	revertBelowMinimum          = "Below minimum claim amount"
	revertInsufficientLiquidity = "Insufficient contract balance"
)

// Classify maps a submission or approval failure onto the error
// taxonomy. Priority: user rejection, then insufficient funds, then
// known revert reasons, then the raw error.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	// Already classified errors pass through unchanged.
	if warderr.Is(err, warderr.ErrTxFailed) ||
		warderr.Is(err, warderr.ErrInsufficientBalance) ||
		warderr.Is(err, warderr.ErrClaimInFlight) ||
		warderr.Is(err, warderr.ErrApprovalInFlight) {
		return err
	}

	if warderr.Is(err, warderr.ErrUserRejected) || provider.CodeOf(err) == provider.CodeUserRejected {
		return warderr.WithCause(warderr.ErrUserRejected, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "insufficient funds") {
		return warderr.WithCause(warderr.ErrInsufficientFunds, err)
	}

	raw := err.Error()
	if strings.Contains(raw, revertBelowMinimum) {
		return warderr.WithCause(warderr.WithDetails(warderr.ErrInsufficientBalance, map[string]string{
			"reason": revertBelowMinimum,
		}), err)
	}
	if strings.Contains(raw, revertInsufficientLiquidity) {
		return warderr.WithCause(warderr.WithDetails(warderr.ErrContractRejected, map[string]string{
			"reason": revertInsufficientLiquidity,
		}), err)
	}

	return err
}
