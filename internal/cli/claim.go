package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Warder-Sonic/warder-wallet/internal/claim"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// claimYes skips the confirmation prompt.
	claimYes bool
)

// ClaimResponse is the claim command output.
type ClaimResponse struct {
	TxHash        string `json:"tx_hash"`
	ClaimedAmount string `json:"claimed_amount"`
	FeeAmount     string `json:"fee_amount"`
	NetAmount     string `json:"net_amount"`
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the cashback balance",
	Long: `Claim the full cashback balance.

Shows the fee split and asks for confirmation before submitting. The
transaction hash is printed as soon as it exists; the command then
waits for the transaction to be mined.`,
	Example: `  warder claim
  warder claim --yes`,
	RunE: runClaim,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(claimCmd)
	claimCmd.Flags().BoolVarP(&claimYes, "yes", "y", false, "skip the confirmation prompt")
}

func runClaim(cmd *cobra.Command, _ []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.resume(cmd.Context()); err != nil {
		return err
	}

	if err := application.balance.Refresh(cmd.Context()); err != nil {
		return err
	}
	snap, ok := application.balance.Current()
	if !ok {
		return application.balance.LastError()
	}
	if !snap.CanClaim {
		return warderr.WithDetails(warderr.ErrInsufficientBalance, map[string]string{
			"balance": snap.Formatted,
			"minimum": snap.MinimumClaim,
		})
	}

	if !claimYes {
		if err := printBalance(application.machine.Account(), snap); err != nil {
			return err
		}
		if !promptConfirm("Claim " + snap.Formatted + " " + cfg.Network.Symbol + "?") {
			return warderr.ErrUserRejected
		}
	}

	result, err := application.pipeline.Submit(cmd.Context(), func(m claim.Milestone) {
		if formatter.IsJSON() {
			return
		}
		switch m.Kind {
		case claim.MilestoneSubmitted:
			_, _ = os.Stderr.WriteString("Submitted: " + m.TxHash + "\n")
		case claim.MilestoneConfirmed:
			_, _ = os.Stderr.WriteString("Confirmed: " + m.TxHash + "\n")
		}
	})
	if err != nil {
		return err
	}

	response := ClaimResponse{
		TxHash:        result.TxHash,
		ClaimedAmount: result.ClaimedAmount,
		FeeAmount:     result.FeeAmount,
		NetAmount:     result.NetAmount,
	}

	if formatter.IsJSON() {
		return formatter.Print(response)
	}

	if err := formatter.Printf("Claimed: %s %s\n", response.ClaimedAmount, cfg.Network.Symbol); err != nil {
		return err
	}
	if err := formatter.Printf("Fee:     %s %s\n", response.FeeAmount, cfg.Network.Symbol); err != nil {
		return err
	}
	if err := formatter.Printf("Net:     %s %s\n", response.NetAmount, cfg.Network.Symbol); err != nil {
		return err
	}
	if response.TxHash != "" && cfg.Network.Explorer != "" {
		return formatter.Printf("Tx:      %s/tx/%s\n", cfg.Network.Explorer, response.TxHash)
	}
	return nil
}
