package cli

import (
	"math/big"

	"github.com/spf13/cobra"

	"github.com/Warder-Sonic/warder-wallet/internal/chain"
	"github.com/Warder-Sonic/warder-wallet/internal/claim"
)

// ApproveResponse is the approve command output.
type ApproveResponse struct {
	Allowance string `json:"allowance"`
	Unlimited bool   `json:"unlimited,omitempty"`
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var approveCmd = &cobra.Command{
	Use:   "approve [amount]",
	Short: "Grant a token allowance to the cashback contract",
	Long: `Grant the cashback contract an allowance on the configured token.

Only needed on allowance-gated deployments (contracts.token set).
Without an amount the allowance is unlimited.`,
	Example: `  warder approve
  warder approve 25.0`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApprove,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	var amount *big.Int
	if len(args) == 1 {
		parsed, err := chain.ParseUnits(args[0], cfg.Network.Decimals)
		if err != nil {
			return err
		}
		amount = parsed
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	approver := application.approver
	if approver == nil {
		approver, err = claim.NewApprover(reg)
		if err != nil {
			return err
		}
	}

	if err := application.resume(cmd.Context()); err != nil {
		return err
	}

	p := application.machine.ActiveProvider()
	account := application.machine.Account()
	if err := approver.Approve(cmd.Context(), p, account, amount); err != nil {
		return err
	}

	response := ApproveResponse{Unlimited: amount == nil}
	if allowance := approver.Allowance(); allowance != nil {
		response.Allowance = chain.FormatUnits(allowance, cfg.Network.Decimals)
	}

	if formatter.IsJSON() {
		return formatter.Print(response)
	}
	if response.Unlimited {
		return formatter.Println("Approved: unlimited allowance")
	}
	return formatter.Printf("Approved: %s %s allowance\n", response.Allowance, cfg.Network.Symbol)
}
