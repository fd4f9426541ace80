package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Warder-Sonic/warder-wallet/internal/cashback"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// balanceWatch keeps polling and printing until interrupted.
	balanceWatch bool
	// balanceInterval is the polling interval in watch mode.
	balanceInterval time.Duration
)

// BalanceResponse is the balance command output.
type BalanceResponse struct {
	Account      string  `json:"account"`
	Balance      string  `json:"balance"`
	MinimumClaim string  `json:"minimum_claim"`
	CanClaim     bool    `json:"can_claim"`
	FeeRate      float64 `json:"fee_rate_percent"`
	EstimatedFee string  `json:"estimated_fee"`
	EstimatedNet string  `json:"estimated_net"`
	FetchedAt    string  `json:"fetched_at"`
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the claimable cashback balance",
	Long: `Show the claimable cashback balance with the fee estimate.

The claim fee is deducted from the claimed amount; the net value is
what actually arrives. Balance reads require a connected session on
the target network.`,
	Example: `  warder balance
  warder balance --watch
  warder balance --watch --interval 5s
  warder balance -o json`,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVar(&balanceWatch, "watch", false, "keep polling until interrupted")
	balanceCmd.Flags().DurationVar(&balanceInterval, "interval", cashback.DefaultPollInterval, "polling interval in watch mode")
}

func runBalance(cmd *cobra.Command, _ []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.resume(cmd.Context()); err != nil {
		return err
	}

	if balanceWatch {
		return watchBalance(cmd.Context(), application)
	}

	if err := application.balance.Refresh(cmd.Context()); err != nil {
		return err
	}
	snap, ok := application.balance.Current()
	if !ok {
		return application.balance.LastError()
	}
	return printBalance(application.machine.Account(), snap)
}

// watchBalance streams refreshed snapshots until the command is
// interrupted. The poller owns the refresh cadence; the loop only
// prints snapshots it has not shown yet.
func watchBalance(ctx context.Context, application *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := cashback.NewPoller(application.machine, application.balance, balanceInterval)
	poller.Start()
	defer poller.Stop()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var lastShown time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, ok := application.balance.Current()
			if !ok || !snap.FetchedAt.After(lastShown) {
				continue
			}
			lastShown = snap.FetchedAt
			if err := printBalance(application.machine.Account(), snap); err != nil {
				return err
			}
		}
	}
}

func printBalance(account string, snap cashback.Snapshot) error {
	response := BalanceResponse{
		Account:      account,
		Balance:      snap.Formatted,
		MinimumClaim: snap.MinimumClaim,
		CanClaim:     snap.CanClaim,
		FeeRate:      snap.FeeRatePercent(),
		EstimatedFee: snap.EstimatedFee,
		EstimatedNet: snap.EstimatedNet,
		FetchedAt:    snap.FetchedAt.UTC().Format(time.RFC3339),
	}

	if formatter.IsJSON() {
		return formatter.Print(response)
	}

	if err := formatter.Printf("Balance:  %s %s\n", response.Balance, cfg.Network.Symbol); err != nil {
		return err
	}
	if err := formatter.Printf("Minimum:  %s %s\n", response.MinimumClaim, cfg.Network.Symbol); err != nil {
		return err
	}
	if err := formatter.Printf("Fee:      %.2f%% (%s %s)\n", response.FeeRate, response.EstimatedFee, cfg.Network.Symbol); err != nil {
		return err
	}
	if err := formatter.Printf("Net:      %s %s\n", response.EstimatedNet, cfg.Network.Symbol); err != nil {
		return err
	}
	if response.CanClaim {
		return formatter.Println("Claimable: yes")
	}
	return formatter.Println("Claimable: no")
}
