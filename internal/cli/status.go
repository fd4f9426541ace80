package cli

import (
	"github.com/spf13/cobra"
)

// StatusResponse is the status command output.
type StatusResponse struct {
	State    string `json:"state"`
	Wallet   string `json:"wallet,omitempty"`
	Account  string `json:"account,omitempty"`
	ChainID  int64  `json:"chain_id,omitempty"`
	Network  string `json:"network"`
	Strategy string `json:"strategy"`
	RPC      string `json:"rpc"`
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection status",
	Long: `Show the session state and the configured network.

Reattaches a previously authorized session silently; never opens a
wallet prompt. A disconnected result is normal, not an error.`,
	RunE: runStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.machine.Resume(cmd.Context()); err != nil {
		logger.Debug("resume failed: %v", err)
	}

	snap := application.machine.Snapshot()
	response := StatusResponse{
		State:    snap.State.String(),
		Wallet:   snap.Wallet,
		Account:  snap.Account,
		ChainID:  snap.ChainID,
		Network:  cfg.Network.Name,
		Strategy: string(reg.Strategy),
		RPC:      cfg.Network.RPC,
	}

	if formatter.IsJSON() {
		return formatter.Print(response)
	}

	if err := formatter.Printf("State:    %s\n", response.State); err != nil {
		return err
	}
	if snap.State.Connected() {
		if err := formatter.Printf("Wallet:   %s\n", response.Wallet); err != nil {
			return err
		}
		if err := formatter.Printf("Account:  %s\n", response.Account); err != nil {
			return err
		}
		if err := formatter.Printf("Chain:    %d\n", response.ChainID); err != nil {
			return err
		}
	}
	if err := formatter.Printf("Network:  %s\n", response.Network); err != nil {
		return err
	}
	return formatter.Printf("Strategy: %s\n", response.Strategy)
}
