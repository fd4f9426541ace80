package cli

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// connectWalletName preselects a wallet instead of prompting.
	connectWalletName string
)

// ConnectResponse is the connect command output.
type ConnectResponse struct {
	State   string `json:"state"`
	Wallet  string `json:"wallet,omitempty"`
	Account string `json:"account,omitempty"`
	ChainID int64  `json:"chain_id,omitempty"`
	Network string `json:"network,omitempty"`
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a wallet",
	Long: `Connect a wallet provider and switch it to the target network.

With one wallet installed, connects directly. With several, prompts for
a selection unless --wallet preselects one. If the wallet is on another
network it is asked to switch, registering the network first when the
wallet does not know it.`,
	Example: `  warder connect
  warder connect --wallet MetaMask`,
	RunE: runConnect,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().StringVar(&connectWalletName, "wallet", "", "wallet name to connect (skips the picker)")
}

func runConnect(cmd *cobra.Command, _ []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.connect(cmd.Context(), connectWalletName); err != nil {
		return err
	}

	snap := application.machine.Snapshot()
	response := ConnectResponse{
		State:   snap.State.String(),
		Wallet:  snap.Wallet,
		Account: snap.Account,
		ChainID: snap.ChainID,
		Network: cfg.Network.Name,
	}

	if formatter.IsJSON() {
		return formatter.Print(response)
	}

	if err := formatter.Printf("Connected: %s\n", response.Wallet); err != nil {
		return err
	}
	if err := formatter.Printf("Account:   %s\n", response.Account); err != nil {
		return err
	}
	return formatter.Printf("Network:   %s (chain %d)\n", response.Network, response.ChainID)
}
