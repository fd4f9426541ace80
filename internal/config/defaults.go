package config

// Sonic testnet defaults. The deployed addresses are configuration, not
// behavior: pointing the client at another deployment is a config edit.
const (
	// DefaultChainID is the Sonic testnet chain id.
	DefaultChainID int64 = 14601

	// DefaultRPCURL is the public Sonic testnet RPC endpoint.
	DefaultRPCURL = "https://rpc.testnet.soniclabs.com/"

	// DefaultExplorerURL is the Sonic testnet block explorer.
	DefaultExplorerURL = "https://testnet.sonicscan.org"

	// DefaultCashbackWallet is the deployed WarderWallet contract.
	DefaultCashbackWallet = "0xa83F9277F984DF0056E7E690016c1eb4FC5757ca"

	// DefaultAPIBaseURL is the backing REST API for the rest strategy.
	DefaultAPIBaseURL = "http://localhost:3001"
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.warder",
		Network: NetworkConfig{
			ChainID:      DefaultChainID,
			Name:         "Sonic Testnet",
			RPC:          DefaultRPCURL,
			Explorer:     DefaultExplorerURL,
			CurrencyName: "Sonic",
			Symbol:       "S",
			Decimals:     18,
		},
		Contracts: ContractsConfig{
			CashbackWallet: DefaultCashbackWallet,
		},
		Claim: ClaimConfig{
			Strategy:        "contract",
			MinimumClaim:    "0.1",
			FeeRateBps:      200,
			RequireApproval: false,
		},
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.warder/warder.log",
		},
	}
}
