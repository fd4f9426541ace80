package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHome         = "WARDER_HOME"
	EnvRPC          = "WARDER_RPC"
	EnvAPIBaseURL   = "WARDER_API_URL"
	EnvAccount      = "WARDER_ACCOUNT"
	EnvStrategy     = "WARDER_CLAIM_STRATEGY"
	EnvOutputFormat = "WARDER_OUTPUT_FORMAT"
	EnvVerbose      = "WARDER_VERBOSE"
	EnvLogLevel     = "WARDER_LOG_LEVEL"
)

// ApplyEnvironment applies environment variable overrides to the
// configuration.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		cfg.API.BaseURL = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvAccount); v != "" {
		cfg.Account.Address = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvStrategy); v != "" {
		cfg.Claim.Strategy = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
