package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	assert.Equal(t, int64(14601), cfg.Network.ChainID)
	assert.Equal(t, "S", cfg.Network.Symbol)
	assert.Equal(t, 18, cfg.Network.Decimals)
	assert.Equal(t, DefaultCashbackWallet, cfg.Contracts.CashbackWallet)
	assert.Equal(t, "contract", cfg.Claim.Strategy)
	assert.Equal(t, "0.1", cfg.Claim.MinimumClaim)
	assert.Equal(t, int64(200), cfg.Claim.FeeRateBps)
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := Path(dir)

	cfg := Defaults()
	cfg.Network.RPC = "http://localhost:8545"
	cfg.Claim.Strategy = "rest"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", loaded.Network.RPC)
	assert.Equal(t, "rest", loaded.Claim.Strategy)
	assert.Equal(t, int64(14601), loaded.Network.ChainID)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  rpc: http://node:8545\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://node:8545", cfg.Network.RPC)
	assert.Equal(t, DefaultCashbackWallet, cfg.Contracts.CashbackWallet)
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv(EnvRPC, "http://env-node:8545")
	t.Setenv(EnvAccount, "0xAbC")
	t.Setenv(EnvStrategy, "REST")
	t.Setenv(EnvVerbose, "yes")

	cfg := Defaults()
	ApplyEnvironment(cfg)

	assert.Equal(t, "http://env-node:8545", cfg.Network.RPC)
	assert.Equal(t, "0xAbC", cfg.Account.Address)
	assert.Equal(t, "rest", cfg.Claim.Strategy)
	assert.True(t, cfg.Output.Verbose)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LogLevelOff, ParseLogLevel("off"))
	assert.Equal(t, LogLevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, LogLevelError, ParseLogLevel("anything"))
}

func TestLoggerWritesAtLevel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "warder.log")
	logger, err := NewLogger(LogLevelError, path)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	logger.Error("connect failed: %s", "boom")
	logger.Debug("suppressed at error level")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "connect failed: boom")
	assert.NotContains(t, string(data), "suppressed")
}

func TestNullLoggerIsSilent(t *testing.T) {
	t.Parallel()

	logger := NullLogger()
	logger.Error("nothing happens")
	assert.Equal(t, LogLevelOff, logger.Level())
}

func TestComponentLoggerPrefixesLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLoggerTo(LogLevelDebug, &buf)

	logger.Component("session").Debug("connected account=%s", "0xabc")
	logger.Debug("no prefix")

	out := buf.String()
	assert.Contains(t, out, "session: connected account=0xabc")
	assert.Contains(t, out, "[DEBUG] no prefix")
}
