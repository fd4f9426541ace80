package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Warder-Sonic/warder-wallet/internal/chain"
	"github.com/Warder-Sonic/warder-wallet/internal/devserver"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	devserverAddr  string
	devserverSeeds []string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local stub of the backing API",
	Long: `Run a local in-memory stub of the backing cashback API.

Serves the transaction, balance, and claim endpoints with the same
response envelopes as the real service. Useful for developing against
the rest strategy without a deployed backend.`,
	Example: `  warder devserver
  warder devserver --addr :8080 --seed 0x742d35Cc6634C0532925a3b844Bc454e4438f44e=2.5`,
	RunE: runDevserver,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(devserverCmd)
	devserverCmd.Flags().StringVar(&devserverAddr, "addr", ":3001", "listen address")
	devserverCmd.Flags().StringArrayVar(&devserverSeeds, "seed", nil, "seed balance as address=amount (repeatable)")
}

func runDevserver(cmd *cobra.Command, _ []string) error {
	store := devserver.NewStoreFromRegistry(reg)
	for _, seed := range devserverSeeds {
		address, amount, ok := strings.Cut(seed, "=")
		if !ok {
			return warderr.WithDetails(warderr.ErrInvalidInput, map[string]string{
				"seed":     seed,
				"expected": "address=amount",
			})
		}
		value, err := chain.ParseUnits(amount, cfg.Network.Decimals)
		if err != nil {
			return err
		}
		store.SeedBalance(address, value)
	}

	server := &http.Server{
		Addr:              devserverAddr,
		Handler:           devserver.Router(store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	if err := formatter.Printf("Serving cashback API stub on %s\n", devserverAddr); err != nil {
		return err
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
