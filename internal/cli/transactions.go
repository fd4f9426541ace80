package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Warder-Sonic/warder-wallet/internal/output"
	"github.com/Warder-Sonic/warder-wallet/internal/warderapi"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	txPage      int
	txLimit     int
	txUser      string
	txDex       string
	txProcessed string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List cashback transactions",
	Long: `List cashback-earning transactions from the backing API.

Supports paging and filtering by user address, DEX, and processed
state.`,
	Example: `  warder transactions
  warder transactions --user 0x742d... --dex shadow
  warder transactions --processed true --page 2 --limit 50`,
	RunE: runTransactions,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(transactionsCmd)
	transactionsCmd.Flags().IntVar(&txPage, "page", 1, "page number")
	transactionsCmd.Flags().IntVar(&txLimit, "limit", 20, "results per page (max 100)")
	transactionsCmd.Flags().StringVar(&txUser, "user", "", "filter by user address")
	transactionsCmd.Flags().StringVar(&txDex, "dex", "", "filter by DEX name")
	transactionsCmd.Flags().StringVar(&txProcessed, "processed", "", "filter by processed state: true or false")
}

func runTransactions(cmd *cobra.Command, _ []string) error {
	filters := warderapi.TransactionFilters{
		User: txUser,
		Dex:  txDex,
	}
	if txProcessed != "" {
		processed, err := strconv.ParseBool(txProcessed)
		if err != nil {
			return err
		}
		filters.Processed = &processed
	}

	client := warderapi.NewClient(cfg.API.BaseURL)
	page, err := client.Transactions(cmd.Context(), txPage, txLimit, filters)
	if err != nil {
		return err
	}

	if formatter.IsJSON() {
		return formatter.Print(page)
	}

	table := output.NewTable("HASH", "DEX", "VALUE", "CASHBACK", "PROCESSED")
	for _, tx := range page.Transactions {
		table.AddRow(tx.Hash, tx.DexName, tx.Value, tx.CashbackAmount, strconv.FormatBool(tx.Processed))
	}
	if err := table.Render(formatter.Writer()); err != nil {
		return err
	}
	return formatter.Printf("\nPage %d of %d (%d transactions)\n",
		page.Pagination.Page, page.Pagination.Pages, page.Pagination.Total)
}
