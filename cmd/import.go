package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-cli/internal/importer"
	"github.com/sells-group/appraisal-cli/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <order-id> <comps.xlsx|comps.csv>",
	Short: "Import a comp pool from an MLS export",
	Long: `Import comparable sales and listings for an order from an XLSX or CSV
export. The pool replaces any previously imported pool for the order.

With --archive and a postgres store, the pool is additionally bulk-upserted
into the comp_archive table for cross-order analytics.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orderID := args[0]

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if _, err := st.GetOrder(ctx, orderID); err != nil {
			return err
		}

		comps, err := importer.ReadComps(args[1])
		if err != nil {
			return err
		}
		if len(comps) == 0 {
			return eris.Errorf("import: %s produced no comps", args[1])
		}

		if err := st.SaveComps(ctx, orderID, comps); err != nil {
			return err
		}

		zap.L().Info("comps imported",
			zap.String("order_id", orderID),
			zap.Int("comps", len(comps)),
		)
		fmt.Printf("Imported %d comps for order %s\n", len(comps), orderID)

		if archive, _ := cmd.Flags().GetBool("archive"); archive {
			pg, ok := st.(*store.PostgresStore)
			if !ok {
				return eris.New("import: --archive requires the postgres store")
			}
			n, err := importer.ArchiveComps(ctx, pg.Pool(), orderID, comps)
			if err != nil {
				return err
			}
			fmt.Printf("Archived %d rows\n", n)
		}

		return nil
	},
}

func init() {
	importCmd.Flags().Bool("archive", false, "also bulk-upsert the pool into comp_archive (postgres only)")
	rootCmd.AddCommand(importCmd)
}
