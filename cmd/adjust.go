package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/appraisal-cli/internal/adjust"
	"github.com/sells-group/appraisal-cli/internal/model"
)

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Compute, override, and apply per-attribute adjustments",
}

var adjustComputeCmd = &cobra.Command{
	Use:   "compute <order-id>",
	Short: "Run the adjustment engines and blend a fresh grid",
	Long: `Run the regression, cost, and paired-sales engines over the order's comp
pool and blend their estimates into a fresh adjustment run. Each compute
mints a new run; manual overrides on earlier runs are left behind.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orderID := args[0]

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		order, err := st.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		comps, err := st.GetComps(ctx, orderID)
		if err != nil {
			return eris.Wrap(err, "adjust: no comp pool imported")
		}

		baseline, err := resolveBaseline(cmd)
		if err != nil {
			return err
		}

		basis, _ := cmd.Flags().GetString("basis")
		if basis != model.BasisSalePrice && basis != model.BasisPPSF {
			return eris.Errorf("adjust: --basis must be %s or %s (got %q)", model.BasisSalePrice, model.BasisPPSF, basis)
		}

		run, err := adjust.Compute(ctx, adjust.ComputeInput{
			OrderID: orderID,
			Subject: order.Subject,
			Comps:   comps,
			TimeAdj: order.TimeAdj,
			Settings: model.EngineSettings{
				Weights: cfg.Valuation.EngineWeights.EngineWeights(),
				Basis:   basis,
			},
			Baseline: baseline,
		})
		if err != nil {
			return err
		}

		if err := st.SaveAdjustmentRun(ctx, orderID, run); err != nil {
			return err
		}

		fmt.Printf("Run %s computed (%d attrs, %d warnings)\n", run.RunID, len(run.Attrs), len(run.Warnings))
		for _, w := range run.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		printAdjustmentGrid(run)
		return nil
	},
}

var adjustOverrideCmd = &cobra.Command{
	Use:   "override <order-id> <attr> <value>",
	Short: "Manually override one attribute's chosen adjustment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		value, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return eris.Wrapf(err, "adjust: parse value %q", args[2])
		}
		note, _ := cmd.Flags().GetString("note")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.LatestAdjustmentRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "adjust: no run to override, compute first")
		}

		if err := adjust.Override(run, model.AttrKey(args[1]), value, note); err != nil {
			return err
		}
		if err := st.SaveAdjustmentRun(ctx, args[0], run); err != nil {
			return err
		}

		fmt.Printf("Override saved: %s = %.2f on run %s\n", args[1], value, run.RunID)
		return nil
	},
}

var adjustApplyCmd = &cobra.Command{
	Use:   "apply <order-id>",
	Short: "Apply the latest run across the comp pool",
	Long: `Apply the latest run's chosen grid across every comp in the pool and save
the resulting adjustments bundle. The bundle is rebuilt whole on each apply.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orderID := args[0]

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		order, err := st.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		comps, err := st.GetComps(ctx, orderID)
		if err != nil {
			return eris.Wrap(err, "adjust: no comp pool imported")
		}
		run, err := st.LatestAdjustmentRun(ctx, orderID)
		if err != nil {
			return eris.Wrap(err, "adjust: no run to apply, compute first")
		}
		sel, err := st.GetSelection(ctx, orderID)
		if err != nil {
			return err
		}

		bundle, err := adjust.Apply(adjust.ApplyInput{
			OrderID:   orderID,
			Run:       run,
			Subject:   order.Subject,
			Comps:     comps,
			Selection: sel,
			TimeAdj:   order.TimeAdj,
		})
		if err != nil {
			return err
		}

		if err := st.SaveBundle(ctx, bundle); err != nil {
			return err
		}

		fmt.Printf("Bundle generated from run %s\n\n", bundle.RunID)
		printBundle(bundle)
		return nil
	},
}

var adjustShowCmd = &cobra.Command{
	Use:   "show <order-id>",
	Short: "Show the latest run and bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.LatestAdjustmentRun(ctx, args[0])
		if err != nil {
			return err
		}
		printAdjustmentGrid(run)

		bundle, err := st.GetBundle(ctx, args[0])
		if err != nil {
			fmt.Println("\nNo bundle generated yet.")
			return nil
		}
		fmt.Println()
		printBundle(bundle)
		return nil
	},
}

// resolveBaseline loads the cost baseline from --baseline, then the configured
// path, then the built-in defaults.
func resolveBaseline(cmd *cobra.Command) (*adjust.CostBaseline, error) {
	path, _ := cmd.Flags().GetString("baseline")
	if path != "" {
		return adjust.LoadBaseline(path)
	}
	if cfg.Valuation.CostBaselinePath != "" {
		if _, err := os.Stat(cfg.Valuation.CostBaselinePath); err == nil {
			return adjust.LoadBaseline(cfg.Valuation.CostBaselinePath)
		}
	}
	return nil, nil
}

func printAdjustmentGrid(run *model.AdjustmentRunResult) {
	fmt.Printf("Run %s (computed %s)\n", run.RunID, run.ComputedAt.Format("2006-01-02 15:04"))
	fmt.Printf("%-10s %10s %10s %10s %10s %-8s %s\n",
		"Attr", "Regr", "Cost", "Paired", "Chosen", "Source", "Note")
	for _, row := range run.Attrs {
		fmt.Printf("%-10s %10s %10s %10s %10.2f %-8s %s\n",
			row.Key,
			formatEstimate(row.Regression),
			formatEstimate(row.Cost),
			formatEstimate(row.Paired),
			row.Chosen.Value, row.Chosen.Source, row.Chosen.Note)
	}
}

func formatEstimate(est *model.EngineEstimate) string {
	if est == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", est.Value)
}

func printBundle(bundle *model.AdjustmentsBundle) {
	fmt.Printf("%-12s %12s %12s %12s %12s %6s\n",
		"Comp", "SalePrice", "TimeAdj", "Subtotal", "Indicated", "Gross%")
	for _, line := range bundle.Lines {
		fmt.Printf("%-12s %12.0f %12.0f %+12.0f %12.0f %6.1f\n",
			line.CompID, line.SalePrice, line.TimeAdjusted,
			line.Subtotal, line.IndicatedValue, line.GrossAdjustedPct)
	}
}

func init() {
	adjustComputeCmd.Flags().String("baseline", "", "cost baseline YAML file")
	adjustComputeCmd.Flags().String("basis", model.BasisSalePrice, "regression basis: salePrice or ppsf")
	adjustOverrideCmd.Flags().String("note", "", "reviewer note for the override")

	adjustCmd.AddCommand(adjustComputeCmd, adjustOverrideCmd, adjustApplyCmd, adjustShowCmd)
	rootCmd.AddCommand(adjustCmd)
}
