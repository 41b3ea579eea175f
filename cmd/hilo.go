package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/appraisal-cli/internal/config"
	"github.com/sells-group/appraisal-cli/internal/hilo"
	"github.com/sells-group/appraisal-cli/internal/model"
	"github.com/sells-group/appraisal-cli/internal/store"
)

var hiloCmd = &cobra.Command{
	Use:   "hilo <order-id>",
	Short: "Compute the Hi-Lo bracket and select bracketing comps",
	Long: `Score the order's comp pool, compute the Hi-Lo price bracket around the
configured center basis, and select the sales and listings that best bracket
it. The result is saved as the order's bracket state.

Flags override the stored settings for this run and the overrides are
persisted with the result.`,
	Args: cobra.ExactArgs(1),
	RunE: runHiLo,
}

func init() {
	f := hiloCmd.Flags()
	f.String("center-basis", "", "center basis: medianTimeAdj, weightedPrimaries, or model")
	f.Float64("box-pct", 0, "bracket half-width as a percent of center")
	f.Int("max-sales", 0, "maximum selected sales")
	f.Int("max-listings", -1, "maximum selected listings")
	f.String("polygon", "", "market polygon shapefile")

	rootCmd.AddCommand(hiloCmd)
}

func runHiLo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orderID := args[0]
	polygonPath, _ := cmd.Flags().GetString("polygon")

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	order, err := st.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	sel, err := st.GetSelection(ctx, orderID)
	if err != nil {
		return err
	}

	settings, err := hiloSettings(cmd, st, orderID)
	if err != nil {
		return err
	}

	result, _, err := scorePool(ctx, st, orderID, polygonPath)
	if err != nil {
		return err
	}

	out, err := hilo.Select(hilo.Input{
		Candidates: result.Ranked,
		Selection:  sel,
		Settings:   settings,
		TimeAdj:    order.TimeAdj,
	})
	if err != nil {
		return err
	}

	if err := st.SaveHiLoState(ctx, orderID, model.HiLoState{Settings: settings, Result: out}); err != nil {
		return err
	}

	printHiLoResult(out)
	return nil
}

// hiloSettings resolves the bracket settings: stored state when present,
// config defaults otherwise, with any passed flags layered on top.
func hiloSettings(cmd *cobra.Command, st store.Store, orderID string) (model.HiLoSettings, error) {
	settings := config.DefaultHiLoSettings(cfg.Valuation)
	state, err := st.GetHiLoState(cmd.Context(), orderID)
	if err != nil && !eris.Is(err, store.ErrNotFound) {
		return settings, err
	}
	if state != nil {
		settings = state.Settings
	}

	f := cmd.Flags()
	if f.Changed("center-basis") {
		basis, _ := f.GetString("center-basis")
		settings.CenterBasis = model.CenterBasis(basis)
	}
	if f.Changed("box-pct") {
		settings.BoxPct, _ = f.GetFloat64("box-pct")
	}
	if f.Changed("max-sales") {
		settings.MaxSales, _ = f.GetInt("max-sales")
	}
	if f.Changed("max-listings") {
		settings.MaxListings, _ = f.GetInt("max-listings")
	}
	return settings, nil
}

func printHiLoResult(r *model.HiLoResult) {
	fmt.Printf("Bracket: $%.0f - $%.0f (center $%.0f)\n", r.Range.Lo, r.Range.Hi, r.Range.Center)
	fmt.Printf("Effective date: %s\n\n", r.EffectiveDate)

	fmt.Printf("%-12s %-8s %12s %7s %7s %s\n", "ID", "Type", "TimeAdj", "Rank", "Sim", "Bracket")
	for _, rc := range r.Ranked {
		bracket := "outside"
		if rc.InsideBracket {
			bracket = "inside"
		}
		fmt.Printf("%-12s %-8s %12.0f %7.2f %7.2f %s\n",
			rc.CompID, rc.Type, rc.TimeAdjusted, rc.RankScore, rc.Similarity, bracket)
	}

	fmt.Printf("\nSelected sales:    %v\n", r.SelectedSales)
	fmt.Printf("Selected listings: %v\n", r.SelectedListings)
	if len(r.Primaries) > 0 {
		fmt.Printf("Suggested primaries: %v\n", r.Primaries)
	}
}
