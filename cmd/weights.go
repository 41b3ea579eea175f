package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/appraisal-cli/internal/config"
	"github.com/sells-group/appraisal-cli/internal/model"
	"github.com/sells-group/appraisal-cli/internal/scorer"
	"github.com/sells-group/appraisal-cli/internal/store"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Manage scoring weights and constraints",
}

var weightsSetCmd = &cobra.Command{
	Use:   "set <order-id>",
	Short: "Set scoring weights and constraints for an order",
	Long: `Set the similarity weights (0-10 each) and hard constraints used to
score the order's comp pool. The set is validated as a whole; nothing is
persisted when any value is out of range.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		w, c, err := effectiveWeights(cmd, st, args[0])
		if err != nil {
			return err
		}

		if errs := scorer.Validate(w, c); len(errs) > 0 {
			return eris.Errorf("weights: invalid set:\n  %s", strings.Join(errs, "\n  "))
		}

		w.UpdatedAt = time.Now().UTC()
		w.UpdatedBy, _ = cmd.Flags().GetString("updated-by")

		if err := st.SaveWeights(ctx, args[0], w, c); err != nil {
			return err
		}
		fmt.Printf("Weights saved for order %s\n", args[0])
		return nil
	},
}

var weightsShowCmd = &cobra.Command{
	Use:   "show <order-id>",
	Short: "Show the active weights and constraints for an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		w, c, err := loadWeights(cmd.Context(), st, args[0])
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"weights": w, "constraints": c})
	},
}

// effectiveWeights starts from the order's stored set (or the defaults) and
// applies any flags the caller passed.
func effectiveWeights(cmd *cobra.Command, st store.Store, orderID string) (model.WeightSet, model.ConstraintSet, error) {
	w, c, err := loadWeights(cmd.Context(), st, orderID)
	if err != nil {
		return w, c, err
	}

	f := cmd.Flags()
	setFloat := func(name string, dst *float64) {
		if f.Changed(name) {
			*dst, _ = f.GetFloat64(name)
		}
	}
	setFloat("distance", &w.Distance)
	setFloat("recency", &w.Recency)
	setFloat("gla", &w.GLA)
	setFloat("quality", &w.Quality)
	setFloat("condition", &w.Condition)
	setFloat("gla-tolerance-pct", &c.GLATolerancePct)
	setFloat("distance-cap-miles", &c.DistanceCapMiles)
	setFloat("max-months", &c.MaxMonthsSinceSale)
	if f.Changed("mode") {
		mode, _ := f.GetString("mode")
		c.Mode = model.ConstraintMode(mode)
	}

	return w, c, nil
}

// loadWeights returns the order's stored set, falling back to the defaults
// for fresh orders.
func loadWeights(ctx context.Context, st store.Store, orderID string) (model.WeightSet, model.ConstraintSet, error) {
	w, c, err := st.GetWeights(ctx, orderID)
	if eris.Is(err, store.ErrNotFound) {
		return config.DefaultWeightSet, config.DefaultConstraintSet, nil
	}
	return w, c, err
}

func init() {
	f := weightsSetCmd.Flags()
	f.Float64("distance", 0, "distance weight (0-10)")
	f.Float64("recency", 0, "recency weight (0-10)")
	f.Float64("gla", 0, "GLA weight (0-10)")
	f.Float64("quality", 0, "quality weight (0-10)")
	f.Float64("condition", 0, "condition weight (0-10)")
	f.Float64("gla-tolerance-pct", 0, "GLA tolerance percentage")
	f.Float64("distance-cap-miles", 0, "distance cap in miles")
	f.Float64("max-months", 0, "maximum months since sale")
	f.String("mode", "", "constraint mode: exclude or flag")
	f.String("updated-by", "", "author of this weight change")

	weightsCmd.AddCommand(weightsSetCmd, weightsShowCmd)
	rootCmd.AddCommand(weightsCmd)
}
