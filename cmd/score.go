package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-cli/internal/importer"
	"github.com/sells-group/appraisal-cli/internal/model"
	"github.com/sells-group/appraisal-cli/internal/scorer"
	"github.com/sells-group/appraisal-cli/internal/selection"
	"github.com/sells-group/appraisal-cli/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score <order-id>",
	Short: "Score the order's comp pool against the subject",
	Long: `Score every comp in the order's pool using the active weights and
constraints and print the ranked result.

With --polygon, each comp is annotated with its polygon containment before
scoring; if the order's selection restricts to the polygon, outside comps are
filtered (locked comps always survive).

Examples:
  score ord-1
  score ord-1 --polygon market.shp --format csv --output ranked.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("polygon", "", "market polygon shapefile")
	f.String("format", "table", "output format: table or csv")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orderID := args[0]
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	polygonPath, _ := cmd.Flags().GetString("polygon")

	if format != "table" && format != "csv" {
		return eris.Errorf("score: --format must be table or csv (got %q)", format)
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	result, _, err := scorePool(ctx, st, orderID, polygonPath)
	if err != nil {
		return err
	}

	zap.L().Info("scoring complete",
		zap.String("order_id", orderID),
		zap.Int("ranked", len(result.Ranked)),
		zap.Int("excluded", len(result.Excluded)),
	)

	if err := outputScoreResult(result, format, outputPath); err != nil {
		return err
	}
	if len(result.Excluded) > 0 {
		fmt.Printf("\n%d comps excluded by hard constraints\n", len(result.Excluded))
	}
	return nil
}

// scorePool loads everything scoring needs and runs the scorer. The returned
// pool is the (possibly polygon-filtered) comp set the ranking was computed
// over, for callers that need it downstream.
func scorePool(ctx context.Context, st store.Store, orderID, polygonPath string) (scorer.Result, []model.CompProperty, error) {
	var zero scorer.Result

	order, err := st.GetOrder(ctx, orderID)
	if err != nil {
		return zero, nil, err
	}
	comps, err := st.GetComps(ctx, orderID)
	if err != nil {
		return zero, nil, eris.Wrap(err, "score: no comp pool imported")
	}
	w, c, err := loadWeights(ctx, st, orderID)
	if err != nil {
		return zero, nil, err
	}
	if errs := scorer.Validate(w, c); len(errs) > 0 {
		return zero, nil, eris.Errorf("score: invalid weights:\n  %s", strings.Join(errs, "\n  "))
	}
	sel, err := st.GetSelection(ctx, orderID)
	if err != nil {
		return zero, nil, err
	}

	if polygonPath != "" {
		poly, err := importer.LoadPolygon(polygonPath)
		if err != nil {
			return zero, nil, err
		}
		comps = selection.AnnotatePolygon(comps, poly)
		if err := st.SaveComps(ctx, orderID, comps); err != nil {
			return zero, nil, err
		}
		comps = selection.FilterByPolygon(comps, poly, sel)
	}

	return scorer.Score(comps, order.Subject, w, c), comps, nil
}

func outputScoreResult(result scorer.Result, format, outputPath string) error {
	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "score: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	switch format {
	case "csv":
		return writeRankedCSV(w, result.Ranked)
	default:
		return writeRankedTable(w, result.Ranked)
	}
}

func writeRankedCSV(w *os.File, ranked []scorer.ScoredComp) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"rank", "id", "address", "type", "sale_price", "distance_miles", "months_since_sale", "score", "violations"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}

	for i, sc := range ranked {
		row := []string{
			fmt.Sprintf("%d", i+1),
			sc.Comp.ID,
			sc.Comp.Address,
			string(sc.Comp.Type),
			fmt.Sprintf("%.0f", sc.Comp.SalePrice),
			fmt.Sprintf("%.2f", sc.Comp.DistanceMiles),
			fmt.Sprintf("%.1f", sc.Comp.MonthsSinceSale),
			fmt.Sprintf("%.2f", sc.Score),
			strings.Join(sc.CapViolations, ";"),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	return nil
}

func writeRankedTable(w *os.File, ranked []scorer.ScoredComp) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "No comps ranked.")
		return err
	}

	header := fmt.Sprintf("%-5s %-12s %-30s %-8s %12s %6s %7s %s\n",
		"Rank", "ID", "Address", "Type", "Price", "Miles", "Score", "Flags")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "score: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 95)); err != nil {
		return eris.Wrap(err, "score: write table separator")
	}

	for i, sc := range ranked {
		addr := sc.Comp.Address
		if len(addr) > 30 {
			addr = addr[:27] + "..."
		}
		line := fmt.Sprintf("%-5d %-12s %-30s %-8s %12.0f %6.2f %7.2f %s\n",
			i+1, sc.Comp.ID, addr, sc.Comp.Type, sc.Comp.SalePrice,
			sc.Comp.DistanceMiles, sc.Score, strings.Join(sc.CapViolations, ","))
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "score: write table row")
		}
	}
	return nil
}
