package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-cli/internal/model"
	"github.com/sells-group/appraisal-cli/internal/store"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Manage appraisal orders",
}

var orderCreateCmd = &cobra.Command{
	Use:   "create <subject.json>",
	Short: "Create an order from a subject property file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "order: read subject %s", args[0])
		}
		var subject model.Subject
		if err := json.Unmarshal(data, &subject); err != nil {
			return eris.Wrap(err, "order: parse subject")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		order, err := st.CreateOrder(ctx, subject)
		if err != nil {
			return err
		}

		zap.L().Info("order created", zap.String("order_id", order.ID))
		fmt.Printf("Order %s created for %s\n", order.ID, subject.Address)
		return nil
	},
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		orders, err := st.ListOrders(ctx, store.OrderFilter{Limit: limit})
		if err != nil {
			return err
		}

		if len(orders) == 0 {
			fmt.Println("No orders.")
			return nil
		}
		fmt.Printf("%-38s %-40s %-12s\n", "ID", "Address", "Created")
		for _, o := range orders {
			fmt.Printf("%-38s %-40s %-12s\n", o.ID, o.Subject.Address, o.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var orderShowCmd = &cobra.Command{
	Use:   "show <order-id>",
	Short: "Show an order as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		order, err := st.GetOrder(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(order)
	},
}

var orderTimeAdjCmd = &cobra.Command{
	Use:   "set-time-adj <order-id>",
	Short: "Set the market conditions time adjustment for an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		basis, _ := cmd.Flags().GetString("basis")
		pct, _ := cmd.Flags().GetFloat64("pct-per-month")
		effective, _ := cmd.Flags().GetString("effective-date")

		ta := model.TimeAdjustments{Basis: basis, PctPerMonth: pct, EffectiveDateISO: effective}
		if !ta.Valid() {
			return eris.New("order: --effective-date is required")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SaveTimeAdjustments(ctx, args[0], ta); err != nil {
			return err
		}
		fmt.Printf("Time adjustment set: %.2f%%/month on %s, effective %s\n", pct, basis, effective)
		return nil
	},
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	orderListCmd.Flags().Int("limit", 0, "maximum number of orders (0=default)")

	f := orderTimeAdjCmd.Flags()
	f.String("basis", "salePrice", "adjustment basis: salePrice or ppsf")
	f.Float64("pct-per-month", 0, "monthly market adjustment percentage")
	f.String("effective-date", "", "effective date (YYYY-MM-DD)")

	orderCmd.AddCommand(orderCreateCmd, orderListCmd, orderShowCmd, orderTimeAdjCmd)
	rootCmd.AddCommand(orderCmd)
}
