package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/appraisal-cli/internal/model"
	"github.com/sells-group/appraisal-cli/internal/selection"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Manage the order's primary comp selection",
}

var selectSwapCmd = &cobra.Command{
	Use:   "swap <order-id> <comp-id> <slot>",
	Short: "Place a comp into a primary slot",
	Long: `Place a comp into one of the primary slots (0-2). If the slot holds a
locked comp, the swap is refused unless --confirm is passed.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		slot, err := strconv.Atoi(args[2])
		if err != nil {
			return eris.Wrapf(err, "select: parse slot %q", args[2])
		}
		confirm, _ := cmd.Flags().GetBool("confirm")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mgr := selection.NewManager(st)
		sel, err := mgr.Swap(ctx, args[0], args[1], slot, confirm)
		if eris.Is(err, selection.ErrLockedSlotConflict) {
			return eris.Wrap(err, "select: re-run with --confirm to replace the locked comp")
		}
		if err != nil {
			return err
		}
		printSelection(sel)
		return nil
	},
}

var selectLockCmd = &cobra.Command{
	Use:   "lock <order-id> <comp-id>",
	Short: "Lock a comp (or unlock with --unlock)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		unlock, _ := cmd.Flags().GetBool("unlock")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mgr := selection.NewManager(st)
		sel, err := mgr.Lock(ctx, args[0], args[1], !unlock)
		if err != nil {
			return err
		}
		printSelection(sel)
		return nil
	},
}

var selectPolygonCmd = &cobra.Command{
	Use:   "polygon <order-id>",
	Short: "Toggle polygon restriction for the order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		restrict, _ := cmd.Flags().GetBool("restrict")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mgr := selection.NewManager(st)
		sel, err := mgr.UpdateSelection(ctx, args[0], selection.SelectionPatch{RestrictToPolygon: &restrict})
		if err != nil {
			return err
		}
		printSelection(sel)
		return nil
	},
}

var selectShowCmd = &cobra.Command{
	Use:   "show <order-id>",
	Short: "Show the order's selection state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sel, err := st.GetSelection(ctx, args[0])
		if err != nil {
			return err
		}
		printSelection(sel)
		return nil
	},
}

func printSelection(sel model.CompSelection) {
	for i, id := range sel.Primary {
		label := id
		if id == model.EmptySlot {
			label = "(empty)"
		} else if sel.IsLocked(id) {
			label += " [locked]"
		}
		fmt.Printf("Primary %d: %s\n", i, label)
	}
	for id := range sel.Locked {
		if sel.PrimaryIndex(id) < 0 {
			fmt.Printf("Locked:    %s\n", id)
		}
	}
	fmt.Printf("Polygon restriction: %v\n", sel.RestrictToPolygon)
}

func init() {
	selectSwapCmd.Flags().Bool("confirm", false, "replace a locked comp")
	selectLockCmd.Flags().Bool("unlock", false, "remove the lock instead")
	selectPolygonCmd.Flags().Bool("restrict", true, "restrict scoring to the market polygon")

	selectCmd.AddCommand(selectSwapCmd, selectLockCmd, selectPolygonCmd, selectShowCmd)
	rootCmd.AddCommand(selectCmd)
}
