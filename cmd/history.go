package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ttb-tools/labelcheck/internal/model"
	"github.com/ttb-tools/labelcheck/internal/store"
)

var (
	historyStatus string
	historyLimit  int
	historyOffset int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect verification history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent verifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		entries, err := st.ListEntries(ctx, store.HistoryFilter{
			Status: model.OverallStatus(historyStatus),
			Limit:  historyLimit,
			Offset: historyOffset,
		})
		if err != nil {
			return err
		}

		for _, e := range entries {
			fmt.Printf("%s  %-12s  %-24s  %s\n",
				e.Timestamp.Format("2006-01-02 15:04:05"),
				e.Verdict.OverallStatus,
				e.Verdict.ImageName,
				e.ID,
			)
		}
		zap.L().Info("history listed", zap.Int("entries", len(entries)))
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one verification in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		entry, err := st.GetEntry(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(entry)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all verification history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.ClearEntries(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d entries\n", n)
		return nil
	},
}

func init() {
	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "filter by overall status (approved, needs_review, rejected)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 0, "max entries to list")
	historyListCmd.Flags().IntVar(&historyOffset, "offset", 0, "entries to skip")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
