package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ttb-tools/labelcheck/internal/batch"
	"github.com/ttb-tools/labelcheck/internal/extract"
	"github.com/ttb-tools/labelcheck/internal/model"
)

var (
	batchAppPath     string
	batchConcurrency int
	batchNoSave      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <image>...",
	Short: "Verify many label images against one application",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := loadApplication(batchAppPath)
		if err != nil {
			return err
		}

		items := make([]batch.Item, 0, len(args))
		for _, path := range args {
			mediaType, err := extract.MediaTypeForFile(path)
			if err != nil {
				return err
			}
			image, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read image %s", path)
			}
			items = append(items, batch.Item{Name: path, Image: image, MediaType: mediaType})
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		runner := batch.NewRunner(func(ctx context.Context, item batch.Item, app model.Application) (*model.Verdict, error) {
			return env.Engine.Verify(ctx, item.Image, item.MediaType, app)
		})

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		events, err := runner.Start(ctx, items, *app, concurrency)
		if err != nil {
			return err
		}

		var final model.BatchProgress
		for snap := range events {
			final = snap
			zap.L().Info("batch progress",
				zap.Int("completed", snap.Completed),
				zap.Int("failed", snap.Failed),
				zap.Int("total", snap.Total),
			)
		}

		if !batchNoSave {
			for _, verdict := range final.Results {
				if _, err := env.Store.SaveEntry(ctx, *app, verdict); err != nil {
					zap.L().Warn("failed to save verification history",
						zap.String("image", verdict.ImageName),
						zap.Error(err),
					)
				}
			}
		}

		if err := printJSON(final); err != nil {
			return err
		}
		if runner.State() == batch.StateCancelled {
			return eris.New("batch run cancelled")
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchAppPath, "application", "", "path to application JSON (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max in-flight extractions (default from config)")
	batchCmd.Flags().BoolVar(&batchNoSave, "no-save", false, "skip writing verdicts to history")
	batchCmd.MarkFlagRequired("application") //nolint:errcheck
	rootCmd.AddCommand(batchCmd)
}
