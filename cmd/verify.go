package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ttb-tools/labelcheck/internal/extract"
)

var (
	verifyAppPath string
	verifyNoSave  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <image>",
	Short: "Verify a single label image against an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		imagePath := args[0]

		app, err := loadApplication(verifyAppPath)
		if err != nil {
			return err
		}

		mediaType, err := extract.MediaTypeForFile(imagePath)
		if err != nil {
			return err
		}
		image, err := os.ReadFile(imagePath)
		if err != nil {
			return eris.Wrapf(err, "read image %s", imagePath)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		verdict, err := env.Engine.Verify(ctx, image, mediaType, *app)
		if err != nil {
			return err
		}
		verdict.ImageName = imagePath

		if !verifyNoSave {
			if _, err := env.Store.SaveEntry(ctx, *app, *verdict); err != nil {
				zap.L().Warn("failed to save verification history", zap.Error(err))
			}
		}

		return printJSON(verdict)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyAppPath, "application", "", "path to application JSON (required)")
	verifyCmd.Flags().BoolVar(&verifyNoSave, "no-save", false, "skip writing the verdict to history")
	verifyCmd.MarkFlagRequired("application") //nolint:errcheck
	rootCmd.AddCommand(verifyCmd)
}
