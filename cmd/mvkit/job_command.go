package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvkit/mvkit/internal/util"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <job.yaml>",
		Short: "Run every step of a job manifest",
		Long: `Run builds every step of a YAML job manifest up front, then executes the
steps in order. Consecutive segment steps run in parallel batches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !util.FileExists(args[0]) {
				return fmt.Errorf("job manifest %s not found", args[0])
			}
			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			summary, err := kit.RunJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d steps failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}
}
