package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"diarize/internal/preflight"
	"diarize/internal/services"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var loadModels bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, model files, and the model worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if loadModels {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				results = append(results, preflight.CheckModelWorker(cmd.Context(), cfg, logger)...)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, "Preflight checks:")
			failed := 0
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if failed > 0 {
				return services.Wrap(services.ErrExternalTool, "preflight", "run checks",
					fmt.Sprintf("%d of %d checks failed", failed, len(results)), nil)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&loadModels, "load-models", false, "Start the model worker and load both models")
	return cmd
}
