package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"diarize/internal/logging"
	"diarize/internal/logs"
	"diarize/internal/services"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show records from the JSON log file",
		Long: `Show records from <log_dir>/diarize.log.

The file is only written when logging.file = true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines < 0 {
				return services.Wrap(services.ErrValidation, "logs", "parse flags", "--lines must not be negative", nil)
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()

			result, err := logs.Tail(path, lines, filter)
			if err != nil {
				return err
			}
			if len(result.Records) == 0 && !follow {
				if !cfg.Logging.File {
					fmt.Fprintf(out, "No log records in %s (enable logging.file to write one)\n", path)
				} else {
					fmt.Fprintf(out, "No log records in %s\n", path)
				}
				return nil
			}
			printRecords(out, result.Records)
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, result.Offset, filter, func(rec logs.Record) {
				printRecords(out, []logs.Record{rec})
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent records to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new records until interrupted")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "Only show records for this run id or prefix")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}

func printRecords(w io.Writer, records []logs.Record) {
	for _, rec := range records {
		fmt.Fprintln(w, rec.Raw)
	}
}
