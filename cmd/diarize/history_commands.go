package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"diarize/internal/history"
	"diarize/internal/report"
	"diarize/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
	}
	cmd.AddCommand(newHistoryListCommand(ctx))
	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func openHistoryStore(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "history is disabled (history.enabled = false)", nil)
	}
	return history.Open(cfg)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.CreatedAt.Local().Format("2006-01-02 15:04"),
					run.Status,
					strconv.Itoa(len(run.Speakers)),
					strconv.Itoa(run.Segments),
					report.FormatTime(run.AudioDuration),
					run.AudioPath,
				})
			}
			headers := []string{"ID", "Created", "Status", "Speakers", "Segments", "Duration", "Audio"}
			aligns := []report.Alignment{report.AlignLeft, report.AlignLeft, report.AlignLeft, report.AlignRight, report.AlignRight, report.AlignRight, report.AlignLeft}
			fmt.Fprint(out, report.RenderTable(headers, rows, aligns))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run by ID or unique ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, history.ErrAmbiguousID) {
					return fmt.Errorf("id prefix %q matches more than one run", args[0])
				}
				return err
			}
			if run == nil {
				return fmt.Errorf("run %q not found", args[0])
			}
			renderRun(cmd, run)
			return nil
		},
	}
}

func renderRun(cmd *cobra.Command, run *history.Run) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	kind := statusOK
	switch run.Status {
	case history.StatusDegraded:
		kind = statusWarn
	case history.StatusFailed:
		kind = statusError
	}

	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintln(out, renderStatusLine("Status", kind, run.Status, colorize))
	if run.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Audio", statusInfo, run.AudioPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Created", statusInfo, run.CreatedAt.Local().Format(time.DateTime), colorize))
	fmt.Fprintln(out, renderStatusLine("Audio duration", statusInfo, report.FormatTime(run.AudioDuration), colorize))
	fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, run.Elapsed.Round(time.Millisecond).String(), colorize))
	fmt.Fprintln(out, renderStatusLine("Threshold", statusInfo, strconv.FormatFloat(run.Threshold, 'f', -1, 64), colorize))
	fmt.Fprintln(out, renderStatusLine("Max speakers", statusInfo, strconv.Itoa(run.MaxSpeakers), colorize))
	fmt.Fprintln(out, renderStatusLine("Windows", statusInfo, strconv.Itoa(run.Windows), colorize))
	fmt.Fprintln(out, renderStatusLine("Change points", statusInfo, strconv.Itoa(run.ChangePoints), colorize))
	fmt.Fprintln(out, renderStatusLine("Segments", statusInfo, strconv.Itoa(run.Segments), colorize))
	fallbackKind := statusInfo
	if run.Fallbacks > 0 {
		fallbackKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Fallbacks", fallbackKind, strconv.Itoa(run.Fallbacks), colorize))

	if len(run.Speakers) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(run.Speakers))
	for _, sp := range run.Speakers {
		rows = append(rows, []string{
			strconv.Itoa(sp.ID),
			strconv.Itoa(sp.Segments),
			strconv.FormatFloat(sp.TotalDuration, 'f', 2, 64),
			strconv.FormatFloat(sp.AverageConfidence, 'f', 3, 64),
		})
	}
	headers := []string{report.Header("speaker"), report.Header("segments"), report.Header("total_duration"), report.Header("average_confidence")}
	aligns := []report.Alignment{report.AlignRight, report.AlignRight, report.AlignRight, report.AlignRight}
	fmt.Fprint(out, report.RenderTable(headers, rows, aligns))
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return services.Wrap(services.ErrValidation, "history", "prune", "--keep must not be negative", nil)
			}
			store, err := openHistoryStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s), kept up to %d\n", removed, keep)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 100, "Number of most recent runs to keep")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

