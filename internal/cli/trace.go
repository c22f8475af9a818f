package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/viewfinder/internal/trace"
)

// TraceListResult lists recorded sessions.
type TraceListResult struct {
	Sessions []string `json:"sessions"`
}

// TraceShowResult holds one session's transitions.
type TraceShowResult struct {
	Session     string         `json:"session"`
	Transitions []trace.Record `json:"transitions"`
}

// NewTraceCommand creates the trace command with list/show subcommands.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded transition traces",
	}
	cmd.AddCommand(newTraceListCommand(rootOpts))
	cmd.AddCommand(newTraceShowCommand(rootOpts))
	return cmd
}

func newTraceListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <trace.db>",
		Short:         "List recorded sessions",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			recorder, err := openTraceDB(formatter, args[0])
			if err != nil {
				return err
			}
			defer recorder.Close()

			sessions, err := recorder.Sessions(context.Background())
			if err != nil {
				formatter.Error(ErrCodeGeneric, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to list sessions", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(TraceListResult{Sessions: sessions})
			}
			for _, session := range sessions {
				fmt.Fprintln(cmd.OutOrStdout(), session)
			}
			return nil
		},
	}
}

func newTraceShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <trace.db> <session>",
		Short:         "Show a session's transitions in order",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			recorder, err := openTraceDB(formatter, args[0])
			if err != nil {
				return err
			}
			defer recorder.Close()

			records, err := recorder.ReadSession(context.Background(), args[1])
			if err != nil {
				formatter.Error(ErrCodeGeneric, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to read session", err)
			}
			if len(records) == 0 {
				formatter.Error(ErrCodeNotFound, "no transitions recorded for session "+args[1], nil)
				return NewExitError(ExitCommandError, "session not found: "+args[1])
			}

			if rootOpts.Format == "json" {
				return formatter.Success(TraceShowResult{Session: args[1], Transitions: records})
			}
			for _, rec := range records {
				status := "ok"
				if !rec.Success {
					status = "cancelled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-12s %-10s -> %-10s %6.0fms  %s\n",
					rec.Seq, rec.Movement, rec.From, rec.To, rec.DurationMS, status)
			}
			return nil
		},
	}
}

func openTraceDB(formatter *OutputFormatter, path string) (*trace.Recorder, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		formatter.Error(ErrCodeNotFound, "trace database not found: "+path, nil)
		return nil, NewExitError(ExitCommandError, "trace database not found: "+path)
	}
	recorder, err := trace.Open(path)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open trace database", err)
	}
	return recorder, nil
}
