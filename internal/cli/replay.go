package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/viewfinder/internal/harness"
	"github.com/roach88/viewfinder/internal/trace"
)

// ReplayResult reports the outcome of replaying a recorded session.
type ReplayResult struct {
	Session     string `json:"session"`
	Transitions int    `json:"transitions"`
	Matched     bool   `json:"matched"`
	Mismatch    string `json:"mismatch,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "replay <trace.db>",
		Short: "Replay a recorded session and verify it reproduces",
		Long: `Replay re-drives the movements of a recorded session against a fresh
engine and compares the resulting trace against the recording. Tokens
and timestamps differ between runs; sections, movements, and outcomes
must match.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, rootOpts, args[0], session)
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "session token to replay (defaults to the only recorded session)")
	return cmd
}

func runReplay(cmd *cobra.Command, rootOpts *RootOptions, dbPath, session string) error {
	formatter := newFormatter(rootOpts, cmd)

	recorder, err := openTraceDB(formatter, dbPath)
	if err != nil {
		return err
	}
	defer recorder.Close()

	ctx := context.Background()

	if session == "" {
		sessions, err := recorder.Sessions(ctx)
		if err != nil {
			formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		switch len(sessions) {
		case 0:
			formatter.Error(ErrCodeNotFound, "no sessions recorded in "+dbPath, nil)
			return NewExitError(ExitCommandError, "no sessions recorded")
		case 1:
			session = sessions[0]
		default:
			formatter.Error(ErrCodeNotFound, "multiple sessions recorded, pick one with --session", nil)
			return NewExitError(ExitCommandError, "multiple sessions recorded")
		}
	}

	recorded, err := recorder.ReadSession(ctx, session)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if len(recorded) == 0 {
		formatter.Error(ErrCodeNotFound, "no transitions recorded for session "+session, nil)
		return NewExitError(ExitCommandError, "session not found: "+session)
	}

	formatter.VerboseLog("Replaying %d transitions from session %s", len(recorded), session)

	replayed, err := harness.Replay(recorded, session+"-replay")
	if err != nil {
		formatter.Error(ErrCodeReplay, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	if err := trace.VerifyMatch(recorded, replayed); err != nil {
		var mismatch *trace.MismatchError
		if errors.As(err, &mismatch) {
			result := ReplayResult{
				Session:     session,
				Transitions: len(recorded),
				Matched:     false,
				Mismatch:    mismatch.Error(),
			}
			if rootOpts.Format == "json" {
				_ = formatter.Success(result)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "replay diverged: %s\n", mismatch.Error())
			}
			return NewExitError(ExitFailure, "replay diverged from recording")
		}
		formatter.Error(ErrCodeReplay, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay verification failed", err)
	}

	result := ReplayResult{Session: session, Transitions: len(recorded), Matched: true}
	if rootOpts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %s replayed, %d transitions verified\n", session, len(recorded))
	return nil
}
