package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/viewfinder/internal/harness"
	"github.com/roach88/viewfinder/internal/movement"
	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/state"
	"github.com/roach88/viewfinder/internal/trace"
)

func stateSection(name string) sections.ID    { return sections.ID(name) }
func stateMovement(name string) movement.Kind { return movement.Kind(name) }

// RunResult summarizes a scenario execution for output.
type RunResult struct {
	Scenario    string               `json:"scenario"`
	Passed      bool                 `json:"passed"`
	Failures    []string             `json:"failures,omitempty"`
	Transitions []harness.TraceEvent `json:"transitions"`
	FinalState  harness.FinalState   `json:"final_state"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var traceDB string

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a navigation scenario",
		Long: `Execute a navigation scenario against a deterministic engine and report
pass/fail with the resulting transition trace. With --trace-db the trace
is also appended to a SQLite trace database for later replay.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], traceDB, cmd)
		},
	}
	cmd.Flags().StringVar(&traceDB, "trace-db", "", "append the trace to this SQLite database")
	return cmd
}

func runScenario(opts *RootOptions, path, traceDB string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		formatter.Error(ErrCodeNotFound, "scenario file not found: "+path, nil)
		return NewExitError(ExitCommandError, "scenario file not found: "+path)
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		formatter.Error(ErrCodeParse, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario failed to load", err)
	}

	formatter.VerboseLog("Running scenario %q (%d steps)", scenario.Name, len(scenario.Steps))

	result, err := harness.Run(scenario)
	if err != nil {
		formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	if traceDB != "" {
		if err := persistTrace(traceDB, scenario.SessionToken, result.Trace); err != nil {
			formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to persist trace", err)
		}
		formatter.VerboseLog("Appended %d transition(s) to %s", len(result.Trace), traceDB)
	}

	snapshot := harness.Snapshot(scenario, result)
	out := RunResult{
		Scenario:    scenario.Name,
		Passed:      result.Passed,
		Failures:    result.Failures,
		Transitions: snapshot.Trace,
		FinalState:  snapshot.FinalState,
	}

	if !result.Passed {
		if opts.Format == "json" {
			formatter.Error(ErrCodeScenario, "scenario failed", out)
		} else {
			for _, failure := range result.Failures {
				formatter.Error(ErrCodeScenario, failure, nil)
			}
		}
		return NewExitError(ExitFailure, "scenario failed")
	}

	if opts.Format == "json" {
		return formatter.Success(out)
	}
	return formatter.Success(fmt.Sprintf("scenario %s passed (%d transitions)", scenario.Name, len(result.Trace)))
}

// persistTrace appends an in-memory run's transitions to a durable trace
// database.
func persistTrace(path, sessionToken string, records []trace.Record) error {
	recorder, err := trace.Open(path)
	if err != nil {
		return err
	}
	defer recorder.Close()

	session, err := recorder.Session(context.Background(), sessionToken)
	if err != nil {
		return err
	}
	for _, rec := range records {
		entry := state.Transition{
			From:     stateSection(rec.From),
			To:       stateSection(rec.To),
			Movement: stateMovement(rec.Movement),
			Duration: rec.DurationMS,
			Success:  rec.Success,
		}
		if err := session.Append(rec.Token, entry); err != nil {
			return err
		}
	}
	return nil
}
