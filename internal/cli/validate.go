package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/viewfinder/internal/compiler"
)

// ValidationResult holds layout validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Layout   string                     `json:"layout,omitempty"`
	Sections int                        `json:"sections,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <layout.cue>",
		Short: "Validate a CUE layout spec",
		Long: `Compile a CUE layout spec and check it against schema rules:
known section identifiers, grid cell bounds, unique cells, and canvas
positions within the viewport constraints. Reports every error found.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		formatter.Error(ErrCodeNotFound, "layout file not found: "+path, nil)
		return NewExitError(ExitCommandError, "layout file not found: "+path)
	}

	layout, err := compiler.CompileFile(path)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			formatter.Error(ErrCodeParse, ce.Error(), nil)
			return WrapExitError(ExitFailure, "layout failed to compile", err)
		}
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "layout failed to load", err)
	}

	formatter.VerboseLog("Compiled layout %q with %d section(s)", layout.Name, len(layout.Entries))

	if validationErrors := compiler.Validate(layout); len(validationErrors) > 0 {
		result := ValidationResult{Valid: false, Layout: layout.Name, Errors: validationErrors}
		if opts.Format == "json" {
			formatter.Error(ErrCodeValidation, "layout validation failed", result)
		} else {
			for _, e := range validationErrors {
				formatter.Error(e.Code, e.Field+": "+e.Message, nil)
			}
		}
		return NewExitError(ExitFailure, "layout validation failed")
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:    true,
			Layout:   layout.Name,
			Sections: len(layout.Entries),
		})
	}
	return formatter.Success("layout " + layout.Name + " is valid")
}
