package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tape/internal/machine"
)

// ValidationResult describes a transition table that loaded.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	File       string   `json:"file"`
	States     int      `json:"states"`
	Operations int      `json:"operations"`
	Warnings   []string `json:"warnings,omitempty"`
}

func (r ValidationResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✓ %s: %d states, %d operations", r.File, r.States, r.Operations)
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "\n  warning: %s", w)
	}
	return sb.String()
}

// ParseErrorDetails is the JSON detail of a rejected table.
type ParseErrorDetails struct {
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line,omitempty"`
	Text string `json:"text,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <instructions>",
		Short: "Check an instruction file without running it",
		Long: `Parse an instruction file and report its first error, or its state
count and any warnings. With --verbose the normalized table is printed.

Exit codes:
  0 - Table is valid (warnings allowed)
  2 - Table is rejected or unreadable`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	table, err := machine.LoadFile(path, machine.WithLogger(opts.logger(cmd)))
	if err != nil {
		var details any
		var pe *machine.ParseError
		if errors.As(err, &pe) {
			details = ParseErrorDetails{Kind: string(pe.Code), File: pe.File, Line: pe.Line, Text: pe.Text}
		}
		if ferr := formatter.Error(ErrCodeLoad, err.Error(), details); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "validation failed", err)
	}

	result := ValidationResult{
		Valid:      true,
		File:       path,
		States:     table.States(),
		Operations: table.States() * 2,
	}
	for _, w := range table.Warnings() {
		if w.Line > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: %s", w.Line, w.Message))
		} else {
			result.Warnings = append(result.Warnings, w.Message)
		}
	}

	formatter.VerboseLog("%s", strings.TrimRight(table.String(), "\n"))
	return formatter.Success(result)
}
