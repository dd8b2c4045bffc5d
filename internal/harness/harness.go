package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/tape/internal/engine"
	"github.com/roach88/tape/internal/machine"
	"github.com/roach88/tape/internal/tape"
	"github.com/roach88/tape/internal/testutil"
	"github.com/roach88/tape/internal/trace"
)

// Harness executes one scenario against a private copy of its tape.
type Harness struct {
	scenario *Scenario
	dir      string
	logger   *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger routes machine, tape and engine logs to logger.
// Default: discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Load and run failures are part of the result, not errors: a scenario may
// expect them. The returned error is reserved for harness problems such as
// an unwritable temp directory.
//
// Execution flow:
//  1. Copy the tape into a fresh temp directory
//  2. Load the transition table
//  3. Step the engine until it halts, fails or spends the step budget
//  4. Check the outcome against the scenario's expectations
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	dir, err := os.MkdirTemp("", "tape-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		scenario: scenario,
		dir:      dir,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("scenario", scenario.Name)

	tapePath, err := h.stageTape()
	if err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.execute(tapePath, result); err != nil {
		result.ErrorCode = ErrorCode(err)
		result.Err = err
	}

	checkExpectations(scenario, result)
	h.logger.Debug("scenario finished", "pass", result.Pass, "errors", len(result.Errors))
	return result, nil
}

// stageTape writes the scenario's initial tape into the temp directory.
func (h *Harness) stageTape() (string, error) {
	content := []byte(h.scenario.Tape)
	if h.scenario.TapeFile != "" {
		data, err := os.ReadFile(h.scenario.TapeFile)
		if err != nil {
			return "", fmt.Errorf("failed to read tape file: %w", err)
		}
		content = data
	}

	path := filepath.Join(h.dir, "tape.txt")
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to stage tape: %w", err)
	}
	return path, nil
}

func (h *Harness) loadTable() (*machine.Table, error) {
	opts := []machine.ParseOption{machine.WithLogger(h.logger)}
	if h.scenario.InstructionsFile != "" {
		return machine.LoadFile(h.scenario.InstructionsFile, opts...)
	}
	opts = append(opts, machine.WithName(h.scenario.Name))
	return machine.Parse(strings.NewReader(h.scenario.Instructions), opts...)
}

// execute loads the machine and runs it, filling result as it goes.
func (h *Harness) execute(tapePath string, result *Result) error {
	table, err := h.loadTable()
	if err != nil {
		return err
	}
	for _, w := range table.Warnings() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: %s", w.Line, w.Message))
	}

	tapeOpts := []tape.Option{tape.WithLogger(h.logger)}
	if h.scenario.BufferSize > 0 {
		tapeOpts = append(tapeOpts, tape.WithBufferSize(h.scenario.BufferSize))
	}
	tp, err := tape.Open(tapePath, tapeOpts...)
	if err != nil {
		return err
	}
	defer tp.Close()

	var buf bytes.Buffer
	rec := trace.NewTable(&buf)
	eng := engine.New(table, tp,
		engine.WithRecorder(rec),
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(testutil.NewFixedRunID(h.scenario.RunID)),
	)

	runErr := h.drive(eng)
	if eng.Halted() && runErr == nil {
		res, err := eng.Finish()
		if err != nil {
			runErr = err
		} else {
			result.Final = &Final{Halted: true, State: res.State, Position: res.Position, Bit: res.Bit, Steps: res.Steps}
		}
	}
	if result.Final == nil {
		// Budget spent or failed: keep what the window holds and close the trace.
		if err := tp.Flush(); err != nil && runErr == nil {
			runErr = err
		}
		_ = rec.Flush()

		mc := eng.Context()
		bit, _ := tp.Peek(mc.Position)
		result.Final = &Final{
			Halted:   eng.Halted(),
			State:    int(mc.State),
			Position: mc.Position,
			Bit:      int(bit),
			Steps:    eng.Steps(),
		}
	}
	result.Trace = buf.String()

	content, err := os.ReadFile(tapePath)
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to read final tape: %w", err))
	}
	result.Tape = string(content)
	return runErr
}

// drive steps the engine until it halts, fails or spends the step budget.
func (h *Harness) drive(eng *engine.Engine) error {
	budget := h.scenario.stepBudget()
	for eng.Steps() < budget {
		halted, err := eng.Step()
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
	h.logger.Debug("step budget spent", "budget", budget)
	return nil
}

// ErrorCode returns the machine or tape error code carried by err, or
// "ERROR" for anything else.
func ErrorCode(err error) string {
	var pe *machine.ParseError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	var te *tape.Error
	if errors.As(err, &te) {
		return string(te.Code)
	}
	return "ERROR"
}
