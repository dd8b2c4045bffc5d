package engine

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tape/internal/machine"
	"github.com/roach88/tape/internal/metrics"
	"github.com/roach88/tape/internal/tape"
	"github.com/roach88/tape/internal/trace"
)

// MachineContext is the mutable part of the machine.
type MachineContext struct {
	State    machine.State
	Position int64
}

// Result describes a halted run.
type Result struct {
	RunID    string `json:"run_id"`
	State    int    `json:"state"`
	Position int64  `json:"position"`
	Bit      int    `json:"bit"`
	Steps    int64  `json:"steps"`

	// TapeBytes is the tape file length after the final write-back.
	TapeBytes int64 `json:"tape_bytes"`
}

// Engine executes a transition table against a paged tape.
//
// INVARIANTS:
//   - ctx.Position lies inside the tape's loaded window between steps
//   - once halted, Step does nothing
type Engine struct {
	table    *machine.Table
	tape     *tape.Tape
	ctx      MachineContext
	recorder trace.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	runIDs   RunIDGenerator

	runID     string
	started   bool
	halted    bool
	steps     int64
	traceFail bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the trace recorder. Default: trace.Discard.
func WithRecorder(r trace.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger for run lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records steps and halts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New creates an Engine at state 0, position 0.
//
// The engine does not take ownership of tp; the caller closes it.
func New(table *machine.Table, tp *tape.Tape, opts ...Option) *Engine {
	e := &Engine{
		table:    table,
		tape:     tp,
		recorder: trace.Discard{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Context returns the current state and position.
func (e *Engine) Context() MachineContext {
	return e.ctx
}

// Steps returns the number of steps executed.
func (e *Engine) Steps() int64 {
	return e.steps
}

// Halted reports whether a STOP operation has been executed.
func (e *Engine) Halted() bool {
	return e.halted
}

// RunID returns the run id, empty before the first step.
func (e *Engine) RunID() string {
	return e.runID
}

func (e *Engine) begin() {
	e.started = true
	e.runID = e.runIDs.Generate()
	e.logger = e.logger.With("run_id", e.runID)
	e.logger.Info("run starting", "states", e.table.States(), "tape", e.tape.Path(), "window", e.tape.Size())
	e.record(func() error { return e.recorder.Begin(e.runID) })
}

// record reports to the recorder. Trace failures never affect the machine;
// the first one is logged.
func (e *Engine) record(fn func() error) {
	if err := fn(); err != nil && !e.traceFail {
		e.traceFail = true
		e.logger.Warn("trace recorder failed", "error", err)
	}
}

// Step executes one transition and reports whether the machine halted.
func (e *Engine) Step() (bool, error) {
	if e.halted {
		return true, nil
	}
	if !e.started {
		e.begin()
	}

	pos := e.ctx.Position
	bit := e.tape.Read(pos)
	op := e.table.Lookup(e.ctx.State, bit)
	e.steps++

	rec := trace.Record{Step: e.steps, State: e.ctx.State, Position: pos, Bit: bit, Op: op}
	e.record(func() error { return e.recorder.Step(rec) })

	e.tape.Write(pos, op.Write)
	e.ctx.State = op.Next
	e.ctx.Position += op.Move.Delta()
	e.metrics.Step()

	if op.Halt {
		e.halted = true
		if err := e.tape.Flush(); err != nil {
			return true, e.stepError(err)
		}
		return true, nil
	}

	if !e.tape.Contains(e.ctx.Position) {
		base := e.tape.Base() + op.Move.Delta()*int64(e.tape.Size())
		if err := e.tape.SwapTo(base); err != nil {
			return false, e.stepError(err)
		}
	}
	return false, nil
}

func (e *Engine) stepError(err error) error {
	return &StepError{Step: e.steps, Position: e.ctx.Position, Err: err}
}

// Run steps the machine until it halts.
//
// It returns only on STOP or on the first error. On error the current
// window is written back if it is valid, and any buffered trace is flushed.
func (e *Engine) Run() (res *Result, err error) {
	defer func() {
		if err == nil {
			return
		}
		if flushErr := e.tape.Flush(); flushErr != nil {
			e.logger.Error("final write-back failed", "error", flushErr)
		}
		if f, ok := e.recorder.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
		e.logger.Error("run failed", "steps", e.steps, "error", err)
	}()

	for {
		halted, stepErr := e.Step()
		if stepErr != nil {
			return nil, stepErr
		}
		if halted {
			break
		}
	}
	return e.Finish()
}

// Finish reports the halted machine and ends the trace. Callers that drive
// the engine with Step use it once Step reports a halt.
func (e *Engine) Finish() (*Result, error) {
	if !e.halted {
		return nil, ErrNotHalted
	}
	bit, err := e.tape.Peek(e.ctx.Position)
	if err != nil {
		return nil, fmt.Errorf("reading final position: %w", err)
	}

	res := &Result{
		RunID:     e.runID,
		State:     int(e.ctx.State),
		Position:  e.ctx.Position,
		Bit:       int(bit),
		Steps:     e.steps,
		TapeBytes: e.tape.Len(),
	}
	e.metrics.Halt()
	e.record(func() error {
		return e.recorder.End(trace.Summary{
			RunID:    e.runID,
			State:    e.ctx.State,
			Position: e.ctx.Position,
			Bit:      bit,
			Steps:    e.steps,
		})
	})
	e.logger.Info("STOP reached", "state", res.State, "position", res.Position, "bit", res.Bit, "steps", res.Steps)
	return res, nil
}
