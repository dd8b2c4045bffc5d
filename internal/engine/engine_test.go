package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tape/internal/machine"
	"github.com/roach88/tape/internal/metrics"
	"github.com/roach88/tape/internal/tape"
	tu "github.com/roach88/tape/internal/testutil"
	"github.com/roach88/tape/internal/trace"
)

const scenarioA = "STATES: 2\n0,0->0,1,R\n0,1->1,0,R\n1,0->1,1,L\n1,1->1,0,R STOP\n"

// leftWalker writes 1 while walking five cells left, then halts on the sixth.
const leftWalker = "STATES: 6\n" +
	"0,0->1,1,L\n0,1->0,1,R\n" +
	"1,0->2,1,L\n1,1->1,1,R\n" +
	"2,0->3,1,L\n2,1->2,1,R\n" +
	"3,0->4,1,L\n3,1->3,1,R\n" +
	"4,0->5,1,L\n4,1->4,1,R\n" +
	"5,0->5,1,L STOP\n5,1->5,1,R\n"

type fixture struct {
	engine   *Engine
	tape     *tape.Tape
	tapePath string
	recorder *trace.Memory
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, instructions, tapeContent string, window int, opts ...Option) *fixture {
	t.Helper()
	instrPath, tapePath := tu.WriteMachine(t, instructions, tapeContent)

	table, err := machine.LoadFile(instrPath)
	require.NoError(t, err)

	m := metrics.New()
	tp, err := tape.Open(tapePath, tape.WithBufferSize(window), tape.WithMetrics(m))
	require.NoError(t, err)
	t.Cleanup(func() { tp.Close() })

	rec := &trace.Memory{}
	base := []Option{
		WithRecorder(rec),
		WithMetrics(m),
		WithRunIDGenerator(NewFixedGenerator("run-1")),
	}
	return &fixture{
		engine:   New(table, tp, append(base, opts...)...),
		tape:     tp,
		tapePath: tapePath,
		recorder: rec,
		metrics:  m,
	}
}

func TestEngine_New(t *testing.T) {
	f := newFixture(t, scenarioA, "", 8)

	assert.Equal(t, MachineContext{State: 0, Position: 0}, f.engine.Context())
	assert.Equal(t, int64(0), f.engine.Steps())
	assert.False(t, f.engine.Halted())
	assert.Empty(t, f.engine.RunID())
}

// Hand trace of scenario A over tape 01000000:
//
//	step state pos bit  op            tape after
//	1    0     0   0    0,0->0,1,R    11000000
//	2    0     1   1    0,1->1,0,R    10000000
//	3    1     2   0    1,0->1,1,L    10100000
//	4    1     1   0    1,0->1,1,L    11100000
//	5    1     0   1    1,1->1,0,RSTOP 01100000
func TestEngine_ScenarioA(t *testing.T) {
	f := newFixture(t, scenarioA, "01000000", 8)

	res, err := f.engine.Run()
	require.NoError(t, err)

	assert.Equal(t, &Result{RunID: "run-1", State: 1, Position: 1, Bit: 1, Steps: 5, TapeBytes: 8}, res)
	assert.Equal(t, "01100000", tu.ReadFile(t, f.tapePath))

	require.Len(t, f.recorder.Records, 5)
	assert.Equal(t, "run-1", f.recorder.RunID)
	want := []string{"0,0->0,1,R", "0,1->1,0,R", "1,0->1,1,L", "1,0->1,1,L", "1,1->1,0,RSTOP"}
	for i, rec := range f.recorder.Records {
		assert.Equal(t, int64(i+1), rec.Step)
		assert.Equal(t, want[i], rec.Instruction())
	}
	require.NotNil(t, f.recorder.Summary)
	assert.Equal(t, int64(5), f.recorder.Summary.Steps)

	assert.Equal(t, 5.0, testutil.ToFloat64(f.metrics.Steps))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Halts))
}

func TestEngine_ScenarioAGoldenTrace(t *testing.T) {
	instrPath, tapePath := tu.WriteMachine(t, scenarioA, "01000000")
	table, err := machine.LoadFile(instrPath)
	require.NoError(t, err)
	tp, err := tape.Open(tapePath)
	require.NoError(t, err)
	defer tp.Close()

	var buf bytes.Buffer
	eng := New(table, tp, WithRecorder(trace.NewTable(&buf)), WithRunIDGenerator(NewFixedGenerator("run-1")))
	_, err = eng.Run()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "scenario_a", buf.Bytes())
}

func TestEngine_ScenarioAOnBlankTapeNeverHalts(t *testing.T) {
	f := newFixture(t, scenarioA, strings.Repeat("0", 8), 8)

	for i := 0; i < 1000; i++ {
		halted, err := f.engine.Step()
		require.NoError(t, err)
		require.False(t, halted)
	}

	assert.Equal(t, MachineContext{State: 0, Position: 1000}, f.engine.Context())
	assert.Equal(t, 125.0, testutil.ToFloat64(f.metrics.Swaps.WithLabelValues("right")))
	assert.Equal(t, strings.Repeat("1", 8), tu.ReadFile(t, f.tapePath)[:8])
}

func TestEngine_LeftwardGrowth(t *testing.T) {
	f := newFixture(t, leftWalker, "0000", 4)

	res, err := f.engine.Run()
	require.NoError(t, err)

	assert.Equal(t, 5, res.State)
	assert.Equal(t, int64(-6), res.Position)
	assert.Equal(t, 0, res.Bit)
	assert.Equal(t, int64(6), res.Steps)
	assert.Equal(t, int64(12), res.TapeBytes)

	// Logical -8..3 after two leftward growths.
	assert.Equal(t, "0001"+"1111"+"1000", tu.ReadFile(t, f.tapePath))
	assert.Equal(t, int64(8), f.tape.Origin())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Shifts))
}

func TestEngine_ShiftOnlyOnFirstNegativeExcursion(t *testing.T) {
	// Oscillates between positions 0 and -1 forever.
	oscillator := "STATES: 2\n0,0->1,0,L\n0,1->1,1,L\n1,0->0,0,R\n1,1->0,1,R\n"
	f := newFixture(t, oscillator, "1010", 4)

	for i := 0; i < 200; i++ {
		_, err := f.engine.Step()
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Shifts))
	assert.Equal(t, 100.0, testutil.ToFloat64(f.metrics.Swaps.WithLabelValues("left")))
	assert.Equal(t, "0000"+"1010", tu.ReadFile(t, f.tapePath))
}

func TestEngine_CorruptTapeMidRun(t *testing.T) {
	walker := "STATES: 1\n0,0->0,0,R\n0,1->0,1,R\n"
	f := newFixture(t, walker, "0110"+"0x", 4)

	res, err := f.engine.Run()
	require.Error(t, err)
	assert.Nil(t, res)

	assert.True(t, tape.IsCorrupt(err))
	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, int64(4), se.Step)
	assert.Equal(t, int64(4), se.Position)
	assert.Contains(t, err.Error(), "step 4 at position 4")

	assert.Equal(t, "0110"+"0x", tu.ReadFile(t, f.tapePath))
	assert.Nil(t, f.recorder.Summary)
}

func TestEngine_StepAfterHalt(t *testing.T) {
	f := newFixture(t, "STATES: 1\n0,0->0,1,R STOP\n0,1->0,1,R STOP\n", "", 4)

	halted, err := f.engine.Step()
	require.NoError(t, err)
	assert.True(t, halted)

	halted, err = f.engine.Step()
	require.NoError(t, err)
	assert.True(t, halted)
	assert.Equal(t, int64(1), f.engine.Steps())
	assert.Equal(t, "1000", tu.ReadFile(t, f.tapePath))
}

func TestEngine_HaltAtWindowEdge(t *testing.T) {
	// Halts moving right off the last cell of the window.
	prog := "STATES: 1\n0,0->0,1,R\n0,1->0,1,R STOP\n"
	f := newFixture(t, prog, "0001"+"1", 4)

	res, err := f.engine.Run()
	require.NoError(t, err)

	assert.Equal(t, int64(4), res.Position)
	assert.Equal(t, 1, res.Bit, "final bit is read from the file beyond the window")
	assert.Equal(t, "1111"+"1", tu.ReadFile(t, f.tapePath))
}

type brokenRecorder struct{ trace.Discard }

func (brokenRecorder) Step(trace.Record) error { return errors.New("trace sink gone") }

func TestEngine_TraceFailureDoesNotStopMachine(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	f := newFixture(t, scenarioA, "01000000", 8, WithRecorder(brokenRecorder{}), WithLogger(logger))

	res, err := f.engine.Run()
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Steps)
	assert.Equal(t, 1, strings.Count(logs.String(), "trace recorder failed"))
	assert.Contains(t, logs.String(), "run_id=run-1")
}

func TestEngine_FinishBeforeHalt(t *testing.T) {
	f := newFixture(t, scenarioA, "01000000", 8)

	_, err := f.engine.Step()
	require.NoError(t, err)

	res, err := f.engine.Finish()
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNotHalted)
	assert.Nil(t, f.recorder.Summary)
}

func TestEngine_StepThenFinish(t *testing.T) {
	f := newFixture(t, scenarioA, "01000000", 8)

	for !f.engine.Halted() {
		_, err := f.engine.Step()
		require.NoError(t, err)
	}

	res, err := f.engine.Finish()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Bit)
	assert.Equal(t, "01100000", tu.ReadFile(t, f.tapePath))
	require.NotNil(t, f.recorder.Summary)
}
