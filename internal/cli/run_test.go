package cli

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tape/internal/engine"
	tu "github.com/roach88/tape/internal/testutil"
)

const scenarioA = "STATES: 2\n0,0->0,1,R\n0,1->1,0,R\n1,0->1,1,L\n1,1->1,0,R STOP\n"

func TestRunCommand_TableTrace(t *testing.T) {
	instr, tapePath := tu.WriteMachine(t, scenarioA, "01000000")

	stdout, stderr, err := execute(t, "run", instr, tapePath, "--buffer-size", "8")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "run_scenario_a", []byte(stdout))

	assert.Equal(t, "01100000", tu.ReadFile(t, tapePath))
	assert.Contains(t, stderr, "run starting")
	assert.Contains(t, stderr, "STOP reached")
}

func TestRunCommand_Silent(t *testing.T) {
	instr, tapePath := tu.WriteMachine(t, scenarioA, "01000000")

	stdout, _, err := execute(t, "run", instr, tapePath, "-s")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Equal(t, "01100000"+strings.Repeat("0", 120), tu.ReadFile(t, tapePath))
}

func TestRunCommand_OutputFile(t *testing.T) {
	instr, tapePath := tu.WriteMachine(t, scenarioA, "01000000")
	tracePath := filepath.Join(t.TempDir(), "trace.log")

	stdout, _, err := execute(t, "run", instr, tapePath, "-o", tracePath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	traced := tu.ReadFile(t, tracePath)
	assert.True(t, strings.HasPrefix(traced, "Execution:\n"))
	assert.Contains(t, traced, "STOP reached.\nFinal state: 1\nFinal position: 1\nBit at final position: 1\n")
}

func TestRunCommand_OutputAndSilentExclusive(t *testing.T) {
	instr, tapePath := tu.WriteMachine(t, scenarioA, "01000000")

	_, _, err := execute(t, "run", instr, tapePath, "-s", "-o", "trace.log")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_JSONLinesTrace(t *testing.T) {
	instr, tapePath := tu.WriteMachine(t, scenarioA, "01000000")

	stdout, _, err := execute(t, "run", instr, tapePath, "--trace-format", "json")
	require.NoError(t, err)

	var types []string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		var event map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		types = append(types, event["type"].(string))
	}
	assert.Equal(t, []string{"begin", "step", "step", "step", "step", "step", "halt"}, types)
}

func TestRunCommand_JSONResult(t *testing.T) {
	instr, tapePath := tu.WriteMachine(t, scenarioA, "01000000")

	stdout, _, err := execute(t, "run", "--format", "json", instr, tapePath, "--buffer-size", "8")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   engine.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Data.RunID)
	assert.Equal(t, 1, resp.Data.State)
	assert.Equal(t, int64(1), resp.Data.Position)
	assert.Equal(t, 1, resp.Data.Bit)
	assert.Equal(t, int64(5), resp.Data.Steps)
	assert.Equal(t, int64(8), resp.Data.TapeBytes)
}

func TestRunCommand_MetricsFile(t *testing.T) {
	instr, tapePath := tu.WriteMachine(t, scenarioA, "01000000")
	metricsPath := filepath.Join(t.TempDir(), "run.prom")

	_, _, err := execute(t, "run", instr, tapePath, "-s", "--metrics-file", metricsPath)
	require.NoError(t, err)

	exported := tu.ReadFile(t, metricsPath)
	assert.Contains(t, exported, "tape_steps_total 5")
	assert.Contains(t, exported, "tape_halts_total 1")
}

func TestRunCommand_LogFile(t *testing.T) {
	instr, tapePath := tu.WriteMachine(t, scenarioA, "01000000")
	logPath := filepath.Join(t.TempDir(), "run.jsonl")

	_, _, err := execute(t, "run", instr, tapePath, "-s", "--log-file", logPath)
	require.NoError(t, err)

	logs := tu.ReadFile(t, logPath)
	assert.Contains(t, logs, `"msg":"run starting"`)
	assert.Contains(t, logs, `"run_id":`)
}

func TestRunCommand_Create(t *testing.T) {
	instr := tu.WriteFile(t, "machine.tm", "STATES: 1\n0,0->0,1,R STOP\n0,1->0,1,R STOP\n")
	tapePath := filepath.Join(t.TempDir(), "new.txt")

	_, stderr, err := execute(t, "run", instr, tapePath, "-s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E_LOAD]: failed to open tape")

	_, _, err = execute(t, "run", instr, tapePath, "-s", "--create", "--buffer-size", "4")
	require.NoError(t, err)
	assert.Equal(t, "1000", tu.ReadFile(t, tapePath))
}

func TestRunCommand_BadHeader(t *testing.T) {
	instr, tapePath := tu.WriteMachine(t, "STATE: 3\n", "0")

	stdout, stderr, err := execute(t, "run", instr, tapePath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error [E_LOAD]: failed to load instructions")
	assert.Equal(t, "0", tu.ReadFile(t, tapePath))
}

func TestRunCommand_CorruptTape(t *testing.T) {
	walker := "STATES: 1\n0,0->0,0,R\n0,1->0,1,R\n"
	instr, tapePath := tu.WriteMachine(t, walker, "0110"+"0x")

	stdout, stderr, err := execute(t, "run", instr, tapePath, "--buffer-size", "4")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E_RUN]: run failed: step 4 at position 4")
	assert.Contains(t, stdout, "| 0            | 3        | 0   | 0,0->0,0,R\n")
	assert.NotContains(t, stdout, "STOP reached.")
}

func TestRunCommand_MissingArguments(t *testing.T) {
	_, stderr, err := execute(t, "run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no instruction file given")
	assert.Contains(t, stderr, "Error [E_CONFIG]")
}

func TestRunCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tm"), []byte(scenarioA), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tape.txt"), []byte("01000000"), 0644))
	configPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
instructions: a.tm
tape: tape.txt
buffer_size: 8
trace:
  silent: true
`), 0644))

	stdout, _, err := execute(t, "run", "--config", configPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Equal(t, "01100000", tu.ReadFile(t, filepath.Join(dir, "tape.txt")))
}

func TestRunCommand_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tm"), []byte(scenarioA), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tape.txt"), []byte("01000000"), 0644))
	configPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
instructions: a.tm
tape: tape.txt
trace:
  silent: true
`), 0644))
	tracePath := filepath.Join(dir, "trace.log")

	_, _, err := execute(t, "run", "--config", configPath, "-o", tracePath, "--buffer-size", "8")
	require.NoError(t, err)
	assert.Contains(t, tu.ReadFile(t, tracePath), "STOP reached.")
	assert.Equal(t, "01100000", tu.ReadFile(t, filepath.Join(dir, "tape.txt")))
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	configPath := tu.WriteFile(t, "run.yaml", "instructions: a.tm\nbuffer_size: 0\n")

	_, stderr, err := execute(t, "run", "--config", configPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
	assert.Contains(t, stderr, "buffer_size")
}
