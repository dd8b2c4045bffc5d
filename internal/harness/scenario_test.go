package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/scenario_a.yaml")
	require.NoError(t, err)

	assert.Equal(t, "scenario_a", scenario.Name)
	assert.Equal(t, "01000000", scenario.Tape)
	assert.Equal(t, 8, scenario.BufferSize)
	assert.Equal(t, "scenario-a", scenario.RunID)
	assert.Contains(t, scenario.Instructions, "STATES: 2\n")

	require.NotNil(t, scenario.Expect.State)
	assert.Equal(t, 1, *scenario.Expect.State)
	require.NotNil(t, scenario.Expect.Tape)
	assert.Equal(t, "01100000", *scenario.Expect.Tape)
	assert.Nil(t, scenario.Expect.Warnings)
	assert.True(t, scenario.wantHalted())
	assert.Equal(t, int64(DefaultMaxSteps), scenario.stepBudget())
}

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/left_growth.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "scenarios", "machines", "left_walker.tm"), scenario.InstructionsFile)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "machines", "four_zeros.txt"), scenario.TapeFile)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: based
description: "instructions relative to another directory"
instructions_file: machines/scenario_a.tm
expect:
  steps: 5
`)

	base, err := filepath.Abs("testdata/scenarios")
	require.NoError(t, err)

	scenario, err := LoadScenarioWithBasePath(path, base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "machines", "scenario_a.tm"), scenario.InstructionsFile)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingInstructionsFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: missing
description: "points at nothing"
instructions_file: absent.tm
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "expects is not a field"
instructions: "STATES: 1\n0,0->0,0,R STOP\n0,1->0,1,R STOP\n"
expects:
  steps: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "expects")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\ninstructions: x\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\ninstructions: x\n",
			want: "description is required",
		},
		{
			name: "no instructions",
			yaml: "name: n\ndescription: d\n",
			want: "one of instructions or instructions_file is required",
		},
		{
			name: "both instructions",
			yaml: "name: n\ndescription: d\ninstructions: x\ninstructions_file: y\n",
			want: "mutually exclusive",
		},
		{
			name: "both tapes",
			yaml: "name: n\ndescription: d\ninstructions: x\ntape: '0'\ntape_file: t\n",
			want: "tape and tape_file are mutually exclusive",
		},
		{
			name: "negative buffer",
			yaml: "name: n\ndescription: d\ninstructions: x\nbuffer_size: -1\n",
			want: "buffer_size must be non-negative",
		},
		{
			name: "negative budget",
			yaml: "name: n\ndescription: d\ninstructions: x\nmax_steps: -5\n",
			want: "max_steps must be non-negative",
		},
		{
			name: "halted with error",
			yaml: "name: n\ndescription: d\ninstructions: x\nexpect:\n  halted: true\n  error: BAD_LINE\n",
			want: "halted and error are mutually exclusive",
		},
		{
			name: "bad bit",
			yaml: "name: n\ndescription: d\ninstructions: x\nexpect:\n  bit: 2\n",
			want: "bit must be 0 or 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenario_WantHalted(t *testing.T) {
	no := false

	assert.True(t, (&Scenario{}).wantHalted())
	assert.False(t, (&Scenario{Expect: Expect{Error: "CORRUPT_TAPE"}}).wantHalted())
	assert.False(t, (&Scenario{Expect: Expect{Halted: &no}}).wantHalted())
	assert.Equal(t, int64(7), (&Scenario{MaxSteps: 7}).stepBudget())
}
