package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultMaxSteps is the step budget of a scenario that sets none.
const DefaultMaxSteps = 100000

// Scenario defines one machine run and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Instructions is the transition table text.
	Instructions string `yaml:"instructions,omitempty"`

	// InstructionsFile is a path to an instruction file.
	// Relative paths are resolved against the scenario file location.
	InstructionsFile string `yaml:"instructions_file,omitempty"`

	// Tape is the initial tape contents. Empty means an all-zero tape.
	Tape string `yaml:"tape,omitempty"`

	// TapeFile is a path to an initial tape file, copied before the run.
	TapeFile string `yaml:"tape_file,omitempty"`

	// BufferSize overrides tape.BufferSize when positive.
	BufferSize int `yaml:"buffer_size,omitempty"`

	// MaxSteps bounds the run. Zero means DefaultMaxSteps.
	MaxSteps int64 `yaml:"max_steps,omitempty"`

	// RunID is the fixed run id. If empty, "test-run-default" is used.
	RunID string `yaml:"run_id,omitempty"`

	// Expect describes the outcome. Unset fields are not checked.
	Expect Expect `yaml:"expect"`
}

// Expect is the expected outcome of a scenario.
type Expect struct {
	// Halted defaults to true unless Error is set.
	Halted *bool `yaml:"halted,omitempty"`

	State    *int    `yaml:"state,omitempty"`
	Position *int64  `yaml:"position,omitempty"`
	Bit      *int    `yaml:"bit,omitempty"`
	Steps    *int64  `yaml:"steps,omitempty"`
	Tape     *string `yaml:"tape,omitempty"`

	// Warnings is the expected number of parser warnings.
	Warnings *int `yaml:"warnings,omitempty"`

	// Error is the expected error code, e.g. BAD_HEADER or CORRUPT_TAPE.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Relative instruction and tape file paths are resolved against the
// directory holding the scenario.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative file paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if basePath != "" {
		scenario.InstructionsFile = resolve(basePath, scenario.InstructionsFile)
		scenario.TapeFile = resolve(basePath, scenario.TapeFile)
	}

	for _, p := range []string{scenario.InstructionsFile, scenario.TapeFile} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and consistent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Instructions == "" && s.InstructionsFile == "":
		return fmt.Errorf("one of instructions or instructions_file is required")
	case s.Instructions != "" && s.InstructionsFile != "":
		return fmt.Errorf("instructions and instructions_file are mutually exclusive")
	}
	if s.Tape != "" && s.TapeFile != "" {
		return fmt.Errorf("tape and tape_file are mutually exclusive")
	}

	if s.BufferSize < 0 {
		return fmt.Errorf("buffer_size must be non-negative, got %d", s.BufferSize)
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative, got %d", s.MaxSteps)
	}

	e := s.Expect
	if e.Error != "" && e.Halted != nil && *e.Halted {
		return fmt.Errorf("expect: halted and error are mutually exclusive")
	}
	if e.Bit != nil && *e.Bit != 0 && *e.Bit != 1 {
		return fmt.Errorf("expect: bit must be 0 or 1, got %d", *e.Bit)
	}
	return nil
}

// stepBudget returns the effective step budget.
func (s *Scenario) stepBudget() int64 {
	if s.MaxSteps > 0 {
		return s.MaxSteps
	}
	return DefaultMaxSteps
}

// wantHalted reports whether the scenario expects the machine to halt.
func (s *Scenario) wantHalted() bool {
	if s.Expect.Halted != nil {
		return *s.Expect.Halted
	}
	return s.Expect.Error == ""
}
