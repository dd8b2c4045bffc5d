// Package config loads run configuration files.
//
// A run file is YAML:
//
//	instructions: busy-beaver.tm
//	tape: tape.txt
//	buffer_size: 128
//	create: true
//	trace:
//	  output: run.log
//	  format: table
//	metrics_file: run.prom
//
// Every file is checked against an embedded CUE schema before it is
// decoded, so typos and out-of-range values are rejected with the field
// path. Relative paths are resolved against the file's directory.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Trace formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// DefaultBufferSize is the window length used when none is configured.
const DefaultBufferSize = 128

// Config holds everything needed to run a machine.
type Config struct {
	Instructions string `yaml:"instructions,omitempty"`
	Tape         string `yaml:"tape,omitempty"`
	BufferSize   int    `yaml:"buffer_size,omitempty"`
	Create       bool   `yaml:"create,omitempty"`
	Verbose      bool   `yaml:"verbose,omitempty"`
	MetricsFile  string `yaml:"metrics_file,omitempty"`
	LogFile      string `yaml:"log_file,omitempty"`
	Trace        Trace  `yaml:"trace,omitempty"`
}

// Trace selects whether and where the execution trace is written.
type Trace struct {
	// Output is the trace file; empty means stdout.
	Output string `yaml:"output,omitempty"`
	Format string `yaml:"format,omitempty"`
	Silent bool   `yaml:"silent,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BufferSize: DefaultBufferSize,
		Trace:      Trace{Format: FormatTable},
	}
}

// Load reads, validates and decodes the run file at path on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse validates and decodes a run file. Paths are left as written.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && len(raw) > 0 {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks decoded YAML against the embedded schema.
func Validate(raw map[string]any) error {
	if raw == nil {
		raw = map[string]any{}
	}
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: cueerrors.Details(err, nil), Err: err}
	}
	return nil
}

// ValidationError reports a run file that does not match the schema.
type ValidationError struct {
	Details string
	Err     error
}

func (e *ValidationError) Error() string {
	return "invalid config: " + e.Details
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{&c.Instructions, &c.Tape, &c.MetricsFile, &c.LogFile, &c.Trace.Output} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Check reports missing required settings after flags and file are merged.
func (c *Config) Check() error {
	if c.Instructions == "" {
		return fmt.Errorf("no instruction file given")
	}
	if c.Tape == "" {
		return fmt.Errorf("no tape file given")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.Trace.Format != FormatTable && c.Trace.Format != FormatJSON {
		return fmt.Errorf("invalid trace format %q: must be %s or %s", c.Trace.Format, FormatTable, FormatJSON)
	}
	return nil
}
