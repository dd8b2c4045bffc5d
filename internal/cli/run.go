package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tape/internal/config"
	"github.com/roach88/tape/internal/engine"
	"github.com/roach88/tape/internal/logging"
	"github.com/roach88/tape/internal/machine"
	"github.com/roach88/tape/internal/metrics"
	"github.com/roach88/tape/internal/tape"
	"github.com/roach88/tape/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigFile  string
	Output      string
	Silent      bool
	TraceFormat string
	BufferSize  int
	Create      bool
	MetricsFile string
	LogFile     string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <instructions> <tape>",
		Short: "Run a machine until it halts",
		Long: `Load a transition table and run it over a tape file until a STOP
operation executes. The tape file is updated in place.

The execution trace goes to stdout, or to the file named by --output.
--silent suppresses it. With --format json the run result is printed
as JSON and the trace is only written when --output is given.

Settings may also come from a YAML run file (--config); flags that are
set explicitly override it.

Exit codes:
  0 - Machine halted
  2 - Load, configuration or tape I/O error

Examples:
  tape run adder.tm tape.txt
  tape run adder.tm tape.txt -o trace.log
  tape run adder.tm tape.txt --trace-format json --metrics-file run.prom
  tape run --config run.yaml`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMachine(opts, args, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.ConfigFile, "config", "", "YAML run file")
	f.StringVarP(&opts.Output, "output", "o", "", "write the trace to FILE")
	f.BoolVarP(&opts.Silent, "silent", "s", false, "do not write a trace")
	f.StringVar(&opts.TraceFormat, "trace-format", config.FormatTable, "trace format (table|json)")
	f.IntVar(&opts.BufferSize, "buffer-size", config.DefaultBufferSize, "tape window length in cells")
	f.BoolVar(&opts.Create, "create", false, "create the tape file if it does not exist")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to FILE after the run")
	f.StringVar(&opts.LogFile, "log-file", "", "also write JSON logs to FILE")
	cmd.MarkFlagsMutuallyExclusive("output", "silent")

	return cmd
}

// resolveConfig merges the run file, positional arguments and flags.
func resolveConfig(opts *RunOptions, args []string, cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.Instructions = args[0]
	}
	if len(args) > 1 {
		cfg.Tape = args[1]
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Trace.Output = opts.Output
		cfg.Trace.Silent = false
	}
	if flags.Changed("silent") {
		cfg.Trace.Silent = opts.Silent
	}
	if flags.Changed("trace-format") {
		cfg.Trace.Format = opts.TraceFormat
	}
	if flags.Changed("buffer-size") {
		cfg.BufferSize = opts.BufferSize
	}
	if flags.Changed("create") {
		cfg.Create = opts.Create
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = opts.MetricsFile
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.LogFile
	}
	cfg.Verbose = cfg.Verbose || opts.Verbose

	if err := cfg.Check(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid run settings", err)
	}
	return cfg, nil
}

func runMachine(opts *RunOptions, args []string, cmd *cobra.Command) (err error) {
	formatter := opts.formatter(cmd)
	defer func() {
		if err != nil {
			_ = formatter.Error(errorCodeFor(err), err.Error(), nil)
		}
	}()

	cfg, err := resolveConfig(opts, args, cmd)
	if err != nil {
		return err
	}

	logOpts := logging.Options{Level: logging.Level(cfg.Verbose), Console: cmd.ErrOrStderr()}
	if cfg.LogFile != "" {
		lf, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open log file", err)
		}
		defer lf.Close()
		logOpts.File = lf
	}
	logger := logging.New(logOpts)

	table, err := machine.LoadFile(cfg.Instructions, machine.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load instructions", err)
	}

	m := metrics.New()
	tapeOpts := []tape.Option{
		tape.WithBufferSize(cfg.BufferSize),
		tape.WithMetrics(m),
		tape.WithLogger(logger),
	}
	if cfg.Create {
		tapeOpts = append(tapeOpts, tape.WithCreate())
	}
	tp, err := tape.Open(cfg.Tape, tapeOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open tape", err)
	}
	defer tp.Close()

	recorder, closeTrace, err := openRecorder(cfg, opts.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeTrace()

	eng := engine.New(table, tp,
		engine.WithRecorder(recorder),
		engine.WithLogger(logger),
		engine.WithMetrics(m),
	)

	res, runErr := eng.Run()
	writeMetrics(cfg.MetricsFile, m, logger)
	if runErr != nil {
		return WrapExitError(ExitCommandError, "run failed", runErr)
	}

	if opts.Format == "json" {
		return formatter.Success(res)
	}
	return nil
}

// openRecorder selects the trace recorder for the run. The returned close
// function releases a trace file, if one was opened.
func openRecorder(cfg *config.Config, format string, stdout io.Writer) (trace.Recorder, func(), error) {
	noop := func() {}
	if cfg.Trace.Silent || (format == "json" && cfg.Trace.Output == "") {
		return trace.Discard{}, noop, nil
	}

	w := stdout
	closeFn := noop
	if cfg.Trace.Output != "" {
		f, err := os.Create(cfg.Trace.Output)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to create trace file", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	if cfg.Trace.Format == config.FormatJSON {
		return trace.NewJSONLines(w), closeFn, nil
	}
	return trace.NewTable(w), closeFn, nil
}

// writeMetrics exports metrics when a file is configured. Failures are
// logged and never change the run outcome.
func writeMetrics(path string, m *metrics.Metrics, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		logger.Warn("failed to write metrics", "path", path, "error", err)
	}
}

func errorCodeFor(err error) string {
	switch {
	case machine.IsParseError(err):
		return ErrCodeLoad
	case engine.IsStepError(err):
		return ErrCodeRun
	case tape.IsError(err):
		return ErrCodeLoad
	default:
		return ErrCodeConfig
	}
}
