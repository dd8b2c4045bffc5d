package tape

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/tape/internal/machine"
	"github.com/roach88/tape/internal/metrics"
)

// BufferSize is the default window length in bits.
const BufferSize = 128

// Tape is a paged view of an unbounded tape over a growable file.
//
// INVARIANTS:
//   - base and origin are multiples of len(window)
//   - length is the file length in bytes
//   - valid is false only after a failed page-in; such a window is never flushed
type Tape struct {
	path    string
	file    *os.File
	window  []machine.Bit
	scratch []byte
	base    int64
	origin  int64
	length  int64
	valid   bool

	create  bool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures Open.
type Option func(*Tape)

// WithBufferSize sets the window length. Sizes below 1 panic at Open.
func WithBufferSize(size int) Option {
	return func(t *Tape) {
		t.window = make([]machine.Bit, size)
	}
}

// WithCreate creates the tape file when it does not exist.
func WithCreate() Option {
	return func(t *Tape) {
		t.create = true
	}
}

// WithMetrics records flushes, swaps and shifts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tape) {
		t.metrics = m
	}
}

// WithLogger sets the logger for paging events.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tape) {
		t.logger = logger
	}
}

// Open opens the tape file at path for reading and writing and pages in
// the window at logical index 0.
func Open(path string, opts ...Option) (*Tape, error) {
	t := &Tape{
		path:   path,
		window: make([]machine.Bit, BufferSize),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	if len(t.window) < 1 {
		panic(fmt.Sprintf("tape: buffer size %d must be positive", len(t.window)))
	}
	t.scratch = make([]byte, len(t.window))

	flag := os.O_RDWR
	if t.create {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, &Error{Code: ErrCodeNotOpenable, Path: path, Offset: -1, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &Error{Code: ErrCodeUnreadable, Path: path, Offset: -1, Err: err}
	}
	t.file = f
	t.length = info.Size()
	t.metrics.FileSize(t.length)

	if err := t.load(0); err != nil {
		f.Close()
		t.file = nil
		return nil, err
	}
	t.logger.Debug("tape opened", "path", path, "bytes", t.length, "window", len(t.window))
	return t, nil
}

// Path returns the tape file path.
func (t *Tape) Path() string { return t.path }

// Size returns the window length.
func (t *Tape) Size() int { return len(t.window) }

// Base returns the logical index of the window's first bit.
func (t *Tape) Base() int64 { return t.base }

// Origin returns how many bytes the file has been shifted right.
func (t *Tape) Origin() int64 { return t.origin }

// Len returns the tape file length in bytes.
func (t *Tape) Len() int64 { return t.length }

// Contains reports whether pos lies in the loaded window.
func (t *Tape) Contains(pos int64) bool {
	return pos >= t.base && pos < t.base+int64(len(t.window))
}

// Read returns the bit at pos, which must lie in the loaded window.
func (t *Tape) Read(pos int64) machine.Bit {
	return t.window[t.index(pos)]
}

// Write stores bit at pos in the window. The file is not touched until
// the next swap or Flush.
func (t *Tape) Write(pos int64, bit machine.Bit) {
	t.window[t.index(pos)] = bit
}

func (t *Tape) index(pos int64) int64 {
	if !t.valid {
		panic(fmt.Sprintf("tape: access at %d to a window that failed to load", pos))
	}
	if !t.Contains(pos) {
		panic(fmt.Sprintf("tape: position %d outside window [%d, %d)", pos, t.base, t.base+int64(len(t.window))))
	}
	return pos - t.base
}

// SwapTo flushes the current window and loads the adjacent window at base.
func (t *Tape) SwapTo(base int64) error {
	size := int64(len(t.window))
	var direction string
	switch base {
	case t.base + size:
		direction = "right"
	case t.base - size:
		direction = "left"
	default:
		panic(fmt.Sprintf("tape: swap from %d to %d is not one window away", t.base, base))
	}

	if err := t.Flush(); err != nil {
		return err
	}
	if err := t.load(base); err != nil {
		return err
	}
	t.metrics.Swap(direction)
	t.logger.Debug("window swapped", "direction", direction, "base", base, "origin", t.origin)
	return nil
}

// Flush writes the window back to the file. Flushing an unmodified window
// again leaves the file unchanged.
func (t *Tape) Flush() error {
	if !t.valid {
		return nil
	}
	for i, b := range t.window {
		t.scratch[i] = b.Byte()
	}

	off := t.base + t.origin
	if off < 0 {
		return t.growLeft(-off)
	}

	if off > t.length {
		if err := t.writeAt(zeros(off-t.length), t.length, ErrCodeWriteFailed); err != nil {
			return err
		}
	}
	if err := t.writeAt(t.scratch, off, ErrCodeWriteFailed); err != nil {
		return err
	}
	t.length = max(t.length, off+int64(len(t.scratch)))
	t.metrics.Flush(t.length)
	return nil
}

// growLeft relocates the file content shift bytes to the right and writes
// the window at the new start of the file.
func (t *Tape) growLeft(shift int64) error {
	old := make([]byte, t.length)
	if _, err := io.ReadFull(io.NewSectionReader(t.file, 0, t.length), old); err != nil {
		return &Error{Code: ErrCodeShiftFailed, Path: t.path, Offset: 0, Err: err}
	}

	if err := t.writeAt(t.scratch, 0, ErrCodeShiftFailed); err != nil {
		return err
	}
	size := int64(len(t.scratch))
	if shift > size {
		if err := t.writeAt(zeros(shift-size), size, ErrCodeShiftFailed); err != nil {
			return err
		}
	}
	if err := t.writeAt(old, shift, ErrCodeShiftFailed); err != nil {
		return err
	}

	t.origin += shift
	t.length = max(t.length+shift, size)
	t.metrics.Shift()
	t.metrics.Flush(t.length)
	t.logger.Debug("tape grown left", "shift", shift, "origin", t.origin, "bytes", t.length)
	return nil
}

func (t *Tape) writeAt(p []byte, off int64, code ErrorCode) error {
	if _, err := t.file.WriteAt(p, off); err != nil {
		return &Error{Code: code, Path: t.path, Offset: off, Err: err}
	}
	return nil
}

// load pages in the window whose first bit is logical index base.
// Bytes outside the file read as zero.
func (t *Tape) load(base int64) error {
	t.base = base
	t.valid = false
	clear(t.window)

	size := int64(len(t.window))
	off := base + t.origin
	if off+size <= 0 || off >= t.length {
		t.valid = true
		return nil
	}

	start := max(off, 0)
	end := min(off+size, t.length)
	buf := t.scratch[:end-start]
	n, err := t.file.ReadAt(buf, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return &Error{Code: ErrCodeUnreadable, Path: t.path, Offset: start, Err: err}
	}
	for i, c := range buf[:n] {
		bit, ok := machine.BitFromByte(c)
		if !ok {
			return &Error{Code: ErrCodeCorrupt, Path: t.path, Offset: start + int64(i), Char: c}
		}
		t.window[start-off+int64(i)] = bit
	}
	t.valid = true
	return nil
}

// Peek returns the bit at any logical position without moving the window.
// Positions outside the window are read from the file.
func (t *Tape) Peek(pos int64) (machine.Bit, error) {
	if t.valid && t.Contains(pos) {
		return t.window[pos-t.base], nil
	}
	off := pos + t.origin
	if off < 0 || off >= t.length {
		return machine.Zero, nil
	}
	var b [1]byte
	if _, err := t.file.ReadAt(b[:], off); err != nil {
		if errors.Is(err, io.EOF) {
			return machine.Zero, nil
		}
		return machine.Zero, &Error{Code: ErrCodeUnreadable, Path: t.path, Offset: off, Err: err}
	}
	bit, ok := machine.BitFromByte(b[0])
	if !ok {
		return machine.Zero, &Error{Code: ErrCodeCorrupt, Path: t.path, Offset: off, Char: b[0]}
	}
	return bit, nil
}

// Close releases the tape file. It does not flush.
func (t *Tape) Close() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

func zeros(n int64) []byte {
	return bytes.Repeat([]byte{'0'}, int(n))
}
