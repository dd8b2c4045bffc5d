package machine

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const headerPrefix = "STATES:"

// shortestLine is the shortest well-formed operation line.
const shortestLine = len("0,0->0,1,R")

type parseConfig struct {
	name   string
	logger *slog.Logger
}

// ParseOption configures Parse and LoadFile.
type ParseOption func(*parseConfig)

// WithName sets the source name used in errors and warnings.
func WithName(name string) ParseOption {
	return func(c *parseConfig) {
		c.name = name
	}
}

// WithLogger sets the logger for loaded operations and warnings.
func WithLogger(logger *slog.Logger) ParseOption {
	return func(c *parseConfig) {
		c.logger = logger
	}
}

// LoadFile opens and parses the instruction file at path.
func LoadFile(path string, opts ...ParseOption) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{
			Code:    ErrCodeUnreadable,
			File:    path,
			Message: "cannot open instruction file",
			Err:     err,
		}
	}
	defer f.Close()

	return Parse(f, append([]ParseOption{WithName(path)}, opts...)...)
}

// Parse reads an instruction file.
//
// The first line must be "STATES: N" with 1 <= N <= MaxStates. Exactly N*2
// non-blank operation lines must follow; blank lines are skipped. Lines
// assign by key and duplicates are last-wins. A key no line assigned keeps
// DefaultOperation. Content after the N*2 lines is ignored with a Warning.
func Parse(r io.Reader, opts ...ParseOption) (*Table, error) {
	cfg := parseConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &parser{cfg: cfg, sc: bufio.NewScanner(r)}
	return p.parse()
}

type parser struct {
	cfg    parseConfig
	sc     *bufio.Scanner
	lineNo int
}

func (p *parser) next() (string, bool) {
	if !p.sc.Scan() {
		return "", false
	}
	p.lineNo++
	return p.sc.Text(), true
}

func (p *parser) errorf(code ParseErrorCode, text, format string, args ...any) *ParseError {
	return &ParseError{
		Code:    code,
		File:    p.cfg.name,
		Line:    p.lineNo,
		Text:    text,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *parser) readErr() error {
	if err := p.sc.Err(); err != nil {
		return &ParseError{
			Code:    ErrCodeUnreadable,
			File:    p.cfg.name,
			Line:    p.lineNo,
			Message: "reading instruction file",
			Err:     err,
		}
	}
	return nil
}

func (p *parser) parse() (*Table, error) {
	header, ok := p.next()
	if !ok {
		if err := p.readErr(); err != nil {
			return nil, err
		}
		return nil, p.errorf(ErrCodeBadHeader, "", "missing %q header", headerPrefix+" N")
	}
	n, err := p.parseHeader(header)
	if err != nil {
		return nil, err
	}

	t := newTable(n)
	want := n * 2
	for got := 0; got < want; {
		line, ok := p.next()
		if !ok {
			if err := p.readErr(); err != nil {
				return nil, err
			}
			return nil, &ParseError{
				Code:    ErrCodeTruncated,
				File:    p.cfg.name,
				Message: fmt.Sprintf("expected %d operation lines for %d states, found %d", want, n, got),
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		k, op, err := p.parseOperation(line, n)
		if err != nil {
			return nil, err
		}
		if t.set(k, op) {
			p.cfg.logger.Debug("operation reassigned", "key", k.String(), "line", p.lineNo)
		}
		p.cfg.logger.Debug("loaded operation",
			"key", k.String(),
			"next", int(op.Next),
			"write", int(op.Write),
			"move", op.Move.String(),
			"halt", op.Halt,
		)
		got++
	}

	for {
		line, ok := p.next()
		if !ok {
			break
		}
		if strings.TrimSpace(line) != "" {
			w := Warning{Line: p.lineNo, Message: fmt.Sprintf("ignoring content after %d operation lines", want)}
			t.warnings = append(t.warnings, w)
			p.cfg.logger.Warn("ignoring trailing instructions", "file", p.cfg.name, "line", p.lineNo)
			break
		}
	}
	if err := p.readErr(); err != nil {
		return nil, err
	}

	for _, k := range t.Unassigned() {
		w := Warning{Message: fmt.Sprintf("key %s never assigned, defaulting to %s", k, DefaultOperation(k.State, k.Bit))}
		t.warnings = append(t.warnings, w)
		p.cfg.logger.Warn("unassigned operation", "file", p.cfg.name, "key", k.String())
	}
	return t, nil
}

func (p *parser) parseHeader(line string) (int, error) {
	text := strings.TrimRight(line, " \t\r")
	rest, ok := strings.CutPrefix(text, headerPrefix)
	if !ok {
		return 0, p.errorf(ErrCodeBadHeader, line, "file should begin %q", headerPrefix+" N")
	}
	n, err := strconv.Atoi(strings.TrimLeft(rest, " \t"))
	if err != nil {
		return 0, p.errorf(ErrCodeBadHeader, line, "state count is not an integer")
	}
	if n <= 0 || n > MaxStates {
		return 0, p.errorf(ErrCodeBadHeader, line, "state count must be between 1 and %d", MaxStates)
	}
	return n, nil
}

// parseOperation parses "S,B->S2,B2,D[STOP]".
func (p *parser) parseOperation(line string, states int) (Key, Operation, error) {
	text := strings.TrimSpace(line)
	bad := func(format string, args ...any) (Key, Operation, error) {
		return Key{}, Operation{}, p.errorf(ErrCodeBadLine, line, format, args...)
	}

	if len(text) < shortestLine {
		return bad("line too short")
	}
	lhs, rhs, ok := strings.Cut(text, "->")
	if !ok {
		return bad("missing \"->\"")
	}

	stateText, bitText, ok := strings.Cut(lhs, ",")
	if !ok {
		return bad("missing comma after state")
	}
	s, ok := parseState(stateText, states)
	if !ok {
		return bad("state %q not in [0, %d)", stateText, states)
	}
	b, ok := parseBit(bitText)
	if !ok {
		return bad("read bit %q is not 0 or 1", bitText)
	}

	nextText, rest, ok := strings.Cut(rhs, ",")
	if !ok {
		return bad("missing comma after next state")
	}
	next, ok := parseState(nextText, states)
	if !ok {
		return bad("next state %q not in [0, %d)", nextText, states)
	}
	writeText, rest, ok := strings.Cut(rest, ",")
	if !ok {
		return bad("missing comma after write bit")
	}
	write, ok := parseBit(writeText)
	if !ok {
		return bad("write bit %q is not 0 or 1", writeText)
	}

	if rest == "" {
		return bad("missing direction")
	}
	var move Direction
	switch rest[0] {
	case 'L':
		move = Left
	case 'R':
		move = Right
	default:
		return bad("direction %q is not L or R", rest[:1])
	}

	var halt bool
	switch suffix := strings.TrimLeft(rest[1:], " \t"); suffix {
	case "":
	case "STOP":
		halt = true
	default:
		return bad("unexpected suffix %q, want STOP", suffix)
	}

	return Key{State: s, Bit: b}, Operation{Next: next, Write: write, Move: move, Halt: halt}, nil
}

// parseState accepts one to three decimal digits below states.
func parseState(text string, states int) (State, bool) {
	if len(text) == 0 || len(text) > 3 {
		return 0, false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(text)
	if err != nil || v >= states {
		return 0, false
	}
	return State(v), true
}

func parseBit(text string) (Bit, bool) {
	if len(text) != 1 {
		return 0, false
	}
	return BitFromByte(text[0])
}
