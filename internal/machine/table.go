package machine

import (
	"fmt"
	"strings"
)

// Table maps every (state, bit) key to an Operation.
//
// A Table is immutable once Parse returns it.
type Table struct {
	states   int
	cells    [][2]Operation
	assigned [][2]bool
	warnings []Warning
}

// Warning is a non-fatal remark produced while parsing.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// newTable allocates a table of n states with every cell set to the
// default operation: keep the state, rewrite the bit read, move right.
func newTable(n int) *Table {
	if n <= 0 || n > MaxStates {
		panic(fmt.Sprintf("machine: state count %d outside [1, %d]", n, MaxStates))
	}
	t := &Table{
		states:   n,
		cells:    make([][2]Operation, n),
		assigned: make([][2]bool, n),
	}
	for s := 0; s < n; s++ {
		for b := Zero; b <= One; b++ {
			t.cells[s][b] = DefaultOperation(State(s), b)
		}
	}
	return t
}

// DefaultOperation is the operation held by a cell no line assigned.
func DefaultOperation(s State, b Bit) Operation {
	return Operation{Next: s, Write: b, Move: Right}
}

// States returns the declared state count.
func (t *Table) States() int {
	return t.states
}

// Lookup returns the operation for (s, b). Keys outside the declared
// range are a programming error and panic.
func (t *Table) Lookup(s State, b Bit) Operation {
	if int(s) < 0 || int(s) >= t.states || b > One {
		panic(fmt.Sprintf("machine: lookup of %d,%d outside table of %d states", s, b, t.states))
	}
	return t.cells[s][b]
}

// set assigns a cell and reports whether it was already assigned.
func (t *Table) set(k Key, op Operation) (overwrote bool) {
	overwrote = t.assigned[k.State][k.Bit]
	t.cells[k.State][k.Bit] = op
	t.assigned[k.State][k.Bit] = true
	return overwrote
}

// Unassigned lists the keys no instruction line assigned, in state order.
func (t *Table) Unassigned() []Key {
	var keys []Key
	for s := 0; s < t.states; s++ {
		for b := Zero; b <= One; b++ {
			if !t.assigned[s][b] {
				keys = append(keys, Key{State: State(s), Bit: b})
			}
		}
	}
	return keys
}

// Warnings returns the non-fatal remarks collected while parsing.
func (t *Table) Warnings() []Warning {
	return t.warnings
}

// String renders the table in instruction-file form, keys in order.
func (t *Table) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "STATES: %d\n", t.states)
	for s := 0; s < t.states; s++ {
		for b := Zero; b <= One; b++ {
			k := Key{State: State(s), Bit: b}
			sb.WriteString(Format(k, t.cells[s][b]))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
