package trace

import (
	"bufio"
	"fmt"
	"io"
)

// Table writes the trace as a text table, one row per step, followed by
// the final state, position and bit.
type Table struct {
	w *bufio.Writer
}

// NewTable returns a Table writing to w. Rows are buffered; End flushes.
func NewTable(w io.Writer) *Table {
	return &Table{w: bufio.NewWriter(w)}
}

func (t *Table) Begin(string) error {
	fmt.Fprintln(t.w, "Execution:")
	fmt.Fprintln(t.w, "|Machine state | Position | Bit | Instruction")
	fmt.Fprintln(t.w, "|=================================================")
	return nil
}

func (t *Table) Step(r Record) error {
	_, err := fmt.Fprintf(t.w, "| %-13d| %-9d| %-4d| %s\n", r.State, r.Position, r.Bit, r.Instruction())
	return err
}

func (t *Table) End(s Summary) error {
	fmt.Fprintln(t.w, "STOP reached.")
	fmt.Fprintf(t.w, "Final state: %d\n", s.State)
	fmt.Fprintf(t.w, "Final position: %d\n", s.Position)
	fmt.Fprintf(t.w, "Bit at final position: %d\n", s.Bit)
	return t.w.Flush()
}

// Flush writes buffered rows. Callers use it when a run ends in error.
func (t *Table) Flush() error {
	return t.w.Flush()
}
