package machine

import "fmt"

// MaxStates is the largest state count an instruction file may declare.
// States historically fit in a signed byte.
const MaxStates = 127

// Bit is a single tape symbol.
type Bit uint8

const (
	Zero Bit = 0
	One  Bit = 1
)

// Byte returns the tape-file character for the bit.
func (b Bit) Byte() byte {
	if b == One {
		return '1'
	}
	return '0'
}

func (b Bit) String() string {
	return string(b.Byte())
}

// BitFromByte decodes a tape-file character. ok is false for anything
// other than '0' or '1'.
func BitFromByte(c byte) (bit Bit, ok bool) {
	switch c {
	case '0':
		return Zero, true
	case '1':
		return One, true
	}
	return Zero, false
}

// Direction is the head movement after a write.
type Direction uint8

const (
	Left Direction = iota
	Right
)

// Delta is the position change for the direction.
func (d Direction) Delta() int64 {
	if d == Right {
		return 1
	}
	return -1
}

func (d Direction) String() string {
	if d == Right {
		return "R"
	}
	return "L"
}

// State identifies one of the machine's internal states.
type State int

// Operation is the action selected for a (state, bit) key.
type Operation struct {
	Next  State
	Write Bit
	Move  Direction
	Halt  bool
}

// String renders the right-hand side of an instruction line.
func (op Operation) String() string {
	s := fmt.Sprintf("%d,%d,%s", op.Next, op.Write, op.Move)
	if op.Halt {
		s += "STOP"
	}
	return s
}

// Key is the left-hand side of an instruction line.
type Key struct {
	State State
	Bit   Bit
}

func (k Key) String() string {
	return fmt.Sprintf("%d,%d", k.State, k.Bit)
}

// Format renders a full instruction line without a trailing newline.
func Format(k Key, op Operation) string {
	return k.String() + "->" + op.String()
}
