// Package machine holds the transition table of the simulated machine.
//
// An instruction file describes the table:
//
//	STATES: 2
//	0,0->0,1,R
//	0,1->1,0,R
//	1,0->1,1,L
//	1,1->1,0,R STOP
//
// The header fixes the number of states N. Exactly N*2 operation lines
// follow, one per (state, bit) key, in any order. A line maps the key on
// the left of "->" to the operation on the right: next state, bit to write,
// direction to move and an optional STOP suffix that halts the machine.
//
// Parse validates every state against N, so Lookup never sees an
// out-of-range key. Cells start out as {Next: s, Write: b, Move: Right};
// duplicate lines are last-wins, which is the only way a cell can keep
// that default.
package machine
