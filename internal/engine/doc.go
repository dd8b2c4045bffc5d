// Package engine drives the simulated machine over a paged tape.
//
// The engine owns the MachineContext (current state and logical position)
// and holds the transition table read-only and the tape read-write.
//
// Step Flow:
//  1. Read the bit under the head from the loaded window
//  2. Look up the operation for (state, bit)
//  3. Report the step to the trace Recorder
//  4. Write the operation's bit, enter its state, move one position
//  5. On STOP, flush the window and halt
//  6. Otherwise, if the head left the window, swap to the adjacent window
//
// Run repeats Step until a STOP operation. There is no step limit: a table
// that never reaches STOP runs forever. Use Step directly to bound a run.
//
// The engine is strictly single-threaded. Every exit from Run, including
// errors, attempts a final write-back of the window; a window that failed
// to load is never written back.
package engine
