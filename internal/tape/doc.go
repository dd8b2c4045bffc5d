// Package tape implements the paging engine behind the machine's tape.
//
// The logical tape is an infinite sequence of bits indexed by every integer.
// It is stored in a flat text file of '0' and '1' characters, of which only
// one fixed-size window is held in memory at a time.
//
// # Layout
//
// File byte f holds logical index f - origin. origin starts at 0 and grows
// by whole windows each time the tape extends to the left of the file's
// first byte. Indices outside the file read as zero until a window covering
// them is written back.
//
// # Write-back
//
// A window at logical base b is flushed to file offset b + origin:
//
//   - at or beyond the end of the file, the gap is zero-filled and the
//     window appended;
//   - inside the file, the bytes are overwritten;
//   - before the start of the file, the whole file is read into memory,
//     the window written at 0 and the old content written after it. origin
//     increases by the same amount so every logical index keeps its bit.
//
// Leftward growth therefore costs O(file length) and happens only when a
// window whose file offset is negative is flushed.
//
// # Ownership
//
// A Tape owns its file handle. Close releases it and must be called on
// every path; it does not flush.
package tape
