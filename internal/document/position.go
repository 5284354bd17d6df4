package document

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Position is a zero-based line and UTF-16 character offset, the way editors
// report cursor locations.
type Position struct {
	Line      int
	Character int
}

// Offset converts pos into a byte offset of the current buffer. It is the only
// place positions are turned into offsets.
//
// Lines past the end clamp to the end of the buffer and characters past the
// end of a line clamp to the end of that line.
func (d *Document) Offset(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= d.buf.LineCount() {
		return d.buf.Len()
	}
	start, err := d.buf.LineStart(pos.Line)
	if err != nil {
		return d.buf.Len()
	}
	end, err := d.buf.LineEnd(pos.Line)
	if err != nil {
		return d.buf.Len()
	}
	line, err := d.buf.Slice(start, end)
	if err != nil {
		return start
	}
	return start + utf16Prefix(line, pos.Character)
}

// utf16Prefix returns how many bytes of line cover the first units UTF-16 code units.
func utf16Prefix(line []byte, units int) int {
	i, n := 0, 0
	for i < len(line) && n < units {
		r, size := utf8.DecodeRune(line[i:])
		width := utf16.RuneLen(r)
		if width < 0 {
			width = 1
		}
		n += width
		i += size
	}
	return i
}
