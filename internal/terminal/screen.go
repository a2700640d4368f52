package terminal

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const placeholder = "·"

// layout is the fixed block the session draws once the command is known.
// Rows are counted from the anchor, the first reserved row:
//
//	0 .. reserved-1          explanation (placeholders until it arrives)
//	reserved                 blank separator, only when reserved > 0
//	cmdRow .. cmdRow+n-1     the command, wrapped to the width
//	promptRow                status and key hints
type layout struct {
	width     int
	reserved  int
	cmdRow    int
	cmdLines  []string
	promptRow int
}

// newLayout fits the block into a width x height terminal. The reserved
// region shrinks so the whole block stays on screen, and never grows past
// maxReserved.
func newLayout(command string, width, height, maxReserved int) layout {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}

	cmdLines := strings.Split(ansi.Hardwrap("$ "+command, width, true), "\n")

	reserved := height - (len(cmdLines) + 2) - 1
	if reserved > maxReserved {
		reserved = maxReserved
	}
	if reserved < 0 {
		reserved = 0
	}

	cmdRow := 0
	if reserved > 0 {
		cmdRow = reserved + 1
	}

	return layout{
		width:     width,
		reserved:  reserved,
		cmdRow:    cmdRow,
		cmdLines:  cmdLines,
		promptRow: cmdRow + len(cmdLines),
	}
}

// rows is the total height of the block.
func (l layout) rows() int {
	return l.promptRow + 1
}

// screen writes rows relative to an anchor. It owns the only record of where
// the cursor is, so every move is computed from the anchor and never inferred
// from what was printed before.
type screen struct {
	out   io.Writer
	width int
	row   int
}

func newScreen(out io.Writer, width int) *screen {
	return &screen{out: out, width: width}
}

func (s *screen) write(str string) {
	_, _ = io.WriteString(s.out, str)
}

// open prints the initial rows downward from the current line, which becomes
// the anchor. The cursor is left on the last row.
func (s *screen) open(lines []string) {
	for i, line := range lines {
		if i > 0 {
			s.write("\r\n")
		}
		s.write("\r" + ansi.EraseEntireLine + s.fit(line))
	}
	s.row = len(lines) - 1
}

// moveTo puts the cursor at column 0 of row.
func (s *screen) moveTo(row int) {
	switch {
	case row < s.row:
		s.write(ansi.CursorUp(s.row - row))
	case row > s.row:
		s.write(ansi.CursorDown(row - s.row))
	}
	s.write("\r")
	s.row = row
}

// set replaces the content of row in place.
func (s *screen) set(row int, line string) {
	s.moveTo(row)
	s.write(ansi.EraseEntireLine + s.fit(line))
}

// leave parks the cursor on the line after row so later output starts clean.
func (s *screen) leave(row int) {
	s.moveTo(row)
	s.write("\r\n")
	s.row = row + 1
}

func (s *screen) fit(line string) string {
	if s.width > 0 && ansi.StringWidth(line) > s.width {
		return ansi.Truncate(line, s.width, "")
	}
	return line
}
