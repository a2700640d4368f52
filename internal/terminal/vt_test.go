package terminal

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
)

// fakeTerm records everything written to it.
type fakeTerm struct {
	mu        sync.Mutex
	out       bytes.Buffer
	width     int
	height    int
	rawErr    error
	raw       bool
	rawEnters int
	rawExits  int
}

func newFakeTerm(width, height int) *fakeTerm {
	return &fakeTerm{width: width, height: height}
}

func (f *fakeTerm) EnterRawMode() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rawErr != nil {
		return f.rawErr
	}
	f.raw = true
	f.rawEnters++
	return nil
}

func (f *fakeTerm) ExitRawMode() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = false
	f.rawExits++
	return nil
}

func (f *fakeTerm) Size() (int, int, error) {
	return f.width, f.height, nil
}

func (f *fakeTerm) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Write(p)
}

func (f *fakeTerm) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.String()
}

// vt is a minimal terminal emulator: enough of carriage return, line feed,
// cursor up/down and erase line to check where text ends up. Rows grow on
// demand and never scroll. SGR and mode sequences are ignored.
type vt struct {
	rows [][]rune
	row  int
	col  int
}

func emulate(s string) *vt {
	v := &vt{rows: [][]rune{nil}}
	v.feed(s)
	return v
}

func (v *vt) ensure(row int) {
	for len(v.rows) <= row {
		v.rows = append(v.rows, nil)
	}
}

func (v *vt) feed(s string) {
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch r {
		case '\r':
			v.col = 0
		case '\n':
			v.row++
			v.ensure(v.row)
		case 0x1b:
			if i+1 < len(rs) && rs[i+1] == '[' {
				j := i + 2
				for j < len(rs) && rs[j] >= 0x30 && rs[j] <= 0x3f {
					j++
				}
				if j < len(rs) {
					v.csi(string(rs[i+2:j]), rs[j])
				}
				i = j
			}
		default:
			line := v.rows[v.row]
			for len(line) <= v.col {
				line = append(line, ' ')
			}
			line[v.col] = r
			v.rows[v.row] = line
			v.col++
		}
	}
}

func (v *vt) csi(params string, final rune) {
	n := 1
	if params != "" && !strings.HasPrefix(params, "?") {
		if p, err := strconv.Atoi(params); err == nil {
			n = p
		}
	}

	switch final {
	case 'A':
		v.row -= n
		if v.row < 0 {
			v.row = 0
		}
	case 'B':
		v.row += n
		v.ensure(v.row)
	case 'K':
		switch params {
		case "2":
			v.rows[v.row] = nil
		case "", "0":
			if v.col < len(v.rows[v.row]) {
				v.rows[v.row] = v.rows[v.row][:v.col]
			}
		}
	}
}

// lines returns every row with trailing spaces trimmed.
func (v *vt) lines() []string {
	out := make([]string, len(v.rows))
	for i, r := range v.rows {
		out[i] = strings.TrimRight(string(r), " ")
	}
	return out
}

// find returns the first row containing sub, or -1.
func (v *vt) find(sub string) int {
	for i, line := range v.lines() {
		if strings.Contains(line, sub) {
			return i
		}
	}
	return -1
}

// nonEmpty returns the rows that have visible text.
func (v *vt) nonEmpty() []string {
	var out []string
	for _, line := range v.lines() {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
