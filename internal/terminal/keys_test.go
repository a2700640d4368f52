package terminal

import (
	"os"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestDecodeKeys(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  []Key
	}{
		{"empty", "", nil},
		{"carriage return", "\r", []Key{KeyEnter}},
		{"line feed", "\n", []Key{KeyEnter}},
		{"ctrl c", "\x03", []Key{KeyCtrlC}},
		{"lone escape", "\x1b", []Key{KeyEsc}},
		{"arrow key", "\x1b[A", []Key{KeyOther}},
		{"typed text", "ab\r", []Key{KeyOther, KeyOther, KeyEnter}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeKeys([]byte(tt.chunk))
			if len(got) != len(tt.want) {
				t.Fatalf("decodeKeys(%q) = %v, want %v", tt.chunk, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("key %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestKeyReader_DeliversAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	kr, err := NewKeyReader(r)
	if err != nil {
		t.Fatalf("NewKeyReader failed: %v", err)
	}

	if _, err := w.Write([]byte("\r\x03")); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got []Key
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case k := <-kr.Keys():
			got = append(got, k)
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}
	if got[0] != KeyEnter || got[1] != KeyCtrlC {
		t.Errorf("Expected [enter ctrl+c], got %v", got)
	}

	if err := kr.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, ok := <-kr.Keys(); ok {
		t.Error("Expected key channel closed after Close")
	}
}
