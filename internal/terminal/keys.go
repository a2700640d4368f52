package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/muesli/cancelreader"
)

// Key is a decoded keypress.
type Key int

const (
	KeyOther Key = iota
	KeyEnter
	KeyCtrlC
	KeyEsc
)

func (k Key) String() string {
	switch k {
	case KeyEnter:
		return "enter"
	case KeyCtrlC:
		return "ctrl+c"
	case KeyEsc:
		return "esc"
	default:
		return "other"
	}
}

// KeySource starts delivering keys and returns a func that stops it.
type KeySource func() (<-chan Key, func(), error)

// decodeKeys turns one raw read into keys. A lone ESC byte is the Esc key;
// longer chunks starting with ESC are escape sequences (arrows and the like)
// and are ignored.
func decodeKeys(chunk []byte) []Key {
	if len(chunk) == 0 {
		return nil
	}
	if chunk[0] == 0x1b {
		if len(chunk) == 1 {
			return []Key{KeyEsc}
		}
		return []Key{KeyOther}
	}

	keys := make([]Key, 0, len(chunk))
	for _, b := range chunk {
		switch b {
		case '\r', '\n':
			keys = append(keys, KeyEnter)
		case 0x03:
			keys = append(keys, KeyCtrlC)
		default:
			keys = append(keys, KeyOther)
		}
	}
	return keys
}

// KeyReader reads keys from a terminal on its own goroutine. Close cancels
// the pending read, so nothing keeps consuming input once the session ends.
type KeyReader struct {
	r    cancelreader.CancelReader
	keys chan Key
	done chan struct{}
}

// NewKeyReader starts reading from r.
func NewKeyReader(r io.Reader) (*KeyReader, error) {
	cr, err := cancelreader.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create key reader: %w", err)
	}

	kr := &KeyReader{
		r:    cr,
		keys: make(chan Key, 16),
		done: make(chan struct{}),
	}
	go kr.loop()
	return kr, nil
}

func (kr *KeyReader) loop() {
	defer close(kr.done)
	defer close(kr.keys)

	buf := make([]byte, 64)
	for {
		n, err := kr.r.Read(buf)
		for _, k := range decodeKeys(buf[:n]) {
			select {
			case kr.keys <- k:
			default:
				// nobody is keeping up; drop the key
			}
		}
		if err != nil {
			return
		}
	}
}

// Keys returns the key channel. It is closed when reading stops.
func (kr *KeyReader) Keys() <-chan Key {
	return kr.keys
}

// Close stops reading and waits for the reader goroutine.
func (kr *KeyReader) Close() error {
	kr.r.Cancel()
	<-kr.done
	if err := kr.r.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// StdinKeys is the KeySource for the process terminal.
func StdinKeys() (<-chan Key, func(), error) {
	kr, err := NewKeyReader(os.Stdin)
	if err != nil {
		return nil, nil, err
	}
	return kr.Keys(), func() { _ = kr.Close() }, nil
}
