package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// ErrNotTerminal is returned by NewKeys when stdin is not a terminal.
var ErrNotTerminal = errors.New("not a terminal")

// Keys puts a terminal into raw mode and delivers single key presses.
type Keys struct {
	in      *os.File
	fd      int
	state   *term.State
	restore sync.Once
}

// NewKeys switches f (normally os.Stdin) to raw mode. Call Close to restore it.
func NewKeys(f *os.File) (*Keys, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	return &Keys{in: f, fd: fd, state: state}, nil
}

// Width returns the terminal width, or 80 when it cannot be read.
func (k *Keys) Width() int {
	if w, _, err := term.GetSize(k.fd); err == nil && w > 0 {
		return w
	}
	return 80
}

// Run reads keys until handle returns false or input ends. It blocks; run
// it in its own goroutine.
func (k *Keys) Run(handle func(key byte) bool) error {
	return ReadKeys(k.in, handle)
}

// Close restores the terminal state.
func (k *Keys) Close() error {
	var err error
	k.restore.Do(func() {
		err = term.Restore(k.fd, k.state)
	})
	return err
}

// ReadKeys feeds each byte of r to handle until it returns false or r ends.
// Raw mode sends CR for Enter; it is delivered as LF.
func ReadKeys(r io.Reader, handle func(key byte) bool) error {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			key := buf[0]
			if key == '\r' {
				key = '\n'
			}
			if !handle(key) {
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read keys: %w", err)
		}
	}
}
