package serialmux

import "io"

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// ReaderPort adapts a recorded feed, such as an NDJSON capture file, to a
// SerialPorter. Writes are accepted and discarded.
type ReaderPort struct {
	io.Reader
}

// NewReaderPort returns a port that replays r.
func NewReaderPort(r io.Reader) *ReaderPort {
	return &ReaderPort{Reader: r}
}

func (p *ReaderPort) Write(b []byte) (int, error) { return len(b), nil }

// Close closes the underlying reader when it is an io.Closer.
func (p *ReaderPort) Close() error {
	if c, ok := p.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
