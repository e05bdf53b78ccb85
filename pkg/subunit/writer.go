package subunit

import (
	"bufio"
	"fmt"
	"io"
)

type PacketWriter interface {
	// WritePacket encodes one packet and writes it to the underlying stream.
	WritePacket(p Packet) error

	// Flush writes any buffered packets to the underlying stream.
	Flush() error
}

// EncodeError reports a packet that could not be encoded. Nothing was
// written for it, the stream itself is intact.
type EncodeError struct {
	TestID string
	Err    error
}

func (e *EncodeError) Error() string {
	id := e.TestID
	if len(id) > 80 {
		id = id[:77] + "..."
	}
	return fmt.Sprintf("encoding packet for %q: %v", id, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Writer writes Subunit v2 packets to an io.Writer. It is the only writer of
// that stream and is not safe for concurrent use.
type Writer struct {
	w       *bufio.Writer
	packets int
}

var _ PacketWriter = &Writer{}

// NewWriter creates a Writer that owns w until the caller is done with it.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WritePacket encodes p and writes the whole frame. A packet that fails to
// encode writes nothing and returns an *EncodeError.
func (w *Writer) WritePacket(p Packet) error {
	frame, err := Encode(p)
	if err != nil {
		return &EncodeError{TestID: p.TestID, Err: err}
	}
	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	w.packets++
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Packets returns how many packets have been written so far.
func (w *Writer) Packets() int {
	return w.packets
}
