package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"junitxml2subunit/pkg/subunit"
)

const attachmentMimeType = "text/plain"

// Attachment is a named file carried on a terminal packet.
type Attachment struct {
	Name     string
	MimeType string
	Content  []byte
}

// Emitter writes the two packets that describe one test case. It holds the
// only reference to the output sink.
type Emitter struct {
	sink   subunit.PacketWriter
	logger *slog.Logger
}

// NewEmitter creates an Emitter writing to sink. A nil logger uses
// slog.Default().
func NewEmitter(sink subunit.PacketWriter, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{sink: sink, logger: logger}
}

// EmitStart announces that testID started at ts.
func (e *Emitter) EmitStart(testID string, ts time.Time) error {
	return e.write(subunit.Packet{
		Status:    subunit.StatusInProgress,
		TestID:    testID,
		Timestamp: ts,
		Runnable:  true,
	})
}

// EmitStop reports the outcome of testID at ts, with an optional attachment.
// An attachment too large for one packet is truncated to fit.
func (e *Emitter) EmitStop(outcome Outcome, testID string, ts time.Time, attachment *Attachment) error {
	p := subunit.Packet{
		Status:    outcome.Status(),
		TestID:    testID,
		Timestamp: ts,
		Runnable:  true,
	}
	if attachment != nil {
		p.FileName = attachment.Name
		p.MimeType = attachment.MimeType
		p.FileContent = attachment.Content
		if fitted, cut := subunit.TruncateFileContent(p); cut {
			e.logger.Warn("Truncated attachment to fit a subunit packet",
				"id", testID, "file", p.FileName, "size", len(p.FileContent), "kept", len(fitted.FileContent))
			p = fitted
		}
	}
	return e.write(p)
}

func (e *Emitter) write(p subunit.Packet) error {
	if err := e.sink.WritePacket(p); err != nil {
		var encodeErr *subunit.EncodeError
		if errors.As(err, &encodeErr) {
			// the report holds something a packet cannot carry, the sink is fine
			return fmt.Errorf("%w: %w", ErrMalformedXML, err)
		}
		return &SinkError{Err: err}
	}
	return nil
}

// Flush pushes buffered packets to the sink.
func (e *Emitter) Flush() error {
	if err := e.sink.Flush(); err != nil {
		return &SinkError{Err: err}
	}
	return nil
}
