package converter

import (
	"errors"
	"fmt"
)

// The messages of these errors are printed verbatim by the CLI and are
// matched by callers, keep them stable.
var (
	ErrMissingTime       = errors.New("Invalid XML: There is no time attribute on a testcase")
	ErrInvalidTime       = errors.New("Invalid XML: The time attribute on a testcase is not a valid duration")
	ErrMissingIdentifier = errors.New("Invalid XML: There is no testname or classname attribute on a testcase")
	ErrMalformedXML      = errors.New("Invalid XML")
)

// SinkError reports a failed write to the output stream.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("failed to write subunit packet: %v", e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
