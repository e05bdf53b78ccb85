// Package converter turns JUnit XML reports into Subunit v2 streams.
package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"junitxml2subunit/internal/junitxml"
	"junitxml2subunit/pkg/subunit"
)

// Options configures a conversion. The zero value is usable.
type Options struct {
	// Epoch is the start time of the first test case. Defaults to now.
	Epoch time.Time

	Logger *slog.Logger
}

// Convert reads a JUnit XML report from r and writes one start and one stop
// packet per testcase to w, in document order. Packets written before a
// fatal error are still flushed to w.
func Convert(ctx context.Context, r io.Reader, w io.Writer, opts Options) (Stats, error) {
	epoch := opts.Epoch
	if epoch.IsZero() {
		epoch = time.Now()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	emitter := NewEmitter(subunit.NewWriter(w), logger)
	acc := NewAccumulator(emitter, NewRunClock(epoch), logger)
	tok := junitxml.NewTokenizer(r)

	for {
		if err := ctx.Err(); err != nil {
			return acc.Stats(), abort(emitter, err)
		}
		ev, err := tok.Next()
		if err != nil {
			return acc.Stats(), abort(emitter, fmt.Errorf("%w: %w", ErrMalformedXML, err))
		}
		if err := acc.Handle(ev); err != nil {
			return acc.Stats(), abort(emitter, err)
		}
		if ev.Kind == junitxml.EndOfDocument {
			break
		}
	}

	if err := emitter.Flush(); err != nil {
		return acc.Stats(), err
	}
	stats := acc.Stats()
	logger.Debug("Conversion finished", "testcases", stats.TestCases, "succeeded", stats.Succeeded, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

// abort flushes what has been written so far and returns err, joined with
// the flush error if that failed too.
func abort(emitter *Emitter, err error) error {
	var sinkErr *SinkError
	if errors.As(err, &sinkErr) {
		return err
	}
	if flushErr := emitter.Flush(); flushErr != nil {
		return errors.Join(err, flushErr)
	}
	return err
}
