package converter

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"junitxml2subunit/internal/junitxml"
	"junitxml2subunit/pkg/subunit"
)

// Outcome is the resolved result of a test case. The zero value means no
// fault element was seen, which resolves to success.
type Outcome int

const (
	OutcomeUnset Outcome = iota
	OutcomeSuccess
	OutcomeSkip
	OutcomeFail
)

func (o Outcome) Status() subunit.Status {
	switch o {
	case OutcomeSkip:
		return subunit.StatusSkip
	case OutcomeFail:
		return subunit.StatusFail
	}
	return subunit.StatusSuccess
}

func (o Outcome) String() string {
	return o.Status().String()
}

// attachmentName is the file name used for an outcome's attachment.
func (o Outcome) attachmentName() string {
	switch o {
	case OutcomeSkip:
		return "reason"
	case OutcomeFail:
		return "traceback"
	}
	return "stdout"
}

// Stats counts the test cases a conversion reported.
type Stats struct {
	TestCases int
	Succeeded int
	Skipped   int
	Failed    int
}

func (s *Stats) record(o Outcome) {
	switch o {
	case OutcomeSkip:
		s.Skipped++
	case OutcomeFail:
		s.Failed++
	default:
		s.Succeeded++
	}
}

// pendingResult is the test case whose start packet has been written and
// whose stop packet has not.
type pendingResult struct {
	testID     string
	status     Outcome
	attachment []byte
	stopTime   time.Time
}

// Accumulator consumes parse events and decides when test cases open, when
// they collect diagnostic text and when they are flushed. It is not safe for
// concurrent use.
type Accumulator struct {
	emitter *Emitter
	clock   *RunClock
	pending *pendingResult
	stats   Stats
	logger  *slog.Logger
}

// NewAccumulator creates an idle Accumulator. A nil logger uses
// slog.Default().
func NewAccumulator(emitter *Emitter, clock *RunClock, logger *slog.Logger) *Accumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accumulator{
		emitter: emitter,
		clock:   clock,
		logger:  logger,
	}
}

// Stats returns the counts of test cases flushed so far.
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Handle processes one parse event. Any error is fatal for the conversion.
func (a *Accumulator) Handle(ev junitxml.Event) error {
	switch ev.Kind {
	case junitxml.StartElement:
		switch ev.Name {
		case "testcase":
			return a.openTestCase(ev)
		case "skipped":
			return a.resolve(ev, OutcomeSkip)
		case "failure", "error":
			return a.resolve(ev, OutcomeFail)
		}
	case junitxml.Text:
		if a.pending != nil && ev.Text != "" {
			a.pending.attachment = []byte(ev.Text)
		}
	case junitxml.EndOfDocument:
		return a.flush()
	}
	return nil
}

func (a *Accumulator) openTestCase(ev junitxml.Event) error {
	if err := a.flush(); err != nil {
		return err
	}

	attrs := attributesFromEvent(ev)
	if attrs.Time == nil {
		return ErrMissingTime
	}
	d, err := ParseDuration(*attrs.Time)
	if err != nil {
		return err
	}
	if end := a.clock.Now().Add(d); end.Unix() > math.MaxUint32 {
		return fmt.Errorf("%w: %q runs past the last encodable timestamp", ErrInvalidTime, *attrs.Time)
	}
	testID, err := DeriveTestID(attrs)
	if err != nil {
		return err
	}

	start, stop := a.clock.Open(d)
	if err := a.emitter.EmitStart(testID, start); err != nil {
		return err
	}
	a.pending = &pendingResult{testID: testID, stopTime: stop}
	return nil
}

// resolve records a skipped, failure or error element. A message attribute
// settles the test case right away; otherwise later text becomes the
// attachment.
func (a *Accumulator) resolve(ev junitxml.Event, outcome Outcome) error {
	if a.pending == nil {
		a.logger.Debug("Ignoring result element outside of a testcase", "element", ev.Name)
		return nil
	}
	a.pending.status = outcome

	message, ok := ev.Attr("message")
	if !ok {
		return nil
	}
	a.pending.attachment = nil
	if message != "" {
		a.pending.attachment = []byte(message)
	}
	return a.flush()
}

// flush writes the stop packet of the pending test case, if there is one,
// and returns to idle.
func (a *Accumulator) flush() error {
	p := a.pending
	if p == nil {
		return nil
	}
	a.pending = nil

	outcome := p.status
	if outcome == OutcomeUnset {
		outcome = OutcomeSuccess
	}

	var attachment *Attachment
	if len(p.attachment) > 0 {
		attachment = &Attachment{
			Name:     outcome.attachmentName(),
			MimeType: attachmentMimeType,
			Content:  p.attachment,
		}
	}
	if err := a.emitter.EmitStop(outcome, p.testID, p.stopTime, attachment); err != nil {
		return err
	}

	a.stats.TestCases++
	a.stats.record(outcome)
	a.logger.Debug("Converted testcase", "id", p.testID, "status", outcome.String(), "attachment", attachment != nil)
	return nil
}
