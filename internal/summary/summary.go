// Package summary reads a Subunit v2 stream back into per-test results and
// renders them as a markdown report.
package summary

import (
	"fmt"
	"io"
	"strings"
	"time"

	"junitxml2subunit/pkg/outputtype"
	"junitxml2subunit/pkg/subunit"
)

type Attachment struct {
	Name     string
	MimeType string
	Content  []byte
}

// Result is everything the stream said about one test id.
type Result struct {
	ID          string
	Status      subunit.Status
	Start       time.Time
	Stop        time.Time
	Attachments []Attachment
}

// Duration is the time between the start and the terminal packet, zero if
// either is missing.
func (r Result) Duration() time.Duration {
	if r.Start.IsZero() || r.Stop.IsZero() {
		return 0
	}
	return r.Stop.Sub(r.Start)
}

type Report struct {
	// Results are in order of each test id's first packet.
	Results []Result
}

// Read decodes packets from r until the end of the stream. Packets without a
// test id are ignored. File content sent in several packets under the same
// name is concatenated.
func Read(r io.Reader) (*Report, error) {
	packets, err := subunit.NewReader(r).All()
	if err != nil {
		return nil, fmt.Errorf("reading subunit stream: %w", err)
	}

	report := &Report{}
	index := map[string]int{}
	for _, p := range packets {
		if p.TestID == "" {
			continue
		}
		i, ok := index[p.TestID]
		if !ok {
			i = len(report.Results)
			index[p.TestID] = i
			report.Results = append(report.Results, Result{ID: p.TestID})
		}
		res := &report.Results[i]

		switch p.Status {
		case subunit.StatusUndefined:
		case subunit.StatusInProgress, subunit.StatusExists:
			if res.Status == subunit.StatusUndefined || res.Status == subunit.StatusExists {
				res.Status = p.Status
			}
			if p.Status == subunit.StatusInProgress && !p.Timestamp.IsZero() {
				res.Start = p.Timestamp
			}
		default:
			res.Status = p.Status
			if !p.Timestamp.IsZero() {
				res.Stop = p.Timestamp
			}
		}

		if p.FileName != "" {
			res.addFile(p.FileName, p.MimeType, p.FileContent)
		}
	}
	return report, nil
}

func (r *Result) addFile(name, mimeType string, content []byte) {
	for i := range r.Attachments {
		if r.Attachments[i].Name == name {
			r.Attachments[i].Content = append(r.Attachments[i].Content, content...)
			return
		}
	}
	r.Attachments = append(r.Attachments, Attachment{
		Name:     name,
		MimeType: mimeType,
		Content:  append([]byte(nil), content...),
	})
}

// Counts returns how many tests ended with each status.
func (rep *Report) Counts() map[subunit.Status]int {
	counts := map[subunit.Status]int{}
	for _, r := range rep.Results {
		counts[r.Status]++
	}
	return counts
}

// Markdown renders the report: totals, a table of all tests and the
// attachments of every test that has any.
func (rep *Report) Markdown(title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeText(title))

	counts := rep.Counts()
	fmt.Fprintf(&b, "**%d tests**: %d passed, %d failed, %d skipped", len(rep.Results),
		counts[subunit.StatusSuccess]+counts[subunit.StatusExpectedFail],
		counts[subunit.StatusFail]+counts[subunit.StatusUnexpectedSuccess],
		counts[subunit.StatusSkip])
	if incomplete := counts[subunit.StatusInProgress] + counts[subunit.StatusExists] + counts[subunit.StatusUndefined]; incomplete > 0 {
		fmt.Fprintf(&b, ", %d incomplete", incomplete)
	}
	b.WriteString("\n\n")

	if len(rep.Results) == 0 {
		return b.String()
	}

	b.WriteString("| Test | Status | Duration |\n")
	b.WriteString("|------|--------|---------:|\n")
	for _, r := range rep.Results {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", escapeText(r.ID), statusLabel(r.Status), formatDuration(r.Duration()))
	}

	wroteHeader := false
	for _, r := range rep.Results {
		if len(r.Attachments) == 0 {
			continue
		}
		if !wroteHeader {
			b.WriteString("\n## Details\n")
			wroteHeader = true
		}
		fmt.Fprintf(&b, "\n### %s (%s)\n", escapeText(r.ID), statusLabel(r.Status))
		for _, a := range r.Attachments {
			writeAttachment(&b, a)
		}
	}
	return b.String()
}

func writeAttachment(b *strings.Builder, a Attachment) {
	kind, _ := outputtype.Detect(a.Content)
	fmt.Fprintf(b, "\n%s", escapeText(a.Name))
	if a.MimeType != "" {
		fmt.Fprintf(b, " (%s)", escapeText(a.MimeType))
	}
	b.WriteString(":\n\n")

	switch kind {
	case outputtype.OutputTypeEmpty:
		b.WriteString("_empty_\n")
	case outputtype.OutputTypeBinary:
		fmt.Fprintf(b, "_%d bytes of binary content_\n", len(a.Content))
	default:
		text := string(a.Content)
		if kind == outputtype.OutputTypeANSI {
			text = outputtype.StripANSI(text)
		}
		fence := codeFence(text)
		fmt.Fprintf(b, "%s\n%s\n%s\n", fence, strings.TrimRight(text, "\n"), fence)
	}
}

func statusLabel(s subunit.Status) string {
	if s == subunit.StatusUndefined {
		return "unknown"
	}
	return s.String()
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// codeFence returns a backtick fence longer than any backtick run in text.
func codeFence(text string) string {
	longest, run := 0, 0
	for _, c := range text {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
)

// escapeText makes arbitrary text safe inside a table cell or heading.
func escapeText(s string) string {
	return markdownEscaper.Replace(s)
}
