package outputtype

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// OutputType is the kind of content found in a test attachment
type OutputType string

const (
	OutputTypeEmpty    OutputType = "empty"
	OutputTypeBinary   OutputType = "binary"
	OutputTypeText     OutputType = "text"
	OutputTypeANSI     OutputType = "ansi"
	OutputTypeMarkdown OutputType = "markdown"
)

// maxAnalyzedBytes bounds how much of an attachment is inspected.
const maxAnalyzedBytes = 8192

// Detect classifies attachment content and returns the type along with a
// short reason.
func Detect(content []byte) (OutputType, string) {
	if len(content) == 0 {
		return OutputTypeEmpty, "no content"
	}
	sample := content
	truncated := len(sample) > maxAnalyzedBytes
	if truncated {
		sample = sample[:maxAnalyzedBytes]
	}

	if isBinaryData(sample, truncated) {
		return OutputTypeBinary, "null bytes or high proportion of non-printable characters detected"
	}
	if containsSGR(string(sample)) {
		return OutputTypeANSI, "ANSI color codes detected"
	}
	if markdownScore(string(sample)) >= 3 {
		return OutputTypeMarkdown, "significant markdown formatting detected"
	}
	return OutputTypeText, "no control sequences or markup detected"
}

// isBinaryData reports null bytes, invalid UTF-8 or a high share of control
// characters. A rune cut off at the end of a truncated sample is fine.
func isBinaryData(sample []byte, truncated bool) bool {
	if bytes.IndexByte(sample, 0) != -1 {
		return true
	}

	nonPrintable := 0
	total := 0
	for i := 0; i < len(sample); {
		r, size := utf8.DecodeRune(sample[i:])
		if r == utf8.RuneError && size == 1 {
			if truncated && !utf8.FullRune(sample[i:]) {
				break
			}
			return true
		}
		i += size
		total++
		// ESC is part of ANSI colour sequences and does not count
		if r < 32 && r != '\t' && r != '\n' && r != '\r' && r != 0x1B {
			nonPrintable++
		} else if r >= 127 && r < 160 {
			nonPrintable++
		}
	}
	return float64(nonPrintable) > float64(total)*0.3
}

// containsSGR checks for SGR (Select Graphic Rendition) escape sequences like \x1b[<n>m
func containsSGR(s string) bool {
	for idx := strings.Index(s, "\x1b["); idx != -1; {
		j := idx + 2
		hasContent := false
		for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == ';') {
			hasContent = true
			j++
		}
		if hasContent && j < len(s) && s[j] == 'm' {
			return true
		}
		next := strings.Index(s[idx+2:], "\x1b[")
		if next == -1 {
			break
		}
		idx += 2 + next
	}
	return false
}

// StripANSI removes SGR escape sequences so colored tracebacks can be shown
// as plain text.
func StripANSI(s string) string {
	if !strings.Contains(s, "\x1b[") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1B && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == ';') {
				j++
			}
			if j < len(s) && s[j] == 'm' {
				i = j
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// markdownScore counts lines that look like markdown formatting.
func markdownScore(s string) int {
	score := 0
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case isMarkdownHeader(trimmed):
			score++
		case strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~"):
			score++
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ "):
			score++
		case strings.HasPrefix(trimmed, "> "):
			score++
		case strings.Contains(trimmed, "](") && strings.Contains(trimmed, "["):
			score++
		case strings.Contains(trimmed, "**"):
			score++
		}
	}
	return score
}

func isMarkdownHeader(line string) bool {
	hashes := 0
	for hashes < len(line) && hashes < 7 && line[hashes] == '#' {
		hashes++
	}
	if hashes == 0 || hashes > 6 {
		return false
	}
	return hashes == len(line) || line[hashes] == ' '
}
