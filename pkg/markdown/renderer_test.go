package markdown

import (
	"strings"
	"testing"
)

func TestRenderToHTML_ReportElements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "headers",
			input:    "# Test run\n## Failures",
			contains: []string{"<h1", "Test run", "<h2", "Failures"},
		},
		{
			name:  "table",
			input: "| Test | Status |\n|------|-------:|\n| T.a | success |\n",
			contains: []string{
				"<table>", "<th>Test</th>", "<td>T.a</td>", `<td align="right">success</td>`,
			},
		},
		{
			name:     "traceback code block",
			input:    "```\nTraceback (most recent call last):\n  File \"a.py\"\n```",
			contains: []string{"<pre>", "<code>", "Traceback (most recent call last):", "a.py"},
		},
		{
			name:     "inline code",
			input:    "Test `T.a` failed",
			contains: []string{"<code>T.a</code>"},
		},
		{
			name:     "bold",
			input:    "**3 failed**",
			contains: []string{"<strong>3 failed</strong>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderToHTML(tt.input)

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("RenderToHTML() result doesn't contain expected substring.\nExpected: %q\nResult: %s", expected, result)
				}
			}
		})
	}
}

func TestRenderToHTML_XSSPrevention(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		shouldBlock string
	}{
		{
			name:        "script tag in test id",
			input:       "| Test |\n|---|\n| <script>alert('xss')</script> |\n",
			shouldBlock: "<script>",
		},
		{
			name:        "onclick handler",
			input:       "<a href=\"#\" onclick=\"alert('xss')\">Click me</a>",
			shouldBlock: "onclick",
		},
		{
			name:        "javascript protocol",
			input:       "[Click me](javascript:alert('xss'))",
			shouldBlock: "javascript:",
		},
		{
			name:        "bad alignment value",
			input:       "<table><tr><td align=\"javascript:x\">a</td></tr></table>",
			shouldBlock: "javascript:",
		},
		{
			name:        "iframe",
			input:       "<iframe src=\"http://evil.com\"></iframe>",
			shouldBlock: "<iframe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderToHTML(tt.input)

			if strings.Contains(result, tt.shouldBlock) {
				t.Errorf("XSS vector not blocked.\nInput: %s\nBlocked string: %q\nResult: %s",
					tt.input, tt.shouldBlock, result)
			}
		})
	}
}

func TestRenderToHTML_Empty(t *testing.T) {
	if result := strings.TrimSpace(RenderToHTML("   \n\n   ")); result != "" {
		t.Errorf("RenderToHTML() = %q, want empty string", result)
	}
}

func TestRenderDocument(t *testing.T) {
	result := RenderDocument("Report <results.subunit>", "# Summary\n\n**2 passed**")

	for _, expected := range []string{
		"<!DOCTYPE html>",
		"<title>Report &lt;results.subunit&gt;</title>",
		"<strong>2 passed</strong>",
		"</html>",
	} {
		if !strings.Contains(result, expected) {
			t.Errorf("RenderDocument() doesn't contain %q.\nResult: %s", expected, result)
		}
	}
}
