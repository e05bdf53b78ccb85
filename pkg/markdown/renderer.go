// Package markdown renders markdown test reports as sanitized HTML.
package markdown

import (
	"fmt"
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var alignment = regexp.MustCompile(`^(left|right|center)$`)

// reportPolicy allows what a test report needs: tables, code blocks and
// heading anchors. Test ids and attachments come from the report being
// rendered and are untrusted.
func reportPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")
	policy.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	policy.AllowAttrs("align").Matching(alignment).OnElements("th", "td")
	return policy
}

// RenderToHTML converts markdown to a sanitized HTML fragment.
func RenderToHTML(markdown string) string {
	unsafeHTML := blackfriday.Run(
		[]byte(markdown),
		blackfriday.WithExtensions(
			blackfriday.CommonExtensions|
				blackfriday.AutoHeadingIDs,
		),
	)
	return string(reportPolicy().SanitizeBytes(unsafeHTML))
}

// RenderDocument wraps the rendered markdown in a standalone HTML page.
func RenderDocument(title, markdown string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.2em 0.6em; }
pre { background: #f6f8fa; padding: 0.6em; overflow-x: auto; }
</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), RenderToHTML(markdown))
}
