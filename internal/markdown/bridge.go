// Package markdown converts between the constrained Markdown subset used
// for refined briefs and the HTML fragment bound to the editor.
//
// Supported: "# ", "## ", "### " headings, "- " list items, **bold**,
// blank-line paragraph breaks and single newlines. Anything else (ordered
// lists, links, code spans, tables) is left as literal text. The pair is
// lossy: Markdown -> rich text -> Markdown may shift blank lines and
// paragraph boundaries, so compare results with Normalize.
package markdown

import (
	"regexp"
	"strings"
)

type rule struct {
	pattern *regexp.Regexp
	replace string
}

var toRichTextRules = []rule{
	{regexp.MustCompile(`(?m)^# (.*)$`), "<h1>$1</h1>"},
	{regexp.MustCompile(`(?m)^## (.*)$`), "<h2>$1</h2>"},
	{regexp.MustCompile(`(?m)^### (.*)$`), "<h3>$1</h3>"},
	{regexp.MustCompile(`(?m)^- (.*)$`), "<li>$1</li>"},
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "<strong>$1</strong>"},
	{regexp.MustCompile(`\n\n`), "</p><p>"},
	{regexp.MustCompile(`\n`), "<br />"},
}

var toMarkdownRules = []rule{
	{regexp.MustCompile(`<h1>(.*?)</h1>`), "# $1"},
	{regexp.MustCompile(`<h2>(.*?)</h2>`), "\n## $1"},
	{regexp.MustCompile(`<h3>(.*?)</h3>`), "\n### $1"},
	{regexp.MustCompile(`<li>(.*?)</li>`), "- $1\n"},
	{regexp.MustCompile(`<strong>(.*?)</strong>`), "**$1**"},
	{regexp.MustCompile(`</p><p>`), "\n\n"},
	{regexp.MustCompile(`<p>|</p>`), ""},
	{regexp.MustCompile(`<br\s*/?>`), "\n"},
	{regexp.MustCompile(`<[^>]*>`), ""},
}

func apply(s string, rules []rule) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replace)
	}
	return s
}

// ToRichText renders Markdown into the editor's HTML fragment.
func ToRichText(md string) string {
	return apply(md, toRichTextRules)
}

// ToMarkdown converts an edited HTML fragment back to Markdown. Unknown
// tags are stripped, their text kept.
func ToMarkdown(html string) string {
	return apply(html, toMarkdownRules)
}

// Normalize trims every line and drops blank ones.
func Normalize(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// EditBuffer holds the rich-text snapshot being edited. It is created
// from Markdown when edit mode starts and converted back only on save.
type EditBuffer struct {
	HTML string `json:"html"`
}

func NewEditBuffer(md string) *EditBuffer {
	return &EditBuffer{HTML: ToRichText(md)}
}

func (b *EditBuffer) Markdown() string {
	return ToMarkdown(b.HTML)
}
