// Package render turns stored markdown into HTML that is safe to display.
// Every page that shows article markdown goes through Markdown.
package render

import (
	"bytes"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown to sanitized HTML
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a renderer. Raw HTML inside markdown is passed through the
// converter and filtered by the allow-list afterwards.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		policy: Policy(),
	}
}

// Policy is the display allow-list: the common block and inline elements,
// links, tables, plus images with src/alt/title/loading, headings and underline.
func Policy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"address", "article", "aside", "footer", "header", "hgroup", "main", "nav", "section",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"blockquote", "dd", "div", "dl", "dt", "figcaption", "figure", "hr", "li", "ol", "p", "pre", "ul",
		"abbr", "b", "bdi", "bdo", "br", "cite", "code", "data", "dfn", "em", "i", "kbd", "mark",
		"q", "rb", "rp", "rt", "rtc", "ruby", "s", "samp", "small", "span", "strong", "sub", "sup",
		"time", "u", "var", "wbr", "del", "ins",
		"caption", "col", "colgroup", "table", "tbody", "td", "tfoot", "th", "thead", "tr",
	)

	p.AllowAttrs("href", "name", "target").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowAttrs("loading").Matching(regexp.MustCompile(`^(lazy|eager|auto)$`)).OnElements("img")
	p.AllowAttrs("align").Matching(regexp.MustCompile(`^(left|right|center)$`)).OnElements("td", "th")
	// GFM task list checkboxes
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").Matching(regexp.MustCompile(`^(|checked|disabled)$`)).OnElements("input")

	p.AllowURLSchemes("http", "https", "mailto", "tel", "ftp")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(false)
	p.RequireNoReferrerOnFullyQualifiedLinks(false)

	return p
}

// Markdown converts md to HTML and strips everything outside the allow-list.
// Conversion errors fall back to sanitizing the raw text.
func (r *Renderer) Markdown(md string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(md), &buf); err != nil {
		return r.policy.Sanitize(md)
	}
	return string(r.policy.SanitizeBytes(buf.Bytes()))
}

// Sanitize filters an HTML fragment through the display allow-list
func (r *Renderer) Sanitize(fragment string) string {
	return r.policy.Sanitize(fragment)
}
