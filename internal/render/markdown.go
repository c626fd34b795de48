// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns review service output into HTML: the markdown report
// becomes a constrained HTML fragment and the session state becomes the
// search results page.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// reportMarkdown renders in goldmark's safe mode: raw HTML in the source is
// dropped and links with dangerous schemes (javascript:, vbscript:, file:,
// non-image data:) lose their href.
var reportMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
		extension.TaskList,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// HeadingIDPrefix namespaces report heading IDs so they never collide with
// the paper card anchors on the same page.
const HeadingIDPrefix = "report-"

// Markdown renders a report to an HTML fragment. Links in the result open in
// a new tab and carry rel="noopener noreferrer"; links whose href was
// stripped are unwrapped to plain text. Heading IDs carry HeadingIDPrefix and
// in-report anchor links are rewritten to match.
func Markdown(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := reportMarkdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering report markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", fmt.Errorf("parsing rendered report: %w", err)
	}

	headings := make(map[string]bool)
	doc.Find("h1[id], h2[id], h3[id], h4[id], h5[id], h6[id]").Each(func(_ int, h *goquery.Selection) {
		id, _ := h.Attr("id")
		headings[id] = true
		h.SetAttr("id", HeadingIDPrefix+id)
	})

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.TrimSpace(href) == "" {
			a.ReplaceWithSelection(a.Contents())
			return
		}
		if frag, ok := strings.CutPrefix(href, "#"); ok {
			if headings[frag] {
				a.SetAttr("href", "#"+HeadingIDPrefix+frag)
			}
			return
		}
		a.SetAttr("target", "_blank")
		a.SetAttr("rel", "noopener noreferrer")
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serializing rendered report: %w", err)
	}
	return template.HTML(strings.TrimSpace(out)), nil
}
