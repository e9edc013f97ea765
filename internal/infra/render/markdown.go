package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// narrativeClasses styles the report body; keys are CSS selectors.
var narrativeClasses = map[string]string{
	"h1":         "md-h1",
	"h2":         "md-h2",
	"h3":         "md-h3",
	"p":          "md-p",
	"strong":     "md-strong",
	"ul":         "md-ul",
	"ol":         "md-ol",
	"li":         "md-li",
	"blockquote": "md-quote",
	"table":      "md-table",
	"code":       "md-code",
}

// Markdown converts report narratives to HTML. Raw HTML in the source is dropped.
type Markdown struct {
	md goldmark.Markdown
}

func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// HTML renders src and tags elements with the narrative classes.
func (m *Markdown) HTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", fmt.Errorf("parse rendered markdown: %w", err)
	}
	for sel, class := range narrativeClasses {
		doc.Find(sel).AddClass(class)
	}
	doc.Find("a").SetAttr("rel", "noopener noreferrer").SetAttr("target", "_blank")

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serialise markdown: %w", err)
	}
	return template.HTML(strings.TrimSpace(out)), nil
}
