// Package attachment turns an uploaded file into something a chat model can read.
package attachment

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
)

const DefaultPDFMaxChars = 50000

// ErrNoText is returned for PDFs without an extractable text layer.
var ErrNoText = errors.New("pdf has no extractable text")

// DataURL inlines an image attachment as base64.
func DataURL(a *analysis.Attachment) string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// AppendDocument attaches extracted document text below the instruction.
func AppendDocument(prompt, filename, text string) string {
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\n[Attachment: ")
	sb.WriteString(filename)
	sb.WriteString("]\n")
	sb.WriteString(text)
	return sb.String()
}

type PDFExtractor struct {
	maxChars int
}

func NewPDFExtractor(maxChars int) *PDFExtractor {
	if maxChars <= 0 {
		maxChars = DefaultPDFMaxChars
	}
	return &PDFExtractor{maxChars: maxChars}
}

// Text returns the plain text of every page, cut at maxChars runes.
// The pdf reader panics on some corrupt inputs, so panics become errors.
func (e *PDFExtractor) Text(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("panic during pdf extraction: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
		if sb.Len() > e.maxChars*4 {
			break
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrNoText
	}
	if rs := []rune(out); len(rs) > e.maxChars {
		out = string(rs[:e.maxChars])
	}
	return out, nil
}
