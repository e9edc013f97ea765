package analysis

import (
	"fmt"
	"strings"
	"time"
)

// ReportID identifier type
type ReportID string

// Attachment is an optional file handed to the model alongside the prompt.
type Attachment struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

func (a *Attachment) IsImage() bool {
	return a != nil && strings.HasPrefix(a.MIMEType, "image/")
}

func (a *Attachment) IsPDF() bool {
	return a != nil && a.MIMEType == "application/pdf"
}

// Request is what the user submits. It is not modified after submission.
type Request struct {
	Industry   string      `json:"industry"`
	Technology string      `json:"technology"`
	Market     string      `json:"market"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Normalize trims the text fields and checks that all three are present.
func (r *Request) Normalize() error {
	r.Industry = strings.TrimSpace(r.Industry)
	r.Technology = strings.TrimSpace(r.Technology)
	r.Market = strings.TrimSpace(r.Market)

	var missing []string
	if r.Industry == "" {
		missing = append(missing, "industry")
	}
	if r.Technology == "" {
		missing = append(missing, "technology")
	}
	if r.Market == "" {
		missing = append(missing, "market")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// Stock is one company identified by the analysis.
type Stock struct {
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	ReferencePrice string `json:"reference_price,omitempty"`
	Rationale      string `json:"rationale"`
}

// Company is one row of the competitive matrix; Scores is indexed like Matrix.Dimensions.
type Company struct {
	Name   string    `json:"name"`
	Scores []float64 `json:"scores"`
}

// Matrix holds the scored comparison. Every company carries len(Dimensions) scores.
type Matrix struct {
	Dimensions []string  `json:"dimensions"`
	Companies  []Company `json:"companies"`
}

// Report is the structured result of one analysis.
type Report struct {
	ID         ReportID  `json:"id"`
	Industry   string    `json:"industry"`
	Technology string    `json:"technology"`
	Market     string    `json:"market"`
	Narrative  string    `json:"narrative"`
	Stocks     []Stock   `json:"stocks"`
	Matrix     *Matrix   `json:"matrix,omitempty"`
	Model      string    `json:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasMatrix reports whether there is anything to chart.
func (r *Report) HasMatrix() bool {
	return r != nil && r.Matrix != nil && len(r.Matrix.Companies) > 0
}

// TopPick is the last identified stock; the prompt asks the model to close with its pick.
func (r *Report) TopPick() (int, bool) {
	if r == nil || len(r.Stocks) == 0 {
		return -1, false
	}
	return len(r.Stocks) - 1, true
}

// ReportSummary is the archive listing row.
type ReportSummary struct {
	ID         ReportID  `json:"id"`
	Industry   string    `json:"industry"`
	Technology string    `json:"technology"`
	Market     string    `json:"market"`
	StockCount int       `json:"stock_count"`
	ChartURL   string    `json:"chart_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListFilter narrows archive listings. Empty fields match everything.
type ListFilter struct {
	Industry string
	Market   string
	Page     int
	PageSize int
}
