package prompt

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
)

// fencedJSON matches the first ```json fenced block; group 1 is its body.
var fencedJSON = regexp.MustCompile("(?is)```json[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```")

// Structured is the outcome of decoding the embedded block: *Payload or NoPayload.
type Structured interface {
	structured()
}

// Payload is a successfully decoded block. Warnings list entries that were dropped.
type Payload struct {
	Stocks   []analysis.Stock
	Matrix   *analysis.Matrix
	Warnings []string
}

// NoPayload means the report has narrative only. Reason is for logs.
type NoPayload struct {
	Reason string
}

func (*Payload) structured()  {}
func (NoPayload) structured() {}

// Extraction splits a model answer into narrative and structured data.
type Extraction struct {
	Narrative string
	Data      Structured
}

// Stocks returns the decoded stocks, empty without a payload.
func (e Extraction) Stocks() []analysis.Stock {
	if p, ok := e.Data.(*Payload); ok {
		return p.Stocks
	}
	return []analysis.Stock{}
}

// Matrix returns the decoded matrix, nil without a payload.
func (e Extraction) Matrix() *analysis.Matrix {
	if p, ok := e.Data.(*Payload); ok {
		return p.Matrix
	}
	return nil
}

// Extract never fails: a missing or broken block only empties the structured side.
func Extract(text string) Extraction {
	loc := fencedJSON.FindStringSubmatchIndex(text)
	if loc == nil {
		return Extraction{
			Narrative: strings.TrimSpace(text),
			Data:      NoPayload{Reason: "no fenced json block"},
		}
	}

	narrative := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	if narrative == "" {
		narrative = strings.TrimSpace(text)
	}
	body := text[loc[2]:loc[3]]

	return Extraction{Narrative: narrative, Data: decodePayload(body)}
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexString(n.String())
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("expected number, got %s", string(b))
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("expected number, got %q", s)
	}
	*f = flexFloat(n)
	return nil
}

type wireStock struct {
	Name   flexString `json:"name"`
	Symbol flexString `json:"symbol"`
	Reason flexString `json:"reason"`
	Price  flexString `json:"price"`
}

type wireCompany struct {
	Name   flexString  `json:"name"`
	Scores []flexFloat `json:"scores"`
}

type wireMatrix struct {
	Dimensions []flexString  `json:"dimensions"`
	Companies  []wireCompany `json:"companies"`
}

type wirePayload struct {
	IdentifiedStocks []wireStock `json:"identifiedStocks"`
	MatrixData       *wireMatrix `json:"matrixData"`
}

func decodePayload(body string) Structured {
	var w wirePayload
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return NoPayload{Reason: fmt.Sprintf("decode json block: %v", err)}
	}

	p := &Payload{Stocks: []analysis.Stock{}}
	for i, s := range w.IdentifiedStocks {
		st := analysis.Stock{
			Name:           strings.TrimSpace(string(s.Name)),
			Symbol:         strings.TrimSpace(string(s.Symbol)),
			ReferencePrice: strings.TrimSpace(string(s.Price)),
			Rationale:      strings.TrimSpace(string(s.Reason)),
		}
		if st.Name == "" && st.Symbol == "" {
			p.Warnings = append(p.Warnings, fmt.Sprintf("stock %d has neither name nor symbol", i))
			continue
		}
		p.Stocks = append(p.Stocks, st)
	}

	if w.MatrixData != nil {
		p.Matrix = buildMatrix(w.MatrixData, &p.Warnings)
	}

	if len(p.Stocks) == 0 && p.Matrix == nil {
		return NoPayload{Reason: "json block carried no stocks and no matrix"}
	}
	return p
}

// buildMatrix drops companies whose score count does not match the dimensions
// or whose scores are NaN or infinite.
func buildMatrix(w *wireMatrix, warnings *[]string) *analysis.Matrix {
	if len(w.Dimensions) == 0 {
		*warnings = append(*warnings, "matrix has no dimensions")
		return nil
	}
	m := &analysis.Matrix{Dimensions: make([]string, len(w.Dimensions))}
	for i, d := range w.Dimensions {
		m.Dimensions[i] = strings.TrimSpace(string(d))
	}

	for _, c := range w.Companies {
		name := strings.TrimSpace(string(c.Name))
		if len(c.Scores) != len(m.Dimensions) {
			*warnings = append(*warnings, fmt.Sprintf("company %q has %d scores for %d dimensions", name, len(c.Scores), len(m.Dimensions)))
			continue
		}
		scores := make([]float64, len(c.Scores))
		finite := true
		for i, s := range c.Scores {
			scores[i] = float64(s)
			if math.IsNaN(scores[i]) || math.IsInf(scores[i], 0) {
				finite = false
			}
		}
		if !finite {
			*warnings = append(*warnings, fmt.Sprintf("company %q has non-finite scores", name))
			continue
		}
		m.Companies = append(m.Companies, analysis.Company{Name: name, Scores: scores})
	}

	if len(m.Companies) == 0 {
		*warnings = append(*warnings, "matrix has no usable companies")
		return nil
	}
	return m
}
