package prompt

import (
	"encoding/json"
	"strings"
	"testing"
)

const validAnswer = "## Supply chain overview\n\nTSMC leads advanced packaging.\n\n" +
	"```json\n" +
	`{
  "identifiedStocks": [
    {"name": "TSMC", "symbol": "2330.TW", "reason": "CoWoS capacity", "price": 1085}
  ],
  "matrixData": {
    "dimensions": ["Technology", "Orders", "Margin"],
    "companies": [{"name": "TSMC", "scores": [9, 10, 8]}]
  }
}` +
	"\n```\n\nClosing remarks."

func TestExtractValidBlock(t *testing.T) {
	t.Parallel()

	ex := Extract(validAnswer)

	if strings.Contains(ex.Narrative, "identifiedStocks") || strings.Contains(ex.Narrative, "```") {
		t.Fatalf("narrative still carries the json block: %q", ex.Narrative)
	}
	if !strings.HasPrefix(ex.Narrative, "## Supply chain overview") || !strings.HasSuffix(ex.Narrative, "Closing remarks.") {
		t.Fatalf("narrative lost surrounding text: %q", ex.Narrative)
	}

	p, ok := ex.Data.(*Payload)
	if !ok {
		t.Fatalf("data = %#v, want *Payload", ex.Data)
	}
	if len(p.Stocks) != 1 {
		t.Fatalf("stocks = %d, want 1", len(p.Stocks))
	}
	st := p.Stocks[0]
	if st.Name != "TSMC" || st.Symbol != "2330.TW" || st.Rationale != "CoWoS capacity" {
		t.Fatalf("stock = %+v", st)
	}
	if st.ReferencePrice != "1085" {
		t.Fatalf("numeric price = %q, want 1085", st.ReferencePrice)
	}
	if p.Matrix == nil || len(p.Matrix.Dimensions) != 3 || len(p.Matrix.Companies) != 1 {
		t.Fatalf("matrix = %+v", p.Matrix)
	}
	if got := p.Matrix.Companies[0].Scores; len(got) != 3 || got[1] != 10 {
		t.Fatalf("scores = %v", got)
	}
}

func TestExtractWithoutBlock(t *testing.T) {
	t.Parallel()

	text := "  Plain markdown report with no data.\n"
	ex := Extract(text)

	if ex.Narrative != strings.TrimSpace(text) {
		t.Fatalf("narrative = %q", ex.Narrative)
	}
	if _, ok := ex.Data.(NoPayload); !ok {
		t.Fatalf("data = %#v, want NoPayload", ex.Data)
	}
	if len(ex.Stocks()) != 0 || ex.Matrix() != nil {
		t.Fatal("structured data should be empty")
	}
}

func TestExtractInvalidJSONKeepsNarrative(t *testing.T) {
	t.Parallel()

	text := "Report body.\n```json\n{\"identifiedStocks\": [ {\"name\": \n```\n"
	ex := Extract(text)

	if ex.Narrative == "" {
		t.Fatal("narrative is empty")
	}
	if strings.Contains(ex.Narrative, "identifiedStocks") {
		t.Fatalf("broken block left in narrative: %q", ex.Narrative)
	}
	np, ok := ex.Data.(NoPayload)
	if !ok {
		t.Fatalf("data = %#v, want NoPayload", ex.Data)
	}
	if np.Reason == "" {
		t.Fatal("missing reason")
	}
	if len(ex.Stocks()) != 0 || ex.Matrix() != nil {
		t.Fatal("structured data should be empty")
	}
}

func TestExtractOnlyBlockFallsBackToFullText(t *testing.T) {
	t.Parallel()

	text := "```json\n{\"identifiedStocks\": [{\"name\": \"Acme\", \"symbol\": \"ACME\"}]}\n```"
	ex := Extract(text)

	if ex.Narrative != text {
		t.Fatalf("narrative = %q, want the full text", ex.Narrative)
	}
	if len(ex.Stocks()) != 1 {
		t.Fatalf("stocks = %v", ex.Stocks())
	}
}

func TestExtractUsesFirstBlock(t *testing.T) {
	t.Parallel()

	text := "Intro\n```json\n{\"identifiedStocks\": [{\"name\": \"First\", \"symbol\": \"AAA\"}]}\n```\n" +
		"More\n```json\n{\"identifiedStocks\": [{\"name\": \"Second\", \"symbol\": \"BBB\"}]}\n```\n"
	ex := Extract(text)

	stocks := ex.Stocks()
	if len(stocks) != 1 || stocks[0].Name != "First" {
		t.Fatalf("stocks = %+v", stocks)
	}
	if !strings.Contains(ex.Narrative, "Second") {
		t.Fatal("later blocks belong to the narrative")
	}
}

func TestExtractDropsMalformedEntries(t *testing.T) {
	t.Parallel()

	text := "Body\n```json\n" + `{
  "identifiedStocks": [
    {"name": "", "symbol": ""},
    {"name": "Only name"},
    {"symbol": "ONLY", "price": "12.5"}
  ],
  "matrixData": {
    "dimensions": ["a", "b", "c"],
    "companies": [
      {"name": "short", "scores": [1, 2]},
      {"name": "ok", "scores": ["7", 8, 9.5]}
    ]
  }
}` + "\n```"
	ex := Extract(text)

	p, ok := ex.Data.(*Payload)
	if !ok {
		t.Fatalf("data = %#v", ex.Data)
	}
	if len(p.Stocks) != 2 {
		t.Fatalf("stocks = %+v, want 2", p.Stocks)
	}
	if p.Stocks[1].ReferencePrice != "12.5" {
		t.Fatalf("price = %q", p.Stocks[1].ReferencePrice)
	}
	if len(p.Matrix.Companies) != 1 || p.Matrix.Companies[0].Name != "ok" {
		t.Fatalf("companies = %+v", p.Matrix.Companies)
	}
	if p.Matrix.Companies[0].Scores[0] != 7 {
		t.Fatalf("string score not parsed: %v", p.Matrix.Companies[0].Scores)
	}
	if len(p.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", p.Warnings)
	}
}

func TestExtractMatrixWithoutUsableCompanies(t *testing.T) {
	t.Parallel()

	text := "Body\n```json\n{\"matrixData\": {\"dimensions\": [\"a\", \"b\", \"c\"], \"companies\": []}}\n```"
	ex := Extract(text)

	if _, ok := ex.Data.(NoPayload); !ok {
		t.Fatalf("data = %#v, want NoPayload", ex.Data)
	}
}

func TestExtractDropsNonFiniteScores(t *testing.T) {
	t.Parallel()

	text := "Body\n```json\n" + `{
  "identifiedStocks": [{"name": "Acme", "symbol": "ACME"}],
  "matrixData": {
    "dimensions": ["a", "b", "c"],
    "companies": [
      {"name": "broken", "scores": ["NaN", 5, "Inf"]},
      {"name": "negative", "scores": [1, "-Inf", 2]},
      {"name": "ok", "scores": [4, 5, 6]}
    ]
  }
}` + "\n```"
	ex := Extract(text)

	m := ex.Matrix()
	if m == nil || len(m.Companies) != 1 || m.Companies[0].Name != "ok" {
		t.Fatalf("matrix = %+v", m)
	}
	if len(ex.Stocks()) != 1 {
		t.Fatalf("stocks = %+v", ex.Stocks())
	}
	if _, err := json.Marshal(m); err != nil {
		t.Fatalf("matrix does not encode: %v", err)
	}
}

func TestExtractOnlyNonFiniteCompaniesKeepsStocks(t *testing.T) {
	t.Parallel()

	text := "Body\n```json\n" + `{
  "identifiedStocks": [{"name": "Acme", "symbol": "ACME"}],
  "matrixData": {"dimensions": ["a", "b", "c"], "companies": [{"name": "x", "scores": ["NaN", 5, "Inf"]}]}
}` + "\n```"
	ex := Extract(text)

	if ex.Matrix() != nil {
		t.Fatalf("matrix = %+v, want nil", ex.Matrix())
	}
	if len(ex.Stocks()) != 1 {
		t.Fatalf("stocks = %+v", ex.Stocks())
	}
}
