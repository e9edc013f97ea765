package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
)

// DefaultLanguage is the report language when none is configured.
const DefaultLanguage = "Traditional Chinese (zh-TW)"

// DimensionCount is how many analysis dimensions the model is asked to define.
const DimensionCount = 5

// GetSystemPrompt sets the analyst persona.
func GetSystemPrompt() string {
	return `You are a chief equity research analyst covering industrial supply chains. You rely on recent broker research and industry news, you name the companies that actually hold the technology, and you never pad the list with loosely related concept stocks.`
}

// GetUserPrompt builds the four-task research instruction around the submitted fields.
func GetUserPrompt(req analysis.Request, language string) string {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}

	var sb strings.Builder
	sb.WriteString("Using your expertise as chief analyst, carry out the following research.\n\n")

	sb.WriteString("[User settings]\n")
	fmt.Fprintf(&sb, "[Target industry / technology domain]: %s\n", req.Industry)
	fmt.Fprintf(&sb, "[Key technology standard / product]: %s\n", req.Technology)
	fmt.Fprintf(&sb, "[Target market]: %s\n\n", req.Market)

	sb.WriteString("[Tasks]\n\n")
	fmt.Fprintf(&sb, "Task 1: Vendor discovery\nUsing the latest (past 3-6 months) broker reports and industry news, find the companies in %s within the \"%s\" domain that genuinely have order intake or R&D capability for \"%s\". Exclude loosely related concept stocks and focus on the core players.\n\n",
		req.Market, req.Industry, req.Technology)
	fmt.Fprintf(&sb, "Task 2: Dimension definition\nList the %d most important analysis dimensions (metrics). Explain why these %d were chosen and how they distinguish each company's moat.\n\n",
		DimensionCount, DimensionCount)
	fmt.Fprintf(&sb, "Task 3: Matrix analysis\nCompare the companies found above across the %d dimensions. **Also give every company a score from 1 to 10 on every dimension (10 is best).**\n\n",
		DimensionCount)
	sb.WriteString("Task 4: The verdict\nGive one sharp line per company on its strength vs. its fatal weakness. Finally, based on share price upside or future growth, pick the single company with the most potential over the next 1-2 years.\n\n")

	if req.Attachment != nil {
		fmt.Fprintf(&sb, "An attachment (%s) is provided as reference material; use it where relevant.\n\n", req.Attachment.Filename)
	}

	sb.WriteString("[Output format]\n")
	fmt.Fprintf(&sb, "1. Write the complete report in Markdown, in %s.\n", language)
	sb.WriteString("2. At the very end of the report, provide **exactly one** JSON block (a Markdown code block fenced with ```json) containing all structured data, with this structure:\n")
	sb.WriteString(payloadExample())
	sb.WriteString("\nList the top pick last in identifiedStocks. Make sure the JSON is valid so it can be parsed by a program, and include every key vendor.\n")
	return sb.String()
}

func payloadExample() string {
	dims := make([]string, DimensionCount)
	scores := make([]string, DimensionCount)
	sample := []int{8, 9, 6, 7, 8}
	for i := range dims {
		dims[i] = fmt.Sprintf("%q", fmt.Sprintf("Dimension %d", i+1))
		scores[i] = fmt.Sprint(sample[i%len(sample)])
	}
	return `{
  "identifiedStocks": [
    {
      "name": "Company name",
      "symbol": "Ticker in Yahoo Finance format so it can be quoted live, e.g. Taiwan: 2330.TW, 8069.TWO; US: NVDA, AAPL",
      "reason": "One short line on why to watch it",
      "price": "Reference share price found while researching (if any)"
    }
  ],
  "matrixData": {
    "dimensions": [` + strings.Join(dims, ", ") + `],
    "companies": [
      {
        "name": "Company A",
        "scores": [` + strings.Join(scores, ", ") + `]
      }
    ]
  }
}
`
}

// Build composes the full model input for a request.
func Build(req analysis.Request, language string) analysis.Prompt {
	return analysis.Prompt{
		System:     GetSystemPrompt(),
		User:       GetUserPrompt(req, language),
		Attachment: req.Attachment,
	}
}
