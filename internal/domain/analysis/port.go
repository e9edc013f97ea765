package analysis

import "context"

// Prompt is the composed model input: instruction text plus the optional attachment.
type Prompt struct {
	System     string
	User       string
	Attachment *Attachment
}

// Generator calls the hosted reasoning model once and returns its raw text.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	Model() string
}

// Archive port for persisting and querying finished reports
type Archive interface {
	Save(ctx context.Context, r *Report, chartURL string) error
	Get(ctx context.Context, id ReportID) (*Report, error)
	List(ctx context.Context, f ListFilter) ([]*ReportSummary, error)
}

// ArtifactStore port for uploading attachments and rendered charts
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ChartRenderer draws the matrix radar chart as SVG
type ChartRenderer interface {
	RenderSVG(m *Matrix) ([]byte, error)
}
