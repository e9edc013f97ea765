package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/bryanwahyu/alphatrend/internal/domain/analysis"
)

type fakeGenerator struct {
	text   string
	err    error
	prompt domain.Prompt
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, p domain.Prompt) (string, error) {
	f.calls++
	f.prompt = p
	return f.text, f.err
}

func (f *fakeGenerator) Model() string { return "fake-model" }

type fakeArchive struct {
	mu       sync.Mutex
	saved    []*domain.Report
	chartURL string
	err      error
}

func (f *fakeArchive) Save(_ context.Context, r *domain.Report, chartURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, r)
	f.chartURL = chartURL
	return f.err
}

func (f *fakeArchive) Get(_ context.Context, id domain.ReportID) (*domain.Report, error) {
	for _, r := range f.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrReportNotFound
}

func (f *fakeArchive) List(context.Context, domain.ListFilter) ([]*domain.ReportSummary, error) {
	return []*domain.ReportSummary{}, nil
}

type fakeArtifacts struct {
	keys []string
	err  error
}

func (f *fakeArtifacts) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return "", f.err
	}
	return "http://minio/" + key, nil
}

type fakeCharts struct{}

func (fakeCharts) RenderSVG(*domain.Matrix) ([]byte, error) { return []byte("<svg/>"), nil }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

const answer = "# Report\n\nNarrative.\n\n```json\n" +
	`{"identifiedStocks":[{"name":"TSMC","symbol":"2330.TW","reason":"lead","price":"1000"}],` +
	`"matrixData":{"dimensions":["a","b","c"],"companies":[{"name":"TSMC","scores":[9,8,7]}]}}` +
	"\n```\n"

var validRequest = domain.Request{Industry: " AI ", Technology: "CoWoS", Market: "Taiwan"}

func TestAnalyzeBuildsReport(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: answer}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &Service{Generator: gen, Clock: fixedClock{now}}

	rep, err := svc.Analyze(context.Background(), validRequest)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("model called %d times", gen.calls)
	}
	if !strings.Contains(gen.prompt.User, "CoWoS") {
		t.Fatal("prompt does not carry the request")
	}
	if rep.ID == "" || rep.Industry != "AI" || rep.Model != "fake-model" || !rep.CreatedAt.Equal(now) {
		t.Fatalf("report = %+v", rep)
	}
	if strings.Contains(rep.Narrative, "identifiedStocks") {
		t.Fatal("json block leaked into narrative")
	}
	if len(rep.Stocks) != 1 || !rep.HasMatrix() {
		t.Fatalf("stocks=%v matrix=%v", rep.Stocks, rep.Matrix)
	}
}

func TestAnalyzeNarrativeOnly(t *testing.T) {
	t.Parallel()

	svc := &Service{Generator: &fakeGenerator{text: "just prose"}}
	rep, err := svc.Analyze(context.Background(), validRequest)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rep.Narrative != "just prose" || len(rep.Stocks) != 0 || rep.Matrix != nil {
		t.Fatalf("report = %+v", rep)
	}
}

func TestAnalyzeRejectsMissingFields(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: answer}
	svc := &Service{Generator: gen}
	_, err := svc.Analyze(context.Background(), domain.Request{Industry: "AI"})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("model called for an invalid request")
	}
}

func TestAnalyzePropagatesModelErrors(t *testing.T) {
	t.Parallel()

	svc := &Service{Generator: &fakeGenerator{err: domain.ErrQuotaExceeded}}
	if _, err := svc.Analyze(context.Background(), validRequest); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestAnalyzeArchivesWithChart(t *testing.T) {
	t.Parallel()

	arch := &fakeArchive{}
	arts := &fakeArtifacts{}
	svc := &Service{Generator: &fakeGenerator{text: answer}, Archive: arch, Artifacts: arts, Charts: fakeCharts{}}

	req := validRequest
	req.Attachment = &domain.Attachment{Filename: "deck.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")}
	rep, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(arch.saved) != 1 || arch.saved[0] != rep {
		t.Fatalf("saved = %v", arch.saved)
	}
	if !strings.HasSuffix(arch.chartURL, "/chart.svg") {
		t.Fatalf("chart url = %q", arch.chartURL)
	}
	if len(arts.keys) != 2 || !strings.HasSuffix(arts.keys[0], "attachment-deck.pdf") {
		t.Fatalf("uploaded = %v", arts.keys)
	}
}

func TestAnalyzeIgnoresStorageFailures(t *testing.T) {
	t.Parallel()

	svc := &Service{
		Generator: &fakeGenerator{text: answer},
		Archive:   &fakeArchive{err: errors.New("db down")},
		Artifacts: &fakeArtifacts{err: errors.New("minio down")},
		Charts:    fakeCharts{},
	}
	if _, err := svc.Analyze(context.Background(), validRequest); err != nil {
		t.Fatalf("storage failure leaked: %v", err)
	}
}

func TestArchiveDisabled(t *testing.T) {
	t.Parallel()

	svc := &Service{Generator: &fakeGenerator{}}
	if _, err := svc.List(context.Background(), domain.ListFilter{}); !errors.Is(err, domain.ErrArchiveDisabled) {
		t.Fatalf("list err = %v", err)
	}
	if _, err := svc.Get(context.Background(), "x"); !errors.Is(err, domain.ErrArchiveDisabled) {
		t.Fatalf("get err = %v", err)
	}
}
