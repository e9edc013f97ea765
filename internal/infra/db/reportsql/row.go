// Package reportsql holds the table layout and row codec shared by the SQL archives.
package reportsql

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
)

const Table = "analysis_reports"

// Columns in insert and full-select order.
var Columns = []string{
	"id", "industry", "technology", "market", "narrative",
	"stocks_json", "matrix_json", "stock_count", "model", "chart_url", "created_at",
}

// SummaryColumns in listing order.
var SummaryColumns = []string{
	"id", "industry", "technology", "market", "stock_count", "chart_url", "created_at",
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Values encodes a report into Columns order.
func Values(r *analysis.Report, chartURL string) ([]any, error) {
	stocks := r.Stocks
	if stocks == nil {
		stocks = []analysis.Stock{}
	}
	stocksJSON, err := json.Marshal(stocks)
	if err != nil {
		return nil, fmt.Errorf("encode stocks: %w", err)
	}
	matrixJSON := "{}"
	if r.Matrix != nil {
		b, err := json.Marshal(r.Matrix)
		if err != nil {
			return nil, fmt.Errorf("encode matrix: %w", err)
		}
		matrixJSON = string(b)
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return []any{
		string(r.ID), r.Industry, r.Technology, r.Market, r.Narrative,
		string(stocksJSON), matrixJSON, len(r.Stocks), stringOrDash(r.Model), chartURL, createdAt.UTC(),
	}, nil
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanReport reads a row selected with Columns.
func ScanReport(s Scanner) (*analysis.Report, error) {
	var (
		r                  analysis.Report
		id, stocks, matrix string
		model, chartURL    string
		stockCount         int
		created            time.Time
	)
	if err := s.Scan(&id, &r.Industry, &r.Technology, &r.Market, &r.Narrative,
		&stocks, &matrix, &stockCount, &model, &chartURL, &created); err != nil {
		return nil, err
	}
	r.ID = analysis.ReportID(id)
	r.CreatedAt = created
	if model != "-" {
		r.Model = model
	}
	if err := json.Unmarshal([]byte(stocks), &r.Stocks); err != nil {
		return nil, fmt.Errorf("decode stocks: %w", err)
	}
	var m analysis.Matrix
	if err := json.Unmarshal([]byte(matrix), &m); err != nil {
		return nil, fmt.Errorf("decode matrix: %w", err)
	}
	if len(m.Dimensions) > 0 {
		r.Matrix = &m
	}
	return &r, nil
}

// ScanSummary reads a row selected with SummaryColumns.
func ScanSummary(s Scanner) (*analysis.ReportSummary, error) {
	var (
		sum     analysis.ReportSummary
		id      string
		created time.Time
	)
	if err := s.Scan(&id, &sum.Industry, &sum.Technology, &sum.Market, &sum.StockCount, &sum.ChartURL, &created); err != nil {
		return nil, err
	}
	sum.ID = analysis.ReportID(id)
	sum.CreatedAt = created
	return &sum, nil
}

// ListQuery builds the paginated listing. like is sq.Like for MySQL and sq.ILike for Postgres.
func ListQuery(b sq.StatementBuilderType, f analysis.ListFilter, like func(col, pattern string) sq.Sqlizer) sq.SelectBuilder {
	page, size := Page(f)
	q := b.Select(SummaryColumns...).From(Table)
	if v := strings.TrimSpace(f.Industry); v != "" {
		q = q.Where(like("industry", "%"+escapeLikePattern(v)+"%"))
	}
	if v := strings.TrimSpace(f.Market); v != "" {
		q = q.Where(like("market", "%"+escapeLikePattern(v)+"%"))
	}
	return q.OrderBy("created_at DESC", "id DESC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size))
}

// escapeLikePattern escapes LIKE wildcards with the default backslash escape of MySQL and Postgres.
func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Page normalises the filter's page and page size.
func Page(f analysis.ListFilter) (page, size int) {
	page, size = f.Page, f.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
