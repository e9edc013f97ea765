package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/infra/db/reportsql"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_reports (
  id          VARCHAR(36)  NOT NULL PRIMARY KEY,
  industry    VARCHAR(255) NOT NULL,
  technology  VARCHAR(255) NOT NULL,
  market      VARCHAR(255) NOT NULL,
  narrative   MEDIUMTEXT   NOT NULL,
  stocks_json JSON         NOT NULL,
  matrix_json JSON         NOT NULL,
  stock_count INT          NOT NULL DEFAULT 0,
  model       VARCHAR(128) NOT NULL DEFAULT '-',
  chart_url   VARCHAR(512) NOT NULL DEFAULT '',
  created_at  DATETIME(3)  NOT NULL,
  KEY idx_reports_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

type ReportRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ analysis.Archive = (*ReportRepository)(nil)

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
}

// Migrate creates the archive table when missing.
func (r *ReportRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Save inserts a report, replacing the stored copy on a duplicate id
func (r *ReportRepository) Save(ctx context.Context, rep *analysis.Report, chartURL string) error {
	vals, err := reportsql.Values(rep, chartURL)
	if err != nil {
		return err
	}
	q, args, err := r.sb.Insert(reportsql.Table).
		Columns(reportsql.Columns...).
		Values(vals...).
		Suffix("ON DUPLICATE KEY UPDATE narrative=VALUES(narrative), stocks_json=VALUES(stocks_json), matrix_json=VALUES(matrix_json), stock_count=VALUES(stock_count), chart_url=VALUES(chart_url)").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *ReportRepository) Get(ctx context.Context, id analysis.ReportID) (*analysis.Report, error) {
	q, args, err := r.sb.Select(reportsql.Columns...).
		From(reportsql.Table).
		Where(sq.Eq{"id": string(id)}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rep, err := reportsql.ScanReport(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, analysis.ErrReportNotFound
	}
	return rep, err
}

// List returns a page of report summaries ordered by created_at desc
func (r *ReportRepository) List(ctx context.Context, f analysis.ListFilter) ([]*analysis.ReportSummary, error) {
	q, args, err := reportsql.ListQuery(r.sb, f, like).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*analysis.ReportSummary{}
	for rows.Next() {
		s, err := reportsql.ScanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func like(col, pattern string) sq.Sqlizer {
	return sq.Like{col: pattern}
}
