package session

import (
	"context"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/quote"
)

// Store port for session state. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id ID) (*Session, error)
	// Begin moves a session to analyzing and returns the new attempt; ErrBusy when already analyzing.
	Begin(ctx context.Context, id ID, req *analysis.Request) (int, error)
	// Complete and Fail return ErrNotAnalyzing when attempt is no longer the running one.
	Complete(ctx context.Context, id ID, attempt int, r *analysis.Report, prices []quote.Slot) error
	Fail(ctx context.Context, id ID, attempt int, message string) error
	Reset(ctx context.Context, id ID) error
	// SetPrice updates the slot at idx of the current report only.
	SetPrice(ctx context.Context, id ID, reportID analysis.ReportID, idx int, slot quote.Slot) error
}
