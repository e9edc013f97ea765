package session

import (
	"time"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/quote"
)

// ID tipe untuk Session
type ID string

// State enum
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Session is the in-memory view state of one user: at most one analysis in flight.
// Attempt increases on every Begin so late results of a reset run can be told apart.
type Session struct {
	ID        ID                `json:"id"`
	State     State             `json:"state"`
	Attempt   int               `json:"attempt"`
	Request   *analysis.Request `json:"request,omitempty"`
	Report    *analysis.Report  `json:"report,omitempty"`
	Prices    []quote.Slot      `json:"prices,omitempty"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Clone returns a copy that shares no mutable slices with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Prices != nil {
		c.Prices = append([]quote.Slot(nil), s.Prices...)
	}
	return &c
}
