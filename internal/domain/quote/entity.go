package quote

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoLiveData covers every way a live lookup can come back empty.
var ErrNoLiveData = errors.New("no live quote available")

// Quote is a live market price.
type Quote struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	PreviousClose *float64 `json:"previous_close,omitempty"`
	Currency      string   `json:"currency,omitempty"`
}

// Change returns price minus previous close when the previous close is known.
func (q Quote) Change() (float64, bool) {
	if q.PreviousClose == nil {
		return 0, false
	}
	return q.Price - *q.PreviousClose, true
}

// FormatPrice drops trailing zeros the way a JS number prints.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// State of a per-stock price slot.
type State string

const (
	StatePending  State = "pending"
	StateLive     State = "live"
	StateFallback State = "fallback"
)

// Direction of the live price against the previous close.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
	DirectionNone Direction = ""
)

// Slot is the price display state owned by one stock: pending -> live | fallback.
type Slot struct {
	Symbol   string `json:"symbol"`
	State    State  `json:"state"`
	Live     *Quote `json:"live,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// NewSlot starts a pending slot that falls back to the AI reference price.
func NewSlot(symbol, referencePrice string) Slot {
	return Slot{Symbol: symbol, State: StatePending, Fallback: referencePrice}
}

// Resolve moves a pending slot to live. Settled slots are left alone.
func (s *Slot) Resolve(q Quote) {
	if s.State != StatePending {
		return
	}
	s.State = StateLive
	s.Live = &q
}

// Fail moves a pending slot to fallback.
func (s *Slot) Fail() {
	if s.State != StatePending {
		return
	}
	s.State = StateFallback
}

// Display is the price text to show: live when available, otherwise the reference price.
func (s Slot) Display() string {
	if s.State == StateLive && s.Live != nil {
		return FormatPrice(s.Live.Price)
	}
	return s.Fallback
}

// Direction compares the live price to the previous close.
func (s Slot) Direction() Direction {
	if s.State != StateLive || s.Live == nil {
		return DirectionNone
	}
	ch, ok := s.Live.Change()
	switch {
	case !ok:
		return DirectionNone
	case ch > 0:
		return DirectionUp
	case ch < 0:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// ChangeText renders "▲ 1.25" / "▼ 0.40", or "" without a previous close.
func (s Slot) ChangeText() string {
	if s.State != StateLive || s.Live == nil {
		return ""
	}
	ch, ok := s.Live.Change()
	if !ok {
		return ""
	}
	mark := "▼"
	if ch > 0 {
		mark = "▲"
	}
	return fmt.Sprintf("%s %.2f", mark, math.Abs(ch))
}

// QuotePageURL links a symbol to its external quote page.
func QuotePageURL(base, symbol string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimSpace(symbol)
}
