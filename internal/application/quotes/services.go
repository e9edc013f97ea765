package quotes

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/alphatrend/internal/application"
	domain "github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/quote"
	"github.com/bryanwahyu/alphatrend/internal/logger"
)

// Service enriches identified stocks with best-effort live prices.
type Service struct {
	Source  quote.Source
	Timeout time.Duration // per lookup; zero means the caller's context only
	Metrics application.Metrics
}

// Lookup fetches one quote.
func (s *Service) Lookup(ctx context.Context, symbol string) (quote.Quote, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Source.Quote(ctx, symbol)
}

// Slots builds the pending slots for a report's stocks, in stock order.
func Slots(stocks []domain.Stock) []quote.Slot {
	out := make([]quote.Slot, len(stocks))
	for i, st := range stocks {
		out[i] = quote.NewSlot(st.Symbol, st.ReferencePrice)
	}
	return out
}

// Resolve settles every slot concurrently, one goroutine per slot, and returns once all are settled.
// onResolve, when set, is called once per slot as soon as it settles.
func (s *Service) Resolve(ctx context.Context, slots []quote.Slot, onResolve func(idx int, slot quote.Slot)) []quote.Slot {
	out := append([]quote.Slot(nil), slots...)

	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// each goroutine writes only out[i]
			s.settle(ctx, &out[i])
			if onResolve != nil {
				onResolve(i, out[i])
			}
		}(i)
	}
	wg.Wait()
	return out
}

func (s *Service) settle(ctx context.Context, slot *quote.Slot) {
	if slot.State != quote.StatePending {
		return
	}
	if slot.Symbol == "" {
		slot.Fail()
		return
	}

	q, err := s.Lookup(ctx, slot.Symbol)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"symbol": slot.Symbol, "error": err}).Warn("live quote unavailable, using reference price")
		s.metrics().QuoteFailed()
		slot.Fail()
		return
	}
	slot.Resolve(q)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func (s *Service) metrics() application.Metrics {
	if s.Metrics == nil {
		return application.NopMetrics{}
	}
	return s.Metrics
}
