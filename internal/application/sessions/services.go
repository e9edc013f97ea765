package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/alphatrend/internal/application"
	appanalysis "github.com/bryanwahyu/alphatrend/internal/application/analysis"
	appquotes "github.com/bryanwahyu/alphatrend/internal/application/quotes"
	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/quote"
	domain "github.com/bryanwahyu/alphatrend/internal/domain/session"
	"github.com/bryanwahyu/alphatrend/internal/logger"
)

// Service drives the session state machine: idle -> analyzing -> completed | error.
type Service struct {
	Store    domain.Store
	Analysis *appanalysis.Service
	Quotes   *appquotes.Service
	Metrics  application.Metrics
	// Timeout bounds one background analysis; zero means none.
	Timeout time.Duration

	// done is called after every background run
	done func(id domain.ID)
}

func (s *Service) Create(ctx context.Context) (*domain.Session, error) {
	return s.Store.Create(ctx)
}

func (s *Service) Get(ctx context.Context, id domain.ID) (*domain.Session, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) Reset(ctx context.Context, id domain.ID) error {
	return s.Store.Reset(ctx, id)
}

// Submit validates req, marks the session analyzing and runs the analysis in the background.
// The run is detached from ctx so it survives the submitting HTTP request.
func (s *Service) Submit(ctx context.Context, id domain.ID, req analysis.Request) error {
	if err := req.Normalize(); err != nil {
		return err
	}
	attempt, err := s.Store.Begin(ctx, id, &req)
	if err != nil {
		return err
	}
	s.metrics().AnalysisStarted()

	go s.run(id, attempt, req)
	return nil
}

func (s *Service) run(id domain.ID, attempt int, req analysis.Request) {
	defer func() {
		if s.done != nil {
			s.done(id)
		}
	}()

	// store writes and quote lookups must outlive the analysis deadline
	bg := context.Background()
	ctx, cancel := bg, context.CancelFunc(func() {})
	if s.Timeout > 0 {
		ctx, cancel = context.WithTimeout(bg, s.Timeout)
	}
	defer cancel()

	log := logger.Log.WithFields(logrus.Fields{"session": id, "attempt": attempt})

	rep, err := s.Analysis.Analyze(ctx, req)
	s.metrics().AnalysisFinished(err)
	if err != nil {
		log.WithError(err).Error("analysis failed")
		if ferr := s.Store.Fail(bg, id, attempt, UserMessage(err)); ferr != nil {
			log.WithError(ferr).Warn("discarding failure of a superseded run")
		}
		return
	}

	slots := appquotes.Slots(rep.Stocks)
	if err := s.Store.Complete(bg, id, attempt, rep, slots); err != nil {
		log.WithError(err).Warn("discarding result of a superseded run")
		return
	}

	if s.Quotes == nil || len(slots) == 0 {
		return
	}
	s.Quotes.Resolve(bg, slots, func(idx int, slot quote.Slot) {
		if err := s.Store.SetPrice(bg, id, rep.ID, idx, slot); err != nil {
			log.WithError(err).Debug("price slot update dropped")
		}
	})
}

// UserMessage turns a failure into the text shown on the error view.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, analysis.ErrQuotaExceeded):
		return "The AI service quota has been exceeded. Please try again later."
	case errors.Is(err, analysis.ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, analysis.ErrEmptyResponse):
		return "The AI service returned an empty answer. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The analysis took too long and was stopped. Please try again."
	default:
		return "The analysis failed. Please try again later."
	}
}

func (s *Service) metrics() application.Metrics {
	if s.Metrics == nil {
		return application.NopMetrics{}
	}
	return s.Metrics
}
