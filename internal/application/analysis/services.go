package analysis

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/alphatrend/internal/application"
	domain "github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/infra/ai/prompt"
	"github.com/bryanwahyu/alphatrend/internal/logger"
)

// Service runs one analysis: prompt, single model call, structuring, best-effort archiving.
// Archive, Artifacts and Charts are optional.
type Service struct {
	Generator domain.Generator
	Archive   domain.Archive
	Artifacts domain.ArtifactStore
	Charts    domain.ChartRenderer
	Clock     application.Clock
	Language  string
}

// Analyze never fails on malformed structured data; only the model call and validation can fail.
func (s *Service) Analyze(ctx context.Context, req domain.Request) (*domain.Report, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	text, err := s.Generator.Generate(ctx, prompt.Build(req, s.Language))
	if err != nil {
		return nil, err
	}

	ex := prompt.Extract(text)
	log := logger.Log.WithFields(logrus.Fields{"industry": req.Industry, "market": req.Market})
	switch d := ex.Data.(type) {
	case *prompt.Payload:
		for _, w := range d.Warnings {
			log.Warnf("structured data: %s", w)
		}
	case prompt.NoPayload:
		log.Warnf("report has no structured data: %s", d.Reason)
	}

	rep := &domain.Report{
		ID:         domain.ReportID(uuid.NewString()),
		Industry:   req.Industry,
		Technology: req.Technology,
		Market:     req.Market,
		Narrative:  ex.Narrative,
		Stocks:     ex.Stocks(),
		Matrix:     ex.Matrix(),
		Model:      s.Generator.Model(),
		CreatedAt:  s.now(),
	}
	log.WithFields(logrus.Fields{"report": rep.ID, "stocks": len(rep.Stocks), "matrix": rep.HasMatrix()}).Info("analysis completed")

	s.store(ctx, rep, req.Attachment)
	return rep, nil
}

// List reads the archive.
func (s *Service) List(ctx context.Context, f domain.ListFilter) ([]*domain.ReportSummary, error) {
	if s.Archive == nil {
		return nil, domain.ErrArchiveDisabled
	}
	return s.Archive.List(ctx, f)
}

// Get reads one archived report.
func (s *Service) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	if s.Archive == nil {
		return nil, domain.ErrArchiveDisabled
	}
	return s.Archive.Get(ctx, id)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

// store uploads artifacts and archives the report. Failures are logged, never returned.
func (s *Service) store(ctx context.Context, rep *domain.Report, att *domain.Attachment) {
	if s.Archive == nil && s.Artifacts == nil {
		return
	}
	log := logger.Log.WithField("report", rep.ID)
	prefix := path.Join("reports", rep.CreatedAt.Format("2006/01/02"), string(rep.ID))

	var chartURL string
	if s.Artifacts != nil {
		if att != nil && len(att.Data) > 0 {
			if _, err := s.Artifacts.Put(ctx, path.Join(prefix, "attachment-"+path.Base(att.Filename)), att.MIMEType, att.Data); err != nil {
				log.WithError(err).Warn("upload attachment failed")
			}
		}
		if rep.HasMatrix() && s.Charts != nil {
			if url, err := s.uploadChart(ctx, prefix, rep.Matrix); err != nil {
				log.WithError(err).Warn("upload chart failed")
			} else {
				chartURL = url
			}
		}
	}

	if s.Archive != nil {
		if err := s.Archive.Save(ctx, rep, chartURL); err != nil {
			log.WithError(err).Warn("archive report failed")
		}
	}
}

func (s *Service) uploadChart(ctx context.Context, prefix string, m *domain.Matrix) (string, error) {
	svg, err := s.Charts.RenderSVG(m)
	if err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	return s.Artifacts.Put(ctx, path.Join(prefix, "chart.svg"), "image/svg+xml", svg)
}
