package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/alphatrend/internal/application/analysis"
	appquotes "github.com/bryanwahyu/alphatrend/internal/application/quotes"
	appsessions "github.com/bryanwahyu/alphatrend/internal/application/sessions"
	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/quote"
	"github.com/bryanwahyu/alphatrend/internal/domain/radar"
	"github.com/bryanwahyu/alphatrend/internal/domain/session"
	"github.com/bryanwahyu/alphatrend/internal/infra/render"
	"github.com/bryanwahyu/alphatrend/internal/logger"
	"github.com/bryanwahyu/alphatrend/internal/middleware"
)

// Options configures the router. Services are required; the rest has defaults.
type Options struct {
	Sessions *appsessions.Service
	Analysis *appanalysis.Service
	Quotes   *appquotes.Service
	Charts   *render.RadarRenderer
	Markdown *render.Markdown

	Health         map[string]middleware.HealthChecker
	APIKeys        map[string]string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64
	QuoteLinkBase  string
}

type Router struct {
	sessions  *appsessions.Service
	analysis  *appanalysis.Service
	quotes    *appquotes.Service
	charts    *render.RadarRenderer
	markdown  *render.Markdown
	maxUpload int64
	linkBase  string
}

const defaultMaxUpload = 10 << 20

func NewRouter(opts Options) http.Handler {
	r := &Router{
		sessions:  opts.Sessions,
		analysis:  opts.Analysis,
		quotes:    opts.Quotes,
		charts:    opts.Charts,
		markdown:  opts.Markdown,
		maxUpload: opts.MaxUploadBytes,
		linkBase:  opts.QuoteLinkBase,
	}
	if r.charts == nil {
		r.charts = render.NewRadarRenderer(radar.DefaultLayout(), render.DefaultStyle())
	}
	if r.markdown == nil {
		r.markdown = render.NewMarkdown()
	}
	if r.maxUpload <= 0 {
		r.maxUpload = defaultMaxUpload
	}
	if r.linkBase == "" {
		r.linkBase = "https://tw.stock.yahoo.com/quote/"
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(opts.Health))
	mux.Get("/metrics", middleware.MetricsHandler)

	limit := middleware.RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		rt.Use(limit)

		rt.Post("/sessions", r.wrap(r.handleCreateSession))
		rt.Get("/sessions/{id}", r.wrap(r.handleGetSession))
		rt.Delete("/sessions/{id}", r.wrap(r.handleResetSession))
		rt.Post("/sessions/{id}/analysis", r.wrap(r.handleSubmit))
		rt.Get("/sessions/{id}/chart.svg", r.wrap(r.handleChart(render.FormatSVG)))
		rt.Get("/sessions/{id}/chart.png", r.wrap(r.handleChart(render.FormatPNG)))

		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/quotes/{symbol}", r.wrap(r.handleQuote))

		rt.Get("/reports", r.wrap(r.handleListReports))
		rt.Get("/reports/{id}", r.wrap(r.handleGetReport))
	})

	// server-rendered pages
	mux.Get("/", r.wrap(r.pageForm))
	mux.With(limit).Post("/analyze", r.wrap(r.pageSubmit))
	mux.Get("/s/{id}", r.wrap(r.pageSession))
	mux.Post("/s/{id}/reset", r.wrap(r.pageReset))
	mux.Get("/s/{id}/chart.svg", r.wrap(r.handleChart(render.FormatSVG)))
	mux.Get("/s/{id}/chart.png", r.wrap(r.handleChart(render.FormatPNG)))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				logger.Log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
			}
			http.Error(w, err.Error(), status)
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound), errors.Is(err, analysis.ErrReportNotFound), errors.Is(err, errNoChart):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, analysis.ErrArchiveDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, radar.ErrTooFewDimensions), errors.Is(err, radar.ErrScoreCount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quote.ErrNoLiveData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes before writing headers so an encode failure still reaches wrap as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(append(body, '\n'))
	return err
}
