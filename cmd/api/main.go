package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bryanwahyu/alphatrend/internal/application"
	appanalysis "github.com/bryanwahyu/alphatrend/internal/application/analysis"
	appquotes "github.com/bryanwahyu/alphatrend/internal/application/quotes"
	appsessions "github.com/bryanwahyu/alphatrend/internal/application/sessions"
	"github.com/bryanwahyu/alphatrend/internal/config"
	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/radar"
	"github.com/bryanwahyu/alphatrend/internal/infra/ai/attachment"
	einoclient "github.com/bryanwahyu/alphatrend/internal/infra/ai/eino"
	openaiclient "github.com/bryanwahyu/alphatrend/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/alphatrend/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/alphatrend/internal/infra/db/postgres"
	"github.com/bryanwahyu/alphatrend/internal/infra/httpserver"
	"github.com/bryanwahyu/alphatrend/internal/infra/quote/yahoo"
	"github.com/bryanwahyu/alphatrend/internal/infra/render"
	memstore "github.com/bryanwahyu/alphatrend/internal/infra/session"
	minioStore "github.com/bryanwahyu/alphatrend/internal/infra/storage"
	"github.com/bryanwahyu/alphatrend/internal/logger"
	"github.com/bryanwahyu/alphatrend/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		logger.Log.Fatalf("config load error: %v", err)
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		logger.Log.Fatalf("logger init error: %v", err)
	}
	if cfg.LLM.APIKey == "" {
		logger.Log.Warn("no LLM API key configured; analyses will fail until LLM_API_KEY is set")
	}

	ctx := context.Background()
	health := map[string]middleware.HealthChecker{}

	// init generator
	pdf := attachment.NewPDFExtractor(cfg.Attachment.PDFMaxChars)
	gen, err := newGenerator(ctx, cfg, pdf)
	if err != nil {
		logger.Log.Fatalf("llm init error: %v", err)
	}

	// init optional archive
	archive, db, err := newArchive(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("archive init error: %v", err)
	}
	if db != nil {
		defer db.Close()
		health["archive"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// init optional minio
	var artifacts analysis.ArtifactStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.PublicBase,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Log.Fatalf("minio init error: %v", err)
		}
		artifacts = store
		health["storage"] = middleware.CheckerFunc(store.Ping)
	}

	layout := radar.DefaultLayout()
	layout.Size = cfg.Chart.Size
	layout.Radius = cfg.Chart.Radius
	charts := render.NewRadarRenderer(layout, render.DefaultStyle())

	metrics := middleware.Recorder{}
	analysisSvc := &appanalysis.Service{
		Generator: gen,
		Archive:   archive,
		Artifacts: artifacts,
		Charts:    charts,
		Clock:     application.SystemClock{},
		Language:  cfg.LLM.Language,
	}
	quotesSvc := &appquotes.Service{
		Source: yahoo.NewClient(yahoo.Options{
			Endpoint: cfg.Quotes.Endpoint,
			Timeout:  cfg.Quotes.Timeout,
			RPS:      cfg.Quotes.RPS,
			Burst:    cfg.Quotes.Burst,
		}),
		Timeout: cfg.Quotes.Timeout,
		Metrics: metrics,
	}

	sessions := memstore.NewMemoryStore(cfg.Session.TTL)
	defer sessions.Close()
	sessionsSvc := &appsessions.Service{
		Store:    sessions,
		Analysis: analysisSvc,
		Quotes:   quotesSvc,
		Metrics:  metrics,
		Timeout:  cfg.LLM.Timeout,
	}

	// init router
	handler := httpserver.NewRouter(httpserver.Options{
		Sessions:       sessionsSvc,
		Analysis:       analysisSvc,
		Quotes:         quotesSvc,
		Charts:         charts,
		Markdown:       render.NewMarkdown(),
		Health:         health,
		APIKeys:        cfg.Server.APIKeys,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimit.RPS,
		RateLimitBurst: cfg.Server.RateLimit.Burst,
		MaxUploadBytes: cfg.Attachment.MaxBytes,
		QuoteLinkBase:  cfg.Quotes.LinkBase,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// run server
	go func() {
		logger.Log.WithField("model", gen.Model()).Infof("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Log.Errorf("shutdown error: %v", err)
	}
}

func newGenerator(ctx context.Context, cfg *config.Config, pdf *attachment.PDFExtractor) (analysis.Generator, error) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "eino":
		return einoclient.NewClient(ctx, einoclient.Config{
			BaseURL:   cfg.LLM.BaseURL,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			RPM:       cfg.LLM.RPM,
		}, pdf)
	default:
		return openaiclient.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.MaxTokens, pdf), nil
	}
}

// newArchive returns a nil archive when archive.driver is empty.
func newArchive(ctx context.Context, cfg *config.Config) (analysis.Archive, *sql.DB, error) {
	dbc := cfg.Archive.Database
	switch strings.ToLower(cfg.Archive.Driver) {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN(), dbc.MaxOpen, dbc.MaxIdle)
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		repo := mysqlp.NewReportRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("mysql migrate: %w", err)
		}
		return repo, db, nil
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN(), dbc.MaxOpen, dbc.MaxIdle)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		repo := postgresp.NewReportRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return repo, db, nil
	default:
		return nil, nil, nil
	}
}
