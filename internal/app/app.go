package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/medipost/internal/config"
	httpcontroller "github.com/vadim/medipost/internal/controller/http"
	"github.com/vadim/medipost/internal/database"
	articledao "github.com/vadim/medipost/internal/domain/article/dao"
	articleservice "github.com/vadim/medipost/internal/domain/article/service"
	draftdao "github.com/vadim/medipost/internal/domain/draft/dao"
	"github.com/vadim/medipost/internal/domain/draft/policy"
	draftscheduler "github.com/vadim/medipost/internal/domain/draft/scheduler"
	draftservice "github.com/vadim/medipost/internal/domain/draft/service"
	expensedao "github.com/vadim/medipost/internal/domain/expense/dao"
	expenseservice "github.com/vadim/medipost/internal/domain/expense/service"
	projectdao "github.com/vadim/medipost/internal/domain/project/dao"
	projectservice "github.com/vadim/medipost/internal/domain/project/service"
	"github.com/vadim/medipost/internal/httpx/response"
	"github.com/vadim/medipost/internal/httpx/upstream/cms"
	"github.com/vadim/medipost/internal/httpx/upstream/openai"
	"github.com/vadim/medipost/internal/httpx/upstream/telegram"
	"github.com/vadim/medipost/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	pool *pgxpool.Pool
	s3   *storage.S3Storage

	draftPolicy    *policy.Policy
	articleService *articleservice.Service
	projectService *projectservice.Service
	expenseService *expenseservice.Service

	scheduler *draftscheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	if err := app.initDomains(ctx); err != nil {
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	app.registerRoutes()

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Scheduler.Enabled {
		app.scheduler = draftscheduler.New(app.draftPolicy, cfg.Scheduler.Interval, logger)
	}

	return app, nil
}

// initInfrastructure initializes the database pool and object storage
func (a *App) initInfrastructure(ctx context.Context) error {
	pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN, a.cfg.Database.MaxConns, a.cfg.Database.MinConns)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	a.pool = pool

	if err := database.Bootstrap(ctx, pool); err != nil {
		return err
	}

	s3, err := storage.NewS3Storage(storage.S3Config{
		Endpoint:        a.cfg.S3.Endpoint,
		AccessKeyID:     a.cfg.S3.AccessKeyID,
		SecretAccessKey: a.cfg.S3.SecretAccessKey,
		Bucket:          a.cfg.S3.Bucket,
		Region:          a.cfg.S3.Region,
		PublicURL:       a.cfg.S3.PublicURL,
	})
	if err != nil {
		return fmt.Errorf("initializing s3 storage: %w", err)
	}
	a.s3 = s3

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains(ctx context.Context) error {
	a.articleService = articleservice.New(articledao.NewArticlePostgres(a.pool))
	a.projectService = projectservice.New(projectdao.NewProjectPostgres(a.pool))
	a.expenseService = expenseservice.New(
		expensedao.NewExpensePostgres(a.pool),
		expensedao.NewPublicationLogPostgres(a.pool),
	)

	draftSvc := draftservice.New(
		draftdao.NewDraftPostgres(a.pool),
		draftdao.NewGenerationLogPostgres(a.pool),
	)

	generator := openai.New(
		a.cfg.OpenAI.APIKey,
		openai.WithBaseURL(a.cfg.OpenAI.BaseURL),
		openai.WithModel(a.cfg.OpenAI.Model),
		openai.WithImageModel(a.cfg.OpenAI.ImageModel),
	)

	a.draftPolicy = policy.New(
		draftSvc,
		&generatorAdapter{client: generator},
		&cmsGatewayAdapter{client: cms.New()},
		&telegramAdapter{notifier: telegram.NewNotifier(a.cfg.Telegram.BotToken)},
		a.s3,
		a.articleService,
		a.projectService,
		a.expenseService,
		policy.Costs{
			TextPer1KTokens: a.cfg.OpenAI.TextCostPer1K,
			ImagePerCall:    a.cfg.OpenAI.ImageCost,
		},
		a.cfg.Pipeline.PlaceholderImageURL,
		a.logger,
	)

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	a.router.Route("/api/v1", func(r chi.Router) {
		httpcontroller.NewDraftHandler(a.draftPolicy).RegisterRoutes(r)
		httpcontroller.NewArticleHandler(a.articleService).RegisterRoutes(r)
		httpcontroller.NewProjectHandler(a.projectService).RegisterRoutes(r)
		httpcontroller.NewExpenseHandler(a.expenseService).RegisterRoutes(r)
		httpcontroller.NewMediaHandler(&mediaUploaderAdapter{storage: a.s3}).RegisterRoutes(r)

		// Manual trigger for deployments that run the loop from an
		// external cron instead of the in-process scheduler.
		r.Post("/scheduler/process", a.processHandler)
	})
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// readyHandler handles readiness check requests
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.pool.Ping(r.Context()); err != nil {
		response.Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	response.OK(w, map[string]string{"status": "ready"})
}

// processHandler runs one scheduler pass on demand
func (a *App) processHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.draftPolicy.ProcessScheduledDrafts(r.Context()); err != nil {
		a.logger.Error("manual scheduler pass failed", "error", err)
		response.InternalError(w, "processing failed")
		return
	}
	response.OK(w, map[string]string{"status": "processed"})
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("shutdown complete")
	return nil
}

// generatorAdapter adapts openai.Client to policy.Generator
type generatorAdapter struct {
	client *openai.Client
}

func (g *generatorAdapter) Summarize(ctx context.Context, in policy.SummarizeRequest) (*policy.SummaryResult, error) {
	out, err := g.client.Summarize(ctx, openai.SummarizeInput{
		Title:   in.Title,
		Content: in.Content,
		Project: in.Project,
	})
	if err != nil {
		return nil, err
	}
	return &policy.SummaryResult{
		Summary:    out.Summary,
		Facts:      out.Facts,
		TokensUsed: out.TokensUsed,
	}, nil
}

func (g *generatorAdapter) GenerateArticle(ctx context.Context, in policy.GenerateRequest) (*policy.GenerateResult, error) {
	out, err := g.client.GenerateArticle(ctx, openai.GenerateArticleInput{
		Summary: in.Summary,
		Facts:   in.Facts,
		Project: in.Project,
		Style:   in.Style,
	})
	if err != nil {
		return nil, err
	}
	return &policy.GenerateResult{
		Body:           out.Body,
		SEOTitle:       out.SEOTitle,
		SEODescription: out.SEODescription,
		SEOKeywords:    out.SEOKeywords,
		ImagePrompt:    out.ImagePrompt,
		ChannelPost:    out.ChannelPost,
		TokensUsed:     out.TokensUsed,
	}, nil
}

func (g *generatorAdapter) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return g.client.GenerateImage(ctx, prompt)
}

func (g *generatorAdapter) Provider() string   { return openai.ProviderName }
func (g *generatorAdapter) Model() string      { return g.client.Model() }
func (g *generatorAdapter) ImageModel() string { return g.client.ImageModel() }

// cmsGatewayAdapter adapts cms.Client to policy.PublicationGateway
type cmsGatewayAdapter struct {
	client *cms.Client
}

func (c *cmsGatewayAdapter) Publish(ctx context.Context, in policy.GatewayPublishInput) (*policy.GatewayPublishOutput, error) {
	out, err := c.client.Publish(ctx, cms.PublishInput{
		BaseURL:     in.Project.CMSBaseURL,
		Token:       in.Project.CMSToken,
		Title:       in.Title,
		Preview:     in.Preview,
		Body:        in.Body,
		TaxonomyID:  in.Project.TaxonomyID,
		ImageURL:    in.ImageURL,
		SEOTitle:    in.SEOTitle,
		SEODesc:     in.SEODescription,
		SEOKeywords: in.SEOKeywords,
	})
	if err != nil {
		return nil, err
	}
	return &policy.GatewayPublishOutput{
		ExternalID: fmt.Sprintf("%d", out.ID),
		URL:        out.URL,
	}, nil
}

// telegramAdapter adapts telegram.Notifier to policy.ChannelNotifier
type telegramAdapter struct {
	notifier *telegram.Notifier
}

func (t *telegramAdapter) Announce(ctx context.Context, chatID, text, imageURL string) error {
	if imageURL != "" {
		return t.notifier.SendPhoto(ctx, chatID, imageURL, text)
	}
	return t.notifier.SendMessage(ctx, chatID, text)
}

// mediaUploaderAdapter adapts storage.S3Storage to httpcontroller.MediaUploader
type mediaUploaderAdapter struct {
	storage *storage.S3Storage
}

func (m *mediaUploaderAdapter) Upload(ctx context.Context, in httpcontroller.MediaUploadInput) (*httpcontroller.MediaUploadOutput, error) {
	out, err := m.storage.Upload(ctx, storage.UploadInput{
		Reader:      in.Reader,
		ContentType: in.ContentType,
		Size:        in.Size,
		Filename:    in.Filename,
	})
	if err != nil {
		return nil, err
	}
	return &httpcontroller.MediaUploadOutput{
		URL:  out.URL,
		Key:  out.Key,
		Size: out.Size,
	}, nil
}
