package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"ingestd/internal/config"
	"ingestd/internal/jobs"
	"ingestd/internal/progress"
	"ingestd/internal/runtimeconfig"
	"ingestd/internal/services"
	"ingestd/internal/store"
	"ingestd/internal/store/analytics"
	"ingestd/internal/store/object"
	"ingestd/internal/store/vector"
)

type App struct {
	Config   *config.Config
	Settings *runtimeconfig.Store

	Bus      *progress.Bus
	Registry *jobs.Registry

	VectorStore    store.VectorStore
	ObjectStore    store.ObjectStore
	AnalyticsStore store.AnalyticsStore
	JobClient      store.JobClient

	CleanupService    *services.CleanupService
	OCRProvider       services.OCRProvider
	EmbeddingProvider services.EmbeddingProvider

	// guards provider/coordinator rebuilds triggered by critical-key writes
	invalidateMu sync.Mutex
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg}

	app.initSettings()
	app.initCoreRegistries()
	if err := app.initObjectStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initVectorStore(ctx); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initAnalyticsStore(ctx); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initJobClient(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initProviders(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initCleanupService(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}

	log.Println("Application initialization complete.")
	return app, nil
}

// --- Private Helper Methods ---

func (a *App) initSettings() {
	a.Settings = runtimeconfig.NewFromEnvironment(config.AllSettingKeys())
	if lvl, err := log.ParseLevel(a.Settings.Get("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}
}

func (a *App) initCoreRegistries() {
	a.Bus = progress.NewBus()
	if secs := a.Settings.GetInt("PROGRESS_IDLE_TIMEOUT_SECONDS", 300); secs > 0 {
		a.Bus.IdleTimeout = time.Duration(secs) * time.Second
	}
	a.Registry = jobs.NewRegistry()
}

func (a *App) initObjectStore(ctx context.Context) error {
	cfg := a.Config
	os, err := object.NewStore(ctx, cfg.ObjectStore.Address, cfg.ObjectStore.Password, cfg.ObjectStore.DB)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}
	a.ObjectStore = os
	return nil
}

func (a *App) initVectorStore(ctx context.Context) error {
	cfg := a.Config
	if cfg.Database.Vector.DSN == "" {
		return fmt.Errorf("vector store DSN (database.vector.dsn) is required but not configured")
	}
	vs, err := vector.NewStore(ctx, cfg.Database.Vector.DSN)
	if err != nil {
		return fmt.Errorf("init postgres vector store: %w", err)
	}
	a.VectorStore = vs
	return nil
}

func (a *App) initAnalyticsStore(ctx context.Context) error {
	cfg := a.Config
	dsn := cfg.Database.Analytics.DSN
	if dsn == "" {
		dsn = cfg.Database.Vector.DSN
	}
	as, err := analytics.NewStore(ctx, dsn)
	if err != nil {
		return fmt.Errorf("init analytics store: %w", err)
	}
	a.AnalyticsStore = as
	return nil
}

func (a *App) initJobClient() error {
	cfg := a.Config
	jc, err := store.NewAsynqJobClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	a.JobClient = jc
	return nil
}

func (a *App) initProviders() error {
	s := a.Settings
	cfg := a.Config

	embedder, err := services.NewOpenAIProvider(
		s.Get("OPENAI_API_KEY", cfg.Embedding.OpenaiApiKey),
		s.Get("EMBEDDING_MODEL", cfg.Embedding.Model),
		s.GetInt("EMBEDDING_DIMENSION", cfg.Embedding.Dimension),
	)
	if err != nil {
		return fmt.Errorf("init embedding provider: %w", err)
	}
	a.EmbeddingProvider = embedder

	ocr, err := services.NewGeminiOCRProvider(
		s.Get("GOOGLE_API_KEY", cfg.OCR.GoogleApiKey),
		s.Get("OCR_MODEL", cfg.OCR.Model),
	)
	if err != nil {
		return fmt.Errorf("init OCR provider: %w", err)
	}
	a.OCRProvider = ocr
	return nil
}

func (a *App) initCleanupService() error {
	cs, err := services.NewCleanupService([]store.JobDataStore{
		a.VectorStore,
		a.ObjectStore,
		a.AnalyticsStore,
	})
	if err != nil {
		return fmt.Errorf("init cleanup service: %w", err)
	}
	a.CleanupService = cs
	return nil
}

// InvalidateServices rebuilds the provider singletons from the current
// runtime settings. Called by the configuration API after a critical key
// changes. Returns false when a rebuild failed and the old instances stay.
func (a *App) InvalidateServices() bool {
	a.invalidateMu.Lock()
	defer a.invalidateMu.Unlock()

	oldOCR := a.OCRProvider
	if err := a.initProviders(); err != nil {
		log.Errorf("Service invalidation failed, keeping previous providers: %v", err)
		return false
	}
	if closer, ok := oldOCR.(interface{ Close() error }); ok && closer != nil {
		if err := closer.Close(); err != nil {
			log.Warnf("Error closing previous OCR provider: %v", err)
		}
	}
	log.Info("Service singletons rebuilt after critical setting change.")
	return true
}

func (a *App) Close() {
	if a.JobClient != nil {
		a.JobClient.Close()
	}
	if a.VectorStore != nil {
		a.VectorStore.Close()
	}
	if a.ObjectStore != nil {
		a.ObjectStore.Close()
	}
	if a.AnalyticsStore != nil {
		a.AnalyticsStore.Close()
	}
	if closer, ok := a.OCRProvider.(interface{ Close() error }); ok && closer != nil {
		closer.Close()
	}
}

func (a *App) cleanupPartialInit() {
	a.Close()
}
