package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mindspark/internal/apiclient"
	"mindspark/internal/backend"
	"mindspark/internal/certificate"
	"mindspark/internal/config"
	"mindspark/internal/database"
	"mindspark/internal/generator"
	"mindspark/internal/logger"
	"mindspark/internal/models"
	"mindspark/internal/repository"
	"mindspark/internal/security"
	"mindspark/internal/service"
)

const redisKeyPrefix = "mindspark:"

// App holds the wired components of one process
type App struct {
	Config       *config.Config
	Log          *logger.Logger
	Store        *repository.LocalStore
	Backend      backend.Backend
	Certificates *service.CertificateService
	Backup       *service.BackupService

	closers []func() error
}

// OpenRecordStore opens the durable record store selected by cfg.StoreDriver
func OpenRecordStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.RecordStore, func() error, error) {
	switch cfg.StoreDriver {
	case "sql", "":
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info("database connection established", "type", cfg.DatabaseType)
		return repository.NewSQLRecordStore(db), db.Close, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("redis connection established", "addr", cfg.RedisAddr)
		return repository.NewRedisRecordStore(client, redisKeyPrefix), client.Close, nil
	case "memory":
		log.Warn("using in-memory store, nothing will be persisted")
		return repository.NewMemoryRecordStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
}

// New wires the store, backend and supporting services for cfg
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	records, closeStore, err := OpenRecordStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		Store:   repository.NewLocalStore(records),
		closers: []func() error{closeStore},
	}
	a.Backup = service.NewBackupService(a.Store, cfg.StoreDriver, log)

	if a.Backend, err = a.newBackend(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if a.Certificates, err = a.newCertificates(ctx); err != nil {
		a.Close()
		return nil, err
	}
	log.Info("application ready", "mode", a.Backend.Mode(), "store", cfg.StoreDriver)
	return a, nil
}

func (a *App) newBackend(ctx context.Context) (backend.Backend, error) {
	cfg := a.Config
	if cfg.UseRemote() {
		client := apiclient.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, a.Store, a.Log)
		return backend.NewRemote(client), nil
	}

	gen, err := generator.NewGemini(ctx, generator.GeminiConfig{
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.GeminiModel,
		Endpoint: cfg.GeminiEndpoint,
		Limiter:  security.NewRateLimiter(cfg.GenerateLimit, cfg.GenerateWindow),
		Log:      a.Log.With("component", "generator"),
	})
	if err != nil {
		return nil, err
	}
	if cfg.GeminiAPIKey == "" {
		a.Log.Warn("API_KEY not set, quiz generation will fail in local mode")
	}
	return backend.NewLocal(a.Store, gen, cfg.AdminCode, a.Log), nil
}

func (a *App) newCertificates(ctx context.Context) (*service.CertificateService, error) {
	cfg := a.Config
	renderer, err := certificate.NewRenderer(cfg.CertFontPath)
	if err != nil {
		return nil, err
	}
	signer, err := certificate.NewSigner(cfg.CertSecret)
	if err != nil {
		return nil, err
	}

	var publisher certificate.Publisher
	if cfg.CertBucket != "" {
		bucket, err := certificate.NewBucketPublisher(ctx, cfg.CertBucket, cfg.CertPublicURL)
		if err != nil {
			a.Log.Warn("certificate sharing disabled", "error", err)
		} else {
			publisher = bucket
			a.closers = append(a.closers, bucket.Close)
		}
	}

	email, err := service.NewEmailService(ctx, cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, a.Log)
	if err != nil {
		a.Log.Warn("certificate e-mail disabled", "error", err)
		email = nil
	}

	return service.NewCertificateService(renderer, signer, publisher, email, cfg.CertOutputDir, a.Log), nil
}

// NewSession creates a controller over the app's backend
func (a *App) NewSession(scheduler service.Scheduler, onChange func(service.Snapshot)) *service.SessionController {
	lang := models.ParseLanguage(a.Config.Language)
	return service.NewSessionController(a.Backend, service.SessionOptions{
		AdvanceDelay:  a.Config.AdvanceDelay,
		FinalizeDelay: a.Config.FinalizeDelay,
		Language:      lang,
		Scheduler:     scheduler,
		Log:           a.Log.With("component", "session"),
		OnChange:      onChange,
	})
}

// Close releases every resource opened by New
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
