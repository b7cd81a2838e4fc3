package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/adapters/event"
	httpAdapter "github.com/khoahotran/portfolio-cms/adapters/http"
	"github.com/khoahotran/portfolio-cms/adapters/identity"
	"github.com/khoahotran/portfolio-cms/adapters/media_storage"
	"github.com/khoahotran/portfolio-cms/adapters/memory"
	"github.com/khoahotran/portfolio-cms/adapters/persistence"
	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/application/store"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/asset"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/backup"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/portfolio"
	"github.com/khoahotran/portfolio-cms/internal/config"
	"github.com/khoahotran/portfolio-cms/internal/domain/aboutme"
	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/internal/domain/skill"
	"github.com/khoahotran/portfolio-cms/pkg/auth"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
	"github.com/khoahotran/portfolio-cms/pkg/tracing"
)

// backend is everything the stores need from the outside world.
type backend struct {
	deps    store.Deps
	cache   service.SnapshotCache
	assets  http.Handler
	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()

	appLogger.Info("Start Portfolio CMS API Server...", zap.String("backend", cfg.App.Backend))

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "portfolio-cms-api")
	if err != nil {
		appLogger.Fatal("cannot init tracer", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			appLogger.Error("Error shutting down tracer provider", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtSvc, err := newJWTService(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot init token service", err)
	}

	var b *backend
	switch cfg.App.Backend {
	case config.BackendMemory:
		b, err = newMemoryBackend(cfg, jwtSvc, appLogger)
	default:
		b, err = newPostgresBackend(ctx, cfg, jwtSvc, appLogger)
	}
	if err != nil {
		appLogger.Fatal("cannot init backend", err)
	}
	defer b.close()

	storage, err := newAssetStorage(ctx, cfg, b, appLogger)
	if err != nil {
		appLogger.Fatal("cannot init asset storage", err)
	}
	b.deps.Assets = asset.NewUploadAssetUseCase(storage, cfg.Storage.Bucket, appLogger)

	stores := store.New(ctx, b.deps)
	defer stores.Close()
	stores.Session.GetUser(ctx)

	portfolioUseCase := portfolio.NewPortfolioUseCase(stores, b.cache, cfg.Cache.SnapshotTTL, appLogger)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Stores:    stores,
		Portfolio: portfolioUseCase,
		Backup:    backup.NewBackupUseCase(portfolioUseCase, storage, cfg.Storage.BackupBucket, appLogger),
		Assets:    b.assets,
		JWT:       jwtSvc,
		Logger:    appLogger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
}

// newJWTService signs the admin bearer tokens. The memory backend falls back
// to a per-process secret so a bare dev run still works.
func newJWTService(cfg config.Config, log logger.Logger) (*auth.JWTService, error) {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if cfg.App.Backend != config.BackendMemory {
			return nil, errors.New("JWT_SECRET is required")
		}
		log.Warn("JWT_SECRET not set, tokens will not survive a restart")
		secret = uuid.NewString()
	}
	return auth.NewJWTService(secret, cfg.Auth.TokenLifespan), nil
}

func newMemoryBackend(cfg config.Config, jwtSvc *auth.JWTService, log logger.Logger) (*backend, error) {
	provider := memory.NewAuthProvider(jwtSvc)
	if cfg.Owner.Email != "" {
		if _, err := provider.AddUser(cfg.Owner.Email, cfg.Owner.Password); err != nil {
			return nil, fmt.Errorf("cannot add owner: %w", err)
		}
	} else {
		log.Warn("OWNER_EMAIL not set, nobody can sign in")
	}

	cache := memory.NewSnapshotCache()
	invalidator := portfolio.NewInvalidator(cache, log)

	return &backend{
		deps: store.Deps{
			AboutMe:        memory.NewCollection[aboutme.AboutMe](aboutme.Table, aboutme.Columns()),
			SkillsSection:  memory.NewCollection[skill.Section](skill.SectionTable, skill.SectionColumns()),
			Skills:         memory.NewCollection[skill.Skill](skill.Table, skill.Columns()),
			Experiences:    memory.NewCollection[experience.Experience](experience.Table, experience.Columns()),
			Auth:           provider,
			SessionStorage: memory.NewSessionStorage(),
			Events:         event.NewLocalPublisher(invalidator.HandleContentEvent),
			Logger:         log,
		},
		cache: cache,
	}, nil
}

func newPostgresBackend(ctx context.Context, cfg config.Config, jwtSvc *auth.JWTService, log logger.Logger) (*backend, error) {
	b := &backend{}

	dbPool, err := persistence.NewPostgresPool(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("cannot connect Postgres: %w", err)
	}
	b.closers = append(b.closers, dbPool.Close)

	redisClient, err := persistence.NewRedisClient(cfg, log)
	if err != nil {
		b.close()
		return nil, fmt.Errorf("cannot connect Redis: %w", err)
	}
	b.closers = append(b.closers, func() { _ = redisClient.Close() })

	b.cache = persistence.NewRedisSnapshotCache(redisClient)

	var events service.ContentPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, log)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("cannot init Kafka: %w", err)
		}
		b.closers = append(b.closers, kafkaClient.Close)
		events = kafkaClient
	} else {
		log.Warn("Kafka brokers not configured, invalidating the snapshot in-process")
		events = event.NewLocalPublisher(portfolio.NewInvalidator(b.cache, log).HandleContentEvent)
	}

	userRepo := persistence.NewPostgresUserRepo(dbPool, log)
	provider, err := identity.NewPasswordProvider(ctx, userRepo, jwtSvc, redisClient,
		identity.Options{RefreshWindow: cfg.Auth.RefreshWindow}, log)
	if err != nil {
		b.close()
		return nil, fmt.Errorf("cannot init identity provider: %w", err)
	}
	b.closers = append(b.closers, func() { _ = provider.Close() })

	b.deps = store.Deps{
		AboutMe:        persistence.NewAboutMeTable(dbPool, log),
		SkillsSection:  persistence.NewSkillsSectionTable(dbPool, log),
		Skills:         persistence.NewSkillsTable(dbPool, log),
		Experiences:    persistence.NewExperienceTable(dbPool, log),
		Auth:           provider,
		SessionStorage: persistence.NewRedisSessionStorage(redisClient, cfg.Auth.SessionTTL, ""),
		Events:         events,
		Logger:         log,
	}
	return b, nil
}

func newAssetStorage(ctx context.Context, cfg config.Config, b *backend, log logger.Logger) (service.AssetStorage, error) {
	switch cfg.Storage.Provider {
	case config.StorageCloudinary:
		return media_storage.NewCloudinaryAdapter(cfg, log)
	case config.StorageMemory:
		base := cfg.Storage.PublicBaseURL
		if base == "" {
			base = "http://localhost:" + cfg.App.Port + "/assets"
		}
		s := memory.NewAssetStorage(base)
		b.assets = s
		return s, nil
	default:
		s, err := media_storage.NewMinioAdapter(cfg, log)
		if err != nil {
			return nil, err
		}
		for _, bucket := range []string{cfg.Storage.Bucket, cfg.Storage.BackupBucket} {
			if err := media_storage.EnsureBucket(ctx, s, bucket); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
}
