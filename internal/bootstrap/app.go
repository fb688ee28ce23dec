package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review/internal/analyses"
	googleauth "resume-review/internal/auth"
	"resume-review/internal/documents"
	"resume-review/internal/llm"
	"resume-review/internal/llm/gemini"
	"resume-review/internal/llm/openai"
	"resume-review/internal/pipeline"
	"resume-review/internal/queue"
	"resume-review/internal/rasterize"
	"resume-review/internal/records"
	"resume-review/internal/services/health"
	"resume-review/internal/shared/auth"
	"resume-review/internal/shared/config"
	"resume-review/internal/shared/server"
	"resume-review/internal/shared/server/middleware"
	"resume-review/internal/shared/storage/db"
	"resume-review/internal/shared/storage/kv"
	"resume-review/internal/shared/storage/object"
	localstore "resume-review/internal/shared/storage/object/local"
	miniostore "resume-review/internal/shared/storage/object/minio"
	s3store "resume-review/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *sql.DB
	Store      object.ObjectStore
	KV         kv.Store
	Events     queue.Client
	LLM        llm.Client
	Engine     *rasterize.Loader
	Rasterizer *rasterize.Rasterizer
	Documents  *documents.Service
	Records    *records.Repo
	Loader     *records.Loader
	Pipeline   *pipeline.Controller
	Analyses   *analyses.Service
	Health     *health.Service
	GoogleAuth *googleauth.GoogleService

	closers []func() error
}

// Build prepares every dependency and the HTTP router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.KV = &kv.PGStore{DB: sqlDB}
		app.closers = append(app.closers, sqlDB.Close)
		app.Health.Register("database", sqlDB.PingContext)
	} else {
		app.KV = kv.NewMemoryStore()
	}

	if app.Store, err = buildStore(ctx, cfg); err != nil {
		return nil, err
	}
	app.Documents = &documents.Service{Store: app.Store, MaxBytes: cfg.MaxUploadBytes}

	if app.LLM, err = buildLLM(ctx, cfg, app.Documents); err != nil {
		return nil, err
	}

	if app.Events, err = buildEvents(ctx, cfg, app); err != nil {
		return nil, err
	}

	if cfg.RasterizerEnabled {
		app.Engine = rasterize.NewLoader(rasterize.NewPDFEngine)
		app.Health.Register("rasterizer", func(ctx context.Context) error {
			_, err := app.Engine.Load(ctx)
			return err
		})
	} else {
		log.Printf("bootstrap: rasterizer disabled; conversions will report an unavailable environment")
	}
	app.Rasterizer = rasterize.New(app.Engine)
	if cfg.RasterizeScale > 0 {
		app.Rasterizer.Scale = cfg.RasterizeScale
	}

	app.Records = records.NewRepo(app.KV)
	app.Loader = &records.Loader{
		Auth:        auth.Gate{AllowGuests: cfg.IsDevLike()},
		Repo:        app.Records,
		Blobs:       app.Documents,
		SettleDelay: cfg.LoadSettleDelay,
	}

	app.Pipeline = pipeline.NewController(app.Documents, app.Rasterizer, app.Records, app.LLM)
	app.Pipeline.Events = app.Events
	app.Pipeline.VerifyDelay = cfg.VerifyDelay
	app.Pipeline.NavigateDelay = cfg.NavigateDelay

	app.Analyses = analyses.NewService(app.Pipeline, app.Loader, app.Records)
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
	)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		AnalysisHandler: analyses.NewHandler(app.Analyses, cfg.MaxUploadBytes),
		GoogleAuth:      app.GoogleAuth,
		Health:          app.Health,
		Limiter:         middleware.NewRateLimiter(nil),
	})

	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory key-value store")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: database unavailable; using in-memory key-value store: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		store, err := miniostore.New(miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.AWSRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(ctx context.Context, cfg config.Config, docs *documents.Service) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, docs)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel, docs)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		if !cfg.IsDevLike() {
			log.Printf("bootstrap: LLM_PROVIDER not set; using placeholder feedback")
		}
		return llm.PlaceholderClient{}, nil
	}
}

func buildEvents(ctx context.Context, cfg config.Config, app *App) (queue.Client, error) {
	switch cfg.EventsBackend {
	case "sqs":
		client, err := queue.NewSQSClient(ctx, cfg.EventsSQSQueueURL, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "asynq":
		client, err := queue.NewAsynqClient(cfg.EventsRedisAddr)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		return client, nil
	default:
		return queue.NopClient{}, nil
	}
}
