package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "cv-review-backend/internal/auth"
	"cv-review-backend/internal/llm"
	"cv-review-backend/internal/llm/gemini"
	"cv-review-backend/internal/profiles"
	"cv-review-backend/internal/rating"
	"cv-review-backend/internal/shared/config"
	"cv-review-backend/internal/shared/server"
	"cv-review-backend/internal/shared/server/middleware"
	"cv-review-backend/internal/shared/storage/db"
	"cv-review-backend/internal/shared/storage/object"
	localstore "cv-review-backend/internal/shared/storage/object/local"
	s3store "cv-review-backend/internal/shared/storage/object/s3"
	"cv-review-backend/internal/uploads"
)

// App holds shared dependencies wired from configuration.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	UploadsRepo  uploads.Repo
	ProfilesRepo profiles.Repo

	UploadsService  *uploads.Service
	ProfilesService *profiles.Service
	Sweeper         *uploads.Sweeper

	UploadsHandler  *uploads.Handler
	RatingHandler   *rating.Handler
	ProfilesHandler *profiles.Handler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	buildServices(app, llmClient)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		UploadsHandler:  app.UploadsHandler,
		RatingHandler:   app.RatingHandler,
		ProfilesHandler: app.ProfilesHandler,
		GoogleAuth:      app.GoogleAuth,
		RateLimiter:     middleware.NewRateLimiter(nil),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: GOOGLE_AI_API_KEY empty; reviews will fail until configured")
			return llm.PlaceholderClient{}, nil
		}
		return nil, fmt.Errorf("GOOGLE_AI_API_KEY is required")
	}
	return gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
}

func buildServices(app *App, llmClient llm.Client) {
	var uploadsRepo uploads.Repo
	var profilesRepo profiles.Repo
	if app.DB != nil {
		uploadsRepo = &uploads.PGRepo{DB: app.DB}
		profilesRepo = &profiles.PGRepo{DB: app.DB}
	} else {
		uploadsRepo = uploads.NewMemoryRepo()
		profilesRepo = profiles.NewMemoryRepo()
	}

	profilesSvc := profiles.NewService(profilesRepo)
	uploadsSvc := &uploads.Service{
		Repo:       uploadsRepo,
		Store:      app.Store,
		LLM:        llmClient,
		PromptLang: app.Config.PromptLang,
	}

	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		profilesSvc,
	)

	app.UploadsRepo = uploadsRepo
	app.ProfilesRepo = profilesRepo
	app.UploadsService = uploadsSvc
	app.ProfilesService = profilesSvc
	app.Sweeper = &uploads.Sweeper{Repo: uploadsRepo, Lease: app.Config.SweepLease}
	app.UploadsHandler = uploads.NewHandler(uploadsSvc, profilesSvc.IsAdmin)
	app.RatingHandler = rating.NewHandler(uploadsSvc)
	app.ProfilesHandler = profiles.NewHandler(profilesSvc)
	app.GoogleAuth = googleAuthSvc
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
