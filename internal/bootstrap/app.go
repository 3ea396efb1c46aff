package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"s3drive-backend/internal/events"
	"s3drive-backend/internal/files"
	"s3drive-backend/internal/services/health"
	"s3drive-backend/internal/shared/config"
	"s3drive-backend/internal/shared/server"
	"s3drive-backend/internal/shared/server/middleware"
	"s3drive-backend/internal/shared/storage/db"
	"s3drive-backend/internal/shared/storage/mongodb"
	"s3drive-backend/internal/shared/storage/object"
	localstore "s3drive-backend/internal/shared/storage/object/local"
	s3store "s3drive-backend/internal/shared/storage/object/s3"
	"s3drive-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the configured router.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Mongo        *mongo.Client
	Store        object.ObjectStore
	FilesRepo    files.Repo
	Events       events.Publisher
	FilesService *files.Service
	FilesHandler *files.Handler
	Health       *health.Service
}

// Build prepares dependencies and routes with a background context.
func Build(cfg config.Config) (*App, error) {
	return BuildContext(context.Background(), cfg)
}

// BuildContext prepares dependencies and routes.
func BuildContext(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = config.StoreLocal
	}
	if strings.TrimSpace(cfg.MetadataStore) == "" {
		cfg.MetadataStore = config.MetadataMemory
	}

	app := &App{Config: cfg}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	if err := buildRepo(ctx, app); err != nil {
		return nil, err
	}

	publisher, err := buildEvents(ctx, cfg)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Events = publisher

	buildServices(app)

	var blobs server.RouteRegistrar
	if local, ok := store.(*localstore.Store); ok {
		blobs = local
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		FileHandler:   app.FilesHandler,
		Health:        app.Health,
		Blobs:         blobs,
		UploadLimiter: middleware.NewRateLimiter(nil),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":            cfg.Env,
		"object_store":   cfg.ObjectStoreType,
		"metadata_store": app.Config.MetadataStore,
		"events":         publisher != nil,
	})
	return app, nil
}

// Close releases database connections.
func (a *App) Close(ctx context.Context) {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			telemetry.Error("bootstrap.db_close_failed", map[string]any{"err": err})
		}
	}
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			telemetry.Error("bootstrap.mongo_disconnect_failed", map[string]any{"err": err})
		}
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case config.StoreS3:
		return s3store.New(ctx, s3store.Options{
			Region:         cfg.AWSRegion,
			Bucket:         cfg.S3Bucket,
			Prefix:         cfg.S3Prefix,
			Endpoint:       cfg.S3Endpoint,
			ForcePathStyle: cfg.S3ForcePathStyle,
			KMSKeyID:       cfg.SSEKMSKeyID,
		})
	case config.StoreLocal:
		if strings.TrimSpace(cfg.LocalStoreDir) == "" {
			return nil, errors.New("LOCAL_STORE_DIR is required for OBJECT_STORE=local")
		}
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL, cfg.LocalSigningKey), nil
	default:
		return nil, fmt.Errorf("unknown OBJECT_STORE %q", cfg.ObjectStoreType)
	}
}

// buildRepo picks the metadata backend. In dev-like environments a failed
// connection falls back to memory.
func buildRepo(ctx context.Context, app *App) error {
	cfg := app.Config
	var err error

	switch cfg.MetadataStore {
	case config.MetadataPostgres:
		err = buildPostgres(ctx, app)
	case config.MetadataMongo:
		err = buildMongo(ctx, app)
	case config.MetadataMemory:
		app.FilesRepo = files.NewMemoryRepo()
		return nil
	default:
		return fmt.Errorf("unknown METADATA_STORE %q", cfg.MetadataStore)
	}
	if err == nil {
		return nil
	}
	if !cfg.IsDevLike() {
		return err
	}

	telemetry.Error("bootstrap.metadata_fallback", map[string]any{
		"metadata_store": cfg.MetadataStore,
		"err":            err,
	})
	app.Config.MetadataStore = config.MetadataMemory
	app.FilesRepo = files.NewMemoryRepo()
	return nil
}

func buildPostgres(ctx context.Context, app *App) error {
	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.Shared(ctx, app.Config.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, app.Config.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		return err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if !db.IsLambdaRuntime() {
			_ = sqlDB.Close()
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	app.DB = sqlDB
	app.FilesRepo = &files.PGRepo{DB: sqlDB}
	return nil
}

func buildMongo(ctx context.Context, app *App) error {
	client, err := mongodb.Connect(ctx, app.Config.MongoURI)
	if err != nil {
		return err
	}
	repo := files.NewMongoRepo(client.Database(app.Config.MongoDatabase).Collection(app.Config.MongoCollection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("ensure mongo indexes: %w", err)
	}

	app.Mongo = client
	app.FilesRepo = repo
	return nil
}

func buildEvents(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	if strings.TrimSpace(cfg.EventsQueueURL) == "" {
		return nil, nil
	}
	publisher, err := events.NewSQSPublisher(ctx, cfg.AWSRegion, cfg.EventsQueueURL)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

func buildServices(app *App) {
	app.FilesService = &files.Service{
		Store:              app.Store,
		Repo:               app.FilesRepo,
		Events:             app.Events,
		PresignTTL:         app.Config.PresignTTL,
		PresignConcurrency: app.Config.PresignConcurrency,
	}
	app.FilesHandler = files.NewHandler(app.FilesService, app.Config.MaxUploadBytes)

	checks := map[string]health.Pinger{}
	if p, ok := app.FilesRepo.(files.Pinger); ok {
		checks["metadata"] = p
	}
	app.Health = health.NewService(checks)
}
