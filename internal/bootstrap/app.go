package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kassie406/familyvault-app-sub005/internal/analyses"
	"github.com/Kassie406/familyvault-app-sub005/internal/analyzer"
	"github.com/Kassie406/familyvault-app-sub005/internal/documents"
	"github.com/Kassie406/familyvault-app-sub005/internal/inbox"
	"github.com/Kassie406/familyvault-app-sub005/internal/members"
	"github.com/Kassie406/familyvault-app-sub005/internal/queue"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/config"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/storage/db"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/storage/object"
	localstore "github.com/Kassie406/familyvault-app-sub005/internal/shared/storage/object/local"
	s3store "github.com/Kassie406/familyvault-app-sub005/internal/shared/storage/object/s3"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/telemetry"
)

// App holds shared dependencies for the API server and the queue worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	DocumentsRepo documents.DocumentsRepo
	InboxStore    inbox.Store
	MembersRepo   members.MembersRepo

	Analyzer analyzer.Client
	Remote   inbox.Remote

	Dispatcher       *analyses.Dispatcher
	DocumentsService *documents.Service
	MembersService   *members.Service
	InboxService     *inbox.Service

	DocumentsHandler *documents.Handler
	AnalysesHandler  *analyses.Handler
	InboxHandler     *inbox.Handler
	MembersHandler   *members.Handler
}

// Build prepares shared dependencies and the router.
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

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		DocumentsHandler: app.DocumentsHandler,
		AnalysesHandler:  app.AnalysesHandler,
		InboxHandler:     app.InboxHandler,
		MembersHandler:   app.MembersHandler,
	})

	return app, nil
}

// Close releases held resources and aborts outstanding analyses.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.CancelAll()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
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
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var docRepo documents.DocumentsRepo
	var membersRepo members.MembersRepo
	var inboxStore inbox.Store

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		membersRepo = &members.PGRepo{DB: app.DB}
		inboxStore = &inbox.PGStore{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		membersRepo = members.NewMemoryRepo()
		inboxStore = inbox.NewMemoryStore()
	}

	var (
		analyzerClient analyzer.Client
		remote         inbox.Remote
	)
	if strings.TrimSpace(app.Config.AnalyzerBaseURL) != "" {
		httpClient, err := analyzer.NewHTTPClient(app.Config.AnalyzerBaseURL, app.Config.AnalyzerAPIKey)
		if err != nil {
			return err
		}
		analyzerClient = httpClient
		remote = httpClient
	} else {
		if !isDevLike(app.Config.Env) {
			return errors.New("ANALYZER_BASE_URL is required outside dev")
		}
		log.Printf("bootstrap: ANALYZER_BASE_URL empty; using placeholder analyzer")
		analyzerClient = analyzer.NewPlaceholderClient()
		remote = analyzer.PlaceholderRemote{}
	}

	dispatcher := analyses.NewDispatcher(docRepo, app.Store, inboxStore, analyzerClient, app.Queue)

	docSvc := &documents.Service{
		Store:    app.Store,
		Repo:     docRepo,
		Inbox:    inboxStore,
		Notifier: dispatcher,
	}
	membersSvc := members.NewService(membersRepo)
	inboxSvc := &inbox.Service{
		Store:    inboxStore,
		Remote:   remote,
		Members:  membersSvc,
		Canceler: dispatcher,
		Renamer:  docRepo,
		// The review surface owns navigation; the backend's signal is an
		// event the surface (or anything tailing the log stream) reacts to.
		Navigate: func(memberID string) {
			telemetry.Info("inbox.navigate", map[string]any{
				"member_id": memberID,
				"target":    "member_profile",
			})
		},
	}

	pollInterval := time.Duration(app.Config.PollSeconds) * time.Second

	app.DocumentsRepo = docRepo
	app.MembersRepo = membersRepo
	app.InboxStore = inboxStore
	app.Analyzer = analyzerClient
	app.Remote = remote
	app.Dispatcher = dispatcher
	app.DocumentsService = docSvc
	app.MembersService = membersSvc
	app.InboxService = inboxSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.AnalysesHandler = analyses.NewHandler(dispatcher, docRepo)
	app.InboxHandler = inbox.NewHandler(inboxSvc, inboxStore, remote, pollInterval)
	app.MembersHandler = members.NewHandler(membersSvc)

	return nil
}
