package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/controllers"
	"github.com/ManuelReschke/LingoFox/app/repository"
	"github.com/ManuelReschke/LingoFox/internal/pkg/cache"
	"github.com/ManuelReschke/LingoFox/internal/pkg/database"
	"github.com/ManuelReschke/LingoFox/internal/pkg/env"
	"github.com/ManuelReschke/LingoFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/LingoFox/internal/pkg/oauth"
	"github.com/ManuelReschke/LingoFox/internal/pkg/router"
	"github.com/ManuelReschke/LingoFox/internal/pkg/s3backup"
	"github.com/ManuelReschke/LingoFox/internal/pkg/security"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopify"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shoplock"
	"github.com/ManuelReschke/LingoFox/internal/pkg/translator"
	apidocs "github.com/ManuelReschke/LingoFox/public/docs/v1"
	"github.com/ManuelReschke/LingoFox/views"
)

func main() {
	app, jobs := NewApplication()
	jobs.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("[App] Shutting down")
		jobs.Stop()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

// findBasePath locates the directory holding public/, from the repo root or cmd/lingofox.
func findBasePath() string {
	for _, path := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			return path
		}
	}
	panic("Could not find project root directory")
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	sessions := repository.GetGlobalFactory().GetShopSessionRepository()

	cipher, err := security.NewTokenCipherFromEnv()
	if err != nil {
		panic(fmt.Errorf("token cipher: %w", err))
	}
	resolver := shopify.NewResolver(sessions, cipher)

	ac := controllers.NewAppController(db, shoplock.New(cache.GetClient()), translator.NewFromEnv())
	ac.Billing.WithTestCharges(env.GetEnvBool("SHOPIFY_BILLING_TEST", env.IsDev()))
	ac.Installer = oauth.NewInstaller(sessions, cipher)
	ac.Clients = controllers.ResolverSource(resolver)
	ac.APIKey = env.GetEnv("SHOPIFY_API_KEY", "")
	ac.APISecret = env.GetEnv("SHOPIFY_API_SECRET", "")
	ac.PublicURL = publicURL()
	ac.MarketsSyncTTL = 10 * time.Minute

	// background jobs
	manager := jobqueue.NewManager(cache.GetClient(), jobqueue.WorkerCount())
	handlers := &jobqueue.Handlers{
		DB:        db,
		Clients:   jobqueue.ResolverSource(resolver),
		Snapshots: newSnapshotter(db),
	}
	handlers.Register(manager.GetQueue())
	ac.Jobs = manager.GetQueue()

	basePath := findBasePath()

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:     views.NewEngine(),
		BodyLimit: 4 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	if _, err := apidocs.Validate(context.Background()); err != nil {
		log.Warnf("[App] OpenAPI document is invalid: %v", err)
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, ac)

	return app, manager
}

func publicURL() string {
	if domain := env.GetEnv("PUBLIC_DOMAIN", ""); domain != "" {
		return domain
	}
	return "http://localhost:" + env.GetEnv("APP_PORT", "4000")
}

// newSnapshotter returns nil when S3 backups are disabled or misconfigured.
func newSnapshotter(db *gorm.DB) *s3backup.Snapshotter {
	cfg, err := s3backup.LoadConfig()
	if err != nil {
		log.Warnf("[S3Backup] %v", err)
		return nil
	}
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := s3backup.NewClient(context.Background(), cfg)
	if err != nil {
		log.Warnf("[S3Backup] Client setup failed, backups disabled: %v", err)
		return nil
	}
	return s3backup.NewSnapshotter(db, client, cfg)
}
