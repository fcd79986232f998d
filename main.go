package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nordstock/invoicepipe/app/controllers"
	"github.com/nordstock/invoicepipe/internal/pkg/config"
	"github.com/nordstock/invoicepipe/internal/pkg/cursor"
	"github.com/nordstock/invoicepipe/internal/pkg/env"
	"github.com/nordstock/invoicepipe/internal/pkg/filestore"
	"github.com/nordstock/invoicepipe/internal/pkg/invoice"
	"github.com/nordstock/invoicepipe/internal/pkg/pipeline"
	"github.com/nordstock/invoicepipe/internal/pkg/router"
)

func main() {
	app, cfg := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort))
	log.Fatal(err)
}

// NewApplication wires configuration, the file store binding, the cursor
// store and the pipeline into a ready-to-listen fiber app.
func NewApplication() (*fiber.App, *config.Config) {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	store := newStore(cfg)
	cursors := newCursorStore(cfg)
	assembler := invoice.NewAssembler(store, cfg.InvoiceFolder)

	p := pipeline.New(store, cursors, assembler, pipeline.Config{
		WebhookSecret:   cfg.WebhookSecret,
		InputFolder:     cfg.InputFolder,
		ProcessedFolder: cfg.ProcessedFolder,
		TemplateFolder:  cfg.TemplateFolder,
		SettleDelay:     cfg.SettleDelay,
		HTTPTimeout:     cfg.HTTPTimeout,
	})

	// one run = settle delay + a handful of remote calls
	runTimeout := cfg.SettleDelay + 4*cfg.HTTPTimeout
	controllers.InitializeWebhookController(p, cfg.SignatureHeader, runTimeout)

	app := fiber.New(fiber.Config{
		AppName: "invoicepipe",
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app)

	return app, cfg
}

func newStore(cfg *config.Config) filestore.Store {
	if cfg.StoreBackend == "memory" {
		store := filestore.NewMemory()
		// memory links are loopback-only, fine for local development but
		// never reachable from outside this host
		base, err := store.ServeLinks()
		if err != nil {
			log.Fatal(err)
		}
		fiberlog.Warnf("[Store] memory backend active, serving download links at %s; data is lost on restart", base)
		return store
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := filestore.NewS3Store(ctx, filestore.S3Config{
		EndpointURL:     cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Bucket:          cfg.S3Bucket,
	})
	if err != nil {
		log.Fatal(err)
	}
	return store
}

func newCursorStore(cfg *config.Config) cursor.Store {
	if cfg.CursorBackend == "redis" {
		return cursor.NewRedisStore(cfg.CacheHost, cfg.CachePort)
	}
	return cursor.NewMemoryStore()
}
