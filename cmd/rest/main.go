package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"ai-dms-be/internal/bootstrap"
	"ai-dms-be/internal/config"
	"ai-dms-be/internal/model"
	"ai-dms-be/internal/registry"
	mongoRepo "ai-dms-be/internal/repository/mongo"
	"ai-dms-be/internal/server"
	"ai-dms-be/internal/tracer"
	"ai-dms-be/pkg/database"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.App.Name, cfg.Tracing.Endpoint, cfg.Tracing.Enabled)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Databases
	db, disconnect, err := database.NewMongoDatabase(ctx, database.MongoConfig{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		log.Panicf("Unable to connect to MongoDB: %v", err)
	}
	defer disconnect(context.Background())

	store := mongoRepo.NewDocumentStore(db)
	if err := store.EnsureUnique(ctx, registry.Defaults().MustResolve(registry.User).Collection, "email"); err != nil {
		log.Panicf("Unable to create user email index: %v", err)
	}

	var ledger *gorm.DB
	if cfg.Usage.DSN != "" {
		ledger, err = database.NewGormDB(cfg.Usage.Driver, cfg.Usage.DSN)
		if err != nil {
			log.Panicf("Unable to connect to usage ledger: %v", err)
		}
		if err := ledger.AutoMigrate(&model.UsageRecord{}); err != nil {
			log.Panicf("Unable to migrate usage ledger: %v", err)
		}
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(store, ledger, cfg)
	defer container.Close()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server and Background Services
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Println("Background: Starting Consumer Service...")
		return container.ConsumerService.Consume(gctx)
	})
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
