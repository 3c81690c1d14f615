package main

import (
	"context"
	"log"
	"os"

	"ai-dms-be/internal/config"
	"ai-dms-be/internal/registry"
	mongoRepo "ai-dms-be/internal/repository/mongo"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/pkg/database"
)

func main() {
	// Load Environment Variables
	cfg := config.Load()
	ctx := context.Background()

	db, disconnect, err := database.NewMongoDatabase(ctx, database.MongoConfig{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	defer disconnect(ctx)

	reg := registry.Defaults()
	store := mongoRepo.NewDocumentStore(db)
	if err := store.EnsureUnique(ctx, reg.MustResolve(registry.User).Collection, "email"); err != nil {
		log.Fatal("Error: Failed to create user email index:", err)
	}
	uow := unitofwork.NewRepositoryFactory(store, reg, nil)

	log.Println("Seeding Counters...")
	SeedCounters(ctx, uow)

	log.Println("Seeding Models...")
	SeedModels(ctx, uow)

	log.Println("Seeding Prompts...")
	SeedPrompts(ctx, uow)

	log.Println("Seeding Admin...")
	SeedAdmin(ctx, uow, os.Getenv("SEED_ADMIN_EMAIL"), os.Getenv("SEED_ADMIN_PASSWORD"))

	log.Println("Seeding completed!")
}
