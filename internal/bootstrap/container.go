package bootstrap

import (
	"context"
	"log"

	"ai-dms-be/internal/config"
	"ai-dms-be/internal/controller"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/cache"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/internal/service"
	"ai-dms-be/pkg/authz"
	"ai-dms-be/pkg/events"
	"ai-dms-be/pkg/llm"
	"ai-dms-be/pkg/llm/factory"
	pktNats "ai-dms-be/pkg/nats"
	"ai-dms-be/pkg/storage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController     controller.IAuthController
	RegistryController controller.IRegistryController
	DocumentController controller.IDocumentController
	FileController     controller.IFileController
	ChatController     controller.IChatController
	UsageController    controller.IUsageController
	AdminController    controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires every service on top of store. ledger may be nil, in
// which case usage is not persisted.
func NewContainer(store contract.DocumentStore, ledger *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	reg := registry.Defaults()
	uowFactory := unitofwork.NewRepositoryFactory(store, reg, ledger)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	authorizer, err := authz.NewAuthorizer(authz.DefaultPolicies)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load authorization policies: %v", err)
	}

	// 2. Event Bus
	bus := events.NewBus(watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = bus.Close() })

	// 3. Infrastructure
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			bus.WithForwarder(natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	contextCache := newContextCache(cfg, sysLogger)
	blobs := newBlobStorage(cfg)

	llmClient := llm.NewClient(factory.NewLLMProviders(cfg.LLM), cfg.LLM.MaxRetries)
	log.Printf("[INFO] LLM client ready (max retries: %d)", cfg.LLM.MaxRetries)

	// 4. Services
	publisherService := service.NewPublisherService(bus, sysLogger)
	searchService := service.NewSearchService(uowFactory, reg, sysLogger)
	fileService := service.NewFileService(uowFactory, blobs, contextCache, authorizer, sysLogger)
	contextService := service.NewContextService(fileService, contextCache, sysLogger)
	crudService := service.NewCrudService(uowFactory, reg, searchService, fileService, publisherService, authorizer, sysLogger)
	chatService := service.NewChatService(uowFactory, crudService, fileService, contextService, llmClient, publisherService, authorizer, sysLogger)
	authService := service.NewAuthService(uowFactory, reg, publisherService, cfg.App.JWTSecret, cfg.App.JWTExpiry, sysLogger)
	usageService := service.NewUsageService(uowFactory, sysLogger)
	adminService := service.NewAdminService(uowFactory, reg, sysLogger)

	c.ConsumerService = service.NewConsumerService(bus, usageService, contextCache, natsSub, sysLogger)

	// 5. Controllers
	c.AuthController = controller.NewAuthController(authService)
	c.RegistryController = controller.NewRegistryController(reg, crudService)
	c.DocumentController = controller.NewDocumentController(crudService, fileService)
	c.FileController = controller.NewFileController(fileService)
	c.ChatController = controller.NewChatController(chatService, sysLogger)
	c.UsageController = controller.NewUsageController(usageService)
	c.AdminController = controller.NewAdminController(adminService)

	return c
}

func newContextCache(cfg *config.Config, sysLogger logger.ILogger) contract.ContextCache {
	if cfg.App.RedisURL == "" {
		return cache.NewMemoryContextCache(cfg.App.ContextCacheTTL)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory context cache", err)
		_ = rdb.Close()
		return cache.NewMemoryContextCache(cfg.App.ContextCacheTTL)
	}
	return cache.NewRedisContextCache(rdb, cfg.App.ContextCacheTTL, sysLogger)
}

func newBlobStorage(cfg *config.Config) storage.Storage {
	if cfg.Storage.Driver != "s3" {
		log.Printf("[INFO] Using disk storage at %s", cfg.Storage.Root)
		return storage.NewDiskStorage(cfg.Storage.Root)
	}

	s3Storage, err := storage.NewS3Storage(context.Background(), storage.S3Config{
		Bucket:    cfg.Storage.S3Bucket,
		Region:    cfg.Storage.S3Region,
		Endpoint:  cfg.Storage.S3Endpoint,
		AccessKey: cfg.Storage.S3Key,
		SecretKey: cfg.Storage.S3Secret,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize S3 storage: %v", err)
	}
	log.Printf("[INFO] Using S3 storage (bucket: %s)", cfg.Storage.S3Bucket)
	return s3Storage
}

// Close releases broker connections and flushes the logger.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
