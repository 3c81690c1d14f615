package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/model"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/cache"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/memory"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/pkg/authz"
	"ai-dms-be/pkg/database"
	"ai-dms-be/pkg/events"
	"ai-dms-be/pkg/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	alice = authz.Principal{ID: "aaaaaaaaaaaaaaaaaaaaaaaa", Role: authz.RoleUser}
	bob   = authz.Principal{ID: "bbbbbbbbbbbbbbbbbbbbbbbb", Role: authz.RoleUser}
	admin = authz.Principal{ID: "cccccccccccccccccccccccc", Role: authz.RoleAdmin}
)

type fixture struct {
	store      *memory.DocumentStore
	uow        unitofwork.RepositoryFactory
	registry   *registry.Registry
	authorizer authz.Authorizer
	bus        *events.Bus
	blobs      *storage.DiskStorage
	cache      contract.ContextCache
	log        logger.ILogger

	publisher IPublisherService
	search    ISearchService
	files     IFileService
	contexts  IContextService
	crud      ICrudService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	ledger *gorm.DB
}

func withLedger(db *gorm.DB) fixtureOption {
	return func(c *fixtureConfig) { c.ledger = db }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := &fixtureConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	authorizer, err := authz.NewAuthorizer(authz.DefaultPolicies)
	require.NoError(t, err)

	f := &fixture{
		store:      memory.NewDocumentStore(),
		registry:   registry.Defaults(),
		authorizer: authorizer,
		bus:        events.NewBus(nil),
		blobs:      storage.NewDiskStorage(t.TempDir()),
		cache:      cache.NewMemoryContextCache(time.Minute),
		log:        logger.NewNopLogger(),
	}
	t.Cleanup(func() { _ = f.bus.Close() })

	f.uow = unitofwork.NewRepositoryFactory(f.store, f.registry, cfg.ledger)
	f.publisher = NewPublisherService(f.bus, f.log)
	f.search = NewSearchService(f.uow, f.registry, f.log)
	f.files = NewFileService(f.uow, f.blobs, f.cache, f.authorizer, f.log)
	f.contexts = NewContextService(f.files, f.cache, f.log)
	f.crud = NewCrudService(f.uow, f.registry, f.search, f.files, f.publisher, f.authorizer, f.log)
	return f
}

func newLedger(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGormDB("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.UsageRecord{}))
	return db
}

func textUpload(name, content string) dto.UploadInput {
	return dto.UploadInput{
		Filename: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func (f *fixture) upload(t *testing.T, p authz.Principal, name, content, documentID string) *dto.FileRecord {
	t.Helper()
	record, err := f.files.Upload(context.Background(), p, textUpload(name, content), "", documentID, "files")
	require.NoError(t, err)
	return record
}

func (f *fixture) file(t *testing.T, id string) *entity.File {
	t.Helper()
	file, err := f.uow.FileRepository().FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, file)
	return file
}

func (f *fixture) prompt(t *testing.T, name, system string) string {
	t.Helper()
	res, err := f.crud.Create(context.Background(), admin, registry.Prompt, map[string]string{
		"name":            name,
		"welcome_message": "Welcome",
		"system_message":  system,
		"prompt":          "Summarize the files",
	})
	require.NoError(t, err)
	return res.Id
}
