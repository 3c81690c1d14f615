package unitofwork

import (
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	store    contract.DocumentStore
	registry *registry.Registry
	usage    contract.UsageRepository
}

// NewRepositoryFactory binds repositories to the collections the registry
// names. ledger may be nil when usage tracking is off.
func NewRepositoryFactory(store contract.DocumentStore, reg *registry.Registry, ledger *gorm.DB) RepositoryFactory {
	f := &RepositoryFactoryImpl{store: store, registry: reg}
	if ledger != nil {
		f.usage = implementation.NewUsageRepository(ledger)
	}
	return f
}

func (f *RepositoryFactoryImpl) collection(name string) string {
	return f.registry.MustResolve(name).Collection
}

func (f *RepositoryFactoryImpl) Store() contract.DocumentStore {
	return f.store
}

func (f *RepositoryFactoryImpl) UserRepository() contract.UserRepository {
	return implementation.NewUserRepository(f.store, f.collection(registry.User))
}

func (f *RepositoryFactoryImpl) FileRepository() contract.FileRepository {
	return implementation.NewFileRepository(f.store, f.collection(registry.File))
}

func (f *RepositoryFactoryImpl) HistoryRepository() contract.HistoryRepository {
	return implementation.NewHistoryRepository(f.store, f.collection(registry.History))
}

func (f *RepositoryFactoryImpl) PromptRepository() contract.PromptRepository {
	return implementation.NewPromptRepository(f.store, f.collection(registry.Prompt))
}

func (f *RepositoryFactoryImpl) ModelRepository() contract.ModelRepository {
	return implementation.NewModelRepository(f.store, f.collection(registry.Model))
}

func (f *RepositoryFactoryImpl) FilterRepository() contract.FilterRepository {
	return implementation.NewFilterRepository(f.store, f.collection(registry.Filter))
}

func (f *RepositoryFactoryImpl) SettingRepository() contract.SettingRepository {
	return implementation.NewSettingRepository(f.store, f.collection(registry.Setting))
}

func (f *RepositoryFactoryImpl) UsageRepository() contract.UsageRepository {
	return f.usage
}
