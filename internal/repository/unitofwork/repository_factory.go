package unitofwork

import "ai-dms-be/internal/repository/contract"

// RepositoryFactory hands out the typed repositories and the raw store the
// generic CRUD engine works on. There are no multi-document transactions;
// every mutation is one document write.
type RepositoryFactory interface {
	Store() contract.DocumentStore

	UserRepository() contract.UserRepository
	FileRepository() contract.FileRepository
	HistoryRepository() contract.HistoryRepository
	PromptRepository() contract.PromptRepository
	ModelRepository() contract.ModelRepository
	FilterRepository() contract.FilterRepository
	SettingRepository() contract.SettingRepository
	UsageRepository() contract.UsageRepository
}
