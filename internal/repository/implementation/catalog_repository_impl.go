package implementation

import (
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/repository/contract"
)

func NewPromptRepository(store contract.DocumentStore, collection string) contract.PromptRepository {
	return NewDocumentRepository[entity.Prompt](store, collection)
}

func NewModelRepository(store contract.DocumentStore, collection string) contract.ModelRepository {
	return NewDocumentRepository[entity.Model](store, collection)
}

func NewFilterRepository(store contract.DocumentStore, collection string) contract.FilterRepository {
	return NewDocumentRepository[entity.Filter](store, collection)
}
