package implementation

import (
	"context"

	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"
)

type FileRepositoryImpl struct {
	*DocumentRepository[entity.File]
}

func NewFileRepository(store contract.DocumentStore, collection string) contract.FileRepository {
	return &FileRepositoryImpl{NewDocumentRepository[entity.File](store, collection)}
}

func (r *FileRepositoryImpl) FindByDocument(ctx context.Context, documentID string) ([]*entity.File, error) {
	return r.FindAll(ctx, specification.Filter("document_id", documentID))
}
