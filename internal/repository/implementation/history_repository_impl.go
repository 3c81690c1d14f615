package implementation

import (
	"context"

	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"
)

type HistoryRepositoryImpl struct {
	*DocumentRepository[entity.History]
}

func NewHistoryRepository(store contract.DocumentStore, collection string) contract.HistoryRepository {
	return &HistoryRepositoryImpl{NewDocumentRepository[entity.History](store, collection)}
}

// FindSession looks up the one history for an (owner, started_at) key.
func (r *HistoryRepositoryImpl) FindSession(ctx context.Context, ownerID string, startedAt int64) (*entity.History, error) {
	return r.FindOne(ctx,
		specification.Filter("owner_id", ownerID),
		specification.Filter("started_at", startedAt),
	)
}
