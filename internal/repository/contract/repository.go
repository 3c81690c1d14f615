package contract

import (
	"context"

	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/repository/specification"
)

// Repository is the typed view over one collection.
type Repository[T any] interface {
	Create(ctx context.Context, doc *T) error
	Save(ctx context.Context, doc *T) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*T, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*T, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type UserRepository interface {
	Repository[entity.User]
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}

type FileRepository interface {
	Repository[entity.File]
	FindByDocument(ctx context.Context, documentID string) ([]*entity.File, error)
}

type HistoryRepository interface {
	Repository[entity.History]
	FindSession(ctx context.Context, ownerID string, startedAt int64) (*entity.History, error)
}

type PromptRepository interface {
	Repository[entity.Prompt]
}

type ModelRepository interface {
	Repository[entity.Model]
}

type FilterRepository interface {
	Repository[entity.Filter]
}

type SettingRepository interface {
	Repository[entity.Setting]
	// NextCounter reads, increments and writes back a named counter. The
	// read and the write are separate operations.
	NextCounter(ctx context.Context, name string) (int64, error)
}
