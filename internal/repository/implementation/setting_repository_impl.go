package implementation

import (
	"context"

	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"
)

type SettingRepositoryImpl struct {
	*DocumentRepository[entity.Setting]
}

func NewSettingRepository(store contract.DocumentStore, collection string) contract.SettingRepository {
	return &SettingRepositoryImpl{NewDocumentRepository[entity.Setting](store, collection)}
}

// NextCounter is a plain read followed by a write. Two concurrent callers can
// read the same value and both return it incremented once.
func (r *SettingRepositoryImpl) NextCounter(ctx context.Context, name string) (int64, error) {
	setting, err := r.FindOne(ctx, specification.Filter("name", name))
	if err != nil {
		return 0, err
	}
	if setting == nil {
		setting = &entity.Setting{Name: name, Type: entity.SettingTypeCounter, Value: 1}
		if err := r.Create(ctx, setting); err != nil {
			return 0, err
		}
		return setting.Value, nil
	}

	setting.Value++
	if err := r.Save(ctx, setting); err != nil {
		return 0, err
	}
	return setting.Value, nil
}
