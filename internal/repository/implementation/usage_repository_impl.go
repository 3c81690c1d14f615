package implementation

import (
	"context"

	"ai-dms-be/internal/model"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/scope"

	"gorm.io/gorm"
)

type UsageRepositoryImpl struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) contract.UsageRepository {
	return &UsageRepositoryImpl{db: db}
}

func (r *UsageRepositoryImpl) Create(ctx context.Context, record *model.UsageRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *UsageRepositoryImpl) Totals(ctx context.Context, userID string) ([]contract.UsageTotals, error) {
	var totals []contract.UsageTotals
	err := r.db.WithContext(ctx).
		Model(&model.UsageRecord{}).
		Scopes(scope.ForUser(userID)).
		Select("provider, model, COUNT(*) AS requests, " +
			"COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens, " +
			"COALESCE(SUM(completion_tokens), 0) AS completion_tokens, " +
			"COALESCE(SUM(total_tokens), 0) AS total_tokens").
		Group("provider, model").
		Order("provider, model").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *UsageRepositoryImpl) FindRecent(ctx context.Context, userID string, limit int) ([]*model.UsageRecord, error) {
	var records []*model.UsageRecord
	err := r.db.WithContext(ctx).
		Scopes(scope.ForUser(userID), scope.OrderByCreatedDesc, scope.Limit(limit)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
