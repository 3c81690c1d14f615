package service

import (
	"context"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/mapper"
	"ai-dms-be/internal/pkg/apperr"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/pkg/authz"
)

const recentUsageLimit = 20

type IUsageService interface {
	// Record persists one usage.recorded payload in the ledger.
	Record(ctx context.Context, msg dto.UsageRecordedMessage) error
	// Summary totals usage per provider and model. Admins see every user.
	Summary(ctx context.Context, p authz.Principal) (*dto.UsageSummaryResponse, error)
}

type usageService struct {
	uowFactory  unitofwork.RepositoryFactory
	usageMapper *mapper.UsageMapper
	log         logger.ILogger
}

func NewUsageService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IUsageService {
	return &usageService{
		uowFactory:  uowFactory,
		usageMapper: mapper.NewUsageMapper(),
		log:         log,
	}
}

func (s *usageService) Record(ctx context.Context, msg dto.UsageRecordedMessage) error {
	repo := s.uowFactory.UsageRepository()
	if repo == nil {
		return nil
	}
	record, err := s.usageMapper.ToModel(msg)
	if err != nil {
		return err
	}
	if err := repo.Create(ctx, record); err != nil {
		return err
	}
	s.log.Debug("USAGE", "Usage recorded", map[string]interface{}{
		"user_id":      record.UserID,
		"model":        record.Model,
		"total_tokens": record.TotalTokens,
	})
	return nil
}

func (s *usageService) Summary(ctx context.Context, p authz.Principal) (*dto.UsageSummaryResponse, error) {
	res := &dto.UsageSummaryResponse{
		Totals: []dto.UsageTotalResponse{},
		Recent: []dto.UsageRecordResponse{},
	}
	repo := s.uowFactory.UsageRepository()
	if repo == nil {
		return res, nil
	}

	userID := p.ID
	if p.IsAdmin() {
		userID = ""
	}

	totals, err := repo.Totals(ctx, userID)
	if err != nil {
		s.log.Error("USAGE", "Failed to aggregate usage", map[string]interface{}{"user_id": p.ID, "error": err.Error()})
		return nil, apperr.Storage("failed to load usage", err)
	}
	for _, t := range totals {
		res.Totals = append(res.Totals, s.usageMapper.ToTotalResponse(t))
	}

	recent, err := repo.FindRecent(ctx, userID, recentUsageLimit)
	if err != nil {
		s.log.Error("USAGE", "Failed to load recent usage", map[string]interface{}{"user_id": p.ID, "error": err.Error()})
		return nil, apperr.Storage("failed to load usage", err)
	}
	for _, r := range recent {
		res.Recent = append(res.Recent, s.usageMapper.ToRecordResponse(r))
	}
	return res, nil
}
