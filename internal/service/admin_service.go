package service

import (
	"context"
	"math"
	"strings"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/pkg/apperr"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/unitofwork"
)

const maxLogPage = 200

type IAdminService interface {
	Stats(ctx context.Context) (*dto.AdminStatsResponse, error)
	// Logs pages through the active log file, newest first.
	Logs(ctx context.Context, page, limit int, level string) ([]*dto.LogListResponse, error)
	LogDetail(ctx context.Context, id string) (*dto.LogListResponse, error)
}

type adminService struct {
	uowFactory unitofwork.RepositoryFactory
	registry   *registry.Registry
	logger     logger.ILogger
}

func NewAdminService(uowFactory unitofwork.RepositoryFactory, reg *registry.Registry, log logger.ILogger) IAdminService {
	return &adminService{uowFactory: uowFactory, registry: reg, logger: log}
}

func (s *adminService) Stats(ctx context.Context) (*dto.AdminStatsResponse, error) {
	store := s.uowFactory.Store()
	res := &dto.AdminStatsResponse{Documents: map[string]int64{}}
	for _, d := range s.registry.All() {
		n, err := store.Count(ctx, d.Collection)
		if err != nil {
			s.logger.Error("ADMIN", "Failed to count documents", map[string]interface{}{"collection": d.Collection, "error": err.Error()})
			return nil, apperr.Storage("failed to load statistics", err)
		}
		res.Documents[d.Name] = n
	}
	return res, nil
}

func toLogResponse(e logger.LogEntry) *dto.LogListResponse {
	return &dto.LogListResponse{
		Id:        e.Id,
		Timestamp: e.Timestamp,
		Level:     e.Level,
		Module:    e.Module,
		Message:   e.Message,
		Details:   e.Details,
	}
}

func (s *adminService) Logs(_ context.Context, page, limit int, level string) ([]*dto.LogListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLogPage {
		limit = 10
	}
	entries, err := s.logger.GetLogs(strings.ToUpper(level), limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Storage("failed to read logs", err)
	}
	res := make([]*dto.LogListResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toLogResponse(e))
	}
	return res, nil
}

func (s *adminService) LogDetail(_ context.Context, id string) (*dto.LogListResponse, error) {
	entries, err := s.logger.GetLogs("", math.MaxInt, 0)
	if err != nil {
		return nil, apperr.Storage("failed to read logs", err)
	}
	for _, e := range entries {
		if e.Id == id {
			return toLogResponse(e), nil
		}
	}
	return nil, apperr.NotFound("log %s not found", id)
}
