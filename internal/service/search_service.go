package service

import (
	"context"
	"fmt"
	"time"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/pkg/apperr"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/specification"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/internal/schema"

	"go.mongodb.org/mongo-driver/bson"
)

type ISearchService interface {
	Search(ctx context.Context, req dto.SearchRequest) (*dto.PageResult, error)
	// ResolveFilter turns a stored Filter into store conditions. Any failure
	// yields no conditions at all.
	ResolveFilter(ctx context.Context, filterID string) []bson.M
}

type searchService struct {
	uowFactory unitofwork.RepositoryFactory
	registry   *registry.Registry
	log        logger.ILogger
	now        func() time.Time
}

func NewSearchService(uowFactory unitofwork.RepositoryFactory, reg *registry.Registry, log logger.ILogger) ISearchService {
	return &searchService{uowFactory: uowFactory, registry: reg, log: log, now: time.Now}
}

func (s *searchService) Search(ctx context.Context, req dto.SearchRequest) (*dto.PageResult, error) {
	if req.Limit <= 0 {
		req.Limit = dto.DefaultPageLimit
	}
	if req.Start < 0 {
		req.Start = 0
	}

	conditions := append([]bson.M{}, req.Conditions...)
	if req.FilterID != "" {
		conditions = append(conditions, s.ResolveFilter(ctx, req.FilterID)...)
	}

	specs := []specification.Specification{
		specification.TextSearch{Fields: req.SearchFields, Text: req.Text},
		specification.Conditions{List: conditions},
	}
	if req.OwnerField != "" {
		specs = append(specs, specification.OwnedBy{Field: req.OwnerField, Owner: req.Owner})
	}
	if req.Grouped && req.GroupField != "" {
		specs = append(specs, specification.OrderBy{Field: req.GroupField})
	}

	store := s.uowFactory.Store()
	total, err := store.Count(ctx, req.Collection, specs...)
	if err != nil {
		s.log.Error("SEARCH", "Count failed", map[string]interface{}{"collection": req.Collection, "error": err.Error()})
		return nil, apperr.Storage("failed to list documents", err)
	}

	page := Paginate(total, req.Start, req.Limit)
	page.Search = req.Text
	page.Filter = req.FilterID
	page.Items = []map[string]interface{}{}
	if total == 0 || req.Start >= total {
		return page, nil
	}

	specs = append(specs, specification.Pagination{Offset: req.Start, Limit: req.Limit})
	docs, err := store.Find(ctx, req.Collection, specs...)
	if err != nil {
		s.log.Error("SEARCH", "Find failed", map[string]interface{}{"collection": req.Collection, "error": err.Error()})
		return nil, apperr.Storage("failed to list documents", err)
	}
	for _, doc := range docs {
		page.Items = append(page.Items, schema.Present(req.Schema, doc))
	}
	return page, nil
}

// Paginate computes the page envelope for a window over total matches.
func Paginate(total, start, limit int64) *dto.PageResult {
	page := &dto.PageResult{
		TotalCount: total,
		Start:      start,
		Limit:      limit,
	}

	page.PrevOffset = start - limit
	if page.PrevOffset < 0 {
		page.PrevOffset = 0
	}

	if start+limit < total {
		next := start + limit
		last := total - limit
		page.NextOffset = &next
		page.LastPageOffset = &last
	}

	page.DisplayStart = start
	if total > 0 {
		page.DisplayStart = start + 1
	}
	page.DisplayEnd = start + limit
	if page.DisplayEnd > total {
		page.DisplayEnd = total
	}
	return page
}

func (s *searchService) ResolveFilter(ctx context.Context, filterID string) []bson.M {
	conditions, err := s.resolveFilter(ctx, filterID)
	if err != nil {
		s.log.Warn("SEARCH", "Filter ignored", map[string]interface{}{"filter_id": filterID, "error": err.Error()})
		return []bson.M{}
	}
	return conditions
}

func (s *searchService) resolveFilter(ctx context.Context, filterID string) ([]bson.M, error) {
	filter, err := s.uowFactory.FilterRepository().FindByID(ctx, filterID)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return nil, fmt.Errorf("filter %s not found", filterID)
	}

	var fields schema.Schema
	if d, ok := s.registry.Resolve(filter.Category); ok {
		fields = d.Schema
	}

	now := s.now()
	conditions := []bson.M{}
	for _, rule := range filter.Rules {
		cond, err := ruleCondition(fields, rule, now)
		if err != nil {
			return nil, err
		}
		if cond != nil {
			conditions = append(conditions, cond)
		}
	}
	return conditions, nil
}

// ruleCondition returns nil for operators it does not know.
func ruleCondition(fields schema.Schema, rule entity.FilterRule, now time.Time) (bson.M, error) {
	if !fields.IsDate(rule.Field) {
		switch rule.Operator {
		case "is":
			return bson.M{rule.Field: rule.Value}, nil
		case "contains":
			return bson.M{rule.Field: specification.ContainsFold(rule.Value)}, nil
		case "is_not":
			return bson.M{rule.Field: bson.M{"$ne": rule.Value}}, nil
		case "starts_with":
			return bson.M{rule.Field: specification.Prefix(rule.Value)}, nil
		}
		return nil, nil
	}

	if r, ok := schema.RelativeRange(rule.Value, now); ok {
		return bson.M{rule.Field: bson.M{"$gte": r.From, "$lt": r.To}}, nil
	}

	var op string
	switch rule.Operator {
	case "is_gte":
		op = "$gte"
	case "is_lt":
		op = "$lt"
	default:
		return nil, nil
	}
	t, err := schema.ParseDate(rule.Value)
	if err != nil {
		return nil, fmt.Errorf("rule %d: invalid date %q", rule.Nr, rule.Value)
	}
	return bson.M{rule.Field: bson.M{op: t}}, nil
}
