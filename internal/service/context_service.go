package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/pkg/extract"

	"golang.org/x/sync/errgroup"
)

const extractWorkers = 4

type IContextService interface {
	// Extract concatenates the text of every readable pdf/txt file in input
	// order. Unreadable files are skipped, other types are ignored.
	Extract(ctx context.Context, files []*entity.File) *dto.ContextResult
}

type contextService struct {
	files IFileService
	cache contract.ContextCache
	log   logger.ILogger
}

func NewContextService(files IFileService, cache contract.ContextCache, log logger.ILogger) IContextService {
	return &contextService{files: files, cache: cache, log: log}
}

func (s *contextService) text(ctx context.Context, file *entity.File) (string, error) {
	id := file.IdHex()
	if text, ok := s.cache.Get(ctx, id); ok {
		return text, nil
	}
	content, err := s.files.Content(ctx, file)
	if err != nil {
		return "", err
	}
	text, err := extract.Extract(content, file.FileType)
	if err != nil {
		return "", err
	}
	s.cache.Set(ctx, id, text)
	return text, nil
}

func (s *contextService) Extract(ctx context.Context, files []*entity.File) *dto.ContextResult {
	texts := make([]string, len(files))
	ok := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractWorkers)
	for i, file := range files {
		if !extract.Supported(file.FileType) {
			continue
		}
		g.Go(func() error {
			text, err := s.text(gctx, file)
			if err != nil {
				s.log.Warn("CONTEXT", "Skipping unreadable file", map[string]interface{}{
					"file_id": file.IdHex(),
					"name":    file.Name,
					"error":   err.Error(),
				})
				return nil
			}
			texts[i] = text
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var b strings.Builder
	var names []string
	for i, file := range files {
		if !ok[i] {
			continue
		}
		b.WriteString(extract.Banner(file.Name, texts[i]))
		names = append(names, file.Name)
	}

	if len(names) == 0 {
		return &dto.ContextResult{
			Status:  dto.ContextStatusError,
			Message: "No text could be extracted from the provided files",
		}
	}
	text := b.String()
	return &dto.ContextResult{
		Status:    dto.ContextStatusOK,
		Text:      text,
		CharCount: utf8.RuneCountInString(text),
		Files:     names,
	}
}
