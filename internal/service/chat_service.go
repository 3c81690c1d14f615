package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/pkg/apperr"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/specification"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/pkg/authz"
	"ai-dms-be/pkg/llm"
)

const (
	defaultWelcomeMessage = "Hello, how can I help?"

	contextHeader        = "\n\nContext from uploaded files:\n\n"
	markerNoContext      = "[No context available]"
	markerExtractFailed  = "[Could not extract context from files]"
	markerNoFiles        = "[No files found]"
	fallbackFirstMessage = "New chat"
	fileUploadedPrefix   = "File uploaded:"
	attachmentTypeFile   = "file"
	attachmentTypeImage  = "image"
	latestItems          = 3
	navHistoryItems      = 15
	navPromptItems       = 5
	historyOwnerField    = "owner_id"
	historyModifiedField = "modified_at"
	documentIDField      = "_id"
	modelNameField       = "name"
)

var defaultSystemMessage = `You are a helpful assistant. When you generate code, put it in backticks.

{context}

Format your answers with Markdown:
- # for main titles and ## for subtitles
- **bold** for important terms
- *italics* for emphasis
- bulleted lists with * and numbered lists with 1. 2. 3.
- nest lists by indenting two spaces`

// LLMClient is the part of llm.Client the chat workflow drives.
type LLMClient interface {
	Complete(ctx context.Context, model llm.ModelDescriptor, messages []llm.Message, opts ...llm.Option) (string, error)
	Stream(ctx context.Context, model llm.ModelDescriptor, messages []llm.Message, opts ...llm.Option) (llm.Stream, error)
}

type IChatService interface {
	NewChat(ctx context.Context, p authz.Principal) (*dto.ChatConfig, error)
	FromPrompt(ctx context.Context, p authz.Principal, promptID string) (*dto.ChatConfig, error)
	FromHistory(ctx context.Context, p authz.Principal, historyID string) (*dto.ChatConfig, error)
	// Stream opens the upstream stream. Nothing has been written when it
	// returns, so a failure can still be reported as a normal error response.
	Stream(ctx context.Context, p authz.Principal, req dto.StreamRequest) (llm.Stream, error)
	Complete(ctx context.Context, p authz.Principal, req dto.CompleteRequest) (*dto.CompleteResponse, error)
	Save(ctx context.Context, p authz.Principal, req dto.SaveChatRequest) (*dto.SaveChatResponse, error)
	DeleteHistory(ctx context.Context, p authz.Principal, id string) (*dto.DeleteResult, error)
	DeleteAllHistory(ctx context.Context, p authz.Principal) (*dto.DeleteAllResult, error)
	NavItems(ctx context.Context, p authz.Principal) (*dto.NavItems, error)
	UploadAttachment(ctx context.Context, p authz.Principal, in dto.UploadInput) (*dto.AttachmentUpload, error)
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	crud       ICrudService
	files      IFileService
	contexts   IContextService
	llm        LLMClient
	publisher  IPublisherService
	authorizer authz.Authorizer
	log        logger.ILogger
	now        func() time.Time
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	crud ICrudService,
	files IFileService,
	contexts IContextService,
	client LLMClient,
	publisher IPublisherService,
	authorizer authz.Authorizer,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		crud:       crud,
		files:      files,
		contexts:   contexts,
		llm:        client,
		publisher:  publisher,
		authorizer: authorizer,
		log:        log,
		now:        time.Now,
	}
}

func (s *chatService) models(ctx context.Context) ([]dto.ModelOption, error) {
	models, err := s.uowFactory.ModelRepository().FindAll(ctx, specification.OrderBy{Field: modelNameField})
	if err != nil {
		return nil, apperr.Storage("failed to load models", err)
	}
	out := make([]dto.ModelOption, 0, len(models))
	for _, m := range models {
		out = append(out, dto.ModelOption{Id: m.IdHex(), Name: m.Name, Provider: m.Provider, Model: m.Model})
	}
	return out, nil
}

func (s *chatService) latestHistories(ctx context.Context, p authz.Principal, limit int64, sortField string) ([]dto.HistoryItem, error) {
	histories, err := s.uowFactory.HistoryRepository().FindAll(ctx,
		specification.OwnedBy{Field: historyOwnerField, Owner: p.ID},
		specification.OrderBy{Field: sortField, Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, apperr.Storage("failed to load chat histories", err)
	}
	out := make([]dto.HistoryItem, 0, len(histories))
	for _, h := range histories {
		out = append(out, dto.HistoryItem{Id: h.IdHex(), FirstMessage: h.FirstMessage, StartedAt: h.StartedAt})
	}
	return out, nil
}

func (s *chatService) latestPrompts(ctx context.Context, limit int64) ([]dto.PromptItem, error) {
	prompts, err := s.uowFactory.PromptRepository().FindAll(ctx,
		specification.OrderBy{Field: documentIDField, Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, apperr.Storage("failed to load prompts", err)
	}
	out := make([]dto.PromptItem, 0, len(prompts))
	for _, pr := range prompts {
		out = append(out, dto.PromptItem{Id: pr.IdHex(), Name: pr.Name})
	}
	return out, nil
}

func (s *chatService) baseConfig(ctx context.Context) (*dto.ChatConfig, error) {
	models, err := s.models(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.ChatConfig{
		SystemMessage:  defaultSystemMessage,
		WelcomeMessage: defaultWelcomeMessage,
		Messages:       []entity.ChatMessage{},
		Models:         models,
		StartedAt:      s.now().Unix(),
	}, nil
}

func (s *chatService) NewChat(ctx context.Context, p authz.Principal) (*dto.ChatConfig, error) {
	config, err := s.baseConfig(ctx)
	if err != nil {
		return nil, err
	}
	if config.LatestHistories, err = s.latestHistories(ctx, p, latestItems, documentIDField); err != nil {
		return nil, err
	}
	if config.LatestPrompts, err = s.latestPrompts(ctx, latestItems); err != nil {
		return nil, err
	}
	config.Messages = []entity.ChatMessage{{Role: entity.RoleSystem, Content: config.SystemMessage}}
	return config, nil
}

func fileAttachment(f *entity.File) entity.Attachment {
	kind := attachmentTypeFile
	if f.IsImage() {
		kind = attachmentTypeImage
	}
	return entity.Attachment{Type: kind, Id: f.IdHex(), Name: f.Name, FileType: f.FileType}
}

func (s *chatService) FromPrompt(ctx context.Context, p authz.Principal, promptID string) (*dto.ChatConfig, error) {
	prompt, err := s.uowFactory.PromptRepository().FindByID(ctx, promptID)
	if err != nil {
		return nil, apperr.Storage("failed to load prompt", err)
	}
	if prompt == nil {
		return nil, apperr.NotFound("prompt %s not found", promptID)
	}
	if !s.authorizer.Allowed(p, authz.Resource{Type: registry.Prompt, Owner: prompt.CreatedBy}, authz.ActionRead) {
		return nil, apperr.AccessDenied("You are not allowed to use this prompt")
	}

	files, err := s.uowFactory.FileRepository().FindByDocument(ctx, promptID)
	if err != nil {
		return nil, apperr.Storage("failed to load prompt files", err)
	}

	config, err := s.baseConfig(ctx)
	if err != nil {
		return nil, err
	}
	config.UsePromptTemplate = true
	config.PromptId = prompt.IdHex()
	config.WelcomeMessage = prompt.WelcomeMessage

	system := prompt.SystemMessage
	attachments := make([]entity.Attachment, 0, len(files))
	for _, f := range files {
		attachments = append(attachments, fileAttachment(f))
		config.FileIds = append(config.FileIds, f.IdHex())
	}

	if len(files) == 0 {
		system = strings.ReplaceAll(system, entity.ContextPlaceholder, markerNoContext)
	} else {
		result := s.contexts.Extract(ctx, files)
		if result.OK() {
			config.UsingContext = true
			config.ContextFiles = result.Files
			if strings.Contains(system, entity.ContextPlaceholder) {
				system = strings.ReplaceAll(system, entity.ContextPlaceholder, result.Text)
			} else {
				system += contextHeader + result.Text
			}
		} else {
			s.log.Warn("CHAT", "Prompt context unavailable", map[string]interface{}{"prompt_id": promptID, "message": result.Message})
			system = strings.ReplaceAll(system, entity.ContextPlaceholder, markerExtractFailed)
		}
	}

	config.SystemMessage = system
	config.Messages = []entity.ChatMessage{
		{Role: entity.RoleSystem, Content: system, Attachments: attachments},
		{Role: entity.RoleUser, Content: prompt.Prompt},
	}
	return config, nil
}

func (s *chatService) FromHistory(ctx context.Context, p authz.Principal, historyID string) (*dto.ChatConfig, error) {
	history, err := s.uowFactory.HistoryRepository().FindByID(ctx, historyID)
	if err != nil {
		return nil, apperr.Storage("failed to load chat history", err)
	}
	if history == nil {
		return nil, apperr.NotFound("chat history %s not found", historyID)
	}
	if !s.authorizer.Allowed(p, authz.Resource{Type: registry.History, Owner: history.OwnerId}, authz.ActionRead) {
		return nil, apperr.AccessDenied("You do not have access to this chat")
	}

	config, err := s.baseConfig(ctx)
	if err != nil {
		return nil, err
	}
	config.HistoryId = history.IdHex()
	config.StartedAt = history.StartedAt
	config.FileIds = history.FileIds
	if history.Messages != nil {
		config.Messages = history.Messages
	}
	if len(config.Messages) > 0 && config.Messages[0].Role == entity.RoleSystem {
		config.SystemMessage = config.Messages[0].Content
	}
	return config, nil
}

func (s *chatService) resolveModel(ctx context.Context, req dto.StreamRequest) (llm.ModelDescriptor, error) {
	if req.ModelId != "" {
		m, err := s.uowFactory.ModelRepository().FindByID(ctx, req.ModelId)
		if err != nil {
			return llm.ModelDescriptor{}, apperr.Storage("failed to load model", err)
		}
		if m == nil {
			return llm.ModelDescriptor{}, apperr.Validation("model_id", req.ModelId, "Unknown model")
		}
		return llm.ModelDescriptor{Provider: m.Provider, Model: m.Model}, nil
	}
	if req.Provider == "" || req.Model == "" {
		return llm.ModelDescriptor{}, apperr.Validation("model", "", "A model is required")
	}
	return llm.ModelDescriptor{Provider: req.Provider, Model: req.Model}, nil
}

// resolveContext returns the text that replaces the placeholder in a system
// message, read from its file attachments.
func (s *chatService) resolveContext(ctx context.Context, p authz.Principal, msg entity.ChatMessage) string {
	repo := s.uowFactory.FileRepository()
	var files []*entity.File
	for _, a := range msg.Attachments {
		if a.Type != attachmentTypeFile || a.Id == "" {
			continue
		}
		f, err := repo.FindByID(ctx, a.Id)
		if err != nil {
			s.log.Warn("CHAT", "Failed to load context file", map[string]interface{}{"file_id": a.Id, "error": err.Error()})
			continue
		}
		if f == nil {
			continue
		}
		if !s.authorizer.Allowed(p, authz.Resource{Type: registry.File, Owner: f.OwnerId}, authz.ActionRead) {
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return markerNoFiles
	}

	result := s.contexts.Extract(ctx, files)
	if !result.OK() {
		return markerExtractFailed
	}
	return result.Text
}

func (s *chatService) prepareMessages(ctx context.Context, p authz.Principal, messages []entity.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for i, m := range messages {
		content := m.Content
		if m.Role == entity.RoleSystem && strings.Contains(content, entity.ContextPlaceholder) {
			replacement := markerNoFiles
			if i == 0 {
				replacement = s.resolveContext(ctx, p, m)
			}
			content = strings.ReplaceAll(content, entity.ContextPlaceholder, replacement)
		}
		out = append(out, llm.Message{Role: m.Role, Content: content})
	}
	return out
}

func (s *chatService) upstreamError(model llm.ModelDescriptor, err error) error {
	s.log.Error("LLM", "Upstream request failed", map[string]interface{}{
		"provider": model.Provider,
		"model":    model.Model,
		"error":    err.Error(),
	})
	var status *llm.StatusError
	if errors.As(err, &status) {
		return apperr.Upstream("The model provider rejected the request", err)
	}
	return apperr.Upstream("The model provider is unavailable", err)
}

func (s *chatService) Stream(ctx context.Context, p authz.Principal, req dto.StreamRequest) (llm.Stream, error) {
	model, err := s.resolveModel(ctx, req)
	if err != nil {
		return nil, err
	}
	messages := s.prepareMessages(ctx, p, req.Messages)

	stream, err := s.llm.Stream(ctx, model, messages)
	if err != nil {
		return nil, s.upstreamError(model, err)
	}

	s.log.Info("CHAT", "Stream opened", map[string]interface{}{
		"user_id":  p.ID,
		"provider": model.Provider,
		"model":    model.Model,
		"messages": len(messages),
	})
	return &usageStream{
		Stream:  stream,
		ctx:     context.WithoutCancel(ctx),
		service: s,
		message: dto.UsageRecordedMessage{
			UserId:    p.ID,
			StartedAt: req.StartedAt,
			Provider:  model.Provider,
			Model:     model.Model,
		},
	}, nil
}

// usageStream publishes the terminator's usage once the stream ends cleanly.
type usageStream struct {
	llm.Stream
	ctx     context.Context
	service *chatService
	message dto.UsageRecordedMessage
}

func (u *usageStream) Pipe(w io.Writer) (*llm.Usage, error) {
	usage, err := u.Stream.Pipe(w)
	if err != nil {
		u.service.log.Warn("LLM", "Stream ended without terminator", map[string]interface{}{
			"provider": u.message.Provider,
			"model":    u.message.Model,
			"error":    err.Error(),
		})
		return usage, err
	}
	if usage == nil {
		return nil, nil
	}

	msg := u.message
	msg.Usage = usage
	msg.At = u.service.now().UTC()
	if pubErr := u.service.publisher.UsageRecorded(u.ctx, msg); pubErr != nil {
		u.service.log.Warn("USAGE", "Failed to publish usage", map[string]interface{}{"user_id": msg.UserId, "error": pubErr.Error()})
	}
	return usage, nil
}

func (s *chatService) Complete(ctx context.Context, p authz.Principal, req dto.CompleteRequest) (*dto.CompleteResponse, error) {
	model, err := s.resolveModel(ctx, req.StreamRequest)
	if err != nil {
		return nil, err
	}
	messages := s.prepareMessages(ctx, p, req.Messages)

	var opts []llm.Option
	if req.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(req.MaxTokens))
	}

	text, err := s.llm.Complete(ctx, model, messages, opts...)
	if err != nil {
		return nil, s.upstreamError(model, err)
	}
	return &dto.CompleteResponse{Content: text, Model: model}, nil
}

// FirstMessage picks the history title: the first real user message, else
// the first file attached to a system message, else the generic label.
func FirstMessage(messages []entity.ChatMessage) string {
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if m.Role == entity.RoleUser && content != "" && !strings.HasPrefix(content, fileUploadedPrefix) {
			return m.Content
		}
	}
	for _, m := range messages {
		if m.Role == entity.RoleSystem && len(m.Attachments) > 0 {
			return fileUploadedPrefix + " " + m.Attachments[0].Name
		}
	}
	return fallbackFirstMessage
}

func isFallbackTitle(title string) bool {
	return title == "" || title == fallbackFirstMessage || strings.HasPrefix(title, fileUploadedPrefix)
}

func attachmentIDs(messages []entity.ChatMessage) []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, m := range messages {
		for _, a := range m.Attachments {
			if a.Id == "" || seen[a.Id] {
				continue
			}
			seen[a.Id] = true
			ids = append(ids, a.Id)
		}
	}
	return ids
}

func (s *chatService) Save(ctx context.Context, p authz.Principal, req dto.SaveChatRequest) (*dto.SaveChatResponse, error) {
	if !s.authorizer.Allowed(p, authz.Resource{Type: registry.History, Owner: p.ID}, authz.ActionUpdate) {
		return nil, apperr.AccessDenied("You are not allowed to save chats")
	}

	messages := req.Messages
	if messages == nil {
		messages = []entity.ChatMessage{}
	}

	repo := s.uowFactory.HistoryRepository()
	history, err := repo.FindSession(ctx, p.ID, req.StartedAt)
	if err != nil {
		return nil, apperr.Storage("failed to load chat history", err)
	}

	if history == nil {
		history = &entity.History{
			OwnerId:      p.ID,
			StartedAt:    req.StartedAt,
			Messages:     messages,
			FirstMessage: FirstMessage(messages),
			FileIds:      attachmentIDs(messages),
		}
		history.CreatedBy = p.ID
		history.ModifiedBy = p.ID
		if err := repo.Create(ctx, history); err != nil {
			s.log.Error("CHAT", "Failed to create chat history", map[string]interface{}{"user_id": p.ID, "error": err.Error()})
			return nil, apperr.Storage("failed to save chat", err)
		}
		s.publisher.DocumentCreated(ctx, registry.History, history.IdHex(), p.ID)
		return &dto.SaveChatResponse{Id: history.IdHex(), Created: true, FirstMessage: history.FirstMessage}, nil
	}

	history.Messages = messages
	if isFallbackTitle(history.FirstMessage) {
		history.FirstMessage = FirstMessage(messages)
	}
	history.FileIds = attachmentIDs(messages)
	history.ModifiedBy = p.ID
	if err := repo.Save(ctx, history); err != nil {
		s.log.Error("CHAT", "Failed to update chat history", map[string]interface{}{"history_id": history.IdHex(), "error": err.Error()})
		return nil, apperr.Storage("failed to save chat", err)
	}
	s.publisher.DocumentUpdated(ctx, registry.History, history.IdHex(), p.ID)
	return &dto.SaveChatResponse{Id: history.IdHex(), Created: false, FirstMessage: history.FirstMessage}, nil
}

func (s *chatService) DeleteHistory(ctx context.Context, p authz.Principal, id string) (*dto.DeleteResult, error) {
	return s.crud.Delete(ctx, p, registry.History, id)
}

func (s *chatService) DeleteAllHistory(ctx context.Context, p authz.Principal) (*dto.DeleteAllResult, error) {
	histories, err := s.uowFactory.HistoryRepository().FindAll(ctx, specification.OwnedBy{Field: historyOwnerField, Owner: p.ID})
	if err != nil {
		return nil, apperr.Storage("failed to load chat histories", err)
	}

	result := &dto.DeleteAllResult{}
	fileRepo := s.uowFactory.FileRepository()
	handled := map[string]bool{}

	for _, h := range histories {
		id := h.IdHex()
		files, err := fileRepo.FindByDocument(ctx, id)
		if err != nil {
			return nil, apperr.Storage("failed to load chat files", err)
		}
		if len(h.FileIds) > 0 {
			listed, err := fileRepo.FindAll(ctx, specification.ByIDs{IDs: h.FileIds})
			if err != nil {
				return nil, apperr.Storage("failed to load chat files", err)
			}
			files = append(files, listed...)
		}

		for _, f := range files {
			fid := f.IdHex()
			if handled[fid] {
				continue
			}
			handled[fid] = true

			reason, err := s.files.Blocker(ctx, p, f, id)
			if err != nil {
				result.FailedFiles++
				continue
			}
			if IsPinned(reason) {
				result.PreservedFiles++
				continue
			}
			if reason != "" {
				result.SkippedFiles++
				s.log.Warn("CHAT", "File kept on history delete", map[string]interface{}{"file_id": fid, "history_id": id, "reason": reason})
				continue
			}
			if err := s.files.Remove(ctx, f); err != nil {
				result.FailedFiles++
				continue
			}
			result.DeletedFiles++
			s.publisher.DocumentDeleted(ctx, registry.File, fid, p.ID)
		}

		if err := s.uowFactory.HistoryRepository().Delete(ctx, id); err != nil {
			s.log.Error("CHAT", "Failed to delete chat history", map[string]interface{}{"history_id": id, "error": err.Error()})
			return nil, apperr.Storage("failed to delete chat histories", err)
		}
		result.Deleted++
		s.publisher.DocumentDeleted(ctx, registry.History, id, p.ID)
	}

	s.log.Info("CHAT", "All chat histories deleted", map[string]interface{}{
		"user_id":         p.ID,
		"deleted":         result.Deleted,
		"preserved_files": result.PreservedFiles,
		"deleted_files":   result.DeletedFiles,
		"skipped_files":   result.SkippedFiles,
		"failed_files":    result.FailedFiles,
	})
	return result, nil
}

func (s *chatService) NavItems(ctx context.Context, p authz.Principal) (*dto.NavItems, error) {
	histories, err := s.latestHistories(ctx, p, navHistoryItems, historyModifiedField)
	if err != nil {
		return nil, err
	}
	prompts, err := s.latestPrompts(ctx, navPromptItems)
	if err != nil {
		return nil, err
	}
	return &dto.NavItems{Histories: histories, Prompts: prompts}, nil
}

func (s *chatService) UploadAttachment(ctx context.Context, p authz.Principal, in dto.UploadInput) (*dto.AttachmentUpload, error) {
	record, err := s.files.Upload(ctx, p, in, "", "", "")
	if err != nil {
		return nil, err
	}
	attachment := entity.Attachment{
		Type:      attachmentTypeFile,
		Id:        record.Id,
		Name:      record.Name,
		FileType:  record.FileType,
		Timestamp: s.now().Unix(),
	}
	if record.Base64 != "" || record.Base64Error != "" {
		attachment.Type = attachmentTypeImage
	}
	return &dto.AttachmentUpload{Attachment: attachment, File: record}, nil
}
