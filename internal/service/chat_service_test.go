package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/pkg/apperr"
	"ai-dms-be/internal/repository/specification"
	"ai-dms-be/pkg/events"
	"ai-dms-be/pkg/extract"
	"ai-dms-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedStream struct {
	text  string
	usage *llm.Usage
}

func (s *cannedStream) Pipe(w io.Writer) (*llm.Usage, error) {
	out := llm.NewStreamWriter(w)
	if err := out.WriteChunk(s.text); err != nil {
		return nil, err
	}
	return s.usage, out.Finish(s.usage)
}

func (s *cannedStream) Close() error { return nil }

// fakeLLM records what the chat workflow sends upstream.
type fakeLLM struct {
	mu       sync.Mutex
	model    llm.ModelDescriptor
	messages []llm.Message
	opts     llm.Options
	err      error
	usage    *llm.Usage
}

func (c *fakeLLM) record(model llm.ModelDescriptor, messages []llm.Message, opts []llm.Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
	c.messages = messages
	c.opts = llm.Options{}
	for _, opt := range opts {
		opt(&c.opts)
	}
}

func (c *fakeLLM) Complete(_ context.Context, model llm.ModelDescriptor, messages []llm.Message, opts ...llm.Option) (string, error) {
	c.record(model, messages, opts)
	if c.err != nil {
		return "", c.err
	}
	return "answer", nil
}

func (c *fakeLLM) Stream(_ context.Context, model llm.ModelDescriptor, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	c.record(model, messages, opts)
	if c.err != nil {
		return nil, c.err
	}
	return &cannedStream{text: "Hi there", usage: c.usage}, nil
}

func (c *fakeLLM) sent() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages
}

func newChat(f *fixture, client *fakeLLM) IChatService {
	return NewChatService(f.uow, f.crud, f.files, f.contexts, client, f.publisher, f.authorizer, f.log)
}

func systemWith(content string, attachments ...entity.Attachment) entity.ChatMessage {
	return entity.ChatMessage{Role: entity.RoleSystem, Content: content, Attachments: attachments}
}

func userSays(content string) entity.ChatMessage {
	return entity.ChatMessage{Role: entity.RoleUser, Content: content}
}

func attachmentOf(r *dto.FileRecord) entity.Attachment {
	return entity.Attachment{Type: attachmentTypeFile, Id: r.Id, Name: r.Name, FileType: r.FileType}
}

func TestFirstMessage(t *testing.T) {
	tt := []struct {
		name     string
		messages []entity.ChatMessage
		want     string
	}{
		{"first user message", []entity.ChatMessage{systemWith("sys"), userSays("What is Go?"), userSays("later")}, "What is Go?"},
		{"skips upload notices", []entity.ChatMessage{userSays("File uploaded: a.txt"), userSays("Summarize")}, "Summarize"},
		{"skips blank user messages", []entity.ChatMessage{userSays("   "), userSays("real")}, "real"},
		{
			"falls back to the first attachment",
			[]entity.ChatMessage{systemWith("sys", entity.Attachment{Type: "file", Id: "1", Name: "contract.pdf"}), userSays("")},
			"File uploaded: contract.pdf",
		},
		{"generic label", []entity.ChatMessage{systemWith("sys")}, "New chat"},
		{"empty conversation", nil, "New chat"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FirstMessage(tc.messages))
		})
	}
}

func TestSaveUpsertsBySession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chat := newChat(f, &fakeLLM{})

	upload := f.upload(t, alice, "brief.txt", "brief", "")

	first, err := chat.Save(ctx, alice, dto.SaveChatRequest{
		StartedAt: 1000,
		Messages:  []entity.ChatMessage{systemWith("sys", attachmentOf(upload))},
	})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "File uploaded: brief.txt", first.FirstMessage)

	second, err := chat.Save(ctx, alice, dto.SaveChatRequest{
		StartedAt: 1000,
		Messages:  []entity.ChatMessage{systemWith("sys", attachmentOf(upload)), userSays("Summarize it")},
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Id, second.Id)
	assert.Equal(t, "Summarize it", second.FirstMessage)

	third, err := chat.Save(ctx, alice, dto.SaveChatRequest{
		StartedAt: 1000,
		Messages:  []entity.ChatMessage{userSays("A different opener")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Summarize it", third.FirstMessage, "a real title is kept")

	_, err = chat.Save(ctx, alice, dto.SaveChatRequest{StartedAt: 2000, Messages: []entity.ChatMessage{userSays("new")}})
	require.NoError(t, err)
	_, err = chat.Save(ctx, bob, dto.SaveChatRequest{StartedAt: 1000, Messages: []entity.ChatMessage{userSays("bob")}})
	require.NoError(t, err)

	histories, err := f.uow.HistoryRepository().FindAll(ctx, specification.OwnedBy{Field: "owner_id", Owner: alice.ID})
	require.NoError(t, err)
	assert.Len(t, histories, 2)

	session, err := f.uow.HistoryRepository().FindSession(ctx, alice.ID, 1000)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Messages, 1)
	assert.Empty(t, session.FileIds)
}

func TestFromPromptResolvesContext(t *testing.T) {
	ctx := context.Background()

	tt := []struct {
		name        string
		system      string
		files       map[string]string
		breakBlobs  bool
		wantContext bool
		want        string
	}{
		{"no files", "Use this: {context}", nil, false, false, "Use this: " + markerNoContext},
		{"placeholder replaced", "Use this: {context}", map[string]string{"a.txt": "alpha"}, false, true, "Use this: " + extract.Banner("a.txt", "alpha")},
		{"appended without placeholder", "Be brief.", map[string]string{"a.txt": "alpha"}, false, true, "Be brief." + contextHeader + extract.Banner("a.txt", "alpha")},
		{"extraction failed", "Use this: {context}", map[string]string{"a.txt": "alpha"}, true, false, "Use this: " + markerExtractFailed},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			chat := newChat(f, &fakeLLM{})

			promptID := f.prompt(t, "Summarizer", tc.system)
			for name, content := range tc.files {
				record := f.upload(t, admin, name, content, promptID)
				if tc.breakBlobs {
					file := f.file(t, record.Id)
					f.cache.Delete(ctx, record.Id)
					require.NoError(t, f.blobs.Delete(ctx, file.StorageKey()))
				}
			}

			config, err := chat.FromPrompt(ctx, alice, promptID)
			require.NoError(t, err)
			assert.True(t, config.UsePromptTemplate)
			assert.Equal(t, promptID, config.PromptId)
			assert.Equal(t, tc.wantContext, config.UsingContext)
			assert.Equal(t, tc.want, config.SystemMessage)
			assert.Len(t, config.FileIds, len(tc.files))

			require.Len(t, config.Messages, 2)
			assert.Equal(t, entity.RoleSystem, config.Messages[0].Role)
			assert.Equal(t, tc.want, config.Messages[0].Content)
			assert.Len(t, config.Messages[0].Attachments, len(tc.files))
			assert.Equal(t, "Summarize the files", config.Messages[1].Content)
		})
	}
}

func TestFromPromptUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := newChat(f, &fakeLLM{}).FromPrompt(context.Background(), alice, "0123456789abcdef01234567")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestFromHistoryIsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chat := newChat(f, &fakeLLM{})

	saved, err := chat.Save(ctx, alice, dto.SaveChatRequest{
		StartedAt: 42,
		Messages:  []entity.ChatMessage{systemWith("resumed system"), userSays("hello")},
	})
	require.NoError(t, err)

	config, err := chat.FromHistory(ctx, alice, saved.Id)
	require.NoError(t, err)
	assert.Equal(t, saved.Id, config.HistoryId)
	assert.Equal(t, int64(42), config.StartedAt)
	assert.Equal(t, "resumed system", config.SystemMessage)
	assert.Len(t, config.Messages, 2)

	_, err = chat.FromHistory(ctx, bob, saved.Id)
	assert.Equal(t, apperr.KindAccessDenied, apperr.KindOf(err))
}

func TestStreamReplacesContextPlaceholder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	mine := f.upload(t, alice, "mine.txt", "private notes", "")
	theirs := f.upload(t, bob, "theirs.txt", "bob notes", "")
	image := f.upload(t, alice, "pic.png", "PNG", "")

	tt := []struct {
		name     string
		messages []entity.ChatMessage
		want     []string
	}{
		{
			"readable attachment",
			[]entity.ChatMessage{systemWith("ctx: {context}", attachmentOf(mine)), userSays("q")},
			[]string{"ctx: " + extract.Banner("mine.txt", "private notes"), "q"},
		},
		{
			"no attachments",
			[]entity.ChatMessage{systemWith("ctx: {context}"), userSays("q")},
			[]string{"ctx: " + markerNoFiles, "q"},
		},
		{
			"someone else's file is ignored",
			[]entity.ChatMessage{systemWith("ctx: {context}", attachmentOf(theirs)), userSays("q")},
			[]string{"ctx: " + markerNoFiles, "q"},
		},
		{
			"image attachments are not context",
			[]entity.ChatMessage{systemWith("ctx: {context}", entity.Attachment{Type: attachmentTypeImage, Id: image.Id, Name: image.Name})},
			[]string{"ctx: " + markerNoFiles},
		},
		{
			"only the first system message reads files",
			[]entity.ChatMessage{systemWith("a {context}", attachmentOf(mine)), userSays("q"), systemWith("b {context}", attachmentOf(mine))},
			[]string{"a " + extract.Banner("mine.txt", "private notes"), "q", "b " + markerNoFiles},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeLLM{}
			chat := newChat(f, client)

			stream, err := chat.Stream(ctx, alice, dto.StreamRequest{Messages: tc.messages, Provider: "openai", Model: "gpt-4o"})
			require.NoError(t, err)
			defer stream.Close()

			sent := client.sent()
			require.Len(t, sent, len(tc.want))
			for i, m := range sent {
				assert.Equal(t, tc.want[i], m.Content)
				assert.NotContains(t, m.Content, entity.ContextPlaceholder)
			}
		})
	}
}

func TestStreamModelResolution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	model := &entity.Model{Name: "Claude", Provider: "anthropic", Model: "claude-sonnet"}
	require.NoError(t, f.uow.ModelRepository().Create(ctx, model))

	tt := []struct {
		name     string
		req      dto.StreamRequest
		want     llm.ModelDescriptor
		wantKind apperr.Kind
	}{
		{"stored model", dto.StreamRequest{ModelId: model.IdHex()}, llm.ModelDescriptor{Provider: "anthropic", Model: "claude-sonnet"}, apperr.KindUnknown},
		{"explicit provider", dto.StreamRequest{Provider: "openai", Model: "gpt-4o"}, llm.ModelDescriptor{Provider: "openai", Model: "gpt-4o"}, apperr.KindUnknown},
		{"unknown stored model", dto.StreamRequest{ModelId: "0123456789abcdef01234567"}, llm.ModelDescriptor{}, apperr.KindValidation},
		{"no model at all", dto.StreamRequest{}, llm.ModelDescriptor{}, apperr.KindValidation},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeLLM{}
			tc.req.Messages = []entity.ChatMessage{userSays("hi")}

			stream, err := newChat(f, client).Stream(ctx, alice, tc.req)
			if tc.wantKind != apperr.KindUnknown {
				assert.Equal(t, tc.wantKind, apperr.KindOf(err))
				assert.Nil(t, client.sent(), "nothing is sent upstream")
				return
			}
			require.NoError(t, err)
			defer stream.Close()
			assert.Equal(t, tc.want, client.model)
		})
	}
}

func TestStreamUpstreamFailure(t *testing.T) {
	tt := []struct {
		name string
		err  error
		want string
	}{
		{"rejected", &llm.StatusError{Provider: "openai", StatusCode: http.StatusBadRequest}, "The model provider rejected the request"},
		{"unreachable", context.DeadlineExceeded, "The model provider is unavailable"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			chat := newChat(f, &fakeLLM{err: tc.err})

			_, err := chat.Stream(context.Background(), alice, dto.StreamRequest{
				Messages: []entity.ChatMessage{userSays("hi")},
				Provider: "openai",
				Model:    "gpt-4o",
			})
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindUpstream, appErr.Kind)
			assert.Equal(t, tc.want, appErr.Message)
		})
	}
}

func TestStreamPublishesUsage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)

	messages, err := f.bus.Subscribe(ctx, events.UsageRecorded)
	require.NoError(t, err)

	usage := &llm.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}
	chat := newChat(f, &fakeLLM{usage: usage})

	stream, err := chat.Stream(ctx, alice, dto.StreamRequest{
		Messages:  []entity.ChatMessage{userSays("hi")},
		Provider:  "openai",
		Model:     "gpt-4o",
		StartedAt: 77,
	})
	require.NoError(t, err)
	defer stream.Close()

	var out bytes.Buffer
	got, err := stream.Pipe(&out)
	require.NoError(t, err)
	assert.Equal(t, usage, got)
	assert.True(t, strings.HasPrefix(out.String(), "Hi there "+llm.StopMarker))

	select {
	case msg := <-messages:
		msg.Ack()
		event, err := events.Unmarshal(msg.Payload)
		require.NoError(t, err)
		var payload dto.UsageRecordedMessage
		require.NoError(t, events.Decode(event, &payload))
		assert.Equal(t, alice.ID, payload.UserId)
		assert.Equal(t, int64(77), payload.StartedAt)
		assert.Equal(t, "openai", payload.Provider)
		assert.Equal(t, int64(15), payload.Usage.TotalTokens)
	case <-time.After(2 * time.Second):
		t.Fatal("usage event was not published")
	}
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	client := &fakeLLM{}
	temp := 0.2

	res, err := newChat(f, client).Complete(context.Background(), alice, dto.CompleteRequest{
		StreamRequest: dto.StreamRequest{
			Messages: []entity.ChatMessage{systemWith("{context}"), userSays("hi")},
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Temperature: &temp,
		MaxTokens:   64,
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Content)
	assert.Equal(t, "gpt-4o-mini", res.Model.Model)
	assert.Equal(t, markerNoFiles, client.sent()[0].Content)
	require.NotNil(t, client.opts.Temperature)
	assert.Equal(t, 0.2, *client.opts.Temperature)
	assert.Equal(t, 64, client.opts.MaxTokens)
}

func TestDeleteAllHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chat := newChat(f, &fakeLLM{})

	promptID := f.prompt(t, "Pinned", "{context}")
	pinned := f.upload(t, admin, "pinned.txt", "keep", promptID)

	attached, err := chat.UploadAttachment(ctx, alice, textUpload("upload.txt", "temp"))
	require.NoError(t, err)

	saved, err := chat.Save(ctx, alice, dto.SaveChatRequest{
		StartedAt: 1,
		Messages: []entity.ChatMessage{
			systemWith("{context}", attached.Attachment, attachmentOf(pinned)),
			userSays("hi"),
		},
	})
	require.NoError(t, err)
	owned := f.upload(t, alice, "owned.txt", "mine", saved.Id)
	foreign := f.upload(t, bob, "foreign.txt", "theirs", saved.Id)

	_, err = chat.Save(ctx, alice, dto.SaveChatRequest{StartedAt: 2, Messages: []entity.ChatMessage{userSays("again")}})
	require.NoError(t, err)
	bobs, err := chat.Save(ctx, bob, dto.SaveChatRequest{StartedAt: 1, Messages: []entity.ChatMessage{userSays("bob")}})
	require.NoError(t, err)

	res, err := chat.DeleteAllHistory(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, &dto.DeleteAllResult{Deleted: 2, PreservedFiles: 1, DeletedFiles: 2, SkippedFiles: 1}, res)

	repo := f.uow.FileRepository()
	for id, wantKept := range map[string]bool{pinned.Id: true, foreign.Id: true, attached.File.Id: false, owned.Id: false} {
		file, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, wantKept, file != nil, id)
	}

	left, err := f.uow.HistoryRepository().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, bobs.Id, left[0].IdHex())
}

func TestNewChatAndNavItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	chat := newChat(f, &fakeLLM{})

	for _, name := range []string{"Zeta", "Alpha"} {
		require.NoError(t, f.uow.ModelRepository().Create(ctx, &entity.Model{Name: name, Provider: "openai", Model: strings.ToLower(name)}))
	}
	for i := int64(1); i <= 4; i++ {
		_, err := chat.Save(ctx, alice, dto.SaveChatRequest{StartedAt: i, Messages: []entity.ChatMessage{userSays("chat")}})
		require.NoError(t, err)
	}
	f.prompt(t, "One", "x")

	config, err := chat.NewChat(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, defaultWelcomeMessage, config.WelcomeMessage)
	require.Len(t, config.Messages, 1)
	assert.Equal(t, entity.RoleSystem, config.Messages[0].Role)
	assert.Contains(t, config.Messages[0].Content, entity.ContextPlaceholder)
	require.Len(t, config.Models, 2)
	assert.Equal(t, "Alpha", config.Models[0].Name)
	assert.Len(t, config.LatestHistories, latestItems)
	assert.Len(t, config.LatestPrompts, 1)

	nav, err := chat.NavItems(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, nav.Histories, 4)
	assert.Len(t, nav.Prompts, 1)

	nav, err = chat.NavItems(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, nav.Histories)
}

func TestUploadAttachmentKinds(t *testing.T) {
	f := newFixture(t)
	chat := newChat(f, &fakeLLM{})
	chat.(*chatService).now = func() time.Time { return time.Unix(1700000000, 0) }

	tt := []struct {
		filename string
		wantType string
	}{
		{"doc.txt", attachmentTypeFile},
		{"photo.jpg", attachmentTypeImage},
	}

	for _, tc := range tt {
		t.Run(tc.filename, func(t *testing.T) {
			res, err := chat.UploadAttachment(context.Background(), alice, textUpload(tc.filename, "data"))
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, res.Attachment.Type)
			assert.Equal(t, int64(1700000000), res.Attachment.Timestamp)
			assert.Equal(t, "temp", res.File.Path)
		})
	}

	_, err := chat.UploadAttachment(context.Background(), alice, textUpload("bad.exe", "x"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
