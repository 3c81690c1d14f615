package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/pkg/serverutils"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/cache"
	"ai-dms-be/internal/repository/memory"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/internal/service"
	"ai-dms-be/pkg/authz"
	"ai-dms-be/pkg/events"
	"ai-dms-be/pkg/llm"
	"ai-dms-be/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller_test_secret"

var (
	alice = authz.Principal{ID: "aaaaaaaaaaaaaaaaaaaaaaaa", Role: authz.RoleUser}
	bob   = authz.Principal{ID: "bbbbbbbbbbbbbbbbbbbbbbbb", Role: authz.RoleUser}
	admin = authz.Principal{ID: "cccccccccccccccccccccccc", Role: authz.RoleAdmin}
)

// stubLLM answers every stream with a fixed reply.
type stubLLM struct {
	reply string
	usage *llm.Usage
	err   error
}

type stubStream struct {
	reply string
	usage *llm.Usage
}

func (s *stubStream) Pipe(w io.Writer) (*llm.Usage, error) {
	out := llm.NewStreamWriter(w)
	if err := out.WriteChunk(s.reply); err != nil {
		return nil, err
	}
	return s.usage, out.Finish(s.usage)
}

func (s *stubStream) Close() error { return nil }

func (c *stubLLM) Complete(context.Context, llm.ModelDescriptor, []llm.Message, ...llm.Option) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *stubLLM) Stream(context.Context, llm.ModelDescriptor, []llm.Message, ...llm.Option) (llm.Stream, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &stubStream{reply: c.reply, usage: c.usage}, nil
}

type harness struct {
	app *fiber.App
	llm *stubLLM
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	authorizer, err := authz.NewAuthorizer(authz.DefaultPolicies)
	require.NoError(t, err)

	reg := registry.Defaults()
	uow := unitofwork.NewRepositoryFactory(memory.NewDocumentStore(), reg, nil)
	log := logger.NewNopLogger()
	bus := events.NewBus(nil)
	t.Cleanup(func() { _ = bus.Close() })
	blobs := storage.NewDiskStorage(t.TempDir())
	contextCache := cache.NewMemoryContextCache(time.Minute)
	client := &stubLLM{reply: "Hi there"}

	publisher := service.NewPublisherService(bus, log)
	search := service.NewSearchService(uow, reg, log)
	files := service.NewFileService(uow, blobs, contextCache, authorizer, log)
	contexts := service.NewContextService(files, contextCache, log)
	crud := service.NewCrudService(uow, reg, search, files, publisher, authorizer, log)
	chat := service.NewChatService(uow, crud, files, contexts, client, publisher, authorizer, log)

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandlerMiddleware()})
	api := app.Group("/api")
	auth := serverutils.JwtMiddleware(testSecret)
	NewRegistryController(reg, crud).RegisterRoutes(api, auth)
	NewDocumentController(crud, files).RegisterRoutes(api, auth)
	NewFileController(files).RegisterRoutes(api, auth)
	NewChatController(chat, log).RegisterRoutes(api, auth)
	NewAdminController(service.NewAdminService(uow, reg, log)).RegisterRoutes(api, auth)

	return &harness{app: app, llm: client}
}

func bearer(t *testing.T, p authz.Principal) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": p.ID,
		"role":    p.Role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (h *harness) do(t *testing.T, p *authz.Principal, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if p != nil {
		req.Header.Set(fiber.HeaderAuthorization, bearer(t, *p))
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (h *harness) json(t *testing.T, p *authz.Principal, method, path string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	return h.do(t, p, method, path, fiber.MIMEApplicationJSON, r)
}

// multipartBody encodes fields and files; files maps form key to filename
// and content.
func multipartBody(t *testing.T, fields map[string]string, files map[string][2]string) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for key, f := range files {
		part, err := w.CreateFormFile(key, f[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return w.FormDataContentType(), &buf
}

func decode[T any](t *testing.T, resp *http.Response) serverutils.BaseResponse[T] {
	t.Helper()
	defer resp.Body.Close()
	var out serverutils.BaseResponse[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
