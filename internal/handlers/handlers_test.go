package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/logs"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/audit"
	"github.com/ternarybob/folio/internal/services/content"
	"github.com/ternarybob/folio/internal/services/events"
	"github.com/ternarybob/folio/internal/services/transform"
	"github.com/ternarybob/folio/internal/storage/filesystem"
)

type testEnv struct {
	bus     interfaces.EventService
	queue   *logs.EventQueue
	logs    *logs.Service
	audit   *audit.Service
	content *content.Service
	logger  arbor.ILogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := arbor.NewNoOpLogger()

	serverStore := filesystem.NewPartitionStore[models.ServerEvent](filepath.Join(dir, "server-logs"), logger)
	auditStore := filesystem.NewPartitionStore[models.AuditEvent](filepath.Join(dir, "audit-logs"), logger)
	bus := events.NewService(logger)

	queue := logs.NewEventQueue(serverStore, logger,
		logs.WithLocation(time.UTC),
		logs.WithObserver(logs.NewEventPublisher(bus)),
	)
	queue.Start()
	t.Cleanup(func() { queue.Stop(context.Background()) })

	return &testEnv{
		bus:   bus,
		queue: queue,
		logs:  logs.NewService(serverStore, logger),
		audit: audit.NewService(auditStore, nil, logger, time.UTC),
		content: content.NewService(common.ContentConfig{
			BlogDir:      filepath.Join(dir, "blog"),
			MindDir:      filepath.Join(dir, "mind"),
			AssetsDir:    filepath.Join(dir, "assets"),
			MaxImageSize: 1024,
		}, transform.NewService(logger), logger),
		logger: logger,
	}
}

func (e *testEnv) serverLogs() *ServerLogsHandler {
	return NewServerLogsHandler(e.queue, e.logs, e.queue, common.ServerLogConfig{IngestRate: 100, IngestBurst: 100}, time.UTC, e.logger)
}

func (e *testEnv) contentHandler() *ContentHandler {
	return NewContentHandler(e.content, e.audit, e.queue, 1024, e.logger)
}

// persisted flushes the queue and returns every stored server event
func (e *testEnv) persisted(t *testing.T) []models.ServerEvent {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.queue.Flush(ctx))

	dates, err := e.logs.ListDates(ctx)
	require.NoError(t, err)
	var all []models.ServerEvent
	for _, date := range dates {
		events, err := e.logs.GetEvents(ctx, date, interfaces.ServerLogFilter{})
		require.NoError(t, err)
		all = append(all, events...)
	}
	return all
}

// auditEvents returns every stored audit event
func (e *testEnv) auditEvents(t *testing.T) []models.AuditEvent {
	t.Helper()
	ctx := context.Background()
	dates, err := e.audit.ListDates(ctx)
	require.NoError(t, err)
	var all []models.AuditEvent
	for _, date := range dates {
		events, err := e.audit.GetEvents(ctx, date)
		require.NoError(t, err)
		all = append(all, events...)
	}
	return all
}

func authed(r *http.Request) *http.Request {
	r.Header.Set(HeaderAuthUser, "admin")
	r.Header.Set(HeaderAuthEmail, "admin@example.com")
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestIngestHandler_Accepts(t *testing.T) {
	env := newTestEnv(t)
	h := env.serverLogs()

	req := authed(httptest.NewRequest(http.MethodPost, "/api/logs/server", strings.NewReader(
		`{"source":"API_ROUTER","level":"ERROR","message":"boom","timestamp":"2024-05-01T10:00:00Z","context":{"route":"/x"}}`)))
	rec := httptest.NewRecorder()
	h.IngestHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	id, _ := body["id"].(string)
	assert.NotEmpty(t, id)

	stored := env.persisted(t)
	require.Len(t, stored, 1)
	assert.Equal(t, id, stored[0].ID)
	assert.Equal(t, models.SourceAPIRouter, stored[0].Source)
	assert.Equal(t, "boom", stored[0].Message)
	assert.Equal(t, "/x", stored[0].Context["route"])
	assert.True(t, stored[0].Timestamp.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
}

func TestIngestHandler_RequiresUser(t *testing.T) {
	env := newTestEnv(t)
	h := env.serverLogs()

	rec := httptest.NewRecorder()
	h.IngestHandler(rec, httptest.NewRequest(http.MethodPost, "/api/logs/server", strings.NewReader(
		`{"source":"SYSTEM_MONITOR","level":"FATAL","message":"forged"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.persisted(t))
}

func TestIngestHandler_Validation(t *testing.T) {
	env := newTestEnv(t)
	h := env.serverLogs()

	cases := map[string]string{
		"bad level":       `{"source":"API_ROUTER","level":"DEBUG","message":"m"}`,
		"bad source":      `{"source":"NOPE","level":"INFO","message":"m"}`,
		"missing message": `{"source":"API_ROUTER","level":"INFO"}`,
		"not json":        `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.IngestHandler(rec, authed(httptest.NewRequest(http.MethodPost, "/api/logs/server", strings.NewReader(body))))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.Empty(t, env.persisted(t))
}

func TestIngestHandler_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	h := env.serverLogs()

	body := `{"source":"API_ROUTER","level":"INFO","message":"` + strings.Repeat("x", maxJSONBody) + `"}`
	rec := httptest.NewRecorder()
	h.IngestHandler(rec, authed(httptest.NewRequest(http.MethodPost, "/api/logs/server", strings.NewReader(body))))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.persisted(t))
}

func TestIngestHandler_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	h := NewServerLogsHandler(env.queue, env.logs, env.queue, common.ServerLogConfig{IngestRate: 1, IngestBurst: 1}, time.UTC, env.logger)

	body := `{"source":"SYSTEM_MONITOR","level":"INFO","message":"tick"}`
	first := httptest.NewRecorder()
	h.IngestHandler(first, authed(httptest.NewRequest(http.MethodPost, "/api/logs/server", strings.NewReader(body))))
	second := httptest.NewRecorder()
	h.IngestHandler(second, authed(httptest.NewRequest(http.MethodPost, "/api/logs/server", strings.NewReader(body))))

	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestServerLogsHandler_ListRequiresUser(t *testing.T) {
	env := newTestEnv(t)
	h := env.serverLogs()

	rec := httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/logs/server", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServerLogsHandler_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	h := env.serverLogs()

	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	env.queue.Enqueue(models.ServerEvent{Timestamp: day, Source: models.SourceAPIRouter, Level: models.LevelInfo, Message: "a"})
	env.queue.Enqueue(models.ServerEvent{Timestamp: day, Source: models.SourceAPIRouter, Level: models.LevelError, Message: "b"})
	env.queue.Enqueue(models.ServerEvent{Timestamp: day, Source: models.SourceAuthServer, Level: models.LevelError, Message: "c"})
	require.NoError(t, env.queue.Flush(context.Background()))

	rec := httptest.NewRecorder()
	h.ListHandler(rec, authed(httptest.NewRequest(http.MethodGet, "/api/logs/server?date=2024-05-01&levels=ERROR&sources=API_ROUTER", nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Date   string               `json:"date"`
		Count  int                  `json:"count"`
		Events []models.ServerEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-05-01", body.Date)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "b", body.Events[0].Message)

	rec = httptest.NewRecorder()
	h.ListHandler(rec, authed(httptest.NewRequest(http.MethodGet, "/api/logs/server?date=../../etc", nil)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.DatesHandler(rec, authed(httptest.NewRequest(http.MethodGet, "/api/logs/server/dates", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"2024-05-01"}, decodeBody(t, rec)["dates"])

	rec = httptest.NewRecorder()
	h.StatsHandler(rec, authed(httptest.NewRequest(http.MethodGet, "/api/logs/server/stats", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["persisted"])
}

func TestContentHandler_CreatePost(t *testing.T) {
	env := newTestEnv(t)
	h := env.contentHandler()

	body := `{"title":"Hello World","slug":"hello-world","description":"d","content":"Hi *there*"}`

	rec := httptest.NewRecorder()
	h.CreatePostHandler(rec, httptest.NewRequest(http.MethodPost, "/api/blog/create", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.CreatePostHandler(rec, authed(httptest.NewRequest(http.MethodPost, "/api/blog/create", strings.NewReader(body))))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "hello-world", decodeBody(t, rec)["slug"])

	rec = httptest.NewRecorder()
	h.CreatePostHandler(rec, authed(httptest.NewRequest(http.MethodPost, "/api/blog/create", strings.NewReader(body))))
	assert.Equal(t, http.StatusConflict, rec.Code)

	recorded := env.auditEvents(t)
	require.Len(t, recorded, 1)
	assert.Equal(t, models.AuditPostCreated, recorded[0].EventType)
	assert.Equal(t, "admin", recorded[0].User.Name)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/blog/hello-world/html", nil)
	req.SetPathValue("slug", "hello-world")
	h.PostHTMLHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<em>there</em>")

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/blog/missing/html", nil)
	req.SetPathValue("slug", "missing")
	h.PostHTMLHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartRequest(t *testing.T, url, field, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestContentHandler_UploadPost(t *testing.T) {
	env := newTestEnv(t)
	h := env.contentHandler()

	req := multipartRequest(t, "/api/blog/upload", "file", "First Post.md", "text/markdown",
		[]byte("---\ntitle: First\ndescription: D\n---\nbody\n"), nil)
	rec := httptest.NewRecorder()
	h.UploadPostHandler(rec, authed(req))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "first-post", decodeBody(t, rec)["slug"])

	req = multipartRequest(t, "/api/blog/upload", "file", "bad.md", "text/markdown", []byte("no frontmatter"), nil)
	rec = httptest.NewRecorder()
	h.UploadPostHandler(rec, authed(req))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentHandler_Mind(t *testing.T) {
	env := newTestEnv(t)
	h := env.contentHandler()

	rec := httptest.NewRecorder()
	h.CreateIdeaHandler(rec, authed(httptest.NewRequest(http.MethodPost, "/api/mind/create", strings.NewReader(`{"title":"Untold"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Summary is required")

	rec = httptest.NewRecorder()
	h.CreateIdeaHandler(rec, authed(httptest.NewRequest(http.MethodPost, "/api/mind/create", strings.NewReader(`{"title":"Small Tools","summary":"Tools that stay out of the way"}`))))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "small-tools", decodeBody(t, rec)["id"])

	rec = httptest.NewRecorder()
	h.AddThoughtHandler(rec, authed(httptest.NewRequest(http.MethodPost, "/api/mind/thought", strings.NewReader(`{"ideaId":"small-tools","content":"one"}`))))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.AddThoughtHandler(rec, authed(httptest.NewRequest(http.MethodPost, "/api/mind/thought", strings.NewReader(`{"ideaId":"missing","content":"one"}`))))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.AddThoughtHandler(rec, authed(httptest.NewRequest(http.MethodPost, "/api/mind/thought", strings.NewReader(`{"ideaId":"small-tools"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var types []models.AuditEventType
	for _, event := range env.auditEvents(t) {
		types = append(types, event.EventType)
	}
	assert.Equal(t, []models.AuditEventType{models.AuditMindIdeaCreated, models.AuditMindThoughtAdded}, types)
}

func TestContentHandler_UploadImage(t *testing.T) {
	env := newTestEnv(t)
	h := env.contentHandler()

	req := multipartRequest(t, "/api/upload-image", "image", "cover.png", "image/png", []byte("png"), map[string]string{"slug": "my-post"})
	rec := httptest.NewRecorder()
	h.UploadImageHandler(rec, authed(req))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "my-post-hero.png", body["filename"])
	assert.Equal(t, "../../assets/my-post-hero.png", body["path"])

	req = multipartRequest(t, "/api/upload-image", "image", "x.svg", "image/svg+xml", []byte("<svg/>"), nil)
	rec = httptest.NewRecorder()
	h.UploadImageHandler(rec, authed(req))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = multipartRequest(t, "/api/upload-image", "image", "huge.png", "image/png", bytes.Repeat([]byte{0x89}, 2<<20), nil)
	rec = httptest.NewRecorder()
	h.UploadImageHandler(rec, authed(req))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.persisted(t))

	recorded := env.auditEvents(t)
	require.Len(t, recorded, 1)
	assert.Equal(t, models.AuditMediaUploaded, recorded[0].EventType)
}

func signedWebhook(t *testing.T, secret, event string, payload []byte) *http.Request {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/giscus", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestWebhookHandler_Giscus(t *testing.T) {
	env := newTestEnv(t)
	h := NewWebhookHandler("s3cret", env.audit, env.queue, env.logger)

	payload := []byte(`{
		"action": "created",
		"discussion": {"title": "Hello World", "body": "Comments for https://example.com/blog/hello-world"},
		"comment": {"id": 42, "user": {"login": "octocat", "email": "octocat@example.com"}}
	}`)

	rec := httptest.NewRecorder()
	h.GiscusHandler(rec, signedWebhook(t, "s3cret", "discussion_comment", payload))
	require.Equal(t, http.StatusOK, rec.Code)

	recorded := env.auditEvents(t)
	require.Len(t, recorded, 1)
	assert.Equal(t, models.AuditCommentAdded, recorded[0].EventType)
	assert.Equal(t, "hello-world", recorded[0].RelatedContent.ID)
	assert.Equal(t, "42", recorded[0].Metadata["commentId"])
	assert.Equal(t, "octocat", recorded[0].User.Name)
	assert.Equal(t, "octocat@example.com", recorded[0].User.Email)

	rec = httptest.NewRecorder()
	h.GiscusHandler(rec, signedWebhook(t, "wrong", "discussion_comment", payload))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	deleted := []byte(`{"action":"deleted","discussion":{"title":"t"},"comment":{"id":1,"user":{"login":"x"}}}`)
	rec = httptest.NewRecorder()
	h.GiscusHandler(rec, signedWebhook(t, "s3cret", "discussion_comment", deleted))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.auditEvents(t), 1)

	issue := []byte(`{"action":"opened","issue":{"number":7}}`)
	rec = httptest.NewRecorder()
	h.GiscusHandler(rec, signedWebhook(t, "s3cret", "issues", issue))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not a comment event")
	assert.Len(t, env.auditEvents(t), 1)

	stored := env.persisted(t)
	require.Len(t, stored, 1)
	assert.Equal(t, models.LevelWarn, stored[0].Level)
}

func TestWebSocketHandler_LiveTail(t *testing.T) {
	env := newTestEnv(t)
	h := NewWebSocketHandler(env.bus, env.logger, common.WebSocketConfig{}, time.Minute)
	t.Cleanup(h.Close)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?levels=ERROR"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{HeaderAuthUser: {"admin"}})
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello WSMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	assert.Equal(t, 1, h.ClientCount())

	env.queue.Log(models.SourceSystemMonitor, models.LevelInfo, "filtered out", nil)
	env.queue.LogError(models.SourceAPIRouter, "route failed", assert.AnError, nil)

	var msg struct {
		Type    string             `json:"type"`
		Payload models.ServerEvent `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "server_event", msg.Type)
	assert.Equal(t, "route failed", msg.Payload.Message)
	assert.Equal(t, models.LevelError, msg.Payload.Level)
}

func TestWebSocketHandler_RequiresUser(t *testing.T) {
	env := newTestEnv(t)
	h := NewWebSocketHandler(nil, env.logger, common.WebSocketConfig{}, time.Minute)

	rec := httptest.NewRecorder()
	h.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws/logs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://blog.example.com/"})

	req := httptest.NewRequest(http.MethodGet, "/ws/logs", nil)
	req.Header.Set("Origin", "https://blog.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.Nil(t, originChecker(nil))
	allowAll := originChecker([]string{"*"})
	assert.True(t, allowAll(req))
}

func TestAPIHandler(t *testing.T) {
	h := NewAPIHandler(arbor.NewNoOpLogger())

	rec := httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.NotFoundHandler(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/api/nope", decodeBody(t, rec)["path"])
}

func TestUserFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, UserFromRequest(req))

	req.Header.Set(HeaderAuthEmail, "me@example.com")
	user := UserFromRequest(req)
	require.NotNil(t, user)
	assert.Equal(t, "me@example.com", user.ID)
	assert.Equal(t, "me@example.com", user.DisplayName())
}
