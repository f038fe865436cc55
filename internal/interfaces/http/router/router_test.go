package router

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ebook-studio-api/internal/application/account"
	"ebook-studio-api/internal/application/ebook"
	"ebook-studio-api/internal/application/export"
	"ebook-studio-api/internal/application/publishing"
	"ebook-studio-api/internal/config"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
	"ebook-studio-api/internal/infrastructure/messaging"
	redisstore "ebook-studio-api/internal/infrastructure/persistence/redis"
	"ebook-studio-api/internal/interfaces/http/handler"
	workflowport "ebook-studio-api/internal/workflow/port"
	"ebook-studio-api/pkg/utils"
)

const (
	adminEmail = "admin-automation@ebook.com"
	userEmail  = "user-automation@ebook.com"
	otherEmail = "other-automation@ebook.com"
	password   = "password123"
)

type stubGateway struct{}

func (stubGateway) GenerateOutline(context.Context, string) (*workflowport.Outline, error) {
	return &workflowport.Outline{
		Title:          "Balcony Harvest",
		TargetAudience: "Apartment dwellers",
		Description:    "Grow food in small spaces",
		Chapters:       []workflowport.OutlineChapter{{Title: "Light"}, {Title: "Soil"}},
	}, nil
}

func (stubGateway) GenerateChapter(_ context.Context, req workflowport.ChapterRequest) (string, error) {
	return "Content for " + req.ChapterTitle, nil
}

func (stubGateway) GenerateCoverImage(context.Context, workflowport.CoverRequest) (string, error) {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png")), nil
}

func (stubGateway) EditText(_ context.Context, req workflowport.EditRequest) (string, error) {
	return "edited: " + req.Original, nil
}

type memoryBooks struct {
	mu    sync.Mutex
	items map[string]*entity.BookRecord
}

func (m *memoryBooks) Create(_ context.Context, b *entity.BookRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[b.ID] = b
	return nil
}

func (m *memoryBooks) Update(ctx context.Context, b *entity.BookRecord) error { return m.Create(ctx, b) }

func (m *memoryBooks) GetByID(_ context.Context, id string) (*entity.BookRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id], nil
}

func (m *memoryBooks) GetByRunID(context.Context, string) (*entity.BookRecord, error) {
	return nil, nil
}

func (m *memoryBooks) ListByOwner(_ context.Context, owner string, p repository.Pagination) (*repository.PagedResult[*entity.BookRecord], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*entity.BookRecord
	for _, b := range m.items {
		if owner == "" || b.OwnerID == owner {
			items = append(items, b)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (m *memoryBooks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type nopPublisher struct{}

func (nopPublisher) PublishBookJob(context.Context, *messaging.BookJobMessage) (string, error) {
	return "1-0", nil
}

type testServer struct {
	engine *gin.Engine
	books  *memoryBooks
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	client := redisstore.NewClientFromRedis(rdb)

	cfg := &config.Config{}
	cfg.App.Name = "ebook-studio-api"
	cfg.Auth = config.AuthConfig{
		RootAccount: adminEmail,
		SessionTTL:  time.Hour,
		BcryptCost:  bcrypt.MinCost,
		SeedUsers: []config.SeedUser{
			{Email: adminEmail, Name: "Admin", Password: password, Role: "admin"},
			{Email: userEmail, Name: "User", Password: password, Role: "user"},
			{Email: otherEmail, Name: "Other", Password: password, Role: "user"},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	accounts := account.NewService(redisstore.NewUserStore(client), redisstore.NewSessionStore(client),
		utils.NewJWTManager("secret", "ebook-studio"), &cfg.Auth)
	require.NoError(t, accounts.SeedUsers(context.Background()))

	runs, err := ebook.NewRegistry(16, stubGateway{}, ebook.WithDelays(ebook.Delays{}))
	require.NoError(t, err)
	exporter := export.NewExporter(nil, "English")
	books := &memoryBooks{items: map[string]*entity.BookRecord{}}
	jobs := publishing.NewJobService(redisstore.NewJobStore(client, time.Hour), nopPublisher{})

	r := New(cfg, &Handlers{
		Health:  handler.NewHealthHandler("test", client, client),
		Auth:    handler.NewAuthHandler(accounts),
		User:    handler.NewUserHandler(accounts),
		Catalog: handler.NewCatalogHandler(),
		Run:     handler.NewRunHandler(runs, exporter, ""),
		Book:    handler.NewBookHandler(publishing.NewBookService(books, exporter, nil)),
		Job:     handler.NewJobHandler(jobs, ""),
	}, Dependencies{
		Sessions:     accounts,
		Limiter:      redisstore.NewRateLimiter(client),
		RateLimitKey: redisstore.BuildRateLimitKey,
	})
	return &testServer{engine: r.Engine(), books: books}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
		Details   string `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.ErrorCode
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Token string `json:"token"`
	}](t, w)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthEndpointsSkipAuth(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/ready", "", nil).Code)

	w := s.do(t, http.MethodGet, "/v1/catalog", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "2003", errorCode(t, w))
}

func TestLoginSessionLogout(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": userEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.login(t, userEmail)
	w = s.do(t, http.MethodGet, "/v1/auth/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}](t, w)
	assert.Equal(t, userEmail, session.User.Email)
	assert.Equal(t, "user", session.User.Role)
	assert.Empty(t, session.Token)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/v1/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/auth/session", token, nil).Code)
}

func TestUserManagementRequiresAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	userToken := s.login(t, userEmail)
	adminToken := s.login(t, adminEmail)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/users", userToken, nil).Code)

	w := s.do(t, http.MethodGet, "/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Users []struct {
			Email string `json:"email"`
		} `json:"users"`
	}](t, w)
	assert.Len(t, list.Users, 3)

	newUser := map[string]string{"email": "new@ebook.com", "name": "New", "password": "secret1", "role": "user"}
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/users", adminToken, newUser).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/v1/users", adminToken, newUser).Code)

	short := map[string]string{"email": "short@ebook.com", "password": "abc"}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/users", adminToken, short).Code)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/v1/users/"+adminEmail, adminToken, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/v1/users/new@ebook.com", adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/v1/users/new@ebook.com", adminToken, nil).Code)
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/v1/catalog", s.login(t, userEmail), nil)
	require.Equal(t, http.StatusOK, w.Code)
	catalog := decode[struct {
		Tones       []json.RawMessage `json:"tones"`
		CoverStyles []json.RawMessage `json:"cover_styles"`
		Defaults    map[string]string `json:"defaults"`
	}](t, w)
	assert.Len(t, catalog.Tones, 12)
	assert.Len(t, catalog.CoverStyles, 11)
	assert.Equal(t, "Professional", catalog.Defaults["tone"])
}

type runView struct {
	ID    string       `json:"id"`
	Stage string       `json:"stage"`
	Step  int          `json:"step"`
	Book  *entity.Book `json:"book"`
}

func (s *testServer) waitStage(t *testing.T, token, id string, stage entity.Stage) runView {
	t.Helper()
	var run runView
	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, "/v1/runs/"+id, token, nil)
		if w.Code != http.StatusOK {
			return false
		}
		run = decode[runView](t, w)
		return run.Stage == string(stage)
	}, 5*time.Second, 10*time.Millisecond)
	return run
}

func TestRunLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, userEmail)

	w := s.do(t, http.MethodPost, "/v1/runs", token, nil, "X-Provider-Key", "user-key")
	require.Equal(t, http.StatusCreated, w.Code)
	run := decode[runView](t, w)
	assert.Equal(t, string(entity.StageInput), run.Stage)

	// 其他用户不可访问
	other := s.login(t, otherEmail)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/runs/"+run.ID, other, nil).Code)

	// 未完成时不能导出
	w = s.do(t, http.MethodGet, "/v1/runs/"+run.ID+"/export/markdown", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/v1/runs/"+run.ID+"/topic", token, map[string]string{"topic": "urban gardening", "tone": "Friendly"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	run = s.waitStage(t, token, run.ID, entity.StageAwaitingApproval)
	require.Len(t, run.Book.Chapters, 3)
	assert.Equal(t, "Friendly", run.Book.Tone)

	w = s.do(t, http.MethodPost, "/v1/runs/"+run.ID+"/chapters", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[struct {
		Changed bool `json:"changed"`
	}](t, w).Changed)

	w = s.do(t, http.MethodPut, "/v1/runs/"+run.ID+"/chapters/2", token, map[string]string{"title": "Harvest"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Harvest", decode[runView](t, w).Book.Chapters[2].Title)

	w = s.do(t, http.MethodPost, "/v1/runs/"+run.ID+"/chapters/0/move", token, map[string]int{"to": 1})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/v1/runs/"+run.ID+"/chapters/abc", token, nil).Code)

	w = s.do(t, http.MethodPost, "/v1/runs/"+run.ID+"/approve", token, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	run = s.waitStage(t, token, run.ID, entity.StageCompleted)
	for _, ch := range run.Book.Chapters {
		assert.Equal(t, entity.ChapterStatusCompleted, ch.Status)
	}

	w = s.do(t, http.MethodGet, "/v1/runs/"+run.ID+"/log", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[struct {
		Entries []entity.LogEntry `json:"entries"`
	}](t, w).Entries)

	w = s.do(t, http.MethodPost, "/v1/runs/"+run.ID+"/edit", token, map[string]string{"text": "hello", "mode": "grammar"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "edited: hello", decode[struct {
		Text string `json:"text"`
	}](t, w).Text)

	w = s.do(t, http.MethodPut, "/v1/runs/"+run.ID+"/chapters/0/content", token, map[string]string{"content": "rewritten"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/v1/runs/"+run.ID+"/export/markdown", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".md")
	assert.Contains(t, w.Body.String(), "# Balcony Harvest")
	assert.Contains(t, w.Body.String(), "rewritten")

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodGet, "/v1/runs/"+run.ID+"/export/pdf", token, nil).Code)

	w = s.do(t, http.MethodPost, "/v1/runs/"+run.ID+"/restart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(entity.StageInput), decode[runView](t, w).Stage)
}

func TestRunWithoutCredentialIsRejected(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, userEmail)

	run := decode[runView](t, s.do(t, http.MethodPost, "/v1/runs", token, nil))
	w := s.do(t, http.MethodPost, "/v1/runs/"+run.ID+"/topic", token, map[string]string{"topic": "anything"})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, "4007", errorCode(t, w))

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/runs/missing", token, nil).Code)
}

func TestBooksOwnership(t *testing.T) {
	s := newTestServer(t, nil)
	record := entity.NewBookRecord("run-1", userEmail, &entity.Book{
		Title:    "Archived",
		Chapters: []entity.Chapter{{ID: "ch-0", Title: "One", Content: "body", Status: entity.ChapterStatusCompleted}},
	}, nil)
	record.ID = "book-1"
	require.NoError(t, s.books.Create(context.Background(), record))

	token := s.login(t, userEmail)
	w := s.do(t, http.MethodGet, "/v1/books", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Books []struct {
			ID           string `json:"id"`
			ChapterCount int    `json:"chapter_count"`
		} `json:"books"`
	}](t, w)
	require.Len(t, list.Books, 1)
	assert.Equal(t, 1, list.Books[0].ChapterCount)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/books/book-1", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/books/book-1", s.login(t, otherEmail), nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/books/book-1", s.login(t, adminEmail), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/books/missing", token, nil).Code)

	w = s.do(t, http.MethodGet, "/v1/books/book-1/export/html", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestJobsSubmitAndGet(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, userEmail)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/jobs", token, map[string]string{}).Code)

	w := s.do(t, http.MethodPost, "/v1/jobs", token, map[string]string{"topic": "urban gardening"}, "X-Provider-Key", "k")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	job := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, w)
	assert.Equal(t, "pending", job.Status)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/jobs/"+job.ID, token, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/jobs/"+job.ID, s.login(t, otherEmail), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/jobs/missing", token, nil).Code)
}

func TestRateLimitPerUser(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute}
	})
	token := s.login(t, userEmail)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/catalog", token, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/catalog", token, nil).Code)
	w := s.do(t, http.MethodGet, "/v1/catalog", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 其他用户不受影响
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/catalog", s.login(t, otherEmail), nil).Code)
}
