package publishing

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-studio-api/internal/application/ebook"
	"ebook-studio-api/internal/application/export"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
	"ebook-studio-api/internal/infrastructure/messaging"
	redisstore "ebook-studio-api/internal/infrastructure/persistence/redis"
	workflowport "ebook-studio-api/internal/workflow/port"
	apperrors "ebook-studio-api/pkg/errors"
)

type passthroughTx struct{ calls int }

func (t *passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type memoryBooks struct {
	mu    sync.Mutex
	books map[string]*entity.BookRecord
}

func newMemoryBooks() *memoryBooks {
	return &memoryBooks{books: map[string]*entity.BookRecord{}}
}

func (m *memoryBooks) Create(_ context.Context, b *entity.BookRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *memoryBooks) Update(ctx context.Context, b *entity.BookRecord) error { return m.Create(ctx, b) }

func (m *memoryBooks) GetByID(_ context.Context, id string) (*entity.BookRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (m *memoryBooks) GetByRunID(_ context.Context, runID string) (*entity.BookRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.RunID == runID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryBooks) ListByOwner(_ context.Context, owner string, p repository.Pagination) (*repository.PagedResult[*entity.BookRecord], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*entity.BookRecord
	for _, b := range m.books {
		if owner == "" || b.OwnerID == owner {
			items = append(items, b)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (m *memoryBooks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	return nil
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memoryObjects) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.objects[key] = data
	s.types[key] = contentType
	return "https://objects.example.com/" + key, nil
}

type stubGateway struct {
	outlineErr   error
	outlineCalls atomic.Int32
	chapterCalls atomic.Int32
}

func (g *stubGateway) GenerateOutline(context.Context, string) (*workflowport.Outline, error) {
	g.outlineCalls.Add(1)
	if g.outlineErr != nil {
		return nil, g.outlineErr
	}
	return &workflowport.Outline{
		Title:          "Balcony Harvest",
		TargetAudience: "Apartment dwellers",
		Description:    "Grow food in small spaces",
		Chapters: []workflowport.OutlineChapter{
			{Title: "Light"}, {Title: "Soil"}, {Title: "Water"},
		},
	}, nil
}

func (g *stubGateway) GenerateChapter(_ context.Context, req workflowport.ChapterRequest) (string, error) {
	g.chapterCalls.Add(1)
	return "Content for " + req.ChapterTitle, nil
}

func (g *stubGateway) GenerateCoverImage(context.Context, workflowport.CoverRequest) (string, error) {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes")), nil
}

func (g *stubGateway) EditText(_ context.Context, req workflowport.EditRequest) (string, error) {
	return req.Original, nil
}

type flakyArchiver struct {
	failures int
	calls    int
	inner    *Archiver
}

func (a *flakyArchiver) Archive(ctx context.Context, runID, ownerID string, book *entity.Book, log []entity.LogEntry) (string, error) {
	a.calls++
	if a.calls <= a.failures {
		return "", errors.New("db down")
	}
	return a.inner.Archive(ctx, runID, ownerID, book, log)
}

type capturePublisher struct {
	msgs []*messaging.BookJobMessage
	err  error
}

func (p *capturePublisher) PublishBookJob(_ context.Context, job *messaging.BookJobMessage) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.msgs = append(p.msgs, job)
	return "1-0", nil
}

func newJobStore(t *testing.T) *redisstore.JobStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisstore.NewJobStore(redisstore.NewClientFromRedis(rdb), 0)
}

func sampleBook(title string) *entity.Book {
	return &entity.Book{
		Title:          title,
		TargetAudience: "Everyone",
		Description:    "desc",
		Chapters: []entity.Chapter{
			{ID: "ch-0", Title: "One", Content: "first", Status: entity.ChapterStatusCompleted},
		},
	}
}

func TestArchiverUpsertsByRunID(t *testing.T) {
	tx := &passthroughTx{}
	books := newMemoryBooks()
	archiver := NewArchiver(tx, books)
	ctx := context.Background()

	id1, err := archiver.Archive(ctx, "run-1", "alice", sampleBook("Draft"), []entity.LogEntry{{Message: "a"}})
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := archiver.Archive(ctx, "run-1", "alice", sampleBook("Final"), nil)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 2, tx.calls)

	got, err := books.GetByID(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Len(t, books.books, 1)
}

func TestCoverUploader(t *testing.T) {
	store := newMemoryObjects()
	uploader := NewCoverUploader(store)

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
	url, err := uploader.StoreCover(context.Background(), "run-9", uri)
	require.NoError(t, err)
	assert.Equal(t, "https://objects.example.com/covers/run-9.png", url)
	assert.Equal(t, []byte("png"), store.objects["covers/run-9.png"])
	assert.Equal(t, "image/png", store.types["covers/run-9.png"])

	_, err = uploader.StoreCover(context.Background(), "run-9", "not a data uri")
	assert.Error(t, err)
}

func TestBookServiceOwnership(t *testing.T) {
	books := newMemoryBooks()
	ctx := context.Background()
	require.NoError(t, books.Create(ctx, entity.NewBookRecord("r1", "alice", sampleBook("A"), nil)))
	require.NoError(t, books.Create(ctx, entity.NewBookRecord("r2", "bob", sampleBook("B"), nil)))

	svc := NewBookService(books, export.NewExporter(nil, "English"), nil)

	page, err := svc.List(ctx, "alice", false, repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = svc.List(ctx, "root", true, repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	bobs, err := books.GetByRunID(ctx, "r2")
	require.NoError(t, err)

	_, err = svc.Get(ctx, bobs.ID, "alice", false)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	got, err := svc.Get(ctx, bobs.ID, "alice", true)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title)

	_, err = svc.Get(ctx, "missing", "alice", false)
	assert.True(t, errors.Is(err, apperrors.ErrBookNotFound))
}

func TestBookServiceExportUploads(t *testing.T) {
	books := newMemoryBooks()
	ctx := context.Background()
	record := entity.NewBookRecord("r1", "alice", sampleBook("Garden Guide"), nil)
	require.NoError(t, books.Create(ctx, record))

	store := newMemoryObjects()
	svc := NewBookService(books, export.NewExporter(nil, "English"), store)

	result, err := svc.Export(ctx, record.ID, "alice", false, export.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, string(result.Artifact.Data), "# Garden Guide")
	assert.Equal(t, "https://objects.example.com/exports/"+record.ID+".md", result.URL)

	store.err = errors.New("bucket offline")
	result, err = svc.Export(ctx, record.ID, "alice", false, export.FormatMarkdown)
	require.NoError(t, err)
	assert.Empty(t, result.URL)
	assert.NotEmpty(t, result.Artifact.Data)
}

func TestJobServiceSubmit(t *testing.T) {
	jobs := newJobStore(t)
	pub := &capturePublisher{}
	svc := NewJobService(jobs, pub)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "alice", "", entity.BookJobParams{Topic: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	_, err = svc.Submit(ctx, "alice", "", entity.BookJobParams{Topic: "x", Tone: "Sarcastic Pirate"})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	job, err := svc.Submit(ctx, "alice", "key-1", entity.BookJobParams{Topic: " Urban gardening "})
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusPending, job.Status)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "Urban gardening", pub.msgs[0].Topic)
	assert.Equal(t, "key-1", pub.msgs[0].Credential)

	got, err := svc.Get(ctx, job.ID, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.Get(ctx, job.ID, "bob", false)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = svc.Get(ctx, "nope", "alice", false)
	assert.True(t, errors.Is(err, apperrors.ErrJobNotFound))
}

func TestJobServiceSubmitPublishFailure(t *testing.T) {
	jobs := newJobStore(t)
	svc := NewJobService(jobs, &capturePublisher{err: errors.New("stream down")})

	_, err := svc.Submit(context.Background(), "alice", "", entity.BookJobParams{Topic: "x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeQueueError, apperrors.CodeOf(err))
}

func TestJobRunnerCompletesJob(t *testing.T) {
	jobs := newJobStore(t)
	books := newMemoryBooks()
	store := newMemoryObjects()
	runner := NewJobRunner(&stubGateway{}, jobs, NewArchiver(&passthroughTx{}, books), NewCoverUploader(store), RunnerConfig{
		Settings:    ebook.DefaultSettings(),
		ArchiveAttempts: 3,
	})
	ctx := context.Background()

	job := entity.NewGenerationJob("job-1", "alice", entity.BookJobParams{Topic: "Balcony gardens"})
	require.NoError(t, jobs.Save(ctx, job))

	err := runner.Run(ctx, &messaging.BookJobMessage{JobID: "job-1", OwnerID: "alice", Topic: "Balcony gardens", Credential: "key"})
	require.NoError(t, err)

	got, err := jobs.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotEmpty(t, got.BookID)

	record, err := books.GetByID(ctx, got.BookID)
	require.NoError(t, err)
	assert.Equal(t, "Balcony Harvest", record.Title)
	assert.Equal(t, "alice", record.OwnerID)
	require.Len(t, record.Chapters, 4)
	for _, ch := range record.Chapters {
		assert.Equal(t, entity.ChapterStatusCompleted, ch.Status)
	}
	assert.Equal(t, "https://objects.example.com/covers/job-1.png", record.CoverImage)
	assert.NotEmpty(t, record.Log)

	// 终态任务重复投递时直接忽略
	require.NoError(t, runner.Run(ctx, &messaging.BookJobMessage{JobID: "job-1", OwnerID: "alice", Topic: "Balcony gardens", Credential: "key"}))
	assert.Len(t, books.books, 1)
}

func TestJobRunnerOutlineFailureIsTerminal(t *testing.T) {
	jobs := newJobStore(t)
	gateway := &stubGateway{outlineErr: apperrors.ErrGenerationFailed.WithDetail("provider unavailable")}
	runner := NewJobRunner(gateway, jobs, NewArchiver(&passthroughTx{}, newMemoryBooks()), nil, RunnerConfig{
		Settings:        ebook.DefaultSettings(),
		ArchiveAttempts: 3,
	})
	ctx := context.Background()
	msg := &messaging.BookJobMessage{JobID: "job-2", OwnerID: "alice", Topic: "Sleep", Credential: "key"}

	require.NoError(t, runner.Run(ctx, msg))
	got, err := jobs.GetByID(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "provider unavailable")

	// 重复投递不会再次生成
	require.NoError(t, runner.Run(ctx, msg))
	assert.Equal(t, int32(1), gateway.outlineCalls.Load())
}

func TestJobRunnerArchiveFailureDoesNotRegenerate(t *testing.T) {
	jobs := newJobStore(t)
	gateway := &stubGateway{}
	archiver := &flakyArchiver{failures: 10, inner: NewArchiver(&passthroughTx{}, newMemoryBooks())}
	runner := NewJobRunner(gateway, jobs, archiver, nil, RunnerConfig{
		Settings:        ebook.DefaultSettings(),
		ArchiveAttempts: 3,
	})
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx, &messaging.BookJobMessage{JobID: "job-4", OwnerID: "alice", Topic: "Sleep", Credential: "key"}))

	assert.Equal(t, 3, archiver.calls)
	assert.Equal(t, int32(1), gateway.outlineCalls.Load())
	assert.Equal(t, int32(4), gateway.chapterCalls.Load())

	got, err := jobs.GetByID(ctx, "job-4")
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, got.Status)
	assert.Equal(t, entity.StageCompleted, got.Stage)
	assert.Contains(t, got.ErrorMessage, "failed to archive book")
	assert.Contains(t, got.ErrorMessage, "db down")
}

func TestJobRunnerRetriesOnlyArchive(t *testing.T) {
	jobs := newJobStore(t)
	gateway := &stubGateway{}
	books := newMemoryBooks()
	archiver := &flakyArchiver{failures: 1, inner: NewArchiver(&passthroughTx{}, books)}
	runner := NewJobRunner(gateway, jobs, archiver, nil, RunnerConfig{
		Settings:        ebook.DefaultSettings(),
		ArchiveAttempts: 3,
	})
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx, &messaging.BookJobMessage{JobID: "job-5", OwnerID: "alice", Topic: "Sleep", Credential: "key"}))

	assert.Equal(t, 2, archiver.calls)
	assert.Equal(t, int32(1), gateway.outlineCalls.Load())
	got, err := jobs.GetByID(ctx, "job-5")
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, got.Status)
	assert.Len(t, books.books, 1)
}

func TestJobRunnerMissingCredentialFailsImmediately(t *testing.T) {
	jobs := newJobStore(t)
	runner := NewJobRunner(&stubGateway{}, jobs, nil, nil, RunnerConfig{Settings: ebook.DefaultSettings(), ArchiveAttempts: 5})
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx, &messaging.BookJobMessage{JobID: "job-3", OwnerID: "alice", Topic: "Sleep"}))
	got, err := jobs.GetByID(ctx, "job-3")
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)
}
