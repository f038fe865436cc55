package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
)

type memoryBooks struct {
	mu    sync.Mutex
	books map[string]*entity.BookRecord
	reads int
}

func (m *memoryBooks) Create(_ context.Context, b *entity.BookRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ID] = b
	return nil
}

func (m *memoryBooks) Update(ctx context.Context, b *entity.BookRecord) error { return m.Create(ctx, b) }

func (m *memoryBooks) GetByID(_ context.Context, id string) (*entity.BookRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.books[id], nil
}

func (m *memoryBooks) GetByRunID(context.Context, string) (*entity.BookRecord, error) { return nil, nil }

func (m *memoryBooks) ListByOwner(_ context.Context, owner string, p repository.Pagination) (*repository.PagedResult[*entity.BookRecord], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	var items []*entity.BookRecord
	for _, b := range m.books {
		if owner == "" || b.OwnerID == owner {
			items = append(items, b)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (m *memoryBooks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	return nil
}

func TestCachedBookRepository(t *testing.T) {
	client, _ := newTestClient(t)
	inner := &memoryBooks{books: map[string]*entity.BookRecord{}}
	repo := NewCachedBookRepository(inner, NewCache(client), time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.BookRecord{ID: "b1", OwnerID: "alice", Title: "Better Sleep"}))

	for i := 0; i < 3; i++ {
		got, err := repo.GetByID(ctx, "b1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Better Sleep", got.Title)
	}
	assert.Equal(t, 1, inner.reads)

	page, err := repo.ListByOwner(ctx, "alice", repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	require.NoError(t, repo.Update(ctx, &entity.BookRecord{ID: "b1", OwnerID: "alice", Title: "Sleep Better"}))
	got, err := repo.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Sleep Better", got.Title)

	require.NoError(t, repo.Delete(ctx, "b1"))
	got, err = repo.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, got)

	page, err = repo.ListByOwner(ctx, "alice", repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
