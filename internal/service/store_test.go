package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFAQRepository is a mock implementation of FAQRepositoryInterface
type MockFAQRepository struct {
	mock.Mock
}

func (m *MockFAQRepository) Create(ctx context.Context, f *domain.FAQ, embedding []float32) error {
	args := m.Called(ctx, f, embedding)
	return args.Error(0)
}

func (m *MockFAQRepository) GetByID(ctx context.Context, id string) (*domain.FAQ, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FAQ), args.Error(1)
}

func (m *MockFAQRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockFAQRepository) SearchByEmbedding(ctx context.Context, embedding []float32, k int) ([]*SearchHit, error) {
	args := m.Called(ctx, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SearchHit), args.Error(1)
}

func (m *MockFAQRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFAQRepository) CountMissingEmbeddings(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	mock.Mock
}

func (m *MockUUIDGenerator) NewString() string {
	args := m.Called()
	return args.String(0)
}

func TestFAQStore_AddEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("generates id when absent", func(t *testing.T) {
		repo := new(MockFAQRepository)
		embedder := new(MockEmbeddingClient)
		uuidGen := new(MockUUIDGenerator)
		store := NewFAQStoreWithUUIDGen(repo, embedder, uuidGen)

		uuidGen.On("NewString").Return("generated-id")
		embedder.On("GenerateEmbedding", ctx, "Reset your password\nUse the self-service portal.").
			Return([]float32{0.1, 0.2}, nil)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.FAQ"), []float32{0.1, 0.2}).Return(nil)

		entry, err := store.AddEntry(ctx, AddEntryInput{
			Title: "Reset your password",
			Body:  "Use the self-service portal.",
			Tags:  []string{"accounts"},
		})

		require.NoError(t, err)
		assert.Equal(t, "generated-id", entry.ID)
		assert.Equal(t, "Reset your password", entry.Title)
		repo.AssertExpectations(t)
		embedder.AssertExpectations(t)
	})

	t.Run("keeps caller-supplied id", func(t *testing.T) {
		repo := new(MockFAQRepository)
		embedder := new(MockEmbeddingClient)
		store := NewFAQStore(repo, embedder)

		embedder.On("GenerateEmbedding", ctx, mock.Anything).Return([]float32{0.5}, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(f *domain.FAQ) bool {
			return f.ID == "faq-1"
		}), []float32{0.5}).Return(nil)

		entry, err := store.AddEntry(ctx, AddEntryInput{
			ID:    "faq-1",
			Title: "VPN setup",
			Body:  "Install the client from the software center.",
		})

		require.NoError(t, err)
		assert.Equal(t, "faq-1", entry.ID)
	})

	t.Run("rejects invalid input before embedding", func(t *testing.T) {
		repo := new(MockFAQRepository)
		embedder := new(MockEmbeddingClient)
		store := NewFAQStore(repo, embedder)

		_, err := store.AddEntry(ctx, AddEntryInput{Title: "", Body: "no title"})

		require.Error(t, err)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
		embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("propagates duplicate id", func(t *testing.T) {
		repo := new(MockFAQRepository)
		embedder := new(MockEmbeddingClient)
		store := NewFAQStore(repo, embedder)

		embedder.On("GenerateEmbedding", ctx, mock.Anything).Return([]float32{0.5}, nil)
		repo.On("Create", ctx, mock.Anything, mock.Anything).Return(domain.ErrFAQAlreadyExists)

		_, err := store.AddEntry(ctx, AddEntryInput{ID: "faq-1", Title: "t", Body: "b"})

		assert.ErrorIs(t, err, domain.ErrFAQAlreadyExists)
	})

	t.Run("wraps embedding failure as store error", func(t *testing.T) {
		repo := new(MockFAQRepository)
		embedder := new(MockEmbeddingClient)
		store := NewFAQStore(repo, embedder)

		embedder.On("GenerateEmbedding", ctx, mock.Anything).Return(nil, errors.New("rate limited"))

		_, err := store.AddEntry(ctx, AddEntryInput{ID: "faq-1", Title: "t", Body: "b"})

		require.Error(t, err)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeStore, domainErr.Code)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFAQStore_UpdateEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("re-embeds and re-creates under the same id", func(t *testing.T) {
		repo := new(MockFAQRepository)
		embedder := new(MockEmbeddingClient)
		store := NewFAQStore(repo, embedder)

		repo.On("Delete", ctx, "faq-1").Return(true, nil)
		embedder.On("GenerateEmbedding", ctx, "New title\nNew body").Return([]float32{0.9}, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(f *domain.FAQ) bool {
			return f.ID == "faq-1" && f.Title == "New title"
		}), []float32{0.9}).Return(nil)

		entry, err := store.UpdateEntry(ctx, "faq-1", "New title", "New body", nil)

		require.NoError(t, err)
		assert.Equal(t, "faq-1", entry.ID)
		repo.AssertExpectations(t)
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		repo := new(MockFAQRepository)
		embedder := new(MockEmbeddingClient)
		store := NewFAQStore(repo, embedder)

		repo.On("Delete", ctx, "missing").Return(false, nil)

		_, err := store.UpdateEntry(ctx, "missing", "t", "b", nil)

		assert.ErrorIs(t, err, domain.ErrFAQNotFound)
		embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	})
}

func TestFAQStore_AddEntry_WaitsForInFlightUpdate(t *testing.T) {
	repo := new(MockFAQRepository)
	embedder := new(MockEmbeddingClient)
	store := NewFAQStore(repo, embedder)

	deleteStarted := make(chan struct{})
	releaseDelete := make(chan struct{})
	repo.On("Delete", mock.Anything, "faq-1").Run(func(mock.Arguments) {
		close(deleteStarted)
		<-releaseDelete
	}).Return(true, nil).Once()
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)
	repo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	updateDone := make(chan struct{})
	go func() {
		defer close(updateDone)
		_, err := store.UpdateEntry(context.Background(), "faq-1", "New title", "New body", nil)
		assert.NoError(t, err)
	}()

	<-deleteStarted

	// A write to the same id must queue behind the update's lock, not
	// land between its delete and re-add.
	addDone := make(chan struct{})
	go func() {
		defer close(addDone)
		_, err := store.AddEntry(context.Background(), AddEntryInput{ID: "faq-1", Title: "t", Body: "b"})
		assert.NoError(t, err)
	}()

	select {
	case <-addDone:
		t.Fatal("AddEntry completed while UpdateEntry held the entry lock")
	case <-time.After(100 * time.Millisecond):
	}

	close(releaseDelete)

	for _, done := range []chan struct{}{updateDone, addDone} {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("write did not finish after the update released the lock")
		}
	}
	repo.AssertExpectations(t)
}

func TestFAQStore_DeleteEntry(t *testing.T) {
	ctx := context.Background()
	repo := new(MockFAQRepository)
	embedder := new(MockEmbeddingClient)
	store := NewFAQStore(repo, embedder)

	repo.On("Delete", ctx, "faq-1").Return(true, nil)
	repo.On("Delete", ctx, "missing").Return(false, nil)

	existed, err := store.DeleteEntry(ctx, "faq-1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = store.DeleteEntry(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestFAQStore_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty query", func(t *testing.T) {
		store := NewFAQStore(new(MockFAQRepository), new(MockEmbeddingClient))

		_, err := store.Search(ctx, "", 5)

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	})

	t.Run("returns ranked hits", func(t *testing.T) {
		repo := new(MockFAQRepository)
		embedder := new(MockEmbeddingClient)
		store := NewFAQStore(repo, embedder)

		hits := []*SearchHit{
			{ID: "a", Title: "VPN setup", Distance: 0.1, Similarity: 0.9},
			{ID: "b", Title: "VPN troubleshooting", Distance: 0.3, Similarity: 0.7},
		}
		embedder.On("GenerateEmbedding", ctx, "vpn not connecting").Return([]float32{0.2}, nil)
		repo.On("SearchByEmbedding", ctx, []float32{0.2}, 5).Return(hits, nil)

		got, err := store.Search(ctx, "vpn not connecting", 5)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].ID)
	})
}

func TestFAQStore_Stats(t *testing.T) {
	ctx := context.Background()

	t.Run("ready when populated", func(t *testing.T) {
		repo := new(MockFAQRepository)
		store := NewFAQStore(repo, new(MockEmbeddingClient))
		repo.On("Count", ctx).Return(int64(42), nil)

		stats, err := store.Stats(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(42), stats.Count)
		assert.Equal(t, "ready", stats.Status)
	})

	t.Run("empty when no entries", func(t *testing.T) {
		repo := new(MockFAQRepository)
		store := NewFAQStore(repo, new(MockEmbeddingClient))
		repo.On("Count", ctx).Return(int64(0), nil)

		stats, err := store.Stats(ctx)

		require.NoError(t, err)
		assert.Equal(t, "empty", stats.Status)
	})
}
