package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// FAQRepositoryInterface defines the repository interface for FAQ persistence
type FAQRepositoryInterface interface {
	Create(ctx context.Context, f *domain.FAQ, embedding []float32) error
	GetByID(ctx context.Context, id string) (*domain.FAQ, error)
	Delete(ctx context.Context, id string) (bool, error)
	SearchByEmbedding(ctx context.Context, embedding []float32, k int) ([]*SearchHit, error)
	Count(ctx context.Context) (int64, error)
	CountMissingEmbeddings(ctx context.Context) (int64, error)
}

// SearchHit is one ranked retrieval result. Similarity is 1 - Distance,
// with Distance the cosine distance of the stored vector to the query.
type SearchHit struct {
	ID         string
	Title      string
	Tags       []string
	Snippet    string
	Similarity float64
	Distance   float64
}

// StoreStats summarizes the knowledge store
type StoreStats struct {
	Count  int64
	Status string
}

// AddEntryInput represents the input for adding a knowledge entry
type AddEntryInput struct {
	ID    string
	Title string
	Body  string
	Tags  []string
}

// FAQStore handles knowledge entry persistence and retrieval. Embeddings
// are generated synchronously at write time, so the stored vector always
// matches the stored text.
type FAQStore struct {
	repo      FAQRepositoryInterface
	embedding EmbeddingClient
	uuidGen   UUIDGenerator

	// serializes delete-then-add per entry id
	locks sync.Map
}

// NewFAQStore creates a new FAQStore instance
func NewFAQStore(repo FAQRepositoryInterface, embedding EmbeddingClient) *FAQStore {
	return NewFAQStoreWithUUIDGen(repo, embedding, &DefaultUUIDGenerator{})
}

// NewFAQStoreWithUUIDGen creates a new FAQStore with custom UUID generator (for testing)
func NewFAQStoreWithUUIDGen(repo FAQRepositoryInterface, embedding EmbeddingClient, uuidGen UUIDGenerator) *FAQStore {
	return &FAQStore{
		repo:      repo,
		embedding: embedding,
		uuidGen:   uuidGen,
	}
}

func (s *FAQStore) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// AddEntry embeds and persists a new knowledge entry. The id is generated
// when absent; a duplicate id surfaces as a store error. Writes to a
// caller-supplied id hold that id's lock so they cannot interleave with a
// concurrent update or delete of the same entry.
func (s *FAQStore) AddEntry(ctx context.Context, input AddEntryInput) (*domain.FAQ, error) {
	ctx, span := telemetry.StartSpan(ctx, "FAQStore.AddEntry", telemetry.SpanAttributes{
		FAQID:     input.ID,
		Operation: "add",
	})
	defer span.End()

	if input.ID != "" {
		mu := s.lockFor(input.ID)
		mu.Lock()
		defer mu.Unlock()
	}

	return s.addEntry(ctx, input)
}

// addEntry does the embed-and-persist work. Callers writing to a fixed id
// hold that id's lock.
func (s *FAQStore) addEntry(ctx context.Context, input AddEntryInput) (*domain.FAQ, error) {
	now := time.Now().UTC()
	id := input.ID
	if id == "" {
		id = s.uuidGen.NewString()
	}

	entry := &domain.FAQ{
		ID:        id,
		Title:     input.Title,
		Body:      input.Body,
		Tags:      input.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry.BodyLength = len(entry.Body)

	if err := domain.ValidateFAQ(entry); err != nil {
		return nil, &domain.DomainError{Code: domain.ErrCodeValidation, Message: err.Error(), Err: err}
	}

	vector, err := s.embedding.GenerateEmbedding(ctx, entry.EmbeddingText())
	if err != nil {
		return nil, domain.NewStoreError(fmt.Sprintf("failed to embed entry %s", id), err)
	}

	if err := s.repo.Create(ctx, entry, vector); err != nil {
		if err == domain.ErrFAQAlreadyExists {
			return nil, err
		}
		return nil, domain.NewStoreError(fmt.Sprintf("failed to store entry %s", id), err)
	}

	return entry, nil
}

// UpdateEntry replaces an existing entry by deleting it and re-adding it
// with the same id, holding the entry's lock across both steps. If the
// re-add fails the entry stays absent; callers see the error and can retry.
func (s *FAQStore) UpdateEntry(ctx context.Context, id, title, body string, tags []string) (*domain.FAQ, error) {
	ctx, span := telemetry.StartSpan(ctx, "FAQStore.UpdateEntry", telemetry.SpanAttributes{
		FAQID:     id,
		Operation: "update",
	})
	defer span.End()

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, domain.NewStoreError(fmt.Sprintf("failed to replace entry %s", id), err)
	}
	if !existed {
		return nil, domain.ErrFAQNotFound
	}

	return s.addEntry(ctx, AddEntryInput{ID: id, Title: title, Body: body, Tags: tags})
}

// DeleteEntry removes an entry and reports whether it existed.
func (s *FAQStore) DeleteEntry(ctx context.Context, id string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "FAQStore.DeleteEntry", telemetry.SpanAttributes{
		FAQID:     id,
		Operation: "delete",
	})
	defer span.End()

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, domain.NewStoreError(fmt.Sprintf("failed to delete entry %s", id), err)
	}
	return existed, nil
}

// GetEntry retrieves an entry by id.
func (s *FAQStore) GetEntry(ctx context.Context, id string) (*domain.FAQ, error) {
	return s.repo.GetByID(ctx, id)
}

// Search embeds the query and returns the k nearest entries, closest first.
func (s *FAQStore) Search(ctx context.Context, query string, k int) ([]*SearchHit, error) {
	ctx, span := telemetry.StartSpan(ctx, "FAQStore.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	if query == "" {
		return nil, &domain.DomainError{Code: domain.ErrCodeValidation, Message: "search query is required"}
	}

	vector, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewStoreError("failed to embed search query", err)
	}

	hits, err := s.repo.SearchByEmbedding(ctx, vector, k)
	if err != nil {
		return nil, domain.NewStoreError("vector search failed", err)
	}
	return hits, nil
}

// Stats reports the entry count and a coarse store status.
func (s *FAQStore) Stats(ctx context.Context) (*StoreStats, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, domain.NewStoreError("failed to count entries", err)
	}
	status := "ready"
	if count == 0 {
		status = "empty"
	}
	return &StoreStats{Count: count, Status: status}, nil
}
