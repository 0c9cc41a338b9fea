//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueryLog(question string, createdAt time.Time) *domain.QueryLog {
	return &domain.QueryLog{
		ID:             uuid.NewString(),
		Question:       question,
		Answer:         "answer",
		RetrievedIDs:   []string{"faq-1", "faq-2"},
		Confidence:     domain.ConfidenceHigh,
		TopDistance:    0.12,
		MeanDistance:   0.20,
		LatencyMs:      640,
		FeedbackStatus: domain.FeedbackStatusPending,
		CreatedAt:      createdAt,
	}
}

func TestQueryLogRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQueryLogRepository(pool)

	entry := newTestQueryLog("vpn down", time.Now().UTC().Truncate(time.Microsecond))
	entry.SessionID = uuid.NewString()
	require.NoError(t, repo.Create(ctx, entry))

	retrieved, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Question, retrieved.Question)
	assert.Equal(t, entry.RetrievedIDs, retrieved.RetrievedIDs)
	assert.Equal(t, domain.ConfidenceHigh, retrieved.Confidence)
	assert.Equal(t, domain.FeedbackStatusPending, retrieved.FeedbackStatus)
	assert.Equal(t, entry.SessionID, retrieved.SessionID)
	assert.InDelta(t, entry.TopDistance, retrieved.TopDistance, 1e-9)
}

func TestQueryLogRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQueryLogRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrQueryLogNotFound)
}

func TestQueryLogRepository_UpdateFeedbackStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQueryLogRepository(pool)

	entry := newTestQueryLog("printer offline", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, entry))

	require.NoError(t, repo.UpdateFeedbackStatus(ctx, entry.ID, domain.FeedbackStatusPendingReview))

	retrieved, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusPendingReview, retrieved.FeedbackStatus)

	err = repo.UpdateFeedbackStatus(ctx, uuid.NewString(), domain.FeedbackStatusReviewed)
	assert.ErrorIs(t, err, domain.ErrQueryLogNotFound)
}

func TestQueryLogRepository_ListRecent_Pagination(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQueryLogRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := newTestQueryLog(fmt.Sprintf("question %d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, entry))
	}

	first, cursor, err := repo.ListRecent(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, "question 4", first[0].Question)
	assert.Equal(t, "question 3", first[1].Question)

	second, cursor, err := repo.ListRecent(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, "question 2", second[0].Question)

	third, cursor, err := repo.ListRecent(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "question 0", third[0].Question)
	assert.Nil(t, cursor, "exhausted pages carry no cursor")
}

func TestQueryLogRepository_Analytics(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQueryLogRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	high := newTestQueryLog("q1", now)
	require.NoError(t, repo.Create(ctx, high))

	low := newTestQueryLog("q2", now)
	low.Confidence = domain.ConfidenceLow
	low.RetrievedIDs = []string{}
	low.TopDistance = 1.0
	low.GenerationDegraded = true
	require.NoError(t, repo.Create(ctx, low))

	a, err := repo.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.TotalQueries)
	assert.Equal(t, int64(1), a.ByConfidence.High)
	assert.Equal(t, int64(1), a.ByConfidence.Low)
	assert.Equal(t, int64(2), a.ByFeedbackStatus.Pending)
	assert.Equal(t, int64(1), a.DegradedCount)
	// only the entry with retrieved ids contributes to the average
	assert.InDelta(t, 1-high.TopDistance, a.AverageTopSimilarity, 1e-9)
}
