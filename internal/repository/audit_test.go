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

func TestAuditRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAuditRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := domain.NewAuditEntry(
			uuid.NewString(),
			domain.AuditOperationAdd,
			fmt.Sprintf("faq-%d", i),
			"alice",
			fmt.Sprintf("added entry %d", i),
			base.Add(time.Duration(i)*time.Minute),
		)
		require.NoError(t, repo.Create(ctx, entry))
	}

	first, cursor, err := repo.ListRecent(ctx, nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, cursor)
	assert.Equal(t, "faq-4", first[0].FAQID, "newest first")
	assert.Equal(t, domain.AuditOperationAdd, first[0].Operation)
	assert.Equal(t, "alice", first[0].Actor)

	second, cursor, err := repo.ListRecent(ctx, cursor, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "faq-1", second[0].FAQID)
	assert.Equal(t, "faq-0", second[1].FAQID)
	assert.Nil(t, cursor)
}

func TestStateRepository_ChangeCounter(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewStateRepository(pool)

	counter, ackAt, err := repo.GetChangeCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counter)
	assert.Nil(t, ackAt)

	for i := int64(1); i <= 3; i++ {
		got, err := repo.IncrementChangeCounter(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}

	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Acknowledge(ctx, at))

	counter, ackAt, err = repo.GetChangeCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counter, "acknowledge is the only reset")
	require.NotNil(t, ackAt)
	assert.True(t, ackAt.Equal(at))
}
