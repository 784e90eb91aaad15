package infra

import (
	"context"
	"testing"

	"github.com/phax/ph-commons-sub015/objectpool/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStatsStore_CountsTotals(t *testing.T) {
	s := NewMemoryStatsStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Pool: "a", Kind: domain.EventBorrowed}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Pool: "b", Kind: domain.EventBorrowed}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Pool: "a", Kind: domain.EventReturned}))

	total := s.Total()
	assert.EqualValues(t, 2, total[domain.EventBorrowed])
	assert.EqualValues(t, 1, total[domain.EventReturned])
	assert.Empty(t, s.ByPool(), "pools are not tracked by default")
}

func TestMemoryStatsStore_TrackPools(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackPools(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Pool: "a", Kind: domain.EventCreated})
	_ = s.Record(ctx, domain.StatsEvent{Pool: "a", Kind: domain.EventCreated})
	_ = s.Record(ctx, domain.StatsEvent{Kind: domain.EventCreated})

	byPool := s.ByPool()
	require.Len(t, byPool, 1)
	assert.EqualValues(t, 2, byPool["a"][domain.EventCreated])
	assert.EqualValues(t, 3, s.Total()[domain.EventCreated])
}

func TestMemoryStatsStore_SnapshotsAreCopies(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackPools(true))
	_ = s.Record(context.Background(), domain.StatsEvent{Pool: "a", Kind: domain.EventBorrowed})

	total := s.Total()
	total[domain.EventBorrowed] = 100
	s.ByPool()["a"][domain.EventBorrowed] = 100

	assert.EqualValues(t, 1, s.Total()[domain.EventBorrowed])
	assert.EqualValues(t, 1, s.ByPool()["a"][domain.EventBorrowed])
}
