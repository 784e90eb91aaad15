package infra

import (
	"context"
	"strings"
	"testing"

	"github.com/phax/ph-commons-sub015/objectpool/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ExportsPoolSnapshots(t *testing.T) {
	a := newItemPool(t, 2, WithName("a"))
	b := newItemPool(t, 4, WithName("b"))
	_, ok := a.Borrow(context.Background())
	require.True(t, ok)

	c := NewCollector("objectpool", func() []domain.Snapshot {
		return []domain.Snapshot{a.Snapshot(), b.Snapshot()}
	}, nil)

	assert.Equal(t, 14, testutil.CollectAndCount(c))

	expected := `
# HELP objectpool_pool_borrowed Items currently borrowed
# TYPE objectpool_pool_borrowed gauge
objectpool_pool_borrowed{pool="a"} 1
objectpool_pool_borrowed{pool="b"} 0
# HELP objectpool_pool_capacity Fixed number of slots of the pool
# TYPE objectpool_pool_capacity gauge
objectpool_pool_capacity{pool="a"} 2
objectpool_pool_capacity{pool="b"} 4
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"objectpool_pool_borrowed", "objectpool_pool_capacity"))
}

func TestCollector_RecoversFromSourcePanic(t *testing.T) {
	c := NewCollector("objectpool", func() []domain.Snapshot { panic("boom") }, nil)
	assert.NotPanics(t, func() { testutil.CollectAndCount(c) })
}
