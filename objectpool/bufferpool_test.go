package objectpool

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"net/url"
	"strings"
	"testing"

	"github.com/phax/ph-commons-sub015/objectpool/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferPool(t *testing.T, n, size int) (*infra.FixedPool[*Buffer], *ProxyBufferPool) {
	t.Helper()
	pool, err := infra.New(n, NewBufferFactory(size), infra.WithName("proxy-buffers"))
	require.NoError(t, err)
	return pool, NewProxyBufferPool(pool, size, nil)
}

func TestProxyBufferPool_ReusesBuffers(t *testing.T) {
	pool, bp := newBufferPool(t, 1, 64)

	b1 := bp.Get()
	require.Len(t, b1, 64)
	assert.Equal(t, 1, pool.Borrowed())
	assert.Equal(t, 1, bp.Outstanding())
	bp.Put(b1)
	assert.Equal(t, 0, pool.Borrowed())

	b2 := bp.Get()
	assert.Same(t, &b1[0], &b2[0])
	bp.Put(b2)
	assert.EqualValues(t, 1, pool.Snapshot().Created)
}

func TestProxyBufferPool_TransientWhenExhausted(t *testing.T) {
	pool, bp := newBufferPool(t, 1, 32)

	held := bp.Get()
	extra := bp.Get()
	require.Len(t, extra, 32)
	assert.NotSame(t, &held[0], &extra[0])
	assert.Equal(t, 1, bp.Outstanding())

	bp.Put(extra)
	assert.Equal(t, 1, pool.Borrowed(), "transient buffer must not release a pooled one")
	assert.EqualValues(t, 0, pool.Snapshot().ReturnRejected)

	bp.Put(held)
	assert.Equal(t, 0, pool.Borrowed())
	bp.Put(nil)
}

func TestProxyBufferPool_ResizedBufferIsReplaced(t *testing.T) {
	pool, bp := newBufferPool(t, 1, 16)

	b := bp.Get()
	bp.Put(b)

	// alguém encolheu o buffer cacheado
	cached, ok := pool.TryBorrow()
	require.True(t, ok)
	cached.B = cached.B[:4]
	require.True(t, pool.Return(cached))

	again := bp.Get()
	assert.Len(t, again, 16)
	bp.Put(again)

	snap := pool.Snapshot()
	assert.EqualValues(t, 2, snap.Created)
	assert.EqualValues(t, 1, snap.ActivationFailures)
}

func TestProxyBufferPool_WithReverseProxy(t *testing.T) {
	body := strings.Repeat("pool", 1024)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	}))
	defer upstream.Close()

	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	pool, bp := newBufferPool(t, 2, 512)
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.BufferPool = bp

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		proxy.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://gateway/", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, w.Body.String())
	}

	assert.Equal(t, 0, pool.Borrowed())
	assert.Equal(t, 0, bp.Outstanding())
	assert.EqualValues(t, 1, pool.Snapshot().Created)
}
