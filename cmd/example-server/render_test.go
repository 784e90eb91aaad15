package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phax/ph-commons-sub015/objectpool/application"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRenderer(t *testing.T, size int) (renderer, func() int) {
	t.Helper()
	pool, err := newBufferPool(size, zap.NewNop())
	require.NoError(t, err)
	return renderer{
		svc: application.BorrowService[*bytes.Buffer]{Pool: pool},
		log: zap.NewNop(),
	}, pool.Borrowed
}

func TestRenderer_ShowTela(t *testing.T) {
	rd, borrowed := newRenderer(t, 1)
	h := rd.handle("text/html; charset=utf-8", showTela)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/showTela", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Body.String(), "<h1>Tela do Sistema</h1>"), w.Body.String())
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	}
	assert.Equal(t, 0, borrowed())
}

func TestRenderer_BufferIsResetBetweenRequests(t *testing.T) {
	rd, _ := newRenderer(t, 1)
	h := rd.handle("text/plain", okPage)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "ok\n", w.Body.String())
	}
}

func TestRenderer_ErrorDoesNotWritePartialBody(t *testing.T) {
	rd, borrowed := newRenderer(t, 1)
	h := rd.handle("text/plain", func(b *bytes.Buffer, _ *http.Request) error {
		b.WriteString("half")
		return errors.New("template failed")
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "half")
	assert.Equal(t, 0, borrowed())
}

func TestRenderer_UnavailableWhenClientGone(t *testing.T) {
	rd, _ := newRenderer(t, 1)
	b, ok := rd.svc.Pool.TryBorrow()
	require.True(t, ok)
	defer rd.svc.Pool.Return(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := httptest.NewRecorder()
	rd.handle("text/plain", okPage).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// brokenWriter aceita o cabeçalho mas falha ao escrever o corpo.
type brokenWriter struct {
	header   http.Header
	statuses []int
}

func (w *brokenWriter) Header() http.Header       { return w.header }
func (w *brokenWriter) WriteHeader(status int)    { w.statuses = append(w.statuses, status) }
func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestRenderer_WriteFailureAfterHeaderSendsNoSecondStatus(t *testing.T) {
	rd, borrowed := newRenderer(t, 1)
	w := &brokenWriter{header: http.Header{}}

	rd.handle("text/plain", okPage).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []int{http.StatusOK}, w.statuses)
	assert.Equal(t, 0, borrowed())
}
