package infra

import (
	"context"

	"github.com/phax/ph-commons-sub015/objectpool/domain"

	"golang.org/x/time/rate"
)

// ThrottledFactory limita a taxa de criação de itens caros (conexões, buffers
// grandes) com um token bucket (golang.org/x/time/rate).
//
// Create bloqueia até haver token. Activate/Passivate/Dispose só repassam.
// FixedPool chama Create fora do seu lock, então a espera segura só o
// chamador que está criando.
type ThrottledFactory[T any] struct {
	inner domain.Factory[T]
	lim   *rate.Limiter
}

// NewThrottledFactory aceita no máximo rps criações por segundo, com rajada burst.
// rps <= 0 desliga o limite.
func NewThrottledFactory[T any](inner domain.Factory[T], rps float64, burst int) *ThrottledFactory[T] {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledFactory[T]{
		inner: inner,
		lim:   rate.NewLimiter(limit, burst),
	}
}

func (f *ThrottledFactory[T]) RPS() float64 { return float64(f.lim.Limit()) }
func (f *ThrottledFactory[T]) Burst() int   { return f.lim.Burst() }

func (f *ThrottledFactory[T]) Create() T {
	// Wait só falha com ctx cancelado ou burst 0, nenhum dos dois acontece aqui.
	_ = f.lim.Wait(context.Background())
	return f.inner.Create()
}

func (f *ThrottledFactory[T]) Activate(item T) bool { return f.inner.Activate(item) }
func (f *ThrottledFactory[T]) Passivate(item T)     { f.inner.Passivate(item) }

func (f *ThrottledFactory[T]) Dispose(item T) {
	if d, ok := f.inner.(domain.Disposer[T]); ok {
		d.Dispose(item)
	}
}

var _ domain.Disposer[int] = (*ThrottledFactory[int])(nil)
