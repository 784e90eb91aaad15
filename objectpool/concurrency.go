package objectpool

import (
	"net/http"
	"time"

	"github.com/phax/ph-commons-sub015/objectpool/application"
	"github.com/phax/ph-commons-sub015/objectpool/domain"
	"github.com/phax/ph-commons-sub015/objectpool/infra"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ConcurrencyOptions configura o limite de requisições simultâneas: cada
// requisição em andamento segura um Token emprestado do Pool.
// Se Pool for nil, um pool de Max tokens é criado; Max <= 0 desliga o limite.
type ConcurrencyOptions struct {
	Pool           domain.ObjectPool[*Token]
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	RetryAfter     time.Duration
	Log            *zap.Logger
}

// Token é o item do pool de vagas: só a identidade importa.
// O campo existe para que dois tokens nunca tenham o mesmo endereço.
type Token struct{ n int64 }

// NewTokenPool cria o pool de vagas usado pelo middleware quando nenhum é informado.
func NewTokenPool(max int, opts ...infra.PoolOption) (*infra.FixedPool[*Token], error) {
	var n atomic.Int64
	return infra.NewFromSupplier(max, func() *Token { return &Token{n: n.Inc()} }, opts...)
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Pool == nil {
		if opts.Max <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		pool, err := NewTokenPool(opts.Max, infra.WithName("concurrency"), infra.WithLogger(opts.Log))
		if err != nil {
			// Max > 0 aqui, então não acontece
			panic(err)
		}
		opts.Pool = pool
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}

	svc := application.BorrowService[*Token]{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
		Log:            opts.Log,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, release, ok := svc.Borrow(r.Context())
			if !ok {
				opts.Log.Debug("no concurrency slot available",
					zap.String("method", r.Method), zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", retryAfterSeconds(opts.RetryAfter))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
