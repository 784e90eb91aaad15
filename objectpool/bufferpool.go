package objectpool

import (
	"net/http/httputil"
	"sync"

	"github.com/phax/ph-commons-sub015/objectpool/domain"
	"github.com/phax/ph-commons-sub015/objectpool/infra"

	"go.uber.org/zap"
)

// Buffer embrulha um []byte para que ele possa morar no pool
// (slices não são comparable; ponteiros são).
type Buffer struct {
	B []byte
}

// NewBufferFactory cria buffers de size bytes. Um buffer com tamanho
// diferente (ex: alguém fez append) falha na ativação e é recriado.
func NewBufferFactory(size int) domain.Factory[*Buffer] {
	return infra.FactoryFuncs[*Buffer]{
		CreateFn:   func() *Buffer { return &Buffer{B: make([]byte, size)} },
		ActivateFn: func(b *Buffer) bool { return len(b.B) == size },
	}
}

// ProxyBufferPool implementa httputil.BufferPool em cima de um ObjectPool[*Buffer].
//
// Get não espera por buffer livre: sem slot disponível, devolve um slice
// transitório, que é descartado no Put. Quando o slot está vazio a fábrica
// roda, e uma fábrica com ThrottledFactory pode segurar Get até ter token.
type ProxyBufferPool struct {
	pool domain.ObjectPool[*Buffer]
	size int
	log  *zap.Logger

	mu  sync.Mutex
	out map[*byte]*Buffer
}

func NewProxyBufferPool(pool domain.ObjectPool[*Buffer], size int, log *zap.Logger) *ProxyBufferPool {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProxyBufferPool{
		pool: pool,
		size: size,
		log:  log,
		out:  make(map[*byte]*Buffer),
	}
}

func (p *ProxyBufferPool) Get() []byte {
	b, ok := p.pool.TryBorrow()
	if !ok || len(b.B) == 0 {
		if ok {
			p.pool.Return(b)
		}
		return make([]byte, p.size)
	}

	p.mu.Lock()
	p.out[&b.B[0]] = b
	p.mu.Unlock()
	return b.B
}

func (p *ProxyBufferPool) Put(buf []byte) {
	if len(buf) == 0 {
		return
	}

	p.mu.Lock()
	b, ok := p.out[&buf[0]]
	delete(p.out, &buf[0])
	p.mu.Unlock()

	if !ok {
		p.log.Debug("dropping transient proxy buffer", zap.Int("size", len(buf)))
		return
	}
	p.pool.Return(b)
}

// Outstanding retorna quantos buffers do pool estão com o proxy agora.
func (p *ProxyBufferPool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.out)
}

var _ httputil.BufferPool = (*ProxyBufferPool)(nil)
