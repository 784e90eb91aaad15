package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/phax/ph-commons-sub015/objectpool/domain"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// slot é uma das N posições fixas do pool.
// item == zero significa slot vazio (nunca populado ou limpo por ClearUnused).
// pending == true: o slot está entre reserve e commit (ou entre claim e release);
// ninguém mais pode devolvê-lo nesse intervalo.
type slot[T comparable] struct {
	item    T
	used    bool
	pending bool
}

// FixedPool é um pool de objetos de capacidade fixa.
//
// As vagas são controladas por um semáforo de N permissões; os slots só são
// lidos/alterados com mu travado. Permissões livres == slots com used == false
// sempre que ninguém está no meio de um Borrow/Return. A fábrica nunca roda
// com mu travado.
//
// T precisa ser comparable porque a devolução procura o slot com ==.
// Para ponteiros isso é identidade. Para tipos de valor (int, string, structs)
// é igualdade de valor: se a fábrica produzir valores iguais, Return libera o
// primeiro slot emprestado que guarda um valor igual, não necessariamente o
// do chamador. Use ponteiros quando a identidade importar.
type FixedPool[T comparable] struct {
	name     string
	factory  domain.Factory[T]
	disposer domain.Disposer[T]
	log      *zap.Logger
	stats    domain.StatsStore

	sem   *semaphore.Weighted
	mu    sync.Mutex
	slots []slot[T]

	borrowed           atomic.Int64
	created            atomic.Int64
	activated          atomic.Int64
	activationFailures atomic.Int64
	returned           atomic.Int64
	returnRejected     atomic.Int64
	borrowAborted      atomic.Int64
	discarded          atomic.Int64
}

type poolOptions struct {
	name  string
	log   *zap.Logger
	stats domain.StatsStore
}

type PoolOption func(*poolOptions)

func WithName(name string) PoolOption {
	return func(o *poolOptions) { o.name = name }
}

func WithLogger(log *zap.Logger) PoolOption {
	return func(o *poolOptions) { o.log = log }
}

// WithStats registra os eventos do pool em store (best-effort).
func WithStats(store domain.StatsStore) PoolOption {
	return func(o *poolOptions) { o.stats = store }
}

// New cria um pool com capacity slots, todos vazios.
// Os itens são criados sob demanda no primeiro empréstimo que alcança o slot.
func New[T comparable](capacity int, factory domain.Factory[T], opts ...PoolOption) (*FixedPool[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be >= 1, got %d", domain.ErrInvalidArgument, capacity)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: factory is required", domain.ErrInvalidArgument)
	}

	o := poolOptions{name: "pool"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	p := &FixedPool[T]{
		name:    o.name,
		factory: factory,
		log:     o.log,
		stats:   o.stats,
		sem:     semaphore.NewWeighted(int64(capacity)),
		slots:   make([]slot[T], capacity),
	}
	if d, ok := factory.(domain.Disposer[T]); ok {
		p.disposer = d
	}
	return p, nil
}

// NewFromSupplier cria um pool a partir de um simples supplier:
// ativação sempre dá certo e a passivação não faz nada.
func NewFromSupplier[T comparable](capacity int, supplier func() T, opts ...PoolOption) (*FixedPool[T], error) {
	if supplier == nil {
		return nil, fmt.Errorf("%w: supplier is required", domain.ErrInvalidArgument)
	}
	return New[T](capacity, SupplierFactory[T](supplier), opts...)
}

func (p *FixedPool[T]) Name() string { return p.name }

// Size retorna a capacidade fixa do pool.
func (p *FixedPool[T]) Size() int { return len(p.slots) }

// Borrowed retorna quantos itens estão emprestados agora.
func (p *FixedPool[T]) Borrowed() int { return int(p.borrowed.Load()) }

// Borrow espera por uma vaga e devolve um item ativado.
//
// Se o ctx encerrar durante a espera, retorna (zero, false) sem alterar o
// estado do pool; o ctx continua cancelado para quem estiver acima.
// Panics com domain.ErrIllegalState se a fábrica quebrar o contrato.
func (p *FixedPool[T]) Borrow(ctx context.Context) (T, bool) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		var zero T
		p.borrowAborted.Inc()
		p.log.Debug("borrow aborted while waiting for a permit",
			zap.String("pool", p.name), zap.Error(err))
		p.emit(context.WithoutCancel(ctx), domain.EventBorrowAborted)
		return zero, false
	}
	return p.take(ctx), true
}

// BorrowTimeout é Borrow com espera máxima d. Timeout se comporta como cancelamento.
func (p *FixedPool[T]) BorrowTimeout(ctx context.Context, d time.Duration) (T, bool) {
	if d <= 0 {
		return p.Borrow(ctx)
	}
	acqCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return p.Borrow(acqCtx)
}

// TryBorrow só empresta se houver vaga imediatamente.
func (p *FixedPool[T]) TryBorrow() (T, bool) {
	if !p.sem.TryAcquire(1) {
		var zero T
		return zero, false
	}
	return p.take(context.Background()), true
}

// take assume que uma permissão já foi adquirida.
//
// O slot é reservado com mu travado e a fábrica roda fora do lock, então
// Return, ClearUnused e Snapshot nunca esperam por Create/Activate.
// Se a fábrica panicar, o slot reservado é esvaziado e a permissão devolvida.
func (p *FixedPool[T]) take(ctx context.Context) T {
	idx := -1
	done := false
	defer func() {
		if done {
			return
		}
		if idx >= 0 {
			p.abandon(idx)
		}
		p.sem.Release(1)
	}()

	idx, cached := p.reserve()
	item, events := p.prepare(idx, cached)
	p.commit(idx, item)
	done = true

	p.emit(ctx, events...)
	return item
}

// reserve marca como usado o primeiro slot livre (em ordem crescente).
func (p *FixedPool[T]) reserve() (int, T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		s := &p.slots[i]
		if s.used {
			continue
		}
		s.used = true
		s.pending = true
		return i, s.item
	}
	panic(fmt.Errorf("%w: pool %q holds a permit but found no free slot", domain.ErrIllegalState, p.name))
}

// prepare roda sem lock: cria, ativa ou substitui o item do slot reservado.
func (p *FixedPool[T]) prepare(idx int, cached T) (T, []domain.EventKind) {
	var zero T
	events := make([]domain.EventKind, 0, 4)

	switch {
	case cached == zero:
		events = append(events, domain.EventCreated)
		return p.create(), append(events, domain.EventBorrowed)
	case p.factory.Activate(cached):
		p.activated.Inc()
		return cached, append(events, domain.EventBorrowed)
	}

	p.activationFailures.Inc()
	p.log.Debug("activation failed, replacing cached item",
		zap.String("pool", p.name), zap.Int("slot", idx))
	item := p.create()
	p.dispose(cached)
	return item, append(events,
		domain.EventActivationFailed, domain.EventDiscarded, domain.EventCreated, domain.EventBorrowed)
}

func (p *FixedPool[T]) commit(idx int, item T) {
	p.mu.Lock()
	s := &p.slots[idx]
	s.item = item
	s.pending = false
	p.borrowed.Inc()
	p.mu.Unlock()
}

// abandon libera um slot reservado cujo empréstimo panicou. O item antigo é
// esquecido: não dá para confiar num item cuja ativação explodiu.
func (p *FixedPool[T]) abandon(idx int) {
	var zero T
	p.mu.Lock()
	s := &p.slots[idx]
	s.item = zero
	s.used = false
	s.pending = false
	p.mu.Unlock()
}

func (p *FixedPool[T]) create() T {
	var zero T
	item := p.factory.Create()
	if item == zero {
		panic(fmt.Errorf("%w: factory of pool %q created a zero value", domain.ErrIllegalState, p.name))
	}
	p.created.Inc()
	return item
}

func (p *FixedPool[T]) dispose(item T) {
	p.discarded.Inc()
	if p.disposer != nil {
		p.disposer.Dispose(item)
	}
}

// Return devolve um item emprestado.
//
// Devolução dupla ou de objeto que não saiu deste pool retorna false e não
// altera nada (nenhuma permissão é liberada).
// Se Passivate panicar, o item é descartado e a vaga liberada mesmo assim.
func (p *FixedPool[T]) Return(item T) bool {
	idx, ok := p.claim(item)
	if !ok {
		p.returnRejected.Inc()
		p.log.Debug("return rejected: item is not borrowed from this pool", zap.String("pool", p.name))
		p.emit(context.Background(), domain.EventReturnRejected)
		return false
	}

	passivated := false
	func() {
		defer func() { p.release(idx, passivated) }()
		p.factory.Passivate(item)
		passivated = true
	}()

	p.returned.Inc()
	p.emit(context.Background(), domain.EventReturned)
	return true
}

// claim acha o slot emprestado que guarda item e o marca como em devolução.
func (p *FixedPool[T]) claim(item T) (int, bool) {
	var zero T
	if item == zero {
		return -1, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		s := &p.slots[i]
		if !s.used || s.pending || s.item != item {
			continue
		}
		s.pending = true
		return i, true
	}
	return -1, false
}

func (p *FixedPool[T]) release(idx int, keep bool) {
	var zero T
	p.mu.Lock()
	s := &p.slots[idx]
	if !keep {
		s.item = zero
	}
	s.used = false
	s.pending = false
	p.borrowed.Dec()
	p.mu.Unlock()
	p.sem.Release(1)
}

// ClearUnused esvazia os slots livres sem passivar os itens.
// Slots emprestados não são tocados; Dispose roda fora do lock.
func (p *FixedPool[T]) ClearUnused() {
	var zero T
	var cleared []T

	p.mu.Lock()
	for i := range p.slots {
		s := &p.slots[i]
		if s.used || s.item == zero {
			continue
		}
		cleared = append(cleared, s.item)
		s.item = zero
	}
	p.mu.Unlock()

	if len(cleared) == 0 {
		return
	}
	p.log.Debug("cleared unused items", zap.String("pool", p.name), zap.Int("count", len(cleared)))
	events := make([]domain.EventKind, len(cleared))
	for i := range events {
		events[i] = domain.EventDiscarded
	}
	defer p.emit(context.Background(), events...)
	for _, item := range cleared {
		p.dispose(item)
	}
}

func (p *FixedPool[T]) Snapshot() domain.Snapshot {
	var zero T
	cached := 0

	p.mu.Lock()
	for i := range p.slots {
		if p.slots[i].item != zero {
			cached++
		}
	}
	p.mu.Unlock()

	return domain.Snapshot{
		Name:               p.name,
		Capacity:           len(p.slots),
		Borrowed:           p.Borrowed(),
		Cached:             cached,
		Created:            p.created.Load(),
		Activated:          p.activated.Load(),
		ActivationFailures: p.activationFailures.Load(),
		Returned:           p.returned.Load(),
		ReturnRejected:     p.returnRejected.Load(),
		BorrowAborted:      p.borrowAborted.Load(),
		Discarded:          p.discarded.Load(),
	}
}

func (p *FixedPool[T]) emit(ctx context.Context, kinds ...domain.EventKind) {
	if p.stats == nil || len(kinds) == 0 {
		return
	}
	at := time.Now()
	for _, kind := range kinds {
		err := p.stats.Record(ctx, domain.StatsEvent{Pool: p.name, Kind: kind, At: at})
		if err != nil {
			p.log.Debug("stats record failed", zap.String("pool", p.name),
				zap.String("kind", string(kind)), zap.Error(err))
		}
	}
}

var (
	_ domain.ObjectPool[*struct{}] = (*FixedPool[*struct{}])(nil)
	_ domain.Inspectable           = (*FixedPool[*struct{}])(nil)
)
