package registry

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrScopeDestroyed = errors.New("registry: scope destroyed")
	ErrTypeMismatch   = errors.New("registry: type mismatch")
)

// Hooks são chamados fora do lock do escopo. Qualquer um pode ser nil.
type Hooks struct {
	OnCreated       func(key string, v any)
	OnBeforeDestroy func(key string, v any)
	OnDestroyed     func(key string, v any)
}

// Destroyable é implementado por instâncias que precisam se desmontar;
// Destroy é chamado entre OnBeforeDestroy e OnDestroyed.
type Destroyable interface {
	Destroy()
}

// pending é uma criação em andamento; ready fecha quando ela termina.
type pending struct {
	ready chan struct{}
	val   any
	err   error
}

type Scope struct {
	name  string
	hooks Hooks
	log   *zap.Logger

	mu        sync.Mutex
	pending   map[string]*pending
	values    map[string]any
	order     []string
	children  []*Scope
	destroyed bool
}

type Option func(*Scope)

func WithLogger(log *zap.Logger) Option {
	return func(s *Scope) { s.log = log }
}

func NewScope(name string, hooks Hooks, opts ...Option) *Scope {
	s := &Scope{
		name:    name,
		hooks:   hooks,
		pending: make(map[string]*pending),
		values:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *Scope) Name() string { return s.name }

// Child cria um escopo aninhado com os mesmos hooks e logger, chamado "<pai>/<name>".
func (s *Scope) Child(name string) (*Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, fmt.Errorf("%w: %s", ErrScopeDestroyed, s.name)
	}
	c := NewScope(s.name+"/"+name, s.hooks, WithLogger(s.log))
	s.children = append(s.children, c)
	return c, nil
}

// Resolve devolve a instância de key, criando-a com create na primeira vez.
//
// Chamadas concorrentes para a mesma key esperam a primeira e recebem o mesmo
// resultado. Uma criação que falha não fica guardada: a próxima chamada tenta de novo.
func Resolve[V any](s *Scope, key string, create func() (V, error)) (V, error) {
	var zero V

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return zero, fmt.Errorf("%w: %s", ErrScopeDestroyed, s.name)
	}
	if v, ok := s.values[key]; ok {
		s.mu.Unlock()
		return cast[V](key, v)
	}
	if p, ok := s.pending[key]; ok {
		s.mu.Unlock()
		<-p.ready
		if p.err != nil {
			return zero, p.err
		}
		return cast[V](key, p.val)
	}
	p := &pending{ready: make(chan struct{})}
	s.pending[key] = p
	s.mu.Unlock()

	finished := false
	defer func() {
		if finished {
			return
		}
		// create panicou: libera quem espera e deixa a key livre
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		p.err = fmt.Errorf("registry: create of %q panicked", key)
		close(p.ready)
	}()

	v, err := create()
	finished = true

	s.mu.Lock()
	delete(s.pending, key)
	destroyed := s.destroyed
	if err == nil && !destroyed {
		s.values[key] = v
		s.order = append(s.order, key)
	}
	s.mu.Unlock()

	switch {
	case err != nil:
		p.err = fmt.Errorf("registry: create %q in %s: %w", key, s.name, err)
	case destroyed:
		// o escopo foi destruído enquanto criávamos
		s.destroyOne(key, v)
		p.err = fmt.Errorf("%w: %s", ErrScopeDestroyed, s.name)
	default:
		p.val = v
	}
	close(p.ready)

	if p.err != nil {
		return zero, p.err
	}
	s.log.Debug("registry instance created", zap.String("scope", s.name), zap.String("key", key))
	if s.hooks.OnCreated != nil {
		s.hooks.OnCreated(key, v)
	}
	return v, nil
}

func cast[V any](key string, v any) (V, error) {
	out, ok := v.(V)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: key %q holds %T, want %T", ErrTypeMismatch, key, v, zero)
	}
	return out, nil
}

// Lookup devolve a instância já criada de key, sem criar.
func (s *Scope) Lookup(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys retorna as chaves criadas, em ordem de criação.
func (s *Scope) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Each percorre as instâncias em ordem de criação, fora do lock.
func (s *Scope) Each(fn func(key string, v any)) {
	s.mu.Lock()
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	vals := make([]any, len(keys))
	for i, k := range keys {
		vals[i] = s.values[k]
	}
	s.mu.Unlock()

	for i, k := range keys {
		fn(k, vals[i])
	}
}

// Destroy desmonta os filhos (do último para o primeiro) e depois as próprias
// instâncias em ordem inversa de criação. Chamadas repetidas não fazem nada.
func (s *Scope) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	children := s.children
	keys := s.order
	values := s.values
	s.children = nil
	s.order = nil
	s.values = make(map[string]any)
	s.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Destroy()
	}
	for i := len(keys) - 1; i >= 0; i-- {
		s.destroyOne(keys[i], values[keys[i]])
	}
	s.log.Debug("registry scope destroyed", zap.String("scope", s.name), zap.Int("instances", len(keys)))
}

func (s *Scope) destroyOne(key string, v any) {
	if s.hooks.OnBeforeDestroy != nil {
		s.hooks.OnBeforeDestroy(key, v)
	}
	if d, ok := v.(Destroyable); ok {
		d.Destroy()
	}
	if s.hooks.OnDestroyed != nil {
		s.hooks.OnDestroyed(key, v)
	}
}
