package infra

import "github.com/phax/ph-commons-sub015/objectpool/domain"

// SupplierFactory adapta um func() T para domain.Factory:
// Activate sempre retorna true e Passivate não faz nada.
type SupplierFactory[T any] func() T

func (f SupplierFactory[T]) Create() T       { return f() }
func (f SupplierFactory[T]) Activate(T) bool { return true }
func (f SupplierFactory[T]) Passivate(T)     {}

// FactoryFuncs monta uma fábrica a partir de funções soltas.
// ActivateFn nil significa "sempre ativa"; PassivateFn e DisposeFn nil não fazem nada.
type FactoryFuncs[T any] struct {
	CreateFn    func() T
	ActivateFn  func(T) bool
	PassivateFn func(T)
	DisposeFn   func(T)
}

func (f FactoryFuncs[T]) Create() T { return f.CreateFn() }

func (f FactoryFuncs[T]) Activate(item T) bool {
	if f.ActivateFn == nil {
		return true
	}
	return f.ActivateFn(item)
}

func (f FactoryFuncs[T]) Passivate(item T) {
	if f.PassivateFn != nil {
		f.PassivateFn(item)
	}
}

func (f FactoryFuncs[T]) Dispose(item T) {
	if f.DisposeFn != nil {
		f.DisposeFn(item)
	}
}

var (
	_ domain.Factory[int]  = SupplierFactory[int](nil)
	_ domain.Factory[int]  = FactoryFuncs[int]{}
	_ domain.Disposer[int] = FactoryFuncs[int]{}
)
