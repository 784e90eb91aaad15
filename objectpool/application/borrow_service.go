package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/phax/ph-commons-sub015/objectpool/domain"

	"go.uber.org/zap"
)

// BorrowService concentra a regra de empréstimo/devolução com timeout,
// sem saber nada sobre HTTP.
type BorrowService[T any] struct {
	Pool           domain.ObjectPool[T]
	AcquireTimeout time.Duration
	Log            *zap.Logger
}

// Borrow tenta emprestar um item.
// - Se `AcquireTimeout <= 0`, espera indefinidamente (até ctx cancelar).
// - Se `AcquireTimeout > 0`, espera até o timeout.
// Retorna (item, release, ok). Se ok=false, nada foi emprestado e release não faz nada.
// release nunca é nil e pode ser chamado mais de uma vez; só a primeira devolve o item.
func (s BorrowService[T]) Borrow(ctx context.Context) (T, func(), bool) {
	var zero T
	if s.Pool == nil {
		return zero, func() {}, false
	}

	item, ok := s.Pool.BorrowTimeout(ctx, s.AcquireTimeout)
	if !ok {
		return zero, func() {}, false
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if !s.Pool.Return(item) {
				s.logger().Warn("borrowed item was rejected on return")
			}
		})
	}
	return item, release, true
}

// Do empresta um item, executa fn e devolve o item mesmo se fn falhar ou panicar.
// Se não conseguir emprestar, retorna erro com domain.ErrCancelled (e ctx.Err(), se houver).
func (s BorrowService[T]) Do(ctx context.Context, fn func(T) error) error {
	if s.Pool == nil {
		return fmt.Errorf("%w: no pool configured", domain.ErrInvalidArgument)
	}

	item, release, ok := s.Borrow(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return errors.Join(domain.ErrCancelled, err)
		}
		return fmt.Errorf("%w: timed out after %s", domain.ErrCancelled, s.AcquireTimeout)
	}
	defer release()

	return fn(item)
}

func (s BorrowService[T]) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
