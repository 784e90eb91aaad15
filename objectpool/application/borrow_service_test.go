package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phax/ph-commons-sub015/objectpool/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePool empresta sempre o mesmo item, a menos que blocked seja true.
type fakePool struct {
	blocked  bool
	borrows  int
	returns  int
	lastWait time.Duration
}

func (p *fakePool) Borrow(ctx context.Context) (*int, bool) {
	return p.BorrowTimeout(ctx, 0)
}

func (p *fakePool) BorrowTimeout(ctx context.Context, d time.Duration) (*int, bool) {
	p.lastWait = d
	if p.blocked {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		<-ctx.Done()
		return nil, false
	}
	p.borrows++
	v := 42
	return &v, true
}

func (p *fakePool) TryBorrow() (*int, bool) { return p.BorrowTimeout(context.Background(), 0) }

func (p *fakePool) Return(*int) bool {
	p.returns++
	return p.returns <= p.borrows
}

func (p *fakePool) ClearUnused() {}
func (p *fakePool) Size() int     { return 1 }
func (p *fakePool) Borrowed() int { return p.borrows - p.returns }

var _ domain.ObjectPool[*int] = (*fakePool)(nil)

func TestBorrowService_Borrow_FailsWhenNoPool(t *testing.T) {
	svc := BorrowService[*int]{}
	_, release, ok := svc.Borrow(context.Background())
	assert.False(t, ok)
	require.NotNil(t, release)
	release()
}

func TestBorrowService_Borrow_UsesTimeout(t *testing.T) {
	pool := &fakePool{blocked: true}
	svc := BorrowService[*int]{Pool: pool, AcquireTimeout: 10 * time.Millisecond}

	_, release, ok := svc.Borrow(context.Background())
	assert.False(t, ok, "expected timeout and ok=false")
	assert.Equal(t, 10*time.Millisecond, pool.lastWait)

	require.NotNil(t, release, "release must be safe to defer even when nothing was borrowed")
	release()
	assert.Equal(t, 0, pool.returns)
}

func TestBorrowService_Borrow_ReleaseReturnsOnce(t *testing.T) {
	pool := &fakePool{}
	svc := BorrowService[*int]{Pool: pool}

	v, release, ok := svc.Borrow(context.Background())
	require.True(t, ok)
	assert.Equal(t, 42, *v)

	release()
	release()
	assert.Equal(t, 1, pool.returns)
}

func TestBorrowService_Do_AlwaysReturns(t *testing.T) {
	pool := &fakePool{}
	svc := BorrowService[*int]{Pool: pool}

	boom := errors.New("boom")
	err := svc.Do(context.Background(), func(v *int) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, pool.returns)

	assert.Panics(t, func() {
		_ = svc.Do(context.Background(), func(*int) error { panic("fn failed") })
	})
	assert.Equal(t, 2, pool.returns)
}

func TestBorrowService_Do_CancelledContext(t *testing.T) {
	svc := BorrowService[*int]{Pool: &fakePool{blocked: true}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := svc.Do(ctx, func(*int) error { called = true; return nil })
	assert.False(t, called)
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBorrowService_Do_Timeout(t *testing.T) {
	svc := BorrowService[*int]{Pool: &fakePool{blocked: true}, AcquireTimeout: 5 * time.Millisecond}

	err := svc.Do(context.Background(), func(*int) error { return nil })
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.NotErrorIs(t, err, context.Canceled)
}

func TestBorrowService_Do_NoPool(t *testing.T) {
	err := BorrowService[*int]{}.Do(context.Background(), func(*int) error { return nil })
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
