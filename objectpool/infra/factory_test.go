package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplierFactory(t *testing.T) {
	f := SupplierFactory[string](func() string { return "x" })
	assert.Equal(t, "x", f.Create())
	assert.True(t, f.Activate("anything"))
	f.Passivate("anything")
}

func TestFactoryFuncs_Defaults(t *testing.T) {
	f := FactoryFuncs[int]{CreateFn: func() int { return 7 }}
	assert.Equal(t, 7, f.Create())
	assert.True(t, f.Activate(7))
	f.Passivate(7)
	f.Dispose(7)
}

func TestNewFromSupplier_ActivationAlwaysSucceeds(t *testing.T) {
	calls := 0
	p, err := NewFromSupplier(1, func() *item { calls++; return &item{id: int64(calls)} })
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		v, ok := p.Borrow(context.Background())
		require.True(t, ok)
		require.True(t, p.Return(v))
	}
	assert.Equal(t, 1, calls)
}

func TestThrottledFactory_NoLimitWhenRPSIsZero(t *testing.T) {
	f := NewThrottledFactory[int](SupplierFactory[int](func() int { return 1 }), 0, 0)
	assert.Equal(t, 1, f.Burst())

	start := time.Now()
	for i := 0; i < 100; i++ {
		f.Create()
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestThrottledFactory_PacesCreation(t *testing.T) {
	f := NewThrottledFactory[int](SupplierFactory[int](func() int { return 1 }), 50, 1)
	assert.InDelta(t, 50, f.RPS(), 0.001)

	start := time.Now()
	for i := 0; i < 3; i++ {
		f.Create()
	}
	// burst 1: a primeira é imediata, as outras duas esperam ~20ms cada
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestThrottledFactory_Delegates(t *testing.T) {
	var passivated, disposed int
	inner := FactoryFuncs[int]{
		CreateFn:    func() int { return 3 },
		ActivateFn:  func(v int) bool { return v > 2 },
		PassivateFn: func(int) { passivated++ },
		DisposeFn:   func(int) { disposed++ },
	}
	f := NewThrottledFactory[int](inner, 0, 1)

	assert.True(t, f.Activate(3))
	assert.False(t, f.Activate(1))
	f.Passivate(3)
	f.Dispose(3)
	assert.Equal(t, 1, passivated)
	assert.Equal(t, 1, disposed)

	// fábrica sem Dispose: não faz nada
	NewThrottledFactory[int](SupplierFactory[int](func() int { return 1 }), 0, 1).Dispose(1)
}
