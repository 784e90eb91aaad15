package infra

import (
	"context"
	"sync"

	"github.com/phax/ph-commons-sub015/objectpool/domain"
)

// Counters guarda a contagem de eventos por tipo.
type Counters map[domain.EventKind]int64

func (c Counters) clone() Counters {
	out := make(Counters, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// MemoryStatsStore é uma implementação simples em memória.
// É o padrão do gateway quando o Redis está desligado.
//
// Não faz expiração: os contadores só crescem.
type MemoryStatsStore struct {
	mu     sync.Mutex
	total  Counters
	byPool map[string]Counters

	trackPools bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackPools(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackPools = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:  make(Counters),
		byPool: make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Kind]++
	if !s.trackPools || ev.Pool == "" {
		return nil
	}

	c, ok := s.byPool[ev.Pool]
	if !ok {
		c = make(Counters)
		s.byPool[ev.Pool] = c
	}
	c[ev.Kind]++
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total.clone()
}

func (s *MemoryStatsStore) ByPool() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byPool))
	for k, v := range s.byPool {
		out[k] = v.clone()
	}
	return out
}
