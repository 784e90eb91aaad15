package domain

import (
	"context"
	"time"
)

type EventKind string

const (
	EventBorrowed         EventKind = "borrowed"
	EventReturned         EventKind = "returned"
	EventCreated          EventKind = "created"
	EventActivationFailed EventKind = "activation_failed"
	EventReturnRejected   EventKind = "return_rejected"
	EventBorrowAborted    EventKind = "borrow_aborted"
	EventDiscarded        EventKind = "discarded"
)

// StatsEvent representa algo que aconteceu em um pool.
//
// Observação: cuidado com cardinalidade ao usar Pool como chave em bases como
// Redis/Prometheus; nomes de pool devem ser poucos e estáveis.
type StatsEvent struct {
	Pool string
	Kind EventKind

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do pool.
//
// Implementações podem armazenar em Redis, memória, etc.
// O pool trata erro como best-effort (nunca falha um empréstimo por causa disso).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
