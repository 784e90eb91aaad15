package domain

import (
	"context"
	"time"
)

// Factory cria, reativa e passiva os itens de um pool.
//
// Create nunca deve retornar o valor zero de T: para o pool, zero significa
// "slot vazio".
type Factory[T any] interface {
	Create() T
	// Activate tenta tornar reutilizável um item devolvido anteriormente.
	// Se retornar false, o pool descarta o item e cria outro.
	Activate(item T) bool
	// Passivate limpa o estado interno do item na devolução.
	Passivate(item T)
}

// Disposer é opcional. Se a fábrica implementar, o pool chama Dispose para todo
// item que ele descarta (falha de ativação ou ClearUnused).
type Disposer[T any] interface {
	Dispose(item T)
}

// ObjectPool é o contrato de empréstimo/devolução com capacidade fixa.
type ObjectPool[T any] interface {
	// Borrow bloqueia até haver vaga. Se o ctx encerrar antes, retorna ok=false.
	Borrow(ctx context.Context) (item T, ok bool)
	// BorrowTimeout é Borrow com espera limitada; d <= 0 equivale a Borrow.
	BorrowTimeout(ctx context.Context, d time.Duration) (item T, ok bool)
	// TryBorrow não espera por vaga (a fábrica ainda pode demorar para criar).
	TryBorrow() (item T, ok bool)
	// Return devolve um item emprestado. Retorna false se o item não estava
	// emprestado por este pool (devolução dupla ou objeto estranho).
	Return(item T) bool
	// ClearUnused descarta os itens em cache dos slots livres.
	ClearUnused()
	Size() int
	Borrowed() int
}

// Snapshot é uma foto do estado de um pool, sem efeitos colaterais.
type Snapshot struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Borrowed int    `json:"borrowed"`
	// Cached conta os slots que guardam um item (livres ou emprestados).
	Cached int `json:"cached"`

	Created            int64 `json:"created"`
	Activated          int64 `json:"activated"`
	ActivationFailures int64 `json:"activation_failures"`
	Returned           int64 `json:"returned"`
	ReturnRejected     int64 `json:"return_rejected"`
	BorrowAborted      int64 `json:"borrow_aborted"`
	Discarded          int64 `json:"discarded"`
}

// Inspectable é o que superfícies administrativas precisam de um pool
// sem conhecer o tipo dos itens.
type Inspectable interface {
	Name() string
	Snapshot() Snapshot
	ClearUnused()
}
