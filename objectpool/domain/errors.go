package domain

import "errors"

var (
	// ErrInvalidArgument é retornado na construção (capacidade < 1, fábrica ausente).
	ErrInvalidArgument = errors.New("objectpool: invalid argument")

	// ErrIllegalState indica violação de contrato (fábrica devolvendo valor zero)
	// ou bookkeeping interno inconsistente. É usado como valor de panic.
	ErrIllegalState = errors.New("objectpool: illegal state")

	// ErrCancelled indica que o empréstimo desistiu (ctx cancelado ou timeout).
	ErrCancelled = errors.New("objectpool: borrow cancelled")
)
