// Package application contém os casos de uso (regras de aplicação) do pool de objetos.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: BorrowService.Do(ctx, fn) empresta um item, executa fn e sempre devolve.
package application
