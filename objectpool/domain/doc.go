// Package domain define contratos e tipos de domínio do pool de objetos.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar as regras do pool
// (fábrica, empréstimo, devolução) dos detalhes de infraestrutura.
package domain
