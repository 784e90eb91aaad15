// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - FixedPool: pool de capacidade fixa (semáforo golang.org/x/sync + mutex)
//   - ThrottledFactory: limita criações com golang.org/x/time/rate
//   - MemoryStatsStore / RedisStatsStore: persistência dos eventos do pool
//   - Collector: métricas Prometheus dos pools
package infra
