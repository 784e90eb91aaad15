// Package objectpool fornece adapters HTTP (net/http) em cima do pool de objetos de tamanho fixo.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (empréstimo com timeout, empréstimo com escopo) sem net/http
//   - infra: implementações concretas (FixedPool, fábricas, stats, métricas)
//   - objectpool (este pacote): middleware de concorrência, BufferPool do reverse proxy e API de admin
//
// Fluxo no gateway:
//
//  1. Cada requisição ocupa uma vaga do pool de concorrência (503 se não houver a tempo)
//  2. O reverse proxy copia o corpo usando buffers emprestados do pool de buffers
//  3. A API de admin expõe snapshots, ClearUnused e /metrics
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como CONCURRENCY_MAX, CONCURRENCY_TIMEOUT, PROXY_BUFFERS e PROXY_BUFFER_SIZE.
package objectpool
