// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryEntryStore / RedisEntryStore: estado do rate limit por chave
//   - MemoryStatsStore / RedisStatsStore: contadores por resultado
//   - MongoLeadRepository / MemoryLeadRepository: persistência de leads
//   - EmailNotifier: aviso por SMTP
package infra
