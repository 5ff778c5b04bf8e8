// Package domain define os tipos e contratos do formulário de contato:
// payload, entrada de rate limit, decisões, erros e portas de saída
// (armazenamento de leads, notificação, estatísticas).
//
// Este pacote não depende de net/http nem de implementações concretas.
package domain
