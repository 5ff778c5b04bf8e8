// Package ratelimit fornece middlewares HTTP (net/http) de proteção do site inteiro:
// token bucket por cliente e limite de requisições concorrentes.
//
// O rate limit do formulário de contato (janela + bloqueio) fica em contactform;
// aqui é só a primeira barreira contra rajadas.
//
// Fluxo:
//
//  1. Extrai a chave do cliente (header/XFF/RemoteAddr) com DefaultKeyFunc
//  2. Consulta o bucket da chave (golang.org/x/time/rate)
//  3. Se bloqueado, responde 429 com Retry-After
//  4. Se permitido, chama o próximo handler
//
// Variáveis de ambiente do binário (cmd/site) controlam o comportamento,
// como RATE_RPS, RATE_BURST, CONCURRENCY_MAX e CONCURRENCY_TIMEOUT.
package ratelimit
