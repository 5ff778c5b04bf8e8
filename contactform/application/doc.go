// Package application contém os casos de uso do formulário de contato:
// validação, filtro de spam, rate limit por janela com bloqueio e o fluxo
// completo de submissão (ContactService).
//
// Depende apenas do pacote domain e não conhece net/http.
// Ex.: Limiter.CheckRateLimit(ctx, key) retorna uma Decision (allow/deny + resetTime/blockedUntil).
package application
