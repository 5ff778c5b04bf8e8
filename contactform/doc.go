// Package contactform é o adapter HTTP do formulário de contato.
//
// Visão geral (camadas):
//
//   - domain: payload, entrada de rate limit, erros e portas (sem net/http)
//   - application: validação, filtro de spam, rate limit e fluxo de submissão
//   - infra: stores (memória/Redis), MongoDB, email
//   - contactform (este pacote): rotas chi, decodificação do corpo, chave do cliente
//     e tradução dos erros do domínio para status/JSON
//
// Respostas de rejeição:
//
//	400 {"field_errors": [...]}                       validação
//	400 {"error": "spam_detected"}                    spam (ou 201 falso com soft accept)
//	429 {"error": "rate_limited", "resetTime", ...}   rate limit, com Retry-After
package contactform
