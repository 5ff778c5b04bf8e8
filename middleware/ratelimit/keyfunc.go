package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc extrai o identificador do cliente de um request.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc usa, nessa ordem: o header configurado, o primeiro IP do
// X-Forwarded-For e o host de RemoteAddr.
//
// Header e X-Forwarded-For só valem com trustProxy: quem os define é o proxy da
// frente. Sem isso o cliente escolheria a própria chave a cada request.
func DefaultKeyFunc(keyHeader string, trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxy && keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustProxy {
			// primeiro IP do X-Forwarded-For é o cliente original
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}
