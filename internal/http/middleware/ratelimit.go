package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter agrupa limiters token-bucket por chave (IP de origem ou subject
// autenticado). Entradas ociosas são descartadas na própria consulta para
// conter o crescimento do mapa.
type RateLimiter struct {
	taxa    rate.Limit
	rajada  int
	mu      sync.Mutex
	buckets map[string]*bucket
	ttl     time.Duration
}

type bucket struct {
	limiter   *rate.Limiter
	ultimoUso time.Time
}

// NewRateLimiter cria o agrupador com a taxa sustentada e a rajada máxima.
func NewRateLimiter(porSegundo float64, rajada int) *RateLimiter {
	return &RateLimiter{
		taxa:    rate.Limit(porSegundo),
		rajada:  rajada,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
	}
}

func (rl *RateLimiter) permitir(chave string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	agora := time.Now()
	b, ok := rl.buckets[chave]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.taxa, rl.rajada)}
		rl.buckets[chave] = b
		for k, antigo := range rl.buckets {
			if agora.Sub(antigo.ultimoUso) > rl.ttl {
				delete(rl.buckets, k)
			}
		}
	}
	b.ultimoUso = agora
	return b.limiter.Allow()
}

func (rl *RateLimiter) limitar(next http.Handler, chaveDe func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chave := chaveDe(r)
		if chave == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.permitir(chave) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMIT", "limite de requisições excedido")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// IPRateLimit limita requisições anônimas pelo IP de origem.
func IPRateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return rl.limitar(next, ipDoChamador)
	}
}

// UserRateLimit limita requisições autenticadas pelo subject da sessão.
func UserRateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return rl.limitar(next, func(r *http.Request) string {
			return GetSubject(r.Context())
		})
	}
}

func ipDoChamador(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if encadeado := r.Header.Get("X-Forwarded-For"); encadeado != "" {
		primeiro, _, _ := strings.Cut(encadeado, ",")
		if ip := strings.TrimSpace(primeiro); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
