package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logging registra uma linha estruturada por requisição atendida. Erros de
// servidor sobem para o nível error para facilitar alarmes baseados em log.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		inicio := time.Now()

		next.ServeHTTP(ww, r)

		nivel := zerolog.InfoLevel
		if ww.Status() >= http.StatusInternalServerError {
			nivel = zerolog.ErrorLevel
		}

		evento := log.WithLevel(nivel).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(inicio)).
			Str("ip", ipDoChamador(r))

		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			evento = evento.Str("request_id", reqID)
		}
		if ua := r.UserAgent(); ua != "" {
			evento = evento.Str("user_agent", ua)
		}

		evento.Msg("requisição atendida")
	})
}
