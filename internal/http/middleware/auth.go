package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/auth"
)

type contextKey string

const (
	ContextKeySubject  contextKey = "subject"
	ContextKeyAudience contextKey = "audience"
	ContextKeyRoles    contextKey = "roles"
)

// Auth valida JWT de acesso e injeta claims no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.Validar(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			if len(claims.Audience) == 0 {
				writeError(w, http.StatusUnauthorized, "AUTH", "audience inválida")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyAudience, claims.Audience[0])
			ctx = context.WithValue(ctx, ContextKeyRoles, claims.Roles)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera subject do contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetAudience recupera audience do contexto.
func GetAudience(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyAudience).(string)
	return val
}

// GetRoles recupera roles do contexto.
func GetRoles(ctx context.Context) []string {
	val, _ := ctx.Value(ContextKeyRoles).([]string)
	return val
}

// RequireCliente garante sessão do portal do cliente.
func RequireCliente(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(GetAudience(r.Context()), "cliente") {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito a clientes")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin garante sessão do painel administrativo.
func RequireAdmin(next http.Handler) http.Handler {
	return requireAdminRoles("ADMIN", "SUPER_ADMIN")(next)
}

// RequireSuperAdmin restringe a super administradores.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return requireAdminRoles("SUPER_ADMIN")(next)
}

func requireAdminRoles(requiredRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.EqualFold(GetAudience(r.Context()), "admin") {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito a administradores")
				return
			}

			roles := GetRoles(r.Context())
			for _, role := range roles {
				for _, required := range requiredRoles {
					if strings.EqualFold(role, required) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito a administradores")
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
