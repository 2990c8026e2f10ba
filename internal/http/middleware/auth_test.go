package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/auth"
)

func handlerEco() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(GetSubject(r.Context())))
	})
}

func TestAuthInjetaClaims(t *testing.T) {
	mgr := auth.NewJWTManager("segredo-de-teste-com-32-caracteres!", time.Minute)
	subject := uuid.NewString()
	token, _, err := mgr.EmitirAcesso(subject, "cliente", []string{"CLIENTE"})
	if err != nil {
		t.Fatalf("gerar token: %v", err)
	}

	srv := Auth(mgr)(handlerEco())
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, esperado 200: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != subject {
		t.Errorf("subject no contexto = %q, esperado %q", rec.Body.String(), subject)
	}
}

func TestAuthRejeitaTokenAusenteOuInvalido(t *testing.T) {
	mgr := auth.NewJWTManager("segredo-de-teste-com-32-caracteres!", time.Minute)
	srv := Auth(mgr)(handlerEco())

	casos := map[string]string{
		"sem header":     "",
		"esquema errado": "Basic abc",
		"token inválido": "Bearer nao-e-um-jwt",
	}
	for nome, header := range casos {
		t.Run(nome, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, esperado 401", rec.Code)
			}
		})
	}
}

func TestAuthRejeitaTokenExpirado(t *testing.T) {
	mgr := auth.NewJWTManager("segredo-de-teste-com-32-caracteres!", -time.Minute)
	token, _, err := mgr.EmitirAcesso(uuid.NewString(), "cliente", nil)
	if err != nil {
		t.Fatalf("gerar token: %v", err)
	}

	srv := Auth(mgr)(handlerEco())
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, esperado 401", rec.Code)
	}
}

func TestRequireClienteBloqueiaAdmin(t *testing.T) {
	mgr := auth.NewJWTManager("segredo-de-teste-com-32-caracteres!", time.Minute)
	token, _, err := mgr.EmitirAcesso(uuid.NewString(), "admin", []string{"ADMIN"})
	if err != nil {
		t.Fatalf("gerar token: %v", err)
	}

	srv := Auth(mgr)(RequireCliente(handlerEco()))
	req := httptest.NewRequest(http.MethodGet, "/api/cliente/perfil", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, esperado 403", rec.Code)
	}
}

func TestRequireAdminRoles(t *testing.T) {
	mgr := auth.NewJWTManager("segredo-de-teste-com-32-caracteres!", time.Minute)

	casos := []struct {
		nome     string
		audience string
		roles    []string
		mw       func(http.Handler) http.Handler
		esperado int
	}{
		{"admin comum passa em RequireAdmin", "admin", []string{"ADMIN"}, RequireAdmin, http.StatusOK},
		{"super admin passa em RequireSuperAdmin", "admin", []string{"ADMIN", "SUPER_ADMIN"}, RequireSuperAdmin, http.StatusOK},
		{"admin comum barrado em RequireSuperAdmin", "admin", []string{"ADMIN"}, RequireSuperAdmin, http.StatusForbidden},
		{"cliente barrado em RequireAdmin", "cliente", []string{"CLIENTE"}, RequireAdmin, http.StatusForbidden},
	}

	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			token, _, err := mgr.EmitirAcesso(uuid.NewString(), caso.audience, caso.roles)
			if err != nil {
				t.Fatalf("gerar token: %v", err)
			}

			srv := Auth(mgr)(caso.mw(handlerEco()))
			req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != caso.esperado {
				t.Errorf("status = %d, esperado %d", rec.Code, caso.esperado)
			}
		})
	}
}
