package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/audit"
)

type resolver interface {
	Resolver(ctx context.Context, entrada Entrada) (*Resolucao, error)
	Verificar(ctx context.Context, clienteIDRaw string) (*Visao, error)
	Testar(ctx context.Context, clienteIDRaw string) (*Diagnostico, error)
}

// Handler expõe o endpoint consumido pelo motor de workflows.
type Handler struct {
	service resolver
}

// NewHandler cria o handler do webhook.
func NewHandler(service resolver) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registra as rotas públicas do webhook.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sdr", h.receber)
	r.Post("/sdr/{clienteID}", h.receber)
	// Aliases mantidos para os workflows n8n já publicados.
	r.Post("/n8n", h.receber)
	r.Post("/n8n/{clienteID}", h.receber)

	r.Get("/config/{clienteID}", h.consultarConfig)
	r.Post("/test/{clienteID}", h.testar)
}

func (h *Handler) receber(w http.ResponseWriter, r *http.Request) {
	var dados map[string]any
	if r.Body != nil {
		// Corpo malformado não é fatal: o clienteId pode vir na URL e o eco
		// do payload fica vazio.
		_ = json.NewDecoder(r.Body).Decode(&dados)
	}

	entrada := Entrada{
		ClienteID: extrairClienteID(r, dados),
		Dados:     dados,
		Origem: audit.Origem{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		},
	}

	resolucao, err := h.service.Resolver(r.Context(), entrada)
	if err != nil {
		responderErro(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resolucao)
}

func (h *Handler) consultarConfig(w http.ResponseWriter, r *http.Request) {
	visao, err := h.service.Verificar(r.Context(), chi.URLParam(r, "clienteID"))
	if err != nil {
		responderErro(w, err)
		return
	}

	writeJSON(w, http.StatusOK, visao)
}

func (h *Handler) testar(w http.ResponseWriter, r *http.Request) {
	diagnostico, err := h.service.Testar(r.Context(), chi.URLParam(r, "clienteID"))
	if err != nil {
		responderErro(w, err)
		return
	}

	writeJSON(w, http.StatusOK, diagnostico)
}

func responderErro(w http.ResponseWriter, err error) {
	status, code := mapearErro(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "erro interno"
	}
	writeError(w, status, code, msg)
}

// extrairClienteID procura o identificador na ordem: path, query string,
// campos do corpo (clienteId ou cliente_id).
func extrairClienteID(r *http.Request, dados map[string]any) string {
	if id := chi.URLParam(r, "clienteID"); id != "" {
		return id
	}
	if id := r.URL.Query().Get("clienteId"); id != "" {
		return id
	}
	for _, campo := range []string{"clienteId", "cliente_id"} {
		if v, ok := dados[campo].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func mapearErro(err error) (int, string) {
	switch {
	case errors.Is(err, ErrClienteObrigatorio):
		return http.StatusBadRequest, "VALIDATION"
	case errors.Is(err, ErrClienteInvalido), errors.Is(err, ErrConfiguracaoAusente):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrLimiteExcedido):
		return http.StatusTooManyRequests, "RATE_LIMIT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "error": nil})
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
