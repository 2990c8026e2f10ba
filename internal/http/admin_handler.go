package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/admin"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/audit"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/quota"
)

// AdminHandler expõe o painel administrativo.
type AdminHandler struct {
	admins    *admin.Service
	auditoria *audit.Service
}

// NewAdminHandler cria o handler administrativo.
func NewAdminHandler(admins *admin.Service, auditoria *audit.Service) *AdminHandler {
	return &AdminHandler{admins: admins, auditoria: auditoria}
}

// RegisterRoutes registra as rotas administrativas (já protegidas por Auth + RequireAdmin).
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
	r.Get("/clientes", h.listClientes)
	r.Get("/clientes/{clienteID}", h.detalharCliente)
	r.Post("/clientes/{clienteID}/aprovar", h.aprovarCliente)
	r.Post("/clientes/{clienteID}/desativar", h.desativarCliente)
	r.Post("/clientes/{clienteID}/reativar", h.reativarCliente)
	r.Put("/clientes/{clienteID}/limite-eventos", h.definirLimite)
	r.Get("/logs", h.listLogs)
	r.Get("/administradores", h.listAdministradores)
	r.Post("/administradores", h.criarAdministrador)
}

func (h *AdminHandler) atorAdmin(r *http.Request) (*admin.Administrador, error) {
	id, err := subjectAsUUID(r)
	if err != nil {
		return nil, err
	}
	return h.admins.Buscar(r.Context(), id)
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admins.Dashboard(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	recentes, _, err := h.auditoria.Listar(r.Context(), audit.Filtro{Limit: 10})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	if recentes == nil {
		recentes = []audit.Entrada{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"estatisticas":      stats,
		"atividade_recente": recentes,
	})
}

func (h *AdminHandler) listClientes(w http.ResponseWriter, r *http.Request) {
	filtro := cliente.FiltroStatus(r.URL.Query().Get("status"))

	limit, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit

	clientes, total, err := h.admins.ListarClientes(r.Context(), filtro, limit, offset)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	if clientes == nil {
		clientes = []cliente.Cliente{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"clientes": clientes,
		"total":    total,
		"page":     page,
		"per_page": limit,
	})
}

func clienteIDFromURL(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "clienteID"))
}

func (h *AdminHandler) detalharCliente(w http.ResponseWriter, r *http.Request) {
	id, err := clienteIDFromURL(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cliente inválido", nil)
		return
	}

	detalhe, err := h.admins.DetalharCliente(r.Context(), id)
	if err != nil {
		if errors.Is(err, cliente.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "cliente não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	atividades, _, err := h.auditoria.Listar(r.Context(), audit.Filtro{UsuarioID: &id, Limit: 10})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	if atividades == nil {
		atividades = []audit.Entrada{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"cliente":           detalhe,
		"atividade_recente": atividades,
	})
}

func (h *AdminHandler) aprovarCliente(w http.ResponseWriter, r *http.Request) {
	id, err := clienteIDFromURL(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cliente inválido", nil)
		return
	}

	adminID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	controle, err := h.admins.AprovarCliente(r.Context(), id)
	if err != nil {
		if errors.Is(err, cliente.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "cliente não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorAdministrador(adminID), "cliente_aprovado",
		audit.Detalhe("cliente: "+id.String()), origemDoRequest(r))

	WriteJSON(w, http.StatusOK, map[string]any{"aprovado": true, "controle": controle})
}

func (h *AdminHandler) desativarCliente(w http.ResponseWriter, r *http.Request) {
	h.mudarStatusCliente(w, r, "cliente_desativado", h.admins.DesativarCliente)
}

func (h *AdminHandler) reativarCliente(w http.ResponseWriter, r *http.Request) {
	h.mudarStatusCliente(w, r, "cliente_reativado", h.admins.ReativarCliente)
}

func (h *AdminHandler) mudarStatusCliente(w http.ResponseWriter, r *http.Request, acao string, fn func(ctx context.Context, id uuid.UUID) error) {
	id, err := clienteIDFromURL(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cliente inválido", nil)
		return
	}

	adminID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	if err := fn(r.Context(), id); err != nil {
		if errors.Is(err, cliente.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "cliente não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorAdministrador(adminID), acao,
		audit.Detalhe("cliente: "+id.String()), origemDoRequest(r))

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type limiteRequest struct {
	Limite int `json:"limite"`
}

func (h *AdminHandler) definirLimite(w http.ResponseWriter, r *http.Request) {
	id, err := clienteIDFromURL(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cliente inválido", nil)
		return
	}

	adminID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var req limiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	controle, err := h.admins.DefinirLimiteEventos(r.Context(), id, req.Limite)
	if err != nil {
		switch {
		case errors.Is(err, quota.ErrLimiteInvalido):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		case errors.Is(err, cliente.ErrNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "cliente não encontrado", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorAdministrador(adminID), "limite_eventos_definido",
		audit.Detalhe("cliente: "+id.String()+"; limite: "+strconv.Itoa(req.Limite)), origemDoRequest(r))

	WriteJSON(w, http.StatusOK, controle)
}

func (h *AdminHandler) listLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filtro := audit.Filtro{
		TipoUsuario: q.Get("tipo_usuario"),
		Acao:        q.Get("acao"),
	}
	if raw := q.Get("usuario_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "usuario_id inválido", nil)
			return
		}
		filtro.UsuarioID = &id
	}
	if raw := q.Get("desde"); raw != "" {
		desde, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "desde inválido (RFC3339)", nil)
			return
		}
		filtro.Desde = &desde
	}
	filtro.Limit, _ = strconv.Atoi(q.Get("per_page"))
	page, _ := strconv.Atoi(q.Get("page"))
	if page > 1 && filtro.Limit > 0 {
		filtro.Offset = (page - 1) * filtro.Limit
	}

	entradas, total, err := h.auditoria.Listar(r.Context(), filtro)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	if entradas == nil {
		entradas = []audit.Entrada{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"logs": entradas, "total": total})
}

func (h *AdminHandler) listAdministradores(w http.ResponseWriter, r *http.Request) {
	ator, err := h.atorAdmin(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	admins, err := h.admins.ListarAdministradores(r.Context(), ator)
	if err != nil {
		if errors.Is(err, admin.ErrSomenteSuperAdmin) {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	if admins == nil {
		admins = []admin.Administrador{}
	}

	WriteJSON(w, http.StatusOK, admins)
}

type criarAdminRequest struct {
	Nome        string `json:"nome"`
	Email       string `json:"email"`
	Senha       string `json:"senha"`
	NivelAcesso string `json:"nivel_acesso"`
}

func (h *AdminHandler) criarAdministrador(w http.ResponseWriter, r *http.Request) {
	ator, err := h.atorAdmin(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var req criarAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	criado, err := h.admins.CriarAdministrador(r.Context(), ator, admin.CriarAdministradorInput{
		Nome:        req.Nome,
		Email:       req.Email,
		Senha:       req.Senha,
		NivelAcesso: req.NivelAcesso,
	})
	if err != nil {
		switch {
		case errors.Is(err, admin.ErrSomenteSuperAdmin):
			WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
		case errors.Is(err, admin.ErrEmailEmUso):
			WriteError(w, http.StatusConflict, "CONFLICT", "email já cadastrado", nil)
		case errors.Is(err, admin.ErrNivelInvalido):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		default:
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		}
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorAdministrador(ator.ID), "administrador_criado",
		audit.Detalhe("email: "+criado.Email), origemDoRequest(r))

	WriteJSON(w, http.StatusCreated, criado)
}
