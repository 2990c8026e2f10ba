package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/audit"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	httpmiddleware "github.com/jaiki-ops/sdr-ia-app-ofc/internal/http/middleware"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/service"
)

// AuthHandler concentra endpoints de autenticação das duas audiências.
type AuthHandler struct {
	authService    *service.AuthService
	clienteService *cliente.Service
	auditoria      *audit.Service
}

// NewAuthHandler cria o handler de autenticação.
func NewAuthHandler(authService *service.AuthService, clienteService *cliente.Service, auditoria *audit.Service) *AuthHandler {
	return &AuthHandler{authService: authService, clienteService: clienteService, auditoria: auditoria}
}

type loginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type loginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	Roles        []string `json:"roles"`
	Profile      any      `json:"profile"`
}

func loginPayload(result *service.LoginResult) loginResponse {
	return loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		Roles:        result.Roles,
		Profile:      result.Profile,
	}
}

// LoginCliente autentica contas do portal.
func (h *AuthHandler) LoginCliente(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	result, err := h.authService.LoginCliente(r.Context(), req.Email, req.Senha)
	if err != nil {
		h.auditoria.Registrar(r.Context(), audit.AtorSistema(), "login_cliente_falha",
			audit.Detalhe("email: "+req.Email), origemDoRequest(r))

		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			WriteError(w, http.StatusUnauthorized, "AUTH", "credenciais inválidas", nil)
		case errors.Is(err, service.ErrAccountDisabled):
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "conta desativada", nil)
		case errors.Is(err, service.ErrNaoAprovado):
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "cadastro aguardando aprovação", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorCliente(result.Subject), "login_cliente", nil, origemDoRequest(r))
	WriteJSON(w, http.StatusOK, loginPayload(result))
}

// LoginAdmin autentica operadores do painel.
func (h *AuthHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	result, err := h.authService.LoginAdmin(r.Context(), req.Email, req.Senha)
	if err != nil {
		h.auditoria.Registrar(r.Context(), audit.AtorSistema(), "login_admin_falha",
			audit.Detalhe("email: "+req.Email), origemDoRequest(r))

		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			WriteError(w, http.StatusUnauthorized, "AUTH", "credenciais inválidas", nil)
		case errors.Is(err, service.ErrAccountDisabled):
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "conta desativada", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorAdministrador(result.Subject), "login_admin", nil, origemDoRequest(r))
	WriteJSON(w, http.StatusOK, loginPayload(result))
}

type cadastroRequest struct {
	Nome        string `json:"nome"`
	Email       string `json:"email"`
	Senha       string `json:"senha"`
	Telefone    string `json:"telefone"`
	Empresa     string `json:"empresa"`
	CNPJ        string `json:"cnpj"`
	RazaoSocial string `json:"razao_social"`
}

// Cadastro cria conta de cliente pendente de aprovação.
func (h *AuthHandler) Cadastro(w http.ResponseWriter, r *http.Request) {
	var req cadastroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	criado, err := h.clienteService.Cadastrar(r.Context(), cliente.CadastroInput{
		Nome:        req.Nome,
		Email:       req.Email,
		Senha:       req.Senha,
		Telefone:    req.Telefone,
		Empresa:     req.Empresa,
		CNPJ:        req.CNPJ,
		RazaoSocial: req.RazaoSocial,
	})
	if err != nil {
		switch {
		case errors.Is(err, cliente.ErrValidacao):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		case errors.Is(err, cliente.ErrEmailEmUso):
			WriteError(w, http.StatusConflict, "CONFLICT", "email já cadastrado", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorCliente(criado.ID), "cadastro_cliente",
		audit.Detalhe("email: "+criado.Email), origemDoRequest(r))

	WriteJSON(w, http.StatusCreated, criado)
}

type refreshRequest struct {
	Audience     string `json:"audience"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh troca refresh token por nova sessão.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), req.Audience, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefreshInvalid):
			WriteError(w, http.StatusUnauthorized, "AUTH", "refresh token inválido", nil)
		case errors.Is(err, service.ErrAccountDisabled):
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "conta desativada", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, loginPayload(result))
}

// Logout revoga o refresh token atual.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	if err := h.authService.Logout(r.Context(), req.Audience, req.RefreshToken); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"revogado": true})
}

// Me devolve o perfil da sessão autenticada.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := uuid.Parse(httpmiddleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	profile, roles, err := h.authService.GetMe(r.Context(), httpmiddleware.GetAudience(r.Context()), subject)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"profile": profile, "roles": roles})
}

func origemDoRequest(r *http.Request) audit.Origem {
	ip := r.Header.Get("X-Real-IP")
	if ip == "" {
		ip = r.RemoteAddr
	}
	return audit.Origem{IPAddress: ip, UserAgent: r.UserAgent()}
}
