package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/audit"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	httpmiddleware "github.com/jaiki-ops/sdr-ia-app-ofc/internal/http/middleware"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/quota"
)

// ClienteHandler expõe o portal autenticado do cliente.
type ClienteHandler struct {
	clientes   *cliente.Service
	cotas      *quota.Service
	auditoria  *audit.Service
	appBaseURL string
}

// NewClienteHandler cria o handler do portal.
func NewClienteHandler(clientes *cliente.Service, cotas *quota.Service, auditoria *audit.Service, appBaseURL string) *ClienteHandler {
	return &ClienteHandler{clientes: clientes, cotas: cotas, auditoria: auditoria, appBaseURL: appBaseURL}
}

// RegisterRoutes registra as rotas do portal (já protegidas por Auth + RequireCliente).
func (h *ClienteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/perfil", h.getPerfil)
	r.Put("/perfil", h.updatePerfil)
	r.Put("/senha", h.alterarSenha)
	r.Get("/configuracoes", h.getConfiguracoes)
	r.Put("/configuracoes", h.updateConfiguracoes)
	r.Get("/tags", h.listTags)
	r.Post("/tags", h.createTag)
	r.Put("/tags/{tagID}", h.updateTag)
	r.Delete("/tags/{tagID}", h.deleteTag)
	r.Get("/eventos", h.getEventos)
	r.Get("/estatisticas", h.getEstatisticas)
}

func subjectAsUUID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(httpmiddleware.GetSubject(r.Context()))
}

func (h *ClienteHandler) getPerfil(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	c, err := h.clientes.Buscar(r.Context(), clienteID)
	if err != nil {
		if errors.Is(err, cliente.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "cliente não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, c)
}

type perfilRequest struct {
	Nome        string `json:"nome"`
	Email       string `json:"email"`
	Telefone    string `json:"telefone"`
	Empresa     string `json:"empresa"`
	CNPJ        string `json:"cnpj"`
	RazaoSocial string `json:"razao_social"`
}

func (h *ClienteHandler) updatePerfil(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var req perfilRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	atualizado, err := h.clientes.AtualizarPerfil(r.Context(), clienteID, cliente.AtualizarPerfilInput{
		Nome:        req.Nome,
		Email:       req.Email,
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
		case errors.Is(err, cliente.ErrNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "cliente não encontrado", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorCliente(clienteID), "perfil_atualizado", nil, origemDoRequest(r))
	WriteJSON(w, http.StatusOK, atualizado)
}

type senhaRequest struct {
	SenhaAtual string `json:"senha_atual"`
	SenhaNova  string `json:"senha_nova"`
}

func (h *ClienteHandler) alterarSenha(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var req senhaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	if err := h.clientes.AlterarSenha(r.Context(), clienteID, req.SenhaAtual, req.SenhaNova); err != nil {
		switch {
		case errors.Is(err, cliente.ErrValidacao):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		case errors.Is(err, cliente.ErrNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "cliente não encontrado", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorCliente(clienteID), "senha_alterada", nil, origemDoRequest(r))
	WriteJSON(w, http.StatusOK, map[string]any{"alterada": true})
}

func (h *ClienteHandler) getConfiguracoes(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	config, err := h.clientes.Configuracao(r.Context(), clienteID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, config)
}

type configuracoesRequest struct {
	KommoToken          *string   `json:"kommo_token"`
	KommoDomain         *string   `json:"kommo_domain"`
	ChatGPTAPIKey       *string   `json:"chatgpt_api_key"`
	ChatGPTModel        *string   `json:"chatgpt_model"`
	PipelineID          *string   `json:"pipeline_id"`
	FunilIDs            *[]string `json:"funil_ids"`
	PromptAgenteIA      *string   `json:"prompt_agente_ia"`
	PromptAudio         *string   `json:"prompt_audio"`
	PromptImagem        *string   `json:"prompt_imagem"`
	AprovacaoAutomatica *bool     `json:"aprovacao_automatica"`
	UsarN8N             *bool     `json:"usar_n8n"`
	WebhookURL          *string   `json:"webhook_url"`
}

func (h *ClienteHandler) updateConfiguracoes(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var req configuracoesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	config, err := h.clientes.AtualizarConfiguracao(r.Context(), clienteID, cliente.AtualizarConfiguracaoInput{
		KommoToken:          req.KommoToken,
		KommoDomain:         req.KommoDomain,
		ChatGPTAPIKey:       req.ChatGPTAPIKey,
		ChatGPTModel:        req.ChatGPTModel,
		PipelineID:          req.PipelineID,
		FunilIDs:            req.FunilIDs,
		PromptAgenteIA:      req.PromptAgenteIA,
		PromptAudio:         req.PromptAudio,
		PromptImagem:        req.PromptImagem,
		AprovacaoAutomatica: req.AprovacaoAutomatica,
		UsarN8N:             req.UsarN8N,
		WebhookURL:          req.WebhookURL,
	})
	if err != nil {
		if errors.Is(err, cliente.ErrValidacao) {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorCliente(clienteID), "configuracoes_atualizadas", nil, origemDoRequest(r))
	WriteJSON(w, http.StatusOK, config)
}

func (h *ClienteHandler) listTags(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	tags, err := h.clientes.ListarTags(r.Context(), clienteID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	if tags == nil {
		tags = []cliente.Tag{}
	}

	WriteJSON(w, http.StatusOK, tags)
}

type tagRequest struct {
	Nome       string `json:"nome"`
	FunilID    string `json:"funil_id"`
	PipelineID string `json:"pipeline_id"`
	Ativa      *bool  `json:"ativa"`
}

func (h *ClienteHandler) createTag(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	ativa := true
	if req.Ativa != nil {
		ativa = *req.Ativa
	}

	tag, err := h.clientes.CriarTag(r.Context(), cliente.CriarTagInput{
		ClienteID:  clienteID,
		Nome:       req.Nome,
		FunilID:    req.FunilID,
		PipelineID: req.PipelineID,
		Ativa:      ativa,
	})
	if err != nil {
		switch {
		case errors.Is(err, cliente.ErrValidacao):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		case errors.Is(err, cliente.ErrTagDuplicada):
			WriteError(w, http.StatusConflict, "CONFLICT", "tag já existe", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorCliente(clienteID), "tag_criada",
		audit.Detalhe("tag: "+tag.Nome), origemDoRequest(r))
	WriteJSON(w, http.StatusCreated, tag)
}

func (h *ClienteHandler) updateTag(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	tagID, err := uuid.Parse(chi.URLParam(r, "tagID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "tag inválida", nil)
		return
	}

	var req struct {
		Nome       *string `json:"nome"`
		FunilID    *string `json:"funil_id"`
		PipelineID *string `json:"pipeline_id"`
		Ativa      *bool   `json:"ativa"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	tag, err := h.clientes.AtualizarTag(r.Context(), clienteID, tagID, cliente.AtualizarTagInput{
		Nome:       req.Nome,
		FunilID:    req.FunilID,
		PipelineID: req.PipelineID,
		Ativa:      req.Ativa,
	})
	if err != nil {
		switch {
		case errors.Is(err, cliente.ErrValidacao):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		case errors.Is(err, cliente.ErrTagNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "tag não encontrada", nil)
		case errors.Is(err, cliente.ErrTagDuplicada):
			WriteError(w, http.StatusConflict, "CONFLICT", "tag já existe", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorCliente(clienteID), "tag_atualizada",
		audit.Detalhe("tag: "+tag.Nome), origemDoRequest(r))
	WriteJSON(w, http.StatusOK, tag)
}

func (h *ClienteHandler) deleteTag(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	tagID, err := uuid.Parse(chi.URLParam(r, "tagID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "tag inválida", nil)
		return
	}

	tag, err := h.clientes.RemoverTag(r.Context(), clienteID, tagID)
	if err != nil {
		if errors.Is(err, cliente.ErrTagNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "tag não encontrada", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	h.auditoria.Registrar(r.Context(), audit.AtorCliente(clienteID), "tag_removida",
		audit.Detalhe("tag: "+tag.Nome), origemDoRequest(r))
	WriteJSON(w, http.StatusOK, map[string]any{"removida": true})
}

func (h *ClienteHandler) getEventos(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	controle, err := h.cotas.Status(r.Context(), clienteID)
	if err != nil {
		if errors.Is(err, quota.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "controle de eventos não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"limite_eventos":     controle.LimiteEventos,
		"eventos_utilizados": controle.EventosUtilizados,
		"eventos_restantes":  controle.EventosRestantes(),
		"ilimitado":          controle.Ilimitado(),
		"data_inicio":        controle.DataInicio,
	})
}

// getEstatisticas resume a conta: consumo de eventos, tags e a URL do webhook
// que o cliente configura no motor de workflows.
func (h *ClienteHandler) getEstatisticas(w http.ResponseWriter, r *http.Request) {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	eventos := map[string]any{"controle_ativo": false}
	if controle, err := h.cotas.Status(r.Context(), clienteID); err == nil {
		eventos = map[string]any{
			"controle_ativo":     true,
			"limite_eventos":     controle.LimiteEventos,
			"eventos_utilizados": controle.EventosUtilizados,
			"eventos_restantes":  controle.EventosRestantes(),
			"ilimitado":          controle.Ilimitado(),
		}
	} else if !errors.Is(err, quota.ErrNotFound) {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	totalTags, tagsAtivas, err := h.clientes.ContarTags(r.Context(), clienteID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"eventos":     eventos,
		"total_tags":  totalTags,
		"tags_ativas": tagsAtivas,
		"webhook_url": h.appBaseURL + "/webhook/sdr/" + clienteID.String(),
	})
}
