package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/integrations/chatgpt"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/integrations/kommo"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/integrations/n8n"
)

// IntegracoesHandler testa as integrações externas com as credenciais
// gravadas na configuração do cliente autenticado.
type IntegracoesHandler struct {
	clientes  *cliente.Service
	n8nClient *n8n.Client
}

// NewIntegracoesHandler cria o handler de integrações. n8nClient pode ser nil
// quando a plataforma não tem instância n8n configurada.
func NewIntegracoesHandler(clientes *cliente.Service, n8nClient *n8n.Client) *IntegracoesHandler {
	return &IntegracoesHandler{clientes: clientes, n8nClient: n8nClient}
}

// RegisterRoutes registra as rotas de integração (portal do cliente).
func (h *IntegracoesHandler) RegisterRoutes(r chi.Router) {
	r.Post("/kommo/testar", h.testarKommo)
	r.Get("/kommo/pipelines", h.listarPipelines)
	r.Get("/kommo/pipelines/{pipelineID}/etapas", h.listarEtapas)
	r.Post("/kommo/leads/{leadID}/etapa", h.mudarEtapaLead)
	r.Post("/chatgpt/testar", h.testarChatGPT)
	r.Post("/chatgpt/gerar", h.gerarResposta)
	r.Post("/n8n/testar", h.testarN8N)
	r.Post("/n8n/processar", h.processarN8N)
	r.Post("/n8n/mudar-etapa", h.mudarEtapaN8N)
}

func (h *IntegracoesHandler) configDoCliente(w http.ResponseWriter, r *http.Request) *cliente.Configuracao {
	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return nil
	}

	config, err := h.clientes.Configuracao(r.Context(), clienteID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return nil
	}
	return config
}

func (h *IntegracoesHandler) kommoClient(w http.ResponseWriter, config *cliente.Configuracao) *kommo.Client {
	var token, domain string
	if config.KommoToken != nil {
		token = *config.KommoToken
	}
	if config.KommoDomain != nil {
		domain = *config.KommoDomain
	}

	client, err := kommo.New(kommo.Config{Token: token, Domain: domain})
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return nil
	}
	return client
}

func (h *IntegracoesHandler) testarKommo(w http.ResponseWriter, r *http.Request) {
	config := h.configDoCliente(w, r)
	if config == nil {
		return
	}

	client := h.kommoClient(w, config)
	if client == nil {
		return
	}

	conta, err := client.TestarConexao(r.Context())
	if err != nil {
		WriteError(w, http.StatusBadGateway, "INTERNAL", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"conectado": true, "conta": conta})
}

func (h *IntegracoesHandler) listarPipelines(w http.ResponseWriter, r *http.Request) {
	config := h.configDoCliente(w, r)
	if config == nil {
		return
	}

	client := h.kommoClient(w, config)
	if client == nil {
		return
	}

	pipelines, err := client.ListarPipelines(r.Context())
	if err != nil {
		WriteError(w, http.StatusBadGateway, "INTERNAL", err.Error(), nil)
		return
	}
	if pipelines == nil {
		pipelines = []kommo.Pipeline{}
	}

	WriteJSON(w, http.StatusOK, pipelines)
}

func (h *IntegracoesHandler) listarEtapas(w http.ResponseWriter, r *http.Request) {
	config := h.configDoCliente(w, r)
	if config == nil {
		return
	}

	client := h.kommoClient(w, config)
	if client == nil {
		return
	}

	etapas, err := client.ListarEtapas(r.Context(), chi.URLParam(r, "pipelineID"))
	if err != nil {
		WriteError(w, http.StatusBadGateway, "INTERNAL", err.Error(), nil)
		return
	}
	if etapas == nil {
		etapas = []kommo.Etapa{}
	}

	WriteJSON(w, http.StatusOK, etapas)
}

type mudarEtapaRequest struct {
	LeadID     int64 `json:"lead_id"`
	EtapaID    int64 `json:"etapa_id"`
	PipelineID int64 `json:"pipeline_id"`
}

func (h *IntegracoesHandler) mudarEtapaLead(w http.ResponseWriter, r *http.Request) {
	config := h.configDoCliente(w, r)
	if config == nil {
		return
	}

	client := h.kommoClient(w, config)
	if client == nil {
		return
	}

	leadID, err := strconv.ParseInt(chi.URLParam(r, "leadID"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "lead inválido", nil)
		return
	}

	var req mudarEtapaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EtapaID == 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	if err := client.AtualizarEtapaLead(r.Context(), leadID, req.EtapaID, req.PipelineID); err != nil {
		WriteError(w, http.StatusBadGateway, "INTERNAL", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *IntegracoesHandler) testarChatGPT(w http.ResponseWriter, r *http.Request) {
	config := h.configDoCliente(w, r)
	if config == nil {
		return
	}

	var apiKey string
	if config.ChatGPTAPIKey != nil {
		apiKey = *config.ChatGPTAPIKey
	}

	client, err := chatgpt.New(chatgpt.Config{APIKey: apiKey})
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	if err := client.TestarConexao(r.Context(), config.ChatGPTModel); err != nil {
		WriteError(w, http.StatusBadGateway, "INTERNAL", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"conectado": true, "modelo": config.ChatGPTModel})
}

func (h *IntegracoesHandler) gerarResposta(w http.ResponseWriter, r *http.Request) {
	config := h.configDoCliente(w, r)
	if config == nil {
		return
	}

	var apiKey string
	if config.ChatGPTAPIKey != nil {
		apiKey = *config.ChatGPTAPIKey
	}

	client, err := chatgpt.New(chatgpt.Config{APIKey: apiKey})
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	var req struct {
		Mensagem string `json:"mensagem"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Mensagem) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "mensagem obrigatória", nil)
		return
	}

	var mensagens []chatgpt.Mensagem
	if config.PromptAgenteIA != nil && strings.TrimSpace(*config.PromptAgenteIA) != "" {
		mensagens = append(mensagens, chatgpt.Mensagem{Role: "system", Content: *config.PromptAgenteIA})
	}
	mensagens = append(mensagens, chatgpt.Mensagem{Role: "user", Content: req.Mensagem})

	resposta, err := client.Completar(r.Context(), config.ChatGPTModel, mensagens)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "INTERNAL", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"resposta": resposta, "modelo": config.ChatGPTModel})
}

func (h *IntegracoesHandler) testarN8N(w http.ResponseWriter, r *http.Request) {
	if h.n8nClient == nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "instância n8n não configurada", nil)
		return
	}

	if err := h.n8nClient.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "INTERNAL", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"conectado": true})
}

var tiposProcessamento = map[string]struct{}{"mensagem": {}, "audio": {}, "imagem": {}}

func (h *IntegracoesHandler) processarN8N(w http.ResponseWriter, r *http.Request) {
	if h.n8nClient == nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "instância n8n não configurada", nil)
		return
	}

	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var req struct {
		Tipo  string         `json:"tipo"`
		Dados map[string]any `json:"dados"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}
	if _, ok := tiposProcessamento[req.Tipo]; !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "tipo deve ser mensagem, audio ou imagem", nil)
		return
	}

	payload := map[string]any{
		"clienteId": clienteID.String(),
		"tipo":      req.Tipo,
		"dados":     req.Dados,
	}
	if err := h.n8nClient.DispararWorkflow(r.Context(), n8n.WorkflowSDR, payload); err != nil {
		WriteError(w, http.StatusBadGateway, "INTERNAL", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]any{"disparado": true})
}

func (h *IntegracoesHandler) mudarEtapaN8N(w http.ResponseWriter, r *http.Request) {
	if h.n8nClient == nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "instância n8n não configurada", nil)
		return
	}

	clienteID, err := subjectAsUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var req mudarEtapaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LeadID == 0 || req.EtapaID == 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	payload := map[string]any{
		"clienteId":   clienteID.String(),
		"lead_id":     req.LeadID,
		"etapa_id":    req.EtapaID,
		"pipeline_id": req.PipelineID,
	}
	if err := h.n8nClient.DispararWorkflow(r.Context(), n8n.WorkflowMudaEtapa, payload); err != nil {
		WriteError(w, http.StatusBadGateway, "INTERNAL", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]any{"disparado": true})
}
