package cliente

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("cliente não encontrado")
	ErrConfigNotFound = errors.New("configurações não encontradas")
	ErrTagNotFound    = errors.New("tag não encontrada")
	ErrEmailEmUso     = errors.New("email já cadastrado")
	ErrTagDuplicada   = errors.New("tag já existe")
)

// ModeloChatGPTPadrao é atribuído a configurações recém-criadas.
const ModeloChatGPTPadrao = "gpt-4o-mini"

// Cliente representa uma conta de cliente na plataforma.
type Cliente struct {
	ID           uuid.UUID `json:"id"`
	Nome         string    `json:"nome"`
	Email        string    `json:"email"`
	Telefone     *string   `json:"telefone,omitempty"`
	Empresa      *string   `json:"empresa,omitempty"`
	CNPJ         *string   `json:"cnpj,omitempty"`
	RazaoSocial  *string   `json:"razao_social,omitempty"`
	SenhaHash    string    `json:"-"`
	Ativo        bool      `json:"ativo"`
	Aprovado     bool      `json:"aprovado"`
	CriadoEm     time.Time `json:"data_criacao"`
	AtualizadoEm time.Time `json:"data_atualizacao"`
}

// Elegivel indica se o cliente pode consumir o webhook.
func (c *Cliente) Elegivel() bool {
	return c.Ativo && c.Aprovado
}

// Configuracao guarda credenciais e roteamento de um cliente (1:1).
type Configuracao struct {
	ID                  uuid.UUID `json:"id"`
	ClienteID           uuid.UUID `json:"cliente_id"`
	KommoToken          *string   `json:"kommo_token,omitempty"`
	KommoDomain         *string   `json:"kommo_domain,omitempty"`
	ChatGPTAPIKey       *string   `json:"chatgpt_api_key,omitempty"`
	ChatGPTModel        string    `json:"chatgpt_model"`
	PipelineID          *string   `json:"pipeline_id,omitempty"`
	FunilIDs            []string  `json:"funil_ids"`
	PromptAgenteIA      *string   `json:"prompt_agente_ia,omitempty"`
	PromptAudio         *string   `json:"prompt_audio,omitempty"`
	PromptImagem        *string   `json:"prompt_imagem,omitempty"`
	AprovacaoAutomatica bool      `json:"aprovacao_automatica"`
	UsarN8N             bool      `json:"usar_n8n"`
	WebhookURL          *string   `json:"webhook_url,omitempty"`
	CriadoEm            time.Time `json:"data_criacao"`
	AtualizadoEm        time.Time `json:"data_atualizacao"`
}

// Tag mapeia um rótulo do cliente para o par (funil, pipeline) do CRM.
type Tag struct {
	ID         uuid.UUID `json:"id"`
	ClienteID  uuid.UUID `json:"cliente_id"`
	Nome       string    `json:"nome"`
	FunilID    string    `json:"funil_id"`
	PipelineID string    `json:"pipeline_id"`
	Ativa      bool      `json:"ativa"`
	CriadoEm   time.Time `json:"data_criacao"`
}

// CadastroInput contém os campos do cadastro público.
type CadastroInput struct {
	Nome        string
	Email       string
	Senha       string
	Telefone    string
	Empresa     string
	CNPJ        string
	RazaoSocial string
}

// AtualizarPerfilInput atualiza dados cadastrais do próprio cliente.
type AtualizarPerfilInput struct {
	Nome        string
	Email       string
	Telefone    string
	Empresa     string
	CNPJ        string
	RazaoSocial string
}

// AtualizarConfiguracaoInput aplica atualização parcial; campos nil são mantidos.
type AtualizarConfiguracaoInput struct {
	KommoToken          *string
	KommoDomain         *string
	ChatGPTAPIKey       *string
	ChatGPTModel        *string
	PipelineID          *string
	FunilIDs            *[]string
	PromptAgenteIA      *string
	PromptAudio         *string
	PromptImagem        *string
	AprovacaoAutomatica *bool
	UsarN8N             *bool
	WebhookURL          *string
}

// CriarTagInput contém os campos de uma nova tag.
type CriarTagInput struct {
	ClienteID  uuid.UUID
	Nome       string
	FunilID    string
	PipelineID string
	Ativa      bool
}

// AtualizarTagInput aplica atualização parcial de uma tag.
type AtualizarTagInput struct {
	Nome       *string
	FunilID    *string
	PipelineID *string
	Ativa      *bool
}

// FiltroStatus restringe listagens administrativas de clientes.
type FiltroStatus string

const (
	FiltroTodos     FiltroStatus = ""
	FiltroAtivos    FiltroStatus = "ativo"
	FiltroInativos  FiltroStatus = "inativo"
	FiltroAprovados FiltroStatus = "aprovado"
	FiltroPendentes FiltroStatus = "pendente"
)
