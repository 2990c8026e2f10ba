package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/audit"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/quota"
)

var (
	// ErrClienteObrigatorio indica requisição sem identificação de cliente.
	ErrClienteObrigatorio = errors.New("clienteId é obrigatório")
	// ErrClienteInvalido indica cliente inexistente, inativo ou não aprovado.
	ErrClienteInvalido = errors.New("cliente não encontrado ou não autorizado")
	// ErrConfiguracaoAusente indica cliente elegível sem configuração gravada.
	ErrConfiguracaoAusente = errors.New("configurações não encontradas")
	// ErrLimiteExcedido indica que a cota de eventos do período foi atingida.
	ErrLimiteExcedido = errors.New("limite de eventos excedido")
)

type clienteStore interface {
	Buscar(ctx context.Context, id uuid.UUID) (*cliente.Cliente, error)
	BuscarConfiguracao(ctx context.Context, clienteID uuid.UUID) (*cliente.Configuracao, error)
	ListarTagsAtivas(ctx context.Context, clienteID uuid.UUID) ([]cliente.Tag, error)
}

type ledger interface {
	Status(ctx context.Context, clienteID uuid.UUID) (*quota.Controle, error)
	Consumir(ctx context.Context, clienteID uuid.UUID) (*quota.Controle, bool, error)
}

type registrador interface {
	Registrar(ctx context.Context, ator audit.Ator, acao string, detalhes *string, origem audit.Origem)
}

// Entrada é a requisição recebida do motor de workflows.
type Entrada struct {
	ClienteID string
	Dados     map[string]any
	Origem    audit.Origem
}

// Configuracoes é a projeção da configuração entregue ao consumidor. Campos
// ausentes viram string vazia: o workflow decide o que fazer com credenciais
// em branco.
type Configuracoes struct {
	KommoToken          string   `json:"kommo_token"`
	KommoDomain         string   `json:"kommo_domain"`
	ChatGPTAPIKey       string   `json:"chatgpt_api_key"`
	ChatGPTModel        string   `json:"chatgpt_model"`
	PipelineID          string   `json:"pipeline_id"`
	FunilIDs            []string `json:"funil_ids"`
	PromptAgenteIA      string   `json:"prompt_agente_ia"`
	PromptAudio         string   `json:"prompt_audio"`
	PromptImagem        string   `json:"prompt_imagem"`
	AprovacaoAutomatica bool     `json:"aprovacao_automatica"`
	UsarN8N             bool     `json:"usar_n8n"`
	WebhookURL          string   `json:"webhook_url"`
}

// TagPermitida é uma tag ativa exposta ao workflow.
type TagPermitida struct {
	Nome       string `json:"nome"`
	FunilID    string `json:"funil_id"`
	PipelineID string `json:"pipeline_id"`
}

// Resolucao é a resposta completa do webhook: configuração, roteamento e eco
// do payload original.
type Resolucao struct {
	ClienteID        uuid.UUID      `json:"cliente_id"`
	Configuracoes    Configuracoes  `json:"configuracoes"`
	TagsPermitidas   []TagPermitida `json:"tags_permitidas"`
	EventosRestantes int            `json:"eventos_restantes"`
	WebhookData      map[string]any `json:"webhook_data"`
}

// Service resolve requisições do webhook: valida o cliente, carrega a
// configuração e consome um evento da cota.
type Service struct {
	clientes clienteStore
	cotas    ledger
	auditor  registrador
	logger   zerolog.Logger
}

// NewService cria o resolvedor do webhook.
func NewService(clientes clienteStore, cotas ledger, auditor registrador, logger zerolog.Logger) *Service {
	return &Service{clientes: clientes, cotas: cotas, auditor: auditor, logger: logger}
}

// Resolver executa o fluxo completo. A ordem importa: todas as leituras
// acontecem antes do consumo da cota, então nenhuma falha posterior ao
// incremento é possível além da escrita da resposta. Recusas de admissão
// também deixam trilha de auditoria, cada uma com sua ação.
func (s *Service) Resolver(ctx context.Context, entrada Entrada) (*Resolucao, error) {
	c, err := s.validarCliente(ctx, entrada.ClienteID)
	if err != nil {
		s.auditarRecusa(ctx, entrada, err)
		return nil, err
	}
	clienteID := c.ID

	// Conta sem controle ativo opera sem restrição: a cota só passa a valer
	// quando a aprovação (ou um administrador) cria o controle.
	var controle *quota.Controle
	if atual, err := s.cotas.Status(ctx, clienteID); err == nil {
		if !atual.PodeUsarEvento() {
			return nil, s.limiteExcedido(ctx, clienteID, entrada.Origem)
		}
		controle = atual
	} else if !errors.Is(err, quota.ErrNotFound) {
		return nil, err
	}

	config, err := s.clientes.BuscarConfiguracao(ctx, clienteID)
	if err != nil {
		if errors.Is(err, cliente.ErrConfigNotFound) {
			return nil, ErrConfiguracaoAusente
		}
		return nil, err
	}

	tags, err := s.clientes.ListarTagsAtivas(ctx, clienteID)
	if err != nil {
		return nil, err
	}

	// Consumo atômico por último: concorrentes podem ter esgotado a cota
	// entre a leitura acima e agora.
	restantes := quota.LimiteIlimitado
	if controle != nil {
		atualizado, admitido, err := s.cotas.Consumir(ctx, clienteID)
		switch {
		case errors.Is(err, quota.ErrNotFound):
			// Controle desativado entre a leitura e o consumo: segue sem restrição.
		case err != nil:
			return nil, err
		case !admitido:
			return nil, s.limiteExcedido(ctx, clienteID, entrada.Origem)
		default:
			restantes = atualizado.EventosRestantes()
		}
	}

	detalhe := fmt.Sprintf("evento processado; restantes=%d", restantes)
	s.auditor.Registrar(ctx, audit.AtorCliente(clienteID), "webhook_executado", audit.Detalhe(detalhe), entrada.Origem)

	s.logger.Info().
		Str("cliente_id", clienteID.String()).
		Int("eventos_restantes", restantes).
		Msg("webhook: evento resolvido")

	return &Resolucao{
		ClienteID:        clienteID,
		Configuracoes:    projetarConfiguracoes(config),
		TagsPermitidas:   projetarTags(tags),
		EventosRestantes: restantes,
		WebhookData:      entrada.Dados,
	}, nil
}

// ConfiguracoesPublicas é a projeção sem credenciais: o que um workflow pode
// consultar antes de disparar o fluxo completo.
type ConfiguracoesPublicas struct {
	KommoDomain    string   `json:"kommo_domain"`
	ChatGPTModel   string   `json:"chatgpt_model"`
	PipelineID     string   `json:"pipeline_id"`
	FunilIDs       []string `json:"funil_ids"`
	PromptAgenteIA string   `json:"prompt_agente_ia"`
	PromptAudio    string   `json:"prompt_audio"`
	PromptImagem   string   `json:"prompt_imagem"`
	UsarN8N        bool     `json:"usar_n8n"`
	WebhookURL     string   `json:"webhook_url"`
}

// Visao é a resposta da consulta de configuração: mesma validação de cliente
// do fluxo principal, sem credenciais e sem consumo de cota.
type Visao struct {
	ClienteID        uuid.UUID             `json:"cliente_id"`
	ClienteNome      string                `json:"cliente_nome"`
	Configuracoes    ConfiguracoesPublicas `json:"configuracoes"`
	TagsPermitidas   []TagPermitida        `json:"tags_permitidas"`
	EventosRestantes int                   `json:"eventos_restantes"`
}

// Verificar resolve a configuração pública de um cliente. Cota esgotada não é
// erro aqui: a consulta apenas informa quantos eventos restam.
func (s *Service) Verificar(ctx context.Context, clienteIDRaw string) (*Visao, error) {
	c, err := s.validarCliente(ctx, clienteIDRaw)
	if err != nil {
		return nil, err
	}
	clienteID := c.ID

	config, err := s.clientes.BuscarConfiguracao(ctx, clienteID)
	if err != nil {
		if errors.Is(err, cliente.ErrConfigNotFound) {
			return nil, ErrConfiguracaoAusente
		}
		return nil, err
	}

	tags, err := s.clientes.ListarTagsAtivas(ctx, clienteID)
	if err != nil {
		return nil, err
	}

	restantes := quota.LimiteIlimitado
	if controle, err := s.cotas.Status(ctx, clienteID); err == nil {
		restantes = controle.EventosRestantes()
	} else if !errors.Is(err, quota.ErrNotFound) {
		return nil, err
	}

	return &Visao{
		ClienteID:        clienteID,
		ClienteNome:      c.Nome,
		Configuracoes:    projetarPublicas(config),
		TagsPermitidas:   projetarTags(tags),
		EventosRestantes: restantes,
	}, nil
}

// Diagnostico é o resultado do teste do webhook: executa todas as validações
// do fluxo principal sem consumir evento.
type Diagnostico struct {
	ClienteID            uuid.UUID `json:"cliente_id"`
	Elegivel             bool      `json:"elegivel"`
	EventosRestantes     int       `json:"eventos_restantes"`
	ConfiguracaoCompleta bool      `json:"configuracao_completa"`
}

// Testar faz a admissão a seco: mesmos erros do Resolver, contador intacto.
func (s *Service) Testar(ctx context.Context, clienteIDRaw string) (*Diagnostico, error) {
	c, err := s.validarCliente(ctx, clienteIDRaw)
	if err != nil {
		return nil, err
	}
	clienteID := c.ID

	restantes := quota.LimiteIlimitado
	if controle, err := s.cotas.Status(ctx, clienteID); err == nil {
		if !controle.PodeUsarEvento() {
			return nil, ErrLimiteExcedido
		}
		restantes = controle.EventosRestantes()
	} else if !errors.Is(err, quota.ErrNotFound) {
		return nil, err
	}

	config, err := s.clientes.BuscarConfiguracao(ctx, clienteID)
	if err != nil {
		if errors.Is(err, cliente.ErrConfigNotFound) {
			return nil, ErrConfiguracaoAusente
		}
		return nil, err
	}

	completa := config.KommoToken != nil && config.KommoDomain != nil && config.ChatGPTAPIKey != nil

	return &Diagnostico{
		ClienteID:            clienteID,
		Elegivel:             true,
		EventosRestantes:     restantes,
		ConfiguracaoCompleta: completa,
	}, nil
}

func (s *Service) validarCliente(ctx context.Context, raw string) (*cliente.Cliente, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrClienteObrigatorio
	}

	clienteID, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrClienteInvalido
	}

	c, err := s.clientes.Buscar(ctx, clienteID)
	if err != nil {
		if errors.Is(err, cliente.ErrNotFound) {
			return nil, ErrClienteInvalido
		}
		return nil, err
	}
	if !c.Elegivel() {
		return nil, ErrClienteInvalido
	}

	return c, nil
}

// auditarRecusa grava a trilha das requisições recusadas antes da resolução.
// Sem cliente identificado o ator é o sistema.
func (s *Service) auditarRecusa(ctx context.Context, entrada Entrada, err error) {
	switch {
	case errors.Is(err, ErrClienteObrigatorio):
		s.auditor.Registrar(ctx, audit.AtorSistema(), "webhook_sem_cliente_id", nil, entrada.Origem)
	case errors.Is(err, ErrClienteInvalido):
		detalhe := audit.Detalhe("cliente: " + strings.TrimSpace(entrada.ClienteID))
		s.auditor.Registrar(ctx, audit.AtorSistema(), "webhook_cliente_invalido", detalhe, entrada.Origem)
	}
}

func (s *Service) limiteExcedido(ctx context.Context, clienteID uuid.UUID, origem audit.Origem) error {
	s.auditor.Registrar(ctx, audit.AtorCliente(clienteID), "webhook_limite_excedido", nil, origem)
	return ErrLimiteExcedido
}

func projetarConfiguracoes(config *cliente.Configuracao) Configuracoes {
	funilIDs := config.FunilIDs
	if funilIDs == nil {
		funilIDs = []string{}
	}
	return Configuracoes{
		KommoToken:          deref(config.KommoToken),
		KommoDomain:         deref(config.KommoDomain),
		ChatGPTAPIKey:       deref(config.ChatGPTAPIKey),
		ChatGPTModel:        config.ChatGPTModel,
		PipelineID:          deref(config.PipelineID),
		FunilIDs:            funilIDs,
		PromptAgenteIA:      deref(config.PromptAgenteIA),
		PromptAudio:         deref(config.PromptAudio),
		PromptImagem:        deref(config.PromptImagem),
		AprovacaoAutomatica: config.AprovacaoAutomatica,
		UsarN8N:             config.UsarN8N,
		WebhookURL:          deref(config.WebhookURL),
	}
}

func projetarPublicas(config *cliente.Configuracao) ConfiguracoesPublicas {
	funilIDs := config.FunilIDs
	if funilIDs == nil {
		funilIDs = []string{}
	}
	return ConfiguracoesPublicas{
		KommoDomain:    deref(config.KommoDomain),
		ChatGPTModel:   config.ChatGPTModel,
		PipelineID:     deref(config.PipelineID),
		FunilIDs:       funilIDs,
		PromptAgenteIA: deref(config.PromptAgenteIA),
		PromptAudio:    deref(config.PromptAudio),
		PromptImagem:   deref(config.PromptImagem),
		UsarN8N:        config.UsarN8N,
		WebhookURL:     deref(config.WebhookURL),
	}
}

func projetarTags(tags []cliente.Tag) []TagPermitida {
	permitidas := make([]TagPermitida, 0, len(tags))
	for _, t := range tags {
		permitidas = append(permitidas, TagPermitida{
			Nome:       t.Nome,
			FunilID:    t.FunilID,
			PipelineID: t.PipelineID,
		})
	}
	return permitidas
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
