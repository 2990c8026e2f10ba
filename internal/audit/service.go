package audit

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type inserter interface {
	Insert(ctx context.Context, e Entrada) error
}

type lister interface {
	List(ctx context.Context, filtro Filtro) ([]Entrada, int, error)
}

type store interface {
	inserter
	lister
}

// Service grava e consulta o log de atividades de segurança.
type Service struct {
	repo   store
	logger zerolog.Logger
}

// NewService cria o serviço de auditoria.
func NewService(repo store, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Registrar grava uma entrada em modo best-effort: falha de persistência não
// propaga para a operação que originou o registro, apenas vai para o log
// operacional.
func (s *Service) Registrar(ctx context.Context, ator Ator, acao string, detalhes *string, origem Origem) {
	tipo := strings.ToLower(strings.TrimSpace(ator.Tipo))
	if !IsValidTipo(tipo) {
		tipo = TipoSistema
	}

	entrada := Entrada{
		UsuarioID:   ator.ID,
		TipoUsuario: tipo,
		Acao:        strings.TrimSpace(acao),
		Detalhes:    detalhes,
		IPAddress:   origem.IPAddress,
		UserAgent:   origem.UserAgent,
	}

	// Usa contexto próprio para que o cancelamento da requisição não perca o
	// registro já decidido.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := s.repo.Insert(writeCtx, entrada); err != nil {
		s.logger.Error().Err(err).
			Str("acao", entrada.Acao).
			Str("tipo_usuario", entrada.TipoUsuario).
			Msg("audit: falha ao registrar atividade")
	}
}

// Listar devolve entradas do log para consultas administrativas.
func (s *Service) Listar(ctx context.Context, filtro Filtro) ([]Entrada, int, error) {
	return s.repo.List(ctx, filtro)
}

// Detalhe é açúcar para construir o campo detalhes.
func Detalhe(texto string) *string {
	if strings.TrimSpace(texto) == "" {
		return nil
	}
	return &texto
}
