package quota

import (
	"context"

	"github.com/google/uuid"
)

type store interface {
	GetAtivo(ctx context.Context, clienteID uuid.UUID) (*Controle, error)
	Consumir(ctx context.Context, clienteID uuid.UUID) (*Controle, bool, error)
	SetLimite(ctx context.Context, clienteID uuid.UUID, limite int) (*Controle, error)
	AtualizarLimite(ctx context.Context, clienteID uuid.UUID, limite int) (*Controle, error)
	EnsureDefault(ctx context.Context, clienteID uuid.UUID) (*Controle, error)
	SomaEventosUtilizados(ctx context.Context) (int, error)
	ListAtivos(ctx context.Context) ([]Controle, error)
}

// Service expõe as operações de cota de eventos.
type Service struct {
	repo store
}

// NewService cria o serviço de cotas.
func NewService(repo store) *Service {
	return &Service{repo: repo}
}

// Status devolve o controle ativo do cliente.
func (s *Service) Status(ctx context.Context, clienteID uuid.UUID) (*Controle, error) {
	return s.repo.GetAtivo(ctx, clienteID)
}

// Consumir admite (ou não) um evento de forma atômica. O booleano indica se o
// evento foi admitido; quando false, o controle devolvido reflete o estado que
// causou a recusa.
func (s *Service) Consumir(ctx context.Context, clienteID uuid.UUID) (*Controle, bool, error) {
	return s.repo.Consumir(ctx, clienteID)
}

// DefinirLimite inicia um novo ciclo com o limite informado e contador zerado.
func (s *Service) DefinirLimite(ctx context.Context, clienteID uuid.UUID, limite int) (*Controle, error) {
	return s.repo.SetLimite(ctx, clienteID, limite)
}

// AjustarLimite altera o teto do ciclo corrente sem zerar o contador.
func (s *Service) AjustarLimite(ctx context.Context, clienteID uuid.UUID, limite int) (*Controle, error) {
	return s.repo.AtualizarLimite(ctx, clienteID, limite)
}

// GarantirPadrao cria o controle padrão do cliente caso ainda não exista.
// Chamado na aprovação da conta.
func (s *Service) GarantirPadrao(ctx context.Context, clienteID uuid.UUID) (*Controle, error) {
	return s.repo.EnsureDefault(ctx, clienteID)
}

// TotalEventosUtilizados agrega o consumo dos controles ativos (dashboard).
func (s *Service) TotalEventosUtilizados(ctx context.Context) (int, error) {
	return s.repo.SomaEventosUtilizados(ctx)
}

// ListarAtivos devolve todos os controles ativos (monitor de uso).
func (s *Service) ListarAtivos(ctx context.Context) ([]Controle, error) {
	return s.repo.ListAtivos(ctx)
}
