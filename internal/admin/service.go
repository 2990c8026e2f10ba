package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/auth"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/quota"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/util"
)

// ErrSomenteSuperAdmin indica operação restrita a super administradores.
var ErrSomenteSuperAdmin = errors.New("operação restrita a super administradores")

type adminStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Administrador, error)
	GetByEmail(ctx context.Context, email string) (*Administrador, error)
	List(ctx context.Context) ([]Administrador, error)
	Create(ctx context.Context, input CriarAdministradorInput, senhaHash string) (*Administrador, error)
	TouchUltimoLogin(ctx context.Context, id uuid.UUID) error
	SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error
}

type clienteDiretorio interface {
	Buscar(ctx context.Context, id uuid.UUID) (*cliente.Cliente, error)
	Listar(ctx context.Context, filtro cliente.FiltroStatus, limit, offset int) ([]cliente.Cliente, int, error)
	Aprovar(ctx context.Context, id uuid.UUID) error
	Desativar(ctx context.Context, id uuid.UUID) error
	Reativar(ctx context.Context, id uuid.UUID) error
	ContarPorStatus(ctx context.Context) (total, ativos, aprovados, pendentes int, err error)
	ContarTagsGlobal(ctx context.Context) (total, ativas int, err error)
	Configuracao(ctx context.Context, clienteID uuid.UUID) (*cliente.Configuracao, error)
	ListarTags(ctx context.Context, clienteID uuid.UUID) ([]cliente.Tag, error)
}

type cotaGestor interface {
	Status(ctx context.Context, clienteID uuid.UUID) (*quota.Controle, error)
	GarantirPadrao(ctx context.Context, clienteID uuid.UUID) (*quota.Controle, error)
	DefinirLimite(ctx context.Context, clienteID uuid.UUID, limite int) (*quota.Controle, error)
	AjustarLimite(ctx context.Context, clienteID uuid.UUID, limite int) (*quota.Controle, error)
	TotalEventosUtilizados(ctx context.Context) (int, error)
}

// Service concentra as operações administrativas da plataforma.
type Service struct {
	admins   adminStore
	clientes clienteDiretorio
	cotas    cotaGestor
}

// NewService cria o serviço administrativo.
func NewService(admins adminStore, clientes clienteDiretorio, cotas cotaGestor) *Service {
	return &Service{admins: admins, clientes: clientes, cotas: cotas}
}

// Buscar devolve um administrador pelo ID.
func (s *Service) Buscar(ctx context.Context, id uuid.UUID) (*Administrador, error) {
	return s.admins.GetByID(ctx, id)
}

// BuscarPorEmail devolve um administrador pelo email.
func (s *Service) BuscarPorEmail(ctx context.Context, email string) (*Administrador, error) {
	return s.admins.GetByEmail(ctx, email)
}

// RegistrarLogin marca o instante do último login.
func (s *Service) RegistrarLogin(ctx context.Context, id uuid.UUID) error {
	return s.admins.TouchUltimoLogin(ctx, id)
}

// ListarAdministradores devolve todos os administradores (somente super admin).
func (s *Service) ListarAdministradores(ctx context.Context, ator *Administrador) ([]Administrador, error) {
	if !ator.SuperAdmin() {
		return nil, ErrSomenteSuperAdmin
	}
	return s.admins.List(ctx)
}

// CriarAdministrador cria um novo operador (somente super admin).
func (s *Service) CriarAdministrador(ctx context.Context, ator *Administrador, input CriarAdministradorInput) (*Administrador, error) {
	if !ator.SuperAdmin() {
		return nil, ErrSomenteSuperAdmin
	}
	if len(strings.TrimSpace(input.Nome)) < 2 {
		return nil, errors.New("nome deve ter pelo menos 2 caracteres")
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := util.ValidatePassword(input.Senha); err != nil {
		return nil, err
	}
	if input.NivelAcesso == "" {
		input.NivelAcesso = NivelAdmin
	}
	if err := ValidarNivel(input.NivelAcesso); err != nil {
		return nil, err
	}

	senhaHash, err := auth.HashSenha(input.Senha)
	if err != nil {
		return nil, err
	}
	return s.admins.Create(ctx, input, senhaHash)
}

// Dashboard agrega as estatísticas da plataforma.
func (s *Service) Dashboard(ctx context.Context) (*Estatisticas, error) {
	total, ativos, aprovados, pendentes, err := s.clientes.ContarPorStatus(ctx)
	if err != nil {
		return nil, err
	}
	totalTags, tagsAtivas, err := s.clientes.ContarTagsGlobal(ctx)
	if err != nil {
		return nil, err
	}
	eventos, err := s.cotas.TotalEventosUtilizados(ctx)
	if err != nil {
		return nil, err
	}

	return &Estatisticas{
		TotalClientes:     total,
		ClientesAtivos:    ativos,
		ClientesAprovados: aprovados,
		ClientesPendentes: pendentes,
		TotalTags:         totalTags,
		TagsAtivas:        tagsAtivas,
		EventosUtilizados: eventos,
	}, nil
}

// ListarClientes devolve contas paginadas com filtro de status.
func (s *Service) ListarClientes(ctx context.Context, filtro cliente.FiltroStatus, limit, offset int) ([]cliente.Cliente, int, error) {
	return s.clientes.Listar(ctx, filtro, limit, offset)
}

// ClienteDetalhe agrega a visão administrativa de uma conta.
type ClienteDetalhe struct {
	Cliente      *cliente.Cliente      `json:"cliente"`
	Configuracao *cliente.Configuracao `json:"configuracao,omitempty"`
	Tags         []cliente.Tag         `json:"tags"`
	Controle     *quota.Controle       `json:"controle,omitempty"`
}

// DetalharCliente devolve a conta com configuração, tags e cota.
func (s *Service) DetalharCliente(ctx context.Context, id uuid.UUID) (*ClienteDetalhe, error) {
	c, err := s.clientes.Buscar(ctx, id)
	if err != nil {
		return nil, err
	}

	detalhe := &ClienteDetalhe{Cliente: c, Tags: []cliente.Tag{}}

	if config, err := s.clientes.Configuracao(ctx, id); err == nil {
		detalhe.Configuracao = config
	} else if !errors.Is(err, cliente.ErrConfigNotFound) {
		return nil, err
	}

	tags, err := s.clientes.ListarTags(ctx, id)
	if err != nil {
		return nil, err
	}
	if tags != nil {
		detalhe.Tags = tags
	}

	if controle, err := s.cotas.Status(ctx, id); err == nil {
		detalhe.Controle = controle
	} else if !errors.Is(err, quota.ErrNotFound) {
		return nil, err
	}

	return detalhe, nil
}

// AprovarCliente libera a conta e garante o controle de cota padrão. A cota
// nasce aqui: sem aprovação não existe ciclo de eventos.
func (s *Service) AprovarCliente(ctx context.Context, id uuid.UUID) (*quota.Controle, error) {
	if err := s.clientes.Aprovar(ctx, id); err != nil {
		return nil, err
	}
	return s.cotas.GarantirPadrao(ctx, id)
}

// DesativarCliente suspende a conta.
func (s *Service) DesativarCliente(ctx context.Context, id uuid.UUID) error {
	return s.clientes.Desativar(ctx, id)
}

// ReativarCliente reverte a suspensão.
func (s *Service) ReativarCliente(ctx context.Context, id uuid.UUID) error {
	return s.clientes.Reativar(ctx, id)
}

// DefinirLimiteEventos altera o teto do ciclo corrente preservando o consumo
// já contabilizado. Um controle zerado só nasce aqui quando o cliente ainda
// não tem ciclo ativo.
func (s *Service) DefinirLimiteEventos(ctx context.Context, id uuid.UUID, limite int) (*quota.Controle, error) {
	if err := quota.ValidarLimite(limite); err != nil {
		return nil, err
	}
	if _, err := s.clientes.Buscar(ctx, id); err != nil {
		return nil, err
	}

	controle, err := s.cotas.AjustarLimite(ctx, id, limite)
	if errors.Is(err, quota.ErrNotFound) {
		return s.cotas.DefinirLimite(ctx, id, limite)
	}
	return controle, err
}
