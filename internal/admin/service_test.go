package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/quota"
)

type adminStoreStub struct {
	admins map[uuid.UUID]*Administrador
	criado *CriarAdministradorInput
}

func (s *adminStoreStub) GetByID(_ context.Context, id uuid.UUID) (*Administrador, error) {
	a, ok := s.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *adminStoreStub) GetByEmail(_ context.Context, email string) (*Administrador, error) {
	for _, a := range s.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *adminStoreStub) List(context.Context) ([]Administrador, error) {
	var out []Administrador
	for _, a := range s.admins {
		out = append(out, *a)
	}
	return out, nil
}

func (s *adminStoreStub) Create(_ context.Context, input CriarAdministradorInput, senhaHash string) (*Administrador, error) {
	s.criado = &input
	return &Administrador{ID: uuid.New(), Nome: input.Nome, Email: input.Email, SenhaHash: senhaHash, NivelAcesso: input.NivelAcesso, Ativo: true}, nil
}

func (s *adminStoreStub) TouchUltimoLogin(context.Context, uuid.UUID) error { return nil }
func (s *adminStoreStub) SetAtivo(context.Context, uuid.UUID, bool) error  { return nil }

type clienteDiretorioStub struct {
	clientes  map[uuid.UUID]*cliente.Cliente
	aprovados []uuid.UUID
}

func (s *clienteDiretorioStub) Buscar(_ context.Context, id uuid.UUID) (*cliente.Cliente, error) {
	c, ok := s.clientes[id]
	if !ok {
		return nil, cliente.ErrNotFound
	}
	return c, nil
}

func (s *clienteDiretorioStub) Listar(context.Context, cliente.FiltroStatus, int, int) ([]cliente.Cliente, int, error) {
	return nil, 0, nil
}

func (s *clienteDiretorioStub) Aprovar(_ context.Context, id uuid.UUID) error {
	c, ok := s.clientes[id]
	if !ok {
		return cliente.ErrNotFound
	}
	c.Aprovado = true
	s.aprovados = append(s.aprovados, id)
	return nil
}

func (s *clienteDiretorioStub) Desativar(_ context.Context, id uuid.UUID) error {
	c, ok := s.clientes[id]
	if !ok {
		return cliente.ErrNotFound
	}
	c.Ativo = false
	return nil
}

func (s *clienteDiretorioStub) Reativar(_ context.Context, id uuid.UUID) error {
	c, ok := s.clientes[id]
	if !ok {
		return cliente.ErrNotFound
	}
	c.Ativo = true
	return nil
}

func (s *clienteDiretorioStub) ContarPorStatus(context.Context) (int, int, int, int, error) {
	return 4, 3, 2, 1, nil
}

func (s *clienteDiretorioStub) ContarTagsGlobal(context.Context) (int, int, error) {
	return 7, 5, nil
}

func (s *clienteDiretorioStub) Configuracao(context.Context, uuid.UUID) (*cliente.Configuracao, error) {
	return nil, cliente.ErrConfigNotFound
}

func (s *clienteDiretorioStub) ListarTags(context.Context, uuid.UUID) ([]cliente.Tag, error) {
	return nil, nil
}

type cotaGestorStub struct {
	controles map[uuid.UUID]*quota.Controle
}

func (s *cotaGestorStub) Status(_ context.Context, id uuid.UUID) (*quota.Controle, error) {
	c, ok := s.controles[id]
	if !ok {
		return nil, quota.ErrNotFound
	}
	return c, nil
}

func (s *cotaGestorStub) GarantirPadrao(_ context.Context, id uuid.UUID) (*quota.Controle, error) {
	if c, ok := s.controles[id]; ok {
		return c, nil
	}
	c := &quota.Controle{ID: uuid.New(), ClienteID: id, LimiteEventos: quota.LimitePadrao, Ativo: true}
	s.controles[id] = c
	return c, nil
}

func (s *cotaGestorStub) DefinirLimite(_ context.Context, id uuid.UUID, limite int) (*quota.Controle, error) {
	c := &quota.Controle{ID: uuid.New(), ClienteID: id, LimiteEventos: limite, Ativo: true}
	s.controles[id] = c
	return c, nil
}

func (s *cotaGestorStub) AjustarLimite(_ context.Context, id uuid.UUID, limite int) (*quota.Controle, error) {
	c, ok := s.controles[id]
	if !ok {
		return nil, quota.ErrNotFound
	}
	c.LimiteEventos = limite
	return c, nil
}

func (s *cotaGestorStub) TotalEventosUtilizados(context.Context) (int, error) {
	return 42, nil
}

func novoServico() (*Service, *clienteDiretorioStub, *cotaGestorStub, uuid.UUID) {
	clienteID := uuid.New()
	clientes := &clienteDiretorioStub{clientes: map[uuid.UUID]*cliente.Cliente{
		clienteID: {ID: clienteID, Nome: "Alves Eco", Email: "contato@alveseco.com.br", Ativo: true},
	}}
	cotas := &cotaGestorStub{controles: map[uuid.UUID]*quota.Controle{}}
	admins := &adminStoreStub{admins: map[uuid.UUID]*Administrador{}}
	return NewService(admins, clientes, cotas), clientes, cotas, clienteID
}

func TestAprovarClienteCriaControlePadrao(t *testing.T) {
	svc, clientes, cotas, clienteID := novoServico()

	controle, err := svc.AprovarCliente(context.Background(), clienteID)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if !clientes.clientes[clienteID].Aprovado {
		t.Error("cliente deveria ficar aprovado")
	}
	if controle.LimiteEventos != quota.LimitePadrao {
		t.Errorf("limite = %d, esperado %d", controle.LimiteEventos, quota.LimitePadrao)
	}
	if _, ok := cotas.controles[clienteID]; !ok {
		t.Error("controle padrão deveria ser criado")
	}
}

func TestAprovarClienteIdempotenteNaCota(t *testing.T) {
	svc, _, cotas, clienteID := novoServico()

	primeiro, err := svc.AprovarCliente(context.Background(), clienteID)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	segundo, err := svc.AprovarCliente(context.Background(), clienteID)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if primeiro.ID != segundo.ID {
		t.Error("reaprovação não pode zerar o controle existente")
	}
	if len(cotas.controles) != 1 {
		t.Errorf("controles = %d, esperado 1", len(cotas.controles))
	}
}

func TestAprovarClienteInexistente(t *testing.T) {
	svc, _, _, _ := novoServico()

	_, err := svc.AprovarCliente(context.Background(), uuid.New())
	if !errors.Is(err, cliente.ErrNotFound) {
		t.Fatalf("esperado ErrNotFound, veio %v", err)
	}
}

func TestDefinirLimiteEventos(t *testing.T) {
	svc, _, cotas, clienteID := novoServico()

	controle, err := svc.DefinirLimiteEventos(context.Background(), clienteID, 500)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if controle.LimiteEventos != 500 {
		t.Errorf("limite = %d, esperado 500", controle.LimiteEventos)
	}
	if controle.EventosUtilizados != 0 {
		t.Errorf("controle novo deveria nascer zerado: got %d", controle.EventosUtilizados)
	}
	if cotas.controles[clienteID].LimiteEventos != 500 {
		t.Error("controle não foi criado com o limite informado")
	}

	if _, err := svc.DefinirLimiteEventos(context.Background(), clienteID, -5); !errors.Is(err, quota.ErrLimiteInvalido) {
		t.Errorf("esperado ErrLimiteInvalido, veio %v", err)
	}
	if _, err := svc.DefinirLimiteEventos(context.Background(), uuid.New(), 100); !errors.Is(err, cliente.ErrNotFound) {
		t.Errorf("esperado ErrNotFound, veio %v", err)
	}
}

func TestDefinirLimiteEventosPreservaContador(t *testing.T) {
	svc, _, cotas, clienteID := novoServico()

	existente := &quota.Controle{ID: uuid.New(), ClienteID: clienteID, LimiteEventos: 900, EventosUtilizados: 300, Ativo: true}
	cotas.controles[clienteID] = existente

	controle, err := svc.DefinirLimiteEventos(context.Background(), clienteID, 500)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if controle.ID != existente.ID {
		t.Error("ajuste de limite não pode substituir o ciclo corrente")
	}
	if controle.LimiteEventos != 500 {
		t.Errorf("limite = %d, esperado 500", controle.LimiteEventos)
	}
	if controle.EventosUtilizados != 300 {
		t.Errorf("consumo do ciclo = %d, esperado 300", controle.EventosUtilizados)
	}
}

func TestDashboardAgrega(t *testing.T) {
	svc, _, _, _ := novoServico()

	stats, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if stats.TotalClientes != 4 || stats.ClientesAtivos != 3 || stats.ClientesAprovados != 2 || stats.ClientesPendentes != 1 {
		t.Errorf("estatísticas de clientes inesperadas: %+v", stats)
	}
	if stats.TotalTags != 7 || stats.TagsAtivas != 5 {
		t.Errorf("estatísticas de tags inesperadas: %+v", stats)
	}
	if stats.EventosUtilizados != 42 {
		t.Errorf("eventos utilizados = %d, esperado 42", stats.EventosUtilizados)
	}
}

func TestCriarAdministradorRestritoASuperAdmin(t *testing.T) {
	svc, _, _, _ := novoServico()

	comum := &Administrador{ID: uuid.New(), NivelAcesso: NivelAdmin}
	input := CriarAdministradorInput{Nome: "Novo Admin", Email: "novo@alveseco.com.br", Senha: "segredo1"}

	if _, err := svc.CriarAdministrador(context.Background(), comum, input); !errors.Is(err, ErrSomenteSuperAdmin) {
		t.Fatalf("esperado ErrSomenteSuperAdmin, veio %v", err)
	}

	super := &Administrador{ID: uuid.New(), NivelAcesso: NivelSuperAdmin}
	criado, err := svc.CriarAdministrador(context.Background(), super, input)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if criado.NivelAcesso != NivelAdmin {
		t.Errorf("nível padrão deveria ser admin, veio %q", criado.NivelAcesso)
	}

	input.NivelAcesso = "dono"
	if _, err := svc.CriarAdministrador(context.Background(), super, input); !errors.Is(err, ErrNivelInvalido) {
		t.Errorf("esperado ErrNivelInvalido, veio %v", err)
	}
}
