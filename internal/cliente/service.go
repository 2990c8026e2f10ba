package cliente

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/auth"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/util"
)

// ErrValidacao marca falhas de validação de entrada; o texto do erro carrega
// a mensagem específica.
var ErrValidacao = errors.New("dados inválidos")

func validacao(err error) error {
	return fmt.Errorf("%w: %s", ErrValidacao, err.Error())
}

// Service concentra as regras de negócio de contas de cliente.
type Service struct {
	repo *Repository
}

// NewService cria o serviço de clientes.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Cadastrar cria a conta e a configuração padrão. A conta nasce ativa e não
// aprovada: o acesso ao webhook depende da aprovação administrativa.
func (s *Service) Cadastrar(ctx context.Context, input CadastroInput) (*Cliente, error) {
	if err := validarCadastro(input); err != nil {
		return nil, err
	}
	senhaHash, err := auth.HashSenha(input.Senha)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateComConfiguracao(ctx, input, senhaHash)
}

// Buscar devolve o cliente pelo ID.
func (s *Service) Buscar(ctx context.Context, id uuid.UUID) (*Cliente, error) {
	return s.repo.GetByID(ctx, id)
}

// BuscarPorEmail devolve o cliente pelo email.
func (s *Service) BuscarPorEmail(ctx context.Context, email string) (*Cliente, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Listar devolve clientes paginados (uso administrativo).
func (s *Service) Listar(ctx context.Context, filtro FiltroStatus, limit, offset int) ([]Cliente, int, error) {
	return s.repo.List(ctx, filtro, limit, offset)
}

// Aprovar libera o cliente para consumir o webhook.
func (s *Service) Aprovar(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetAprovado(ctx, id, true)
}

// Desativar suspende a conta sem apagar dados (soft delete).
func (s *Service) Desativar(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetAtivo(ctx, id, false)
}

// Reativar reverte a desativação.
func (s *Service) Reativar(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetAtivo(ctx, id, true)
}

// ContarPorStatus devolve agregados de contas para o dashboard.
func (s *Service) ContarPorStatus(ctx context.Context) (total, ativos, aprovados, pendentes int, err error) {
	return s.repo.CountPorStatus(ctx)
}

// ContarTags devolve agregados de tags do próprio cliente.
func (s *Service) ContarTags(ctx context.Context, clienteID uuid.UUID) (total, ativas int, err error) {
	return s.repo.CountTags(ctx, clienteID)
}

// ContarTagsGlobal devolve agregados de tags para o dashboard.
func (s *Service) ContarTagsGlobal(ctx context.Context) (total, ativas int, err error) {
	return s.repo.CountTagsGlobal(ctx)
}

// AtualizarPerfil atualiza os dados cadastrais do próprio cliente.
func (s *Service) AtualizarPerfil(ctx context.Context, id uuid.UUID, input AtualizarPerfilInput) (*Cliente, error) {
	if len(strings.TrimSpace(input.Nome)) < 2 {
		return nil, validacao(errors.New("nome deve ter pelo menos 2 caracteres"))
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return nil, validacao(err)
	}
	if err := util.ValidateCNPJ(input.CNPJ); err != nil {
		return nil, validacao(err)
	}
	return s.repo.UpdatePerfil(ctx, id, input)
}

// AlterarSenha troca a senha após conferir a atual.
func (s *Service) AlterarSenha(ctx context.Context, id uuid.UUID, senhaAtual, senhaNova string) error {
	if err := util.ValidatePassword(senhaNova); err != nil {
		return validacao(err)
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := auth.VerificarSenha(senhaAtual, c.SenhaHash)
	if err != nil {
		return err
	}
	if !ok {
		return validacao(errors.New("senha atual incorreta"))
	}

	hash, err := auth.HashSenha(senhaNova)
	if err != nil {
		return err
	}
	return s.repo.UpdateSenha(ctx, id, hash)
}

// Configuracao devolve a configuração do cliente, criando-a se necessário.
func (s *Service) Configuracao(ctx context.Context, clienteID uuid.UUID) (*Configuracao, error) {
	return s.repo.EnsureConfiguracao(ctx, clienteID)
}

// BuscarConfiguracao devolve a configuração sem criá-la quando ausente.
// É a leitura usada pelo webhook: ausência é condição de erro, não gatilho
// de criação.
func (s *Service) BuscarConfiguracao(ctx context.Context, clienteID uuid.UUID) (*Configuracao, error) {
	return s.repo.GetConfiguracao(ctx, clienteID)
}

// AtualizarConfiguracao aplica atualização parcial da configuração.
func (s *Service) AtualizarConfiguracao(ctx context.Context, clienteID uuid.UUID, input AtualizarConfiguracaoInput) (*Configuracao, error) {
	if input.ChatGPTModel != nil && strings.TrimSpace(*input.ChatGPTModel) == "" {
		return nil, validacao(errors.New("chatgpt_model não pode ser vazio"))
	}

	// Garante a linha antes do UPDATE parcial: contas antigas podem não ter
	// configuração materializada.
	if _, err := s.repo.EnsureConfiguracao(ctx, clienteID); err != nil {
		return nil, err
	}
	return s.repo.UpdateConfiguracao(ctx, clienteID, input)
}

// ListarTags devolve todas as tags do cliente.
func (s *Service) ListarTags(ctx context.Context, clienteID uuid.UUID) ([]Tag, error) {
	return s.repo.ListTags(ctx, clienteID)
}

// ListarTagsAtivas devolve apenas as tags ativas, na forma consumida pelo webhook.
func (s *Service) ListarTagsAtivas(ctx context.Context, clienteID uuid.UUID) ([]Tag, error) {
	return s.repo.ListTagsAtivas(ctx, clienteID)
}

// CriarTag adiciona um mapeamento tag -> (funil, pipeline).
func (s *Service) CriarTag(ctx context.Context, input CriarTagInput) (*Tag, error) {
	if err := util.RequireString(input.Nome, "nome"); err != nil {
		return nil, validacao(err)
	}
	if err := util.RequireString(input.FunilID, "funil_id"); err != nil {
		return nil, validacao(err)
	}
	if err := util.RequireString(input.PipelineID, "pipeline_id"); err != nil {
		return nil, validacao(err)
	}
	return s.repo.CreateTag(ctx, input)
}

// AtualizarTag aplica atualização parcial de uma tag do cliente.
func (s *Service) AtualizarTag(ctx context.Context, clienteID, tagID uuid.UUID, input AtualizarTagInput) (*Tag, error) {
	if input.Nome != nil && strings.TrimSpace(*input.Nome) == "" {
		return nil, validacao(errors.New("nome não pode ser vazio"))
	}
	return s.repo.UpdateTag(ctx, clienteID, tagID, input)
}

// RemoverTag exclui uma tag do cliente.
func (s *Service) RemoverTag(ctx context.Context, clienteID, tagID uuid.UUID) (*Tag, error) {
	return s.repo.DeleteTag(ctx, clienteID, tagID)
}

func validarCadastro(input CadastroInput) error {
	if len(strings.TrimSpace(input.Nome)) < 2 {
		return validacao(errors.New("nome deve ter pelo menos 2 caracteres"))
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return validacao(err)
	}
	if err := util.ValidatePassword(input.Senha); err != nil {
		return validacao(err)
	}
	if err := util.ValidateCNPJ(input.CNPJ); err != nil {
		return validacao(err)
	}
	return nil
}
