package cliente

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// Os caminhos de validação falham antes de qualquer acesso ao banco, então o
// serviço pode ser construído sem repositório.
func TestCadastrarValidaEntrada(t *testing.T) {
	svc := NewService(nil)

	casos := []struct {
		nome  string
		input CadastroInput
	}{
		{"nome curto", CadastroInput{Nome: "A", Email: "a@b.co", Senha: "123456"}},
		{"email inválido", CadastroInput{Nome: "Alves Eco", Email: "sem-arroba", Senha: "123456"}},
		{"senha curta", CadastroInput{Nome: "Alves Eco", Email: "a@b.co", Senha: "123"}},
		{"cnpj inválido", CadastroInput{Nome: "Alves Eco", Email: "a@b.co", Senha: "123456", CNPJ: "12"}},
	}

	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			_, err := svc.Cadastrar(context.Background(), caso.input)
			if !errors.Is(err, ErrValidacao) {
				t.Errorf("esperado ErrValidacao, veio %v", err)
			}
		})
	}
}

func TestAtualizarConfiguracaoRejeitaModeloVazio(t *testing.T) {
	svc := NewService(nil)

	vazio := "   "
	_, err := svc.AtualizarConfiguracao(context.Background(), uuid.Nil, AtualizarConfiguracaoInput{ChatGPTModel: &vazio})
	if !errors.Is(err, ErrValidacao) {
		t.Errorf("esperado ErrValidacao, veio %v", err)
	}
}

func TestCriarTagValidaCamposObrigatorios(t *testing.T) {
	svc := NewService(nil)

	casos := []struct {
		nome  string
		input CriarTagInput
	}{
		{"sem nome", CriarTagInput{FunilID: "123", PipelineID: "456"}},
		{"sem funil", CriarTagInput{Nome: "agendamento", PipelineID: "456"}},
		{"sem pipeline", CriarTagInput{Nome: "agendamento", FunilID: "123"}},
	}

	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			_, err := svc.CriarTag(context.Background(), caso.input)
			if !errors.Is(err, ErrValidacao) {
				t.Errorf("esperado ErrValidacao, veio %v", err)
			}
		})
	}
}

func TestElegivel(t *testing.T) {
	casos := []struct {
		nome     string
		cliente  Cliente
		esperado bool
	}{
		{"ativo e aprovado", Cliente{Ativo: true, Aprovado: true}, true},
		{"apenas ativo", Cliente{Ativo: true}, false},
		{"apenas aprovado", Cliente{Aprovado: true}, false},
		{"desativado", Cliente{}, false},
	}

	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			if got := caso.cliente.Elegivel(); got != caso.esperado {
				t.Errorf("Elegivel() = %v, esperado %v", got, caso.esperado)
			}
		})
	}
}
