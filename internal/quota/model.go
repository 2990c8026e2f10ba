package quota

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// LimiteIlimitado é o valor sentinela para contas sem teto de eventos.
	LimiteIlimitado = -1

	// LimitePadrao é aplicado a contas recém-aprovadas sem limite explícito.
	LimitePadrao = 900
)

var (
	ErrNotFound       = errors.New("controle de eventos não encontrado")
	ErrLimiteInvalido = errors.New("limite deve ser -1 (ilimitado) ou maior ou igual a zero")
)

// Controle é o registro de cota de eventos de um cliente. Cada cliente tem no
// máximo um controle ativo; registros anteriores ficam inativos como histórico.
type Controle struct {
	ID                uuid.UUID  `json:"id"`
	ClienteID         uuid.UUID  `json:"cliente_id"`
	LimiteEventos     int        `json:"limite_eventos"`
	EventosUtilizados int        `json:"eventos_utilizados"`
	DataInicio        time.Time  `json:"data_inicio"`
	DataFim           *time.Time `json:"data_fim,omitempty"`
	Ativo             bool       `json:"ativo"`
	CriadoEm          time.Time  `json:"data_criacao"`
	AtualizadoEm      time.Time  `json:"data_atualizacao"`
}

// Ilimitado indica se o controle não impõe teto.
func (c *Controle) Ilimitado() bool {
	return c.LimiteEventos == LimiteIlimitado
}

// EventosRestantes devolve quantos eventos ainda cabem no período.
// Para controles ilimitados devolve LimiteIlimitado.
func (c *Controle) EventosRestantes() int {
	if c.Ilimitado() {
		return LimiteIlimitado
	}
	restantes := c.LimiteEventos - c.EventosUtilizados
	if restantes < 0 {
		return 0
	}
	return restantes
}

// PodeUsarEvento indica se ainda há saldo para mais um evento.
func (c *Controle) PodeUsarEvento() bool {
	if !c.Ativo {
		return false
	}
	if c.Ilimitado() {
		return true
	}
	return c.EventosUtilizados < c.LimiteEventos
}

// UsarEvento consome um evento em memória. Controles ilimitados nunca têm o
// contador incrementado; o retorno informa se o consumo foi admitido.
func (c *Controle) UsarEvento() bool {
	if !c.PodeUsarEvento() {
		return false
	}
	if !c.Ilimitado() {
		c.EventosUtilizados++
	}
	return true
}

// ValidarLimite rejeita limites fora do domínio: -1 ou inteiro não negativo.
func ValidarLimite(limite int) error {
	if limite < LimiteIlimitado {
		return ErrLimiteInvalido
	}
	return nil
}
