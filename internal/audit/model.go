package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TipoCliente       = "cliente"
	TipoAdministrador = "administrador"
	TipoSistema       = "sistema"
)

var validTipos = map[string]struct{}{
	TipoCliente:       {},
	TipoAdministrador: {},
	TipoSistema:       {},
}

// Entrada representa um registro imutável do log de atividades.
type Entrada struct {
	ID          uuid.UUID  `json:"id"`
	UsuarioID   *uuid.UUID `json:"usuario_id,omitempty"`
	TipoUsuario string     `json:"tipo_usuario"`
	Acao        string     `json:"acao"`
	Detalhes    *string    `json:"detalhes,omitempty"`
	IPAddress   string     `json:"ip_address,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty"`
	CriadoEm    time.Time  `json:"data_criacao"`
}

// Origem carrega os dados de rede do chamador, extraídos na borda HTTP.
type Origem struct {
	IPAddress string
	UserAgent string
}

// Ator identifica explicitamente quem executa uma operação.
type Ator struct {
	ID   *uuid.UUID
	Tipo string
}

// AtorSistema representa ações iniciadas pelo próprio sistema.
func AtorSistema() Ator {
	return Ator{Tipo: TipoSistema}
}

// AtorCliente identifica um cliente autenticado.
func AtorCliente(id uuid.UUID) Ator {
	return Ator{ID: &id, Tipo: TipoCliente}
}

// AtorAdministrador identifica um administrador autenticado.
func AtorAdministrador(id uuid.UUID) Ator {
	return Ator{ID: &id, Tipo: TipoAdministrador}
}

// Filtro restringe listagens do log.
type Filtro struct {
	TipoUsuario string
	Acao        string
	UsuarioID   *uuid.UUID
	Desde       *time.Time
	Limit       int
	Offset      int
}

// IsValidTipo verifica o tipo de usuário.
func IsValidTipo(tipo string) bool {
	_, ok := validTipos[strings.ToLower(strings.TrimSpace(tipo))]
	return ok
}
