package admin

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	NivelAdmin      = "admin"
	NivelSuperAdmin = "super_admin"
)

var (
	ErrNotFound      = errors.New("administrador não encontrado")
	ErrEmailEmUso    = errors.New("email já cadastrado")
	ErrNivelInvalido = errors.New("nível de acesso inválido")
)

// Administrador é um operador da plataforma.
type Administrador struct {
	ID              uuid.UUID  `json:"id"`
	Nome            string     `json:"nome"`
	Email           string     `json:"email"`
	SenhaHash       string     `json:"-"`
	NivelAcesso     string     `json:"nivel_acesso"`
	Ativo           bool       `json:"ativo"`
	DataUltimoLogin *time.Time `json:"data_ultimo_login,omitempty"`
	CriadoEm        time.Time  `json:"data_criacao"`
	AtualizadoEm    time.Time  `json:"data_atualizacao"`
}

// SuperAdmin indica se o administrador pode gerenciar outros administradores.
func (a *Administrador) SuperAdmin() bool {
	return a.NivelAcesso == NivelSuperAdmin
}

// CriarAdministradorInput contém os campos de criação de um administrador.
type CriarAdministradorInput struct {
	Nome        string
	Email       string
	Senha       string
	NivelAcesso string
}

// Estatisticas agrega os números exibidos no dashboard administrativo.
type Estatisticas struct {
	TotalClientes     int `json:"total_clientes"`
	ClientesAtivos    int `json:"clientes_ativos"`
	ClientesAprovados int `json:"clientes_aprovados"`
	ClientesPendentes int `json:"clientes_pendentes"`
	TotalTags         int `json:"total_tags"`
	TagsAtivas        int `json:"tags_ativas"`
	EventosUtilizados int `json:"eventos_utilizados"`
}

// ValidarNivel aceita apenas os níveis conhecidos.
func ValidarNivel(nivel string) error {
	switch nivel {
	case NivelAdmin, NivelSuperAdmin:
		return nil
	default:
		return ErrNivelInvalido
	}
}
