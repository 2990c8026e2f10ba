package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/admin"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/auth"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/util"
)

const (
	// AudienceCliente identifica sessões do portal do cliente.
	AudienceCliente = "cliente"
	// AudienceAdmin identifica sessões do painel administrativo.
	AudienceAdmin = "admin"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrNaoAprovado indica cadastro ainda pendente de aprovação.
	ErrNaoAprovado = errors.New("cadastro aguardando aprovação")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

type clienteAccounts interface {
	Buscar(ctx context.Context, id uuid.UUID) (*cliente.Cliente, error)
	BuscarPorEmail(ctx context.Context, email string) (*cliente.Cliente, error)
}

type adminAccounts interface {
	Buscar(ctx context.Context, id uuid.UUID) (*admin.Administrador, error)
	BuscarPorEmail(ctx context.Context, email string) (*admin.Administrador, error)
	RegistrarLogin(ctx context.Context, id uuid.UUID) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões das duas audiências.
type AuthService struct {
	clientes   clienteAccounts
	admins     adminAccounts
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(clientes clienteAccounts, admins adminAccounts, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{clientes: clientes, admins: admins, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	Audience      string
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Roles         []string
	Profile       any
	RefreshExpiry time.Time
}

// ClienteProfile descreve a conta autenticada do portal.
type ClienteProfile struct {
	ID       string  `json:"id"`
	Nome     string  `json:"nome"`
	Email    string  `json:"email"`
	Empresa  *string `json:"empresa,omitempty"`
	Aprovado bool    `json:"aprovado"`
}

// AdminProfile descreve o operador autenticado do painel.
type AdminProfile struct {
	ID          string `json:"id"`
	Nome        string `json:"nome"`
	Email       string `json:"email"`
	NivelAcesso string `json:"nivel_acesso"`
}

// LoginCliente autentica contas do portal do cliente. Contas não aprovadas
// autenticam mas recebem ErrNaoAprovado: o portal informa a pendência.
func (s *AuthService) LoginCliente(ctx context.Context, email, password string) (*LoginResult, error) {
	c, err := s.clientes.BuscarPorEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, cliente.ErrNotFound) {
			log.Warn().Msg("login cliente: conta não encontrada")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerificarSenha(password, c.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login cliente: falha ao verificar senha")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !c.Ativo {
		return nil, ErrAccountDisabled
	}
	if !c.Aprovado {
		return nil, ErrNaoAprovado
	}

	return s.emitirSessao(ctx, AudienceCliente, c.ID, []string{"CLIENTE"}, clienteProfile(c))
}

// LoginAdmin autentica operadores do painel administrativo.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*LoginResult, error) {
	a, err := s.admins.BuscarPorEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, admin.ErrNotFound) {
			log.Warn().Msg("login admin: conta não encontrada")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerificarSenha(password, a.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login admin: falha ao verificar senha")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !a.Ativo {
		return nil, ErrAccountDisabled
	}

	if err := s.admins.RegistrarLogin(ctx, a.ID); err != nil {
		log.Warn().Err(err).Msg("login admin: falha ao registrar último login")
	}

	return s.emitirSessao(ctx, AudienceAdmin, a.ID, adminRoles(a), adminProfile(a))
}

// Refresh troca refresh token válido por nova sessão, revogando o anterior.
func (s *AuthService) Refresh(ctx context.Context, audience, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefresh(rawToken)
	redisKey := auth.ChaveRefresh(audience, hash)

	subjectRaw, err := s.redis.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}

	subject, err := uuid.Parse(subjectRaw)
	if err != nil {
		return nil, ErrRefreshInvalid
	}

	var result *LoginResult
	switch audience {
	case AudienceCliente:
		c, err := s.clientes.Buscar(ctx, subject)
		if err != nil {
			if errors.Is(err, cliente.ErrNotFound) {
				return nil, ErrRefreshInvalid
			}
			return nil, err
		}
		if !c.Ativo {
			return nil, ErrAccountDisabled
		}
		result, err = s.emitirSessao(ctx, audience, c.ID, []string{"CLIENTE"}, clienteProfile(c))
		if err != nil {
			return nil, err
		}
	case AudienceAdmin:
		a, err := s.admins.Buscar(ctx, subject)
		if err != nil {
			if errors.Is(err, admin.ErrNotFound) {
				return nil, ErrRefreshInvalid
			}
			return nil, err
		}
		if !a.Ativo {
			return nil, ErrAccountDisabled
		}
		result, err = s.emitirSessao(ctx, audience, a.ID, adminRoles(a), adminProfile(a))
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrRefreshInvalid
	}

	// Rotação: o token anterior deixa de valer.
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	return result, nil
}

// Logout revoga o refresh token atual.
func (s *AuthService) Logout(ctx context.Context, audience, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashRefresh(rawToken)
	if err := s.redis.Del(ctx, auth.ChaveRefresh(audience, hash)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// GetMe retorna perfil completo para subject/audience.
func (s *AuthService) GetMe(ctx context.Context, audience string, subject uuid.UUID) (any, []string, error) {
	switch audience {
	case AudienceCliente:
		c, err := s.clientes.Buscar(ctx, subject)
		if err != nil {
			return nil, nil, err
		}
		return clienteProfile(c), []string{"CLIENTE"}, nil
	case AudienceAdmin:
		a, err := s.admins.Buscar(ctx, subject)
		if err != nil {
			return nil, nil, err
		}
		return adminProfile(a), adminRoles(a), nil
	default:
		return nil, nil, errors.New("audience desconhecida")
	}
}

func (s *AuthService) emitirSessao(ctx context.Context, audience string, subject uuid.UUID, roles []string, profile any) (*LoginResult, error) {
	token, _, err := s.jwt.EmitirAcesso(subject.String(), audience, roles)
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.NovoRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := util.Now().Add(s.refreshTTL)
	key := auth.ChaveRefresh(audience, refreshHash)
	if err := s.redis.Set(ctx, key, subject.String(), time.Until(expires)).Err(); err != nil {
		return nil, err
	}

	return &LoginResult{
		Audience:      audience,
		AccessToken:   token,
		RefreshToken:  rawRefresh,
		Subject:       subject,
		Roles:         roles,
		Profile:       profile,
		RefreshExpiry: expires,
	}, nil
}

func clienteProfile(c *cliente.Cliente) *ClienteProfile {
	return &ClienteProfile{
		ID:       c.ID.String(),
		Nome:     c.Nome,
		Email:    c.Email,
		Empresa:  c.Empresa,
		Aprovado: c.Aprovado,
	}
}

func adminProfile(a *admin.Administrador) *AdminProfile {
	return &AdminProfile{
		ID:          a.ID.String(),
		Nome:        a.Nome,
		Email:       a.Email,
		NivelAcesso: a.NivelAcesso,
	}
}

func adminRoles(a *admin.Administrador) []string {
	roles := []string{"ADMIN"}
	if a.SuperAdmin() {
		roles = append(roles, "SUPER_ADMIN")
	}
	return roles
}
