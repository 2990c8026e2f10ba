package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenInvalido cobre assinatura errada, expiração e claims malformadas.
var ErrTokenInvalido = errors.New("token de acesso inválido")

// Claims transporta a audiência e os papéis da sessão dentro do JWT.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTManager emite e valida os tokens de acesso da plataforma (HS256).
type JWTManager struct {
	segredo   []byte
	acessoTTL time.Duration
}

// NewJWTManager cria o emissor com o segredo compartilhado e o TTL de acesso.
func NewJWTManager(segredo string, acessoTTL time.Duration) *JWTManager {
	return &JWTManager{segredo: []byte(segredo), acessoTTL: acessoTTL}
}

// EmitirAcesso assina um token para o subject na audiência dada. Devolve o
// token e o jti, útil como correlação em logs.
func (m *JWTManager) EmitirAcesso(subject, audience string, roles []string) (string, string, error) {
	agora := time.Now().UTC()
	jti := uuid.NewString()

	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(agora),
			NotBefore: jwt.NewNumericDate(agora),
			ExpiresAt: jwt.NewNumericDate(agora.Add(m.acessoTTL)),
			ID:        jti,
		},
	}

	assinado, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.segredo)
	if err != nil {
		return "", "", err
	}
	return assinado, jti, nil
}

// Validar confere método de assinatura e expiração e devolve as claims.
func (m *JWTManager) Validar(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return m.segredo, nil
	})
	if err != nil {
		return nil, ErrTokenInvalido
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalido
	}
	return claims, nil
}
