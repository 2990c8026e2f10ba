package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de administradores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria o repositório de administradores.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const adminColumns = "id, nome, email, senha_hash, nivel_acesso, ativo, data_ultimo_login, criado_em, atualizado_em"

// GetByID busca administrador pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Administrador, error) {
	const query = "SELECT " + adminColumns + " FROM administradores WHERE id = $1"
	return scanAdministrador(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail busca administrador ativo pelo email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Administrador, error) {
	const query = "SELECT " + adminColumns + " FROM administradores WHERE email = $1"
	return scanAdministrador(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

// List devolve todos os administradores.
func (r *Repository) List(ctx context.Context) ([]Administrador, error) {
	const query = "SELECT " + adminColumns + " FROM administradores ORDER BY criado_em"
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []Administrador
	for rows.Next() {
		a, err := scanAdministrador(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, *a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return admins, nil
}

// Create insere um novo administrador.
func (r *Repository) Create(ctx context.Context, input CriarAdministradorInput, senhaHash string) (*Administrador, error) {
	const query = `
        INSERT INTO administradores (nome, email, senha_hash, nivel_acesso)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + adminColumns

	a, err := scanAdministrador(r.pool.QueryRow(ctx, query,
		strings.TrimSpace(input.Nome),
		strings.ToLower(strings.TrimSpace(input.Email)),
		senhaHash,
		input.NivelAcesso,
	))
	if err != nil {
		if strings.Contains(err.Error(), "23505") {
			return nil, ErrEmailEmUso
		}
		return nil, err
	}
	return a, nil
}

// TouchUltimoLogin grava o instante do login bem-sucedido.
func (r *Repository) TouchUltimoLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE administradores SET data_ultimo_login = now(), atualizado_em = now() WHERE id = $1", id)
	return err
}

// SetAtivo ativa/desativa o administrador.
func (r *Repository) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE administradores SET ativo = $2, atualizado_em = now() WHERE id = $1", id, ativo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAdministrador(row pgx.Row) (*Administrador, error) {
	var a Administrador
	err := row.Scan(&a.ID, &a.Nome, &a.Email, &a.SenhaHash, &a.NivelAcesso, &a.Ativo,
		&a.DataUltimoLogin, &a.CriadoEm, &a.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
