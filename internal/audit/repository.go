package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de log de atividades.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert grava uma nova entrada. O log é append-only: não há update nem delete.
func (r *Repository) Insert(ctx context.Context, e Entrada) error {
	const query = `
        INSERT INTO log_atividades (usuario_id, tipo_usuario, acao, detalhes, ip_address, user_agent)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	_, err := r.pool.Exec(ctx, query,
		e.UsuarioID,
		strings.ToLower(strings.TrimSpace(e.TipoUsuario)),
		strings.TrimSpace(e.Acao),
		e.Detalhes,
		nullableString(e.IPAddress),
		nullableString(e.UserAgent),
	)
	return err
}

// List devolve entradas mais recentes aplicando filtros simples.
func (r *Repository) List(ctx context.Context, filtro Filtro) ([]Entrada, int, error) {
	base := `
        SELECT id, usuario_id, tipo_usuario, acao, detalhes, ip_address, user_agent, criado_em
        FROM log_atividades`
	countBase := `SELECT count(*) FROM log_atividades`

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if tipo := strings.ToLower(strings.TrimSpace(filtro.TipoUsuario)); tipo != "" {
		clauses = append(clauses, fmt.Sprintf("tipo_usuario = $%d", idx))
		args = append(args, tipo)
		idx++
	}
	if acao := strings.TrimSpace(filtro.Acao); acao != "" {
		clauses = append(clauses, fmt.Sprintf("acao ILIKE $%d", idx))
		args = append(args, "%"+acao+"%")
		idx++
	}
	if filtro.UsuarioID != nil {
		clauses = append(clauses, fmt.Sprintf("usuario_id = $%d", idx))
		args = append(args, *filtro.UsuarioID)
		idx++
	}
	if filtro.Desde != nil {
		clauses = append(clauses, fmt.Sprintf("criado_em >= $%d", idx))
		args = append(args, *filtro.Desde)
		idx++
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countBase+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filtro.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filtro.Offset
	if offset < 0 {
		offset = 0
	}

	query := base + where + fmt.Sprintf(" ORDER BY criado_em DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entradas []Entrada
	for rows.Next() {
		e, err := scanEntrada(rows)
		if err != nil {
			return nil, 0, err
		}
		entradas = append(entradas, *e)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return entradas, total, nil
}

func scanEntrada(row pgx.Row) (*Entrada, error) {
	var (
		e         Entrada
		ipAddress *string
		userAgent *string
	)
	if err := row.Scan(&e.ID, &e.UsuarioID, &e.TipoUsuario, &e.Acao, &e.Detalhes, &ipAddress, &userAgent, &e.CriadoEm); err != nil {
		return nil, err
	}
	if ipAddress != nil {
		e.IPAddress = *ipAddress
	}
	if userAgent != nil {
		e.UserAgent = *userAgent
	}
	return &e, nil
}

func nullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
