package quota

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/db"
)

// Repository provê acesso à tabela controle_requisicoes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria o repositório de controles de cota.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const controleColumns = "id, cliente_id, limite_eventos, eventos_utilizados, data_inicio, data_fim, ativo, criado_em, atualizado_em"

// GetAtivo devolve o controle ativo mais recente do cliente.
func (r *Repository) GetAtivo(ctx context.Context, clienteID uuid.UUID) (*Controle, error) {
	const query = `
        SELECT ` + controleColumns + `
        FROM controle_requisicoes
        WHERE cliente_id = $1 AND ativo
        ORDER BY criado_em DESC
        LIMIT 1
    `
	return scanControle(r.pool.QueryRow(ctx, query, clienteID))
}

// Consumir tenta consumir um evento do controle ativo do cliente em uma única
// instrução: o predicado de admissão vai na cláusula WHERE, então dois
// consumos concorrentes nunca ultrapassam o limite. Controles ilimitados são
// admitidos sem incrementar o contador.
//
// Devolve o estado pós-consumo quando admitido, (nil, false, nil) quando o
// limite foi atingido e ErrNotFound quando não há controle ativo.
func (r *Repository) Consumir(ctx context.Context, clienteID uuid.UUID) (*Controle, bool, error) {
	const query = `
        UPDATE controle_requisicoes
        SET eventos_utilizados = CASE
                WHEN limite_eventos = -1 THEN eventos_utilizados
                ELSE eventos_utilizados + 1
            END,
            atualizado_em = now()
        WHERE id = (
            SELECT id FROM controle_requisicoes
            WHERE cliente_id = $1 AND ativo
            ORDER BY criado_em DESC
            LIMIT 1
        )
        AND (limite_eventos = -1 OR eventos_utilizados < limite_eventos)
        RETURNING ` + controleColumns

	controle, err := scanControle(r.pool.QueryRow(ctx, query, clienteID))
	if err == nil {
		return controle, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	// Nenhuma linha atualizada: ou não existe controle ativo, ou o limite
	// foi atingido. Distingue pela leitura.
	existente, lookupErr := r.GetAtivo(ctx, clienteID)
	if lookupErr != nil {
		return nil, false, lookupErr
	}
	return existente, false, nil
}

// SetLimite define um novo limite para o cliente. O controle ativo atual, se
// houver, é encerrado e um novo ciclo começa zerado.
func (r *Repository) SetLimite(ctx context.Context, clienteID uuid.UUID, limite int) (*Controle, error) {
	if err := ValidarLimite(limite); err != nil {
		return nil, err
	}

	var criado *Controle
	err := db.WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		const desativa = `
            UPDATE controle_requisicoes
            SET ativo = false, data_fim = now(), atualizado_em = now()
            WHERE cliente_id = $1 AND ativo
        `
		if _, err := tx.Exec(txCtx, desativa, clienteID); err != nil {
			return err
		}

		const insere = `
            INSERT INTO controle_requisicoes (cliente_id, limite_eventos, eventos_utilizados, data_inicio, ativo)
            VALUES ($1, $2, 0, now(), true)
            RETURNING ` + controleColumns
		c, err := scanControle(tx.QueryRow(txCtx, insere, clienteID, limite))
		if err != nil {
			return err
		}
		criado = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return criado, nil
}

// AtualizarLimite muda o teto do controle ativo preservando o contador do
// período corrente.
func (r *Repository) AtualizarLimite(ctx context.Context, clienteID uuid.UUID, limite int) (*Controle, error) {
	if err := ValidarLimite(limite); err != nil {
		return nil, err
	}

	const query = `
        UPDATE controle_requisicoes
        SET limite_eventos = $2, atualizado_em = now()
        WHERE id = (
            SELECT id FROM controle_requisicoes
            WHERE cliente_id = $1 AND ativo
            ORDER BY criado_em DESC
            LIMIT 1
        )
        RETURNING ` + controleColumns
	return scanControle(r.pool.QueryRow(ctx, query, clienteID, limite))
}

// EnsureDefault garante um controle ativo para o cliente, criando um com o
// limite padrão quando ausente. Idempotente.
func (r *Repository) EnsureDefault(ctx context.Context, clienteID uuid.UUID) (*Controle, error) {
	controle, err := r.GetAtivo(ctx, clienteID)
	if err == nil {
		return controle, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return r.SetLimite(ctx, clienteID, LimitePadrao)
}

// SomaEventosUtilizados agrega o consumo de todos os controles ativos.
func (r *Repository) SomaEventosUtilizados(ctx context.Context) (int, error) {
	const query = `
        SELECT COALESCE(sum(eventos_utilizados), 0)
        FROM controle_requisicoes
        WHERE ativo
    `
	var total int
	err := r.pool.QueryRow(ctx, query).Scan(&total)
	return total, err
}

// ListAtivos devolve todos os controles ativos (varredura do monitor de uso).
func (r *Repository) ListAtivos(ctx context.Context) ([]Controle, error) {
	const query = `
        SELECT ` + controleColumns + `
        FROM controle_requisicoes
        WHERE ativo
        ORDER BY criado_em
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var controles []Controle
	for rows.Next() {
		c, err := scanControle(rows)
		if err != nil {
			return nil, err
		}
		controles = append(controles, *c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return controles, nil
}

func scanControle(row pgx.Row) (*Controle, error) {
	var c Controle
	err := row.Scan(&c.ID, &c.ClienteID, &c.LimiteEventos, &c.EventosUtilizados,
		&c.DataInicio, &c.DataFim, &c.Ativo, &c.CriadoEm, &c.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
