package cliente

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/db"
)

// Repository provê acesso às tabelas de clientes, configurações e tags.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de clientes.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clienteColumns = "id, nome, email, telefone, empresa, cnpj, razao_social, senha_hash, ativo, aprovado, criado_em, atualizado_em"

// GetByID busca cliente pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Cliente, error) {
	query := fmt.Sprintf("SELECT %s FROM clientes WHERE id = $1", clienteColumns)
	return scanCliente(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail busca cliente pelo email normalizado.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Cliente, error) {
	query := fmt.Sprintf("SELECT %s FROM clientes WHERE email = $1", clienteColumns)
	return scanCliente(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

// List devolve clientes paginados com filtro de status.
func (r *Repository) List(ctx context.Context, filtro FiltroStatus, limit, offset int) ([]Cliente, int, error) {
	where := ""
	switch filtro {
	case FiltroAtivos:
		where = " WHERE ativo"
	case FiltroInativos:
		where = " WHERE NOT ativo"
	case FiltroAprovados:
		where = " WHERE aprovado"
	case FiltroPendentes:
		where = " WHERE NOT aprovado AND ativo"
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM clientes"+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT %s FROM clientes%s ORDER BY criado_em DESC LIMIT $1 OFFSET $2", clienteColumns, where)
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clientes []Cliente
	for rows.Next() {
		c, err := scanCliente(rows)
		if err != nil {
			return nil, 0, err
		}
		clientes = append(clientes, *c)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return clientes, total, nil
}

// CountPorStatus devolve agregados usados no dashboard administrativo.
func (r *Repository) CountPorStatus(ctx context.Context) (total, ativos, aprovados, pendentes int, err error) {
	const query = `
        SELECT count(*),
               count(*) FILTER (WHERE ativo),
               count(*) FILTER (WHERE aprovado),
               count(*) FILTER (WHERE NOT aprovado AND ativo)
        FROM clientes
    `
	err = r.pool.QueryRow(ctx, query).Scan(&total, &ativos, &aprovados, &pendentes)
	return
}

// CreateComConfiguracao insere cliente e configuração padrão na mesma transação.
func (r *Repository) CreateComConfiguracao(ctx context.Context, input CadastroInput, senhaHash string) (*Cliente, error) {
	var criado *Cliente

	err := db.WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		query := fmt.Sprintf(`
            INSERT INTO clientes (nome, email, telefone, empresa, cnpj, razao_social, senha_hash)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING %s`, clienteColumns)

		row := tx.QueryRow(txCtx, query,
			strings.TrimSpace(input.Nome),
			strings.ToLower(strings.TrimSpace(input.Email)),
			nullable(input.Telefone),
			nullable(input.Empresa),
			nullable(input.CNPJ),
			nullable(input.RazaoSocial),
			senhaHash,
		)

		c, err := scanCliente(row)
		if err != nil {
			return err
		}

		const configQuery = `
            INSERT INTO configuracoes_cliente (cliente_id, chatgpt_model, funil_ids)
            VALUES ($1, $2, '[]'::jsonb)
        `
		if _, err := tx.Exec(txCtx, configQuery, c.ID, ModeloChatGPTPadrao); err != nil {
			return err
		}

		criado = c
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailEmUso
		}
		return nil, err
	}

	return criado, nil
}

// UpdatePerfil atualiza dados cadastrais do cliente.
func (r *Repository) UpdatePerfil(ctx context.Context, id uuid.UUID, input AtualizarPerfilInput) (*Cliente, error) {
	query := fmt.Sprintf(`
        UPDATE clientes
        SET nome = $2, email = $3, telefone = $4, empresa = $5, cnpj = $6, razao_social = $7, atualizado_em = now()
        WHERE id = $1
        RETURNING %s`, clienteColumns)

	row := r.pool.QueryRow(ctx, query,
		id,
		strings.TrimSpace(input.Nome),
		strings.ToLower(strings.TrimSpace(input.Email)),
		nullable(input.Telefone),
		nullable(input.Empresa),
		nullable(input.CNPJ),
		nullable(input.RazaoSocial),
	)

	c, err := scanCliente(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailEmUso
		}
		return nil, err
	}
	return c, nil
}

// UpdateSenha grava um novo hash de senha.
func (r *Repository) UpdateSenha(ctx context.Context, id uuid.UUID, senhaHash string) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE clientes SET senha_hash = $2, atualizado_em = now() WHERE id = $1", id, senhaHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAprovado marca aprovação do cliente.
func (r *Repository) SetAprovado(ctx context.Context, id uuid.UUID, aprovado bool) error {
	return r.setFlag(ctx, id, "aprovado", aprovado)
}

// SetAtivo ativa/desativa o cliente (soft delete).
func (r *Repository) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	return r.setFlag(ctx, id, "ativo", ativo)
}

func (r *Repository) setFlag(ctx context.Context, id uuid.UUID, column string, value bool) error {
	query := fmt.Sprintf("UPDATE clientes SET %s = $2, atualizado_em = now() WHERE id = $1", column)
	tag, err := r.pool.Exec(ctx, query, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const configColumns = "id, cliente_id, kommo_token, kommo_domain, chatgpt_api_key, chatgpt_model, pipeline_id, funil_ids, prompt_agente_ia, prompt_audio, prompt_imagem, aprovacao_automatica, usar_n8n, webhook_url, criado_em, atualizado_em"

// GetConfiguracao busca a configuração do cliente.
func (r *Repository) GetConfiguracao(ctx context.Context, clienteID uuid.UUID) (*Configuracao, error) {
	query := fmt.Sprintf("SELECT %s FROM configuracoes_cliente WHERE cliente_id = $1", configColumns)
	return scanConfiguracao(r.pool.QueryRow(ctx, query, clienteID))
}

// EnsureConfiguracao devolve a configuração, criando o registro padrão quando ausente.
func (r *Repository) EnsureConfiguracao(ctx context.Context, clienteID uuid.UUID) (*Configuracao, error) {
	config, err := r.GetConfiguracao(ctx, clienteID)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}

	query := fmt.Sprintf(`
        INSERT INTO configuracoes_cliente (cliente_id, chatgpt_model, funil_ids)
        VALUES ($1, $2, '[]'::jsonb)
        ON CONFLICT (cliente_id) DO UPDATE SET atualizado_em = configuracoes_cliente.atualizado_em
        RETURNING %s`, configColumns)

	return scanConfiguracao(r.pool.QueryRow(ctx, query, clienteID, ModeloChatGPTPadrao))
}

// UpdateConfiguracao aplica atualização parcial via COALESCE.
func (r *Repository) UpdateConfiguracao(ctx context.Context, clienteID uuid.UUID, input AtualizarConfiguracaoInput) (*Configuracao, error) {
	var funilJSON []byte
	if input.FunilIDs != nil {
		ids := *input.FunilIDs
		if ids == nil {
			ids = []string{}
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		funilJSON = raw
	}

	query := fmt.Sprintf(`
        UPDATE configuracoes_cliente
        SET kommo_token = COALESCE($2, kommo_token),
            kommo_domain = COALESCE($3, kommo_domain),
            chatgpt_api_key = COALESCE($4, chatgpt_api_key),
            chatgpt_model = COALESCE($5, chatgpt_model),
            pipeline_id = COALESCE($6, pipeline_id),
            funil_ids = COALESCE($7, funil_ids),
            prompt_agente_ia = COALESCE($8, prompt_agente_ia),
            prompt_audio = COALESCE($9, prompt_audio),
            prompt_imagem = COALESCE($10, prompt_imagem),
            aprovacao_automatica = COALESCE($11, aprovacao_automatica),
            usar_n8n = COALESCE($12, usar_n8n),
            webhook_url = COALESCE($13, webhook_url),
            atualizado_em = now()
        WHERE cliente_id = $1
        RETURNING %s`, configColumns)

	row := r.pool.QueryRow(ctx, query,
		clienteID,
		input.KommoToken,
		input.KommoDomain,
		input.ChatGPTAPIKey,
		input.ChatGPTModel,
		input.PipelineID,
		funilJSON,
		input.PromptAgenteIA,
		input.PromptAudio,
		input.PromptImagem,
		input.AprovacaoAutomatica,
		input.UsarN8N,
		input.WebhookURL,
	)

	return scanConfiguracao(row)
}

const tagColumns = "id, cliente_id, nome, funil_id, pipeline_id, ativa, criado_em"

// ListTags devolve todas as tags do cliente.
func (r *Repository) ListTags(ctx context.Context, clienteID uuid.UUID) ([]Tag, error) {
	query := fmt.Sprintf("SELECT %s FROM tags_cliente WHERE cliente_id = $1 ORDER BY criado_em", tagColumns)
	return r.queryTags(ctx, query, clienteID)
}

// ListTagsAtivas devolve apenas as tags expostas ao consumidor do webhook.
func (r *Repository) ListTagsAtivas(ctx context.Context, clienteID uuid.UUID) ([]Tag, error) {
	query := fmt.Sprintf("SELECT %s FROM tags_cliente WHERE cliente_id = $1 AND ativa ORDER BY criado_em", tagColumns)
	return r.queryTags(ctx, query, clienteID)
}

func (r *Repository) queryTags(ctx context.Context, query string, clienteID uuid.UUID) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, query, clienteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.ClienteID, &t.Nome, &t.FunilID, &t.PipelineID, &t.Ativa, &t.CriadoEm); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tags, nil
}

// CountTags conta tags totais e ativas do cliente.
func (r *Repository) CountTags(ctx context.Context, clienteID uuid.UUID) (total, ativas int, err error) {
	const query = `
        SELECT count(*), count(*) FILTER (WHERE ativa)
        FROM tags_cliente
        WHERE cliente_id = $1
    `
	err = r.pool.QueryRow(ctx, query, clienteID).Scan(&total, &ativas)
	return
}

// CountTagsGlobal conta tags de todos os clientes (estatísticas administrativas).
func (r *Repository) CountTagsGlobal(ctx context.Context) (total, ativas int, err error) {
	const query = `SELECT count(*), count(*) FILTER (WHERE ativa) FROM tags_cliente`
	err = r.pool.QueryRow(ctx, query).Scan(&total, &ativas)
	return
}

// CreateTag insere nova tag; nome é único por cliente.
func (r *Repository) CreateTag(ctx context.Context, input CriarTagInput) (*Tag, error) {
	query := fmt.Sprintf(`
        INSERT INTO tags_cliente (cliente_id, nome, funil_id, pipeline_id, ativa)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s`, tagColumns)

	var t Tag
	err := r.pool.QueryRow(ctx, query,
		input.ClienteID,
		strings.TrimSpace(input.Nome),
		strings.TrimSpace(input.FunilID),
		strings.TrimSpace(input.PipelineID),
		input.Ativa,
	).Scan(&t.ID, &t.ClienteID, &t.Nome, &t.FunilID, &t.PipelineID, &t.Ativa, &t.CriadoEm)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTagDuplicada
		}
		return nil, err
	}
	return &t, nil
}

// UpdateTag atualiza tag pertencente ao cliente informado.
func (r *Repository) UpdateTag(ctx context.Context, clienteID, tagID uuid.UUID, input AtualizarTagInput) (*Tag, error) {
	query := fmt.Sprintf(`
        UPDATE tags_cliente
        SET nome = COALESCE($3, nome),
            funil_id = COALESCE($4, funil_id),
            pipeline_id = COALESCE($5, pipeline_id),
            ativa = COALESCE($6, ativa)
        WHERE id = $1 AND cliente_id = $2
        RETURNING %s`, tagColumns)

	var t Tag
	err := r.pool.QueryRow(ctx, query, tagID, clienteID, input.Nome, input.FunilID, input.PipelineID, input.Ativa).
		Scan(&t.ID, &t.ClienteID, &t.Nome, &t.FunilID, &t.PipelineID, &t.Ativa, &t.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrTagDuplicada
		}
		return nil, err
	}
	return &t, nil
}

// DeleteTag remove tag pertencente ao cliente informado.
func (r *Repository) DeleteTag(ctx context.Context, clienteID, tagID uuid.UUID) (*Tag, error) {
	query := fmt.Sprintf("DELETE FROM tags_cliente WHERE id = $1 AND cliente_id = $2 RETURNING %s", tagColumns)

	var t Tag
	err := r.pool.QueryRow(ctx, query, tagID, clienteID).
		Scan(&t.ID, &t.ClienteID, &t.Nome, &t.FunilID, &t.PipelineID, &t.Ativa, &t.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &t, nil
}

func scanCliente(row pgx.Row) (*Cliente, error) {
	var c Cliente
	err := row.Scan(&c.ID, &c.Nome, &c.Email, &c.Telefone, &c.Empresa, &c.CNPJ, &c.RazaoSocial,
		&c.SenhaHash, &c.Ativo, &c.Aprovado, &c.CriadoEm, &c.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanConfiguracao(row pgx.Row) (*Configuracao, error) {
	var (
		c        Configuracao
		funilRaw []byte
	)
	err := row.Scan(&c.ID, &c.ClienteID, &c.KommoToken, &c.KommoDomain, &c.ChatGPTAPIKey, &c.ChatGPTModel,
		&c.PipelineID, &funilRaw, &c.PromptAgenteIA, &c.PromptAudio, &c.PromptImagem,
		&c.AprovacaoAutomatica, &c.UsarN8N, &c.WebhookURL, &c.CriadoEm, &c.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	c.FunilIDs, err = decodeFunilIDs(funilRaw)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// decodeFunilIDs mantém a invariante: a lista nunca é nil nem malformada.
func decodeFunilIDs(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return []string{}, nil
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	// 23505 = unique_violation
	return err != nil && strings.Contains(err.Error(), "23505")
}
