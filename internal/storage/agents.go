package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vitrina-labs/vitrina/internal/model"
)

// agentColumns is the column list shared by agent row scans.
const agentColumns = `id, name, description, tags, status, llm_provider, temperature, top_p,
	max_tokens, system_prompt, workflow_steps, language, version, creator_id,
	collection_id, parent_agent_id, created_at, updated_at`

func scanAgent(row pgx.Row) (model.Agent, error) {
	var a model.Agent
	var status string
	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &a.Tags, &status, &a.LLMProvider,
		&a.Temperature, &a.TopP, &a.MaxTokens, &a.SystemPrompt, &a.WorkflowSteps,
		&a.Language, &a.Version, &a.CreatorID, &a.CollectionID, &a.ParentAgentID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return model.Agent{}, err
	}
	a.Status = model.AgentStatus(status)
	return a, nil
}

// CreateAgent inserts a new agent and its category links atomically.
func (db *DB) CreateAgent(ctx context.Context, agent model.Agent, categoryIDs []uuid.UUID) (model.Agent, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.Agent{}, fmt.Errorf("storage: begin create agent tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	now := time.Now().UTC()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now
	if agent.Tags == nil {
		agent.Tags = []string{}
	}
	if agent.WorkflowSteps == nil {
		agent.WorkflowSteps = []model.WorkflowStep{}
	}
	if agent.Version == 0 {
		agent.Version = 1
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO agents (id, name, description, tags, status, llm_provider, temperature, top_p,
		                     max_tokens, system_prompt, workflow_steps, language, version, creator_id,
		                     collection_id, parent_agent_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		agent.ID, agent.Name, agent.Description, agent.Tags, string(agent.Status),
		agent.LLMProvider, agent.Temperature, agent.TopP, agent.MaxTokens,
		agent.SystemPrompt, agent.WorkflowSteps, agent.Language, agent.Version,
		agent.CreatorID, agent.CollectionID, agent.ParentAgentID,
		agent.CreatedAt, agent.UpdatedAt,
	); err != nil {
		return model.Agent{}, fmt.Errorf("storage: create agent: %w", err)
	}

	if err := insertAgentCategoriesTx(ctx, tx, agent.ID, categoryIDs); err != nil {
		return model.Agent{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Agent{}, fmt.Errorf("storage: commit create agent tx: %w", err)
	}
	return agent, nil
}

// GetAgent retrieves an agent by ID.
func (db *DB) GetAgent(ctx context.Context, id uuid.UUID) (model.Agent, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	agent, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Agent{}, ErrNotFound
	}
	if err != nil {
		return model.Agent{}, fmt.Errorf("storage: get agent: %w", err)
	}
	return agent, nil
}

// GetAgentDetail retrieves an agent joined with its creator name, collection
// name, and category refs. Returns ErrNotFound when the agent does not exist.
func (db *DB) GetAgentDetail(ctx context.Context, id uuid.UUID) (model.AgentDetail, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT a.id, a.name, a.description, a.tags, a.status, a.llm_provider, a.temperature,
		       a.top_p, a.max_tokens, a.system_prompt, a.workflow_steps, a.language, a.version,
		       a.creator_id, a.collection_id, a.parent_agent_id, a.created_at, a.updated_at,
		       p.full_name, col.name
		FROM agents a
		JOIN profiles p ON p.id = a.creator_id
		LEFT JOIN collections col ON col.id = a.collection_id
		WHERE a.id = $1`, id)

	var d model.AgentDetail
	var status string
	err := row.Scan(
		&d.ID, &d.Name, &d.Description, &d.Tags, &status, &d.LLMProvider,
		&d.Temperature, &d.TopP, &d.MaxTokens, &d.SystemPrompt, &d.WorkflowSteps,
		&d.Language, &d.Version, &d.CreatorID, &d.CollectionID, &d.ParentAgentID,
		&d.CreatedAt, &d.UpdatedAt,
		&d.CreatorName, &d.CollectionName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AgentDetail{}, ErrNotFound
	}
	if err != nil {
		return model.AgentDetail{}, fmt.Errorf("storage: get agent detail: %w", err)
	}
	d.Status = model.AgentStatus(status)

	rows, err := db.pool.Query(ctx, `
		SELECT c.name, c.type
		FROM agent_categories ac
		JOIN categories c ON c.id = ac.category_id
		WHERE ac.agent_id = $1
		ORDER BY c.name`, id)
	if err != nil {
		return model.AgentDetail{}, fmt.Errorf("storage: get agent detail categories: %w", err)
	}
	defer rows.Close()

	d.Categories = []model.CategoryRef{}
	for rows.Next() {
		var ref model.CategoryRef
		var ctype string
		if err := rows.Scan(&ref.Name, &ctype); err != nil {
			return model.AgentDetail{}, fmt.Errorf("storage: scan agent detail category: %w", err)
		}
		ref.Type = model.CategoryType(ctype)
		d.Categories = append(d.Categories, ref)
	}
	if err := rows.Err(); err != nil {
		return model.AgentDetail{}, fmt.Errorf("storage: iterate agent detail categories: %w", err)
	}
	return d, nil
}

// ListPublishedAgents returns published agents annotated with category ids and
// execution counts. When pattern is non-empty it is applied as an ILIKE
// predicate (caller-escaped, see catalog.SearchPattern) against name and
// description. When limit > 0 at most limit rows are returned.
func (db *DB) ListPublishedAgents(ctx context.Context, pattern string, limit int) ([]model.CatalogAgent, error) {
	query := `
		SELECT a.id, a.name, a.description, a.tags, a.status, a.llm_provider, a.temperature,
		       a.top_p, a.max_tokens, a.system_prompt, a.workflow_steps, a.language, a.version,
		       a.creator_id, a.collection_id, a.parent_agent_id, a.created_at, a.updated_at,
		       COALESCE(array_agg(ac.category_id) FILTER (WHERE ac.category_id IS NOT NULL), '{}'),
		       COALESCE(ex.cnt, 0)
		FROM agents a
		LEFT JOIN agent_categories ac ON ac.agent_id = a.id
		LEFT JOIN (
			SELECT agent_id, COUNT(*) AS cnt FROM agent_executions GROUP BY agent_id
		) ex ON ex.agent_id = a.id
		WHERE a.status = 'published'`

	args := []any{}
	if pattern != "" {
		args = append(args, pattern)
		query += ` AND (a.name ILIKE $1 ESCAPE '\' OR a.description ILIKE $1 ESCAPE '\')`
	}
	query += `
		GROUP BY a.id, ex.cnt
		ORDER BY a.created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list published agents: %w", err)
	}
	defer rows.Close()

	return scanCatalogAgents(rows)
}

// ListAgentsByCreator returns all of a creator's agents (any status), newest
// first, annotated with category ids and execution counts.
func (db *DB) ListAgentsByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.CatalogAgent, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT a.id, a.name, a.description, a.tags, a.status, a.llm_provider, a.temperature,
		       a.top_p, a.max_tokens, a.system_prompt, a.workflow_steps, a.language, a.version,
		       a.creator_id, a.collection_id, a.parent_agent_id, a.created_at, a.updated_at,
		       COALESCE(array_agg(ac.category_id) FILTER (WHERE ac.category_id IS NOT NULL), '{}'),
		       COALESCE(ex.cnt, 0)
		FROM agents a
		LEFT JOIN agent_categories ac ON ac.agent_id = a.id
		LEFT JOIN (
			SELECT agent_id, COUNT(*) AS cnt FROM agent_executions GROUP BY agent_id
		) ex ON ex.agent_id = a.id
		WHERE a.creator_id = $1
		GROUP BY a.id, ex.cnt
		ORDER BY a.created_at DESC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("storage: list agents by creator: %w", err)
	}
	defer rows.Close()

	return scanCatalogAgents(rows)
}

func scanCatalogAgents(rows pgx.Rows) ([]model.CatalogAgent, error) {
	agents := []model.CatalogAgent{}
	for rows.Next() {
		var ca model.CatalogAgent
		var status string
		if err := rows.Scan(
			&ca.ID, &ca.Name, &ca.Description, &ca.Tags, &status, &ca.LLMProvider,
			&ca.Temperature, &ca.TopP, &ca.MaxTokens, &ca.SystemPrompt, &ca.WorkflowSteps,
			&ca.Language, &ca.Version, &ca.CreatorID, &ca.CollectionID, &ca.ParentAgentID,
			&ca.CreatedAt, &ca.UpdatedAt,
			&ca.CategoryIDs, &ca.ExecutionCount,
		); err != nil {
			return nil, fmt.Errorf("storage: scan catalog agent: %w", err)
		}
		ca.Status = model.AgentStatus(status)
		agents = append(agents, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate catalog agents: %w", err)
	}
	return agents, nil
}

// UpdateAgent writes the mutable fields of an agent. The caller is expected to
// have loaded the current row and applied its changes; version bumping is the
// caller's decision. Returns ErrNotFound when the agent does not exist.
func (db *DB) UpdateAgent(ctx context.Context, agent model.Agent) (model.Agent, error) {
	agent.UpdatedAt = time.Now().UTC()
	if agent.Tags == nil {
		agent.Tags = []string{}
	}
	if agent.WorkflowSteps == nil {
		agent.WorkflowSteps = []model.WorkflowStep{}
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE agents
		 SET name = $2, description = $3, tags = $4, status = $5, llm_provider = $6,
		     temperature = $7, top_p = $8, max_tokens = $9, system_prompt = $10,
		     workflow_steps = $11, language = $12, version = $13, collection_id = $14,
		     updated_at = $15
		 WHERE id = $1`,
		agent.ID, agent.Name, agent.Description, agent.Tags, string(agent.Status),
		agent.LLMProvider, agent.Temperature, agent.TopP, agent.MaxTokens,
		agent.SystemPrompt, agent.WorkflowSteps, agent.Language, agent.Version,
		agent.CollectionID, agent.UpdatedAt,
	)
	if err != nil {
		return model.Agent{}, fmt.Errorf("storage: update agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Agent{}, ErrNotFound
	}
	return agent, nil
}

// CloneAgent copies a source agent's configuration into a new draft owned by
// creatorID, recording lineage via parent_agent_id and carrying the category
// links over. The clone starts at version 1 regardless of the source version.
func (db *DB) CloneAgent(ctx context.Context, sourceID, creatorID uuid.UUID, name string) (model.Agent, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.Agent{}, fmt.Errorf("storage: begin clone agent tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, sourceID)
	source, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Agent{}, ErrNotFound
	}
	if err != nil {
		return model.Agent{}, fmt.Errorf("storage: clone agent read source: %w", err)
	}

	clone := source
	clone.ID = uuid.New()
	clone.Name = name
	clone.Status = model.StatusDraft
	clone.Version = 1
	clone.CreatorID = creatorID
	clone.ParentAgentID = &source.ID
	now := time.Now().UTC()
	clone.CreatedAt = now
	clone.UpdatedAt = now

	if _, err := tx.Exec(ctx,
		`INSERT INTO agents (id, name, description, tags, status, llm_provider, temperature, top_p,
		                     max_tokens, system_prompt, workflow_steps, language, version, creator_id,
		                     collection_id, parent_agent_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		clone.ID, clone.Name, clone.Description, clone.Tags, string(clone.Status),
		clone.LLMProvider, clone.Temperature, clone.TopP, clone.MaxTokens,
		clone.SystemPrompt, clone.WorkflowSteps, clone.Language, clone.Version,
		clone.CreatorID, clone.CollectionID, clone.ParentAgentID,
		clone.CreatedAt, clone.UpdatedAt,
	); err != nil {
		return model.Agent{}, fmt.Errorf("storage: clone agent insert: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO agent_categories (agent_id, category_id)
		 SELECT $1, category_id FROM agent_categories WHERE agent_id = $2`,
		clone.ID, source.ID,
	); err != nil {
		return model.Agent{}, fmt.Errorf("storage: clone agent categories: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Agent{}, fmt.Errorf("storage: commit clone agent tx: %w", err)
	}
	return clone, nil
}
