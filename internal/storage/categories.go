package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vitrina-labs/vitrina/internal/model"
)

// ListCategories returns all categories ordered by name.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, type, icon, description, created_at
		 FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("storage: list categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		var ctype string
		if err := rows.Scan(&c.ID, &c.Name, &ctype, &c.Icon, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan category: %w", err)
		}
		c.Type = model.CategoryType(ctype)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate categories: %w", err)
	}
	return categories, nil
}

// SetAgentCategories replaces an agent's category links atomically.
// Unknown category ids fail the whole operation via the FK constraint.
func (db *DB) SetAgentCategories(ctx context.Context, agentID uuid.UUID, categoryIDs []uuid.UUID) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin set agent categories tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM agent_categories WHERE agent_id = $1`, agentID,
	); err != nil {
		return fmt.Errorf("storage: clear agent categories: %w", err)
	}

	if err := insertAgentCategoriesTx(ctx, tx, agentID, categoryIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit set agent categories tx: %w", err)
	}
	return nil
}

// insertAgentCategoriesTx inserts category links for an agent, deduplicating
// ids so the unique (agent_id, category_id) constraint cannot trip on
// caller-supplied repeats.
func insertAgentCategoriesTx(ctx context.Context, tx pgx.Tx, agentID uuid.UUID, categoryIDs []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(categoryIDs))
	for _, cid := range categoryIDs {
		if seen[cid] {
			continue
		}
		seen[cid] = true
		if _, err := tx.Exec(ctx,
			`INSERT INTO agent_categories (agent_id, category_id) VALUES ($1, $2)`,
			agentID, cid,
		); err != nil {
			return fmt.Errorf("storage: link agent category: %w", err)
		}
	}
	return nil
}
