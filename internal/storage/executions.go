package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vitrina-labs/vitrina/internal/model"
)

// InsertExecutions inserts execution records using the COPY protocol for high
// throughput. IDs and created_at must already be assigned.
func (db *DB) InsertExecutions(ctx context.Context, execs []model.AgentExecution) (int64, error) {
	if len(execs) == 0 {
		return 0, nil
	}

	columns := []string{
		"id", "agent_id", "user_id", "estimated_cost", "satisfaction_rating",
		"execution_time_ms", "feedback", "input_data", "output_data", "created_at",
	}

	rows := make([][]any, len(execs))
	for i, e := range execs {
		rows[i] = []any{
			e.ID,
			e.AgentID,
			e.UserID,
			e.EstimatedCost,
			e.SatisfactionRating,
			e.ExecutionTimeMs,
			e.Feedback,
			e.InputData,
			e.OutputData,
			e.CreatedAt,
		}
	}

	// Dedicated 30s COPY timeout prevents a hung Postgres from blocking the
	// ingest buffer flush indefinitely.
	copyCtx, copyCancel := context.WithTimeout(ctx, 30*time.Second)
	copyCount, err := db.pool.CopyFrom(
		copyCtx,
		pgx.Identifier{"agent_executions"},
		columns,
		pgx.CopyFromRows(rows),
	)
	copyCancel()
	if err != nil {
		return 0, fmt.Errorf("storage: copy executions: %w", err)
	}
	return copyCount, nil
}

// ListExecutionsByUser returns every execution the given user ran, newest
// first. Dashboard metrics aggregate over the full result, so there is no
// row cap here.
func (db *DB) ListExecutionsByUser(ctx context.Context, userID uuid.UUID) ([]model.AgentExecution, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, agent_id, user_id, estimated_cost, satisfaction_rating,
		        execution_time_ms, feedback, input_data, output_data, created_at
		 FROM agent_executions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list executions by user: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// ListExecutionsByAgent returns executions of a single agent, newest first.
func (db *DB) ListExecutionsByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]model.AgentExecution, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, agent_id, user_id, estimated_cost, satisfaction_rating,
		        execution_time_ms, feedback, input_data, output_data, created_at
		 FROM agent_executions
		 WHERE agent_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list executions by agent: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// CountExecutions returns the total number of execution records.
func (db *DB) CountExecutions(ctx context.Context) (int64, error) {
	var n int64
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agent_executions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count executions: %w", err)
	}
	return n, nil
}

func scanExecutions(rows pgx.Rows) ([]model.AgentExecution, error) {
	execs := []model.AgentExecution{}
	for rows.Next() {
		var e model.AgentExecution
		if err := rows.Scan(
			&e.ID, &e.AgentID, &e.UserID, &e.EstimatedCost, &e.SatisfactionRating,
			&e.ExecutionTimeMs, &e.Feedback, &e.InputData, &e.OutputData, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan execution: %w", err)
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate executions: %w", err)
	}
	return execs, nil
}
