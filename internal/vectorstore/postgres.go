package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/praxisnote/praxisnote/internal/model"
)

// PostgresStore keeps embedding rows in a pgvector-backed table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

func (s *PostgresStore) Upsert(ctx context.Context, rec *model.EmbeddingRecord) error {
	if rec.WorkspaceID == "" {
		return fmt.Errorf("workspace_id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const deleteQuery = `
		DELETE FROM note_embeddings
		WHERE workspace_id = $1 AND owner_id = $2 AND field_name = $3
	`
	if _, err := tx.ExecContext(ctx, deleteQuery, rec.WorkspaceID, rec.OwnerID, rec.FieldName); err != nil {
		return err
	}
	const insertQuery = `
		INSERT INTO note_embeddings (workspace_id, owner_id, client_id, field_name, embedding, content_hash, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, insertQuery,
		rec.WorkspaceID,
		rec.OwnerID,
		rec.ClientID,
		rec.FieldName,
		pgvector.NewVector(rec.Embedding),
		rec.ContentHash,
		rec.Ctime,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) DeleteByOwner(ctx context.Context, workspaceID, ownerID string) error {
	const query = `DELETE FROM note_embeddings WHERE workspace_id = $1 AND owner_id = $2`
	_, err := s.db.ExecContext(ctx, query, workspaceID, ownerID)
	return err
}

func (s *PostgresStore) DeleteByWorkspace(ctx context.Context, workspaceID string) error {
	const query = `DELETE FROM note_embeddings WHERE workspace_id = $1`
	_, err := s.db.ExecContext(ctx, query, workspaceID)
	return err
}

func (s *PostgresStore) Search(ctx context.Context, workspaceID string, vector []float32, filters SearchFilters, limit int, minSimilarity float64) ([]SearchHit, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace_id is required")
	}
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT owner_id, client_id, field_name, 1 - (embedding <=> ?) AS similarity, ctime
		FROM note_embeddings
		WHERE workspace_id = ?
			AND 1 - (embedding <=> ?) >= ?
	`
	vec := pgvector.NewVector(vector)
	args := []interface{}{vec, workspaceID, vec, minSimilarity}
	if filters.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, filters.ClientID)
	}
	if len(filters.FieldNames) > 0 {
		query += ` AND field_name IN (?)`
		args = append(args, filters.FieldNames)
	}
	query += ` ORDER BY embedding <=> ? ASC, ctime DESC LIMIT ?`
	args = append(args, vec, limit)

	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := s.db.QueryContext(ctx, query, expanded...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		if err := rows.Scan(&hit.OwnerID, &hit.ClientID, &hit.FieldName, &hit.Similarity, &hit.Ctime); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
