package notes

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/praxisnote/praxisnote/internal/model"
)

const noteStateFinal = 1

// PostgresSource reads note text and client names from the shared
// practice-management database.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(conn *sql.DB) *PostgresSource {
	return &PostgresSource{db: conn}
}

func (s *PostgresSource) ListStale(ctx context.Context, limit int) ([]model.Note, error) {
	const query = `
		SELECT n.id, n.workspace_id, n.client_id, n.subjective, n.objective, n.assessment, n.plan, n.mtime
		FROM notes n
		LEFT JOIN (
			SELECT workspace_id, owner_id, MAX(ctime) AS ctime
			FROM note_embeddings
			GROUP BY workspace_id, owner_id
		) e ON n.workspace_id = e.workspace_id AND n.id = e.owner_id
		WHERE n.state = $1 AND (e.owner_id IS NULL OR n.mtime > e.ctime)
		ORDER BY n.mtime ASC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, noteStateFinal, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Note
	for rows.Next() {
		var note model.Note
		if err := rows.Scan(&note.ID, &note.WorkspaceID, &note.ClientID,
			&note.Subjective, &note.Objective, &note.Assessment, &note.Plan, &note.Mtime); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}

func (s *PostgresSource) NotesByID(ctx context.Context, workspaceID string, noteIDs []string) ([]model.Note, error) {
	if len(noteIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, workspace_id, client_id, subjective, objective, assessment, plan, mtime
		FROM notes
		WHERE workspace_id = ? AND id IN (?)
	`
	query, args, err := sqlx.In(query, workspaceID, noteIDs)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Note
	for rows.Next() {
		var note model.Note
		if err := rows.Scan(&note.ID, &note.WorkspaceID, &note.ClientID,
			&note.Subjective, &note.Objective, &note.Assessment, &note.Plan, &note.Mtime); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}

func (s *PostgresSource) ClientNames(ctx context.Context, workspaceID string, clientIDs []string) (map[string]string, error) {
	if len(clientIDs) == 0 {
		return map[string]string{}, nil
	}
	query := `SELECT id, display_name FROM clients WHERE workspace_id = ? AND id IN (?)`
	query, args, err := sqlx.In(query, workspaceID, clientIDs)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result[id] = name
	}
	return result, rows.Err()
}
