package notes

import (
	"context"

	"github.com/praxisnote/praxisnote/internal/model"
)

// Source is the read-only view of the practice-management schema this
// subsystem is allowed: note field text for embedding and client display
// names for citations. Note CRUD itself lives outside this repo.
type Source interface {
	// ListStale returns notes whose content changed after their newest
	// embedding row was written (or that have no rows yet).
	ListStale(ctx context.Context, limit int) ([]model.Note, error)
	// NotesByID loads note field text for citation grounding, scoped to one
	// workspace.
	NotesByID(ctx context.Context, workspaceID string, noteIDs []string) ([]model.Note, error)
	// ClientNames maps client IDs to display names within one workspace.
	ClientNames(ctx context.Context, workspaceID string, clientIDs []string) (map[string]string, error)
}
