package vectorstore

import (
	"context"

	"github.com/praxisnote/praxisnote/internal/model"
)

// SearchFilters narrows a search inside a workspace. The workspace itself is
// never a filter option: it is a mandatory argument on every operation.
type SearchFilters struct {
	ClientID   string
	FieldNames []string
}

// SearchHit is one ranked result row.
type SearchHit struct {
	OwnerID    string
	ClientID   string
	FieldName  string
	Similarity float64
	Ctime      int64
}

// Store persists and searches embedding rows. Implementations must apply
// workspace_id as the first predicate of every statement; cross-workspace
// rows must never be visible regardless of filter combination.
type Store interface {
	// Upsert atomically replaces the rows for owner+field.
	Upsert(ctx context.Context, rec *model.EmbeddingRecord) error
	DeleteByOwner(ctx context.Context, workspaceID, ownerID string) error
	DeleteByWorkspace(ctx context.Context, workspaceID string) error
	// Search returns hits with cosine similarity >= minSimilarity, ordered
	// by similarity descending, ties broken by most recent ctime.
	Search(ctx context.Context, workspaceID string, vector []float32, filters SearchFilters, limit int, minSimilarity float64) ([]SearchHit, error)
}
