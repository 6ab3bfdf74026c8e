package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/praxisnote/praxisnote/internal/model"
)

// MemoryStore is an in-process Store used in tests and when no database is
// configured. Search semantics match the Postgres implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []model.EmbeddingRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Upsert(ctx context.Context, rec *model.EmbeddingRecord) error {
	if rec.WorkspaceID == "" {
		return fmt.Errorf("workspace_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.WorkspaceID == rec.WorkspaceID && row.OwnerID == rec.OwnerID && row.FieldName == rec.FieldName {
			continue
		}
		kept = append(kept, row)
	}
	clone := *rec
	clone.Embedding = append([]float32(nil), rec.Embedding...)
	s.rows = append(kept, clone)
	return nil
}

func (s *MemoryStore) DeleteByOwner(ctx context.Context, workspaceID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.WorkspaceID == workspaceID && row.OwnerID == ownerID {
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return nil
}

func (s *MemoryStore) DeleteByWorkspace(ctx context.Context, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.WorkspaceID == workspaceID {
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, workspaceID string, vector []float32, filters SearchFilters, limit int, minSimilarity float64) ([]SearchHit, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace_id is required")
	}
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []SearchHit
	for _, row := range s.rows {
		if row.WorkspaceID != workspaceID {
			continue
		}
		if filters.ClientID != "" && row.ClientID != filters.ClientID {
			continue
		}
		if len(filters.FieldNames) > 0 && !containsField(filters.FieldNames, row.FieldName) {
			continue
		}
		score := CosineSimilarity(vector, row.Embedding)
		if score < minSimilarity {
			continue
		}
		hits = append(hits, SearchHit{
			OwnerID:    row.OwnerID,
			ClientID:   row.ClientID,
			FieldName:  row.FieldName,
			Similarity: score,
			Ctime:      row.Ctime,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if hits[i].Ctime != hits[j].Ctime {
			return hits[i].Ctime > hits[j].Ctime
		}
		if hits[i].OwnerID != hits[j].OwnerID {
			return hits[i].OwnerID < hits[j].OwnerID
		}
		return hits[i].FieldName < hits[j].FieldName
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// CosineSimilarity over raw float32 vectors. Zero when dimensions differ or
// either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
