package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/praxisnote/praxisnote/internal/model"
)

func addRow(t *testing.T, s Store, ws, owner, client, field string, vec []float32, ctime int64) {
	t.Helper()
	err := s.Upsert(context.Background(), &model.EmbeddingRecord{
		WorkspaceID: ws,
		OwnerID:     owner,
		ClientID:    client,
		FieldName:   field,
		Embedding:   vec,
		ContentHash: "h",
		Ctime:       ctime,
	})
	require.NoError(t, err)
}

func TestSearch_TenantIsolationAcrossAllFilterCombinations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	vec := []float32{1, 0, 0}
	addRow(t, store, "ws-a", "note-1", "client-1", model.FieldSubjective, vec, 1)
	addRow(t, store, "ws-b", "note-2", "client-1", model.FieldSubjective, vec, 2)

	filterCombos := []SearchFilters{
		{},
		{ClientID: "client-1"},
		{FieldNames: []string{model.FieldSubjective}},
		{ClientID: "client-1", FieldNames: []string{model.FieldSubjective}},
	}
	for _, filters := range filterCombos {
		hits, err := store.Search(ctx, "ws-b", vec, filters, 10, 0)
		require.NoError(t, err)
		for _, hit := range hits {
			require.NotEqual(t, "note-1", hit.OwnerID, "workspace ws-b must never see ws-a rows")
		}
		require.Len(t, hits, 1)
	}
}

func TestSearch_RanksBySimilarityDescending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	addRow(t, store, "ws", "close", "", model.FieldSubjective, []float32{1, 0.1, 0}, 1)
	addRow(t, store, "ws", "far", "", model.FieldSubjective, []float32{0, 1, 0}, 2)
	addRow(t, store, "ws", "exact", "", model.FieldSubjective, []float32{1, 0, 0}, 3)

	hits, err := store.Search(ctx, "ws", []float32{1, 0, 0}, SearchFilters{}, 10, -1)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	require.Equal(t, "exact", hits[0].OwnerID)
	require.Equal(t, "close", hits[1].OwnerID)
	require.Equal(t, "far", hits[2].OwnerID)
}

func TestSearch_TiesBrokenByMostRecentCtime(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	vec := []float32{0.5, 0.5}
	addRow(t, store, "ws", "older", "", model.FieldPlan, vec, 100)
	addRow(t, store, "ws", "newer", "", model.FieldPlan, vec, 200)

	hits, err := store.Search(ctx, "ws", vec, SearchFilters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "newer", hits[0].OwnerID)
}

func TestSearch_MinSimilarityFloorApplied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	addRow(t, store, "ws", "orthogonal", "", model.FieldSubjective, []float32{0, 1}, 1)
	addRow(t, store, "ws", "aligned", "", model.FieldSubjective, []float32{1, 0}, 2)

	hits, err := store.Search(ctx, "ws", []float32{1, 0}, SearchFilters{}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "aligned", hits[0].OwnerID)
}

func TestSearch_FieldAndClientFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	vec := []float32{1, 0}
	addRow(t, store, "ws", "n1", "c1", model.FieldSubjective, vec, 1)
	addRow(t, store, "ws", "n2", "c2", model.FieldSubjective, vec, 2)
	addRow(t, store, "ws", "n3", "c1", model.FieldPlan, vec, 3)

	hits, err := store.Search(ctx, "ws", vec, SearchFilters{ClientID: "c1"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	hits, err = store.Search(ctx, "ws", vec, SearchFilters{ClientID: "c1", FieldNames: []string{model.FieldPlan}}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "n3", hits[0].OwnerID)
}

func TestUpsert_ReplacesByOwnerAndField(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	addRow(t, store, "ws", "n1", "", model.FieldSubjective, []float32{1, 0}, 1)
	addRow(t, store, "ws", "n1", "", model.FieldSubjective, []float32{0, 1}, 2)

	hits, err := store.Search(ctx, "ws", []float32{0, 1}, SearchFilters{}, 10, 0.9)
	require.NoError(t, err)
	require.Len(t, hits, 1, "old row must be superseded, not duplicated")
	require.EqualValues(t, 2, hits[0].Ctime)
}

func TestUpsert_RequiresWorkspace(t *testing.T) {
	store := NewMemoryStore()
	err := store.Upsert(context.Background(), &model.EmbeddingRecord{OwnerID: "n1"})
	require.Error(t, err)
}

func TestDeleteByOwnerAndWorkspace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	vec := []float32{1, 0}
	addRow(t, store, "ws", "n1", "", model.FieldSubjective, vec, 1)
	addRow(t, store, "ws", "n1", "", model.FieldPlan, vec, 2)
	addRow(t, store, "ws", "n2", "", model.FieldSubjective, vec, 3)

	require.NoError(t, store.DeleteByOwner(ctx, "ws", "n1"))
	hits, err := store.Search(ctx, "ws", vec, SearchFilters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	require.NoError(t, store.DeleteByWorkspace(ctx, "ws"))
	hits, err = store.Search(ctx, "ws", vec, SearchFilters{}, 10, 0)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{1, 2}), 1e-9)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	require.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
