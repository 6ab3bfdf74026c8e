package retrieval

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxisnote/praxisnote/internal/embedder"
	"github.com/praxisnote/praxisnote/internal/model"
	"github.com/praxisnote/praxisnote/internal/resilience"
	"github.com/praxisnote/praxisnote/internal/vectorstore"
)

// mapEmbedProvider returns fixed vectors for known normalized texts.
type mapEmbedProvider struct {
	vectors map[string][]float32
}

func (p *mapEmbedProvider) Name() string { return "map" }

func (p *mapEmbedProvider) Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, ok := p.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		out = append(out, vec)
	}
	return out, nil
}

type fakeNames struct {
	names map[string]string
}

func (f *fakeNames) ListStale(ctx context.Context, limit int) ([]model.Note, error) {
	return nil, nil
}

func (f *fakeNames) NotesByID(ctx context.Context, workspaceID string, noteIDs []string) ([]model.Note, error) {
	return nil, nil
}

func (f *fakeNames) ClientNames(ctx context.Context, workspaceID string, clientIDs []string) (map[string]string, error) {
	return f.names, nil
}

func newTestEngine(provider *mapEmbedProvider, store vectorstore.Store, names map[string]string) *Engine {
	wrapper := resilience.New(resilience.Config{MaxAttempts: 1, BaseDelay: time.Millisecond})
	embedClient := embedder.New(provider, "m", wrapper, embedder.Options{})
	return NewEngine(embedClient, store, &fakeNames{names: names}, Config{})
}

func seed(t *testing.T, store vectorstore.Store, ws, owner, client, field string, vec []float32, ctime int64) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), &model.EmbeddingRecord{
		WorkspaceID: ws, OwnerID: owner, ClientID: client,
		FieldName: field, Embedding: vec, ContentHash: "h", Ctime: ctime,
	}))
}

func TestClassify(t *testing.T) {
	engine := newTestEngine(&mapEmbedProvider{}, vectorstore.NewMemoryStore(), nil)
	require.False(t, engine.Classify("What caused the back pain?"), "interrogative opener is specific")
	require.False(t, engine.Classify("¿Qué ejercicios recomendé para la ansiedad del cliente?"))
	require.True(t, engine.Classify("back pain recovery"), "short statement is general")
	require.False(t, engine.Classify("client reported persistent lower back pain radiating down the left leg"), "long statement is specific")
}

func TestRetrieve_GeneralQueryGetsLoweredFloor(t *testing.T) {
	queryVec := []float32{1, 0, 0}
	// cosine(row, query) = 0.25: above the lowered 0.2 floor, below 0.3.
	rowVec := []float32{0.25, float32(math.Sqrt(1 - 0.0625)), 0}
	provider := &mapEmbedProvider{vectors: map[string][]float32{
		"back pain recovery": queryVec,
		"what progress has the client made on back pain recovery goals": queryVec,
	}}
	store := vectorstore.NewMemoryStore()
	seed(t, store, "ws", "note-1", "c1", model.FieldSubjective, rowVec, 1)
	engine := newTestEngine(provider, store, nil)
	ctx := context.Background()

	general, err := engine.Retrieve(ctx, "ws", "back pain recovery", "", 5, 0.3)
	require.NoError(t, err)
	require.Len(t, general, 1)

	specific, err := engine.Retrieve(ctx, "ws", "what progress has the client made on back pain recovery goals", "", 5, 0.3)
	require.NoError(t, err)
	require.Empty(t, specific, "specific query keeps the caller's floor")
}

func TestRetrieve_DeduplicatesPerOwnerKeepingBestField(t *testing.T) {
	queryVec := []float32{1, 0, 0}
	provider := &mapEmbedProvider{vectors: map[string][]float32{"sleep": queryVec}}
	store := vectorstore.NewMemoryStore()
	seed(t, store, "ws", "note-1", "c1", model.FieldSubjective, []float32{1, 0.05, 0}, 1)
	seed(t, store, "ws", "note-1", "c1", model.FieldPlan, []float32{1, 0.6, 0}, 2)
	seed(t, store, "ws", "note-2", "c1", model.FieldSubjective, []float32{1, 0.3, 0}, 3)
	engine := newTestEngine(provider, store, nil)

	citations, err := engine.Retrieve(context.Background(), "ws", "sleep", "", 5, 0.1)
	require.NoError(t, err)
	require.Len(t, citations, 2)
	require.Equal(t, "note-1", citations[0].SourceID)
	require.Equal(t, model.FieldSubjective, citations[0].FieldName, "best-scoring field wins for the owner")
	require.Equal(t, "note-2", citations[1].SourceID)
}

func TestRetrieve_CapsAtMaxResults(t *testing.T) {
	queryVec := []float32{1, 0, 0}
	provider := &mapEmbedProvider{vectors: map[string][]float32{"pain": queryVec}}
	store := vectorstore.NewMemoryStore()
	for i := 0; i < 8; i++ {
		seed(t, store, "ws", "note-"+string(rune('a'+i)), "c1", model.FieldSubjective, []float32{1, float32(i) * 0.01, 0}, int64(i))
	}
	engine := newTestEngine(provider, store, nil)

	citations, err := engine.Retrieve(context.Background(), "ws", "pain", "", 3, 0.1)
	require.NoError(t, err)
	require.Len(t, citations, 3)
}

func TestRetrieve_EmptyWorkspaceReturnsEmptyNotError(t *testing.T) {
	provider := &mapEmbedProvider{vectors: map[string][]float32{"anything at all": {1, 0, 0}}}
	engine := newTestEngine(provider, vectorstore.NewMemoryStore(), nil)

	citations, err := engine.Retrieve(context.Background(), "ws-empty", "anything at all", "", 5, 0.3)
	require.NoError(t, err)
	require.Empty(t, citations)
}

func TestRetrieve_ClientScopeFilters(t *testing.T) {
	queryVec := []float32{1, 0, 0}
	provider := &mapEmbedProvider{vectors: map[string][]float32{"mood": queryVec}}
	store := vectorstore.NewMemoryStore()
	seed(t, store, "ws", "note-1", "c1", model.FieldSubjective, queryVec, 1)
	seed(t, store, "ws", "note-2", "c2", model.FieldSubjective, queryVec, 2)
	engine := newTestEngine(provider, store, nil)

	citations, err := engine.Retrieve(context.Background(), "ws", "mood", "c2", 5, 0.3)
	require.NoError(t, err)
	require.Len(t, citations, 1)
	require.Equal(t, "note-2", citations[0].SourceID)
}

func TestRetrieve_ResolvesClientDisplayNames(t *testing.T) {
	queryVec := []float32{1, 0, 0}
	provider := &mapEmbedProvider{vectors: map[string][]float32{"mood": queryVec}}
	store := vectorstore.NewMemoryStore()
	seed(t, store, "ws", "note-1", "c1", model.FieldSubjective, queryVec, 1)
	engine := newTestEngine(provider, store, map[string]string{"c1": "A. Client"})

	citations, err := engine.Retrieve(context.Background(), "ws", "mood", "", 5, 0.3)
	require.NoError(t, err)
	require.Len(t, citations, 1)
	require.Equal(t, "A. Client", citations[0].OwnerName)
}

func TestRetrieve_Deterministic(t *testing.T) {
	queryVec := []float32{1, 0, 0}
	provider := &mapEmbedProvider{vectors: map[string][]float32{"pain": queryVec}}
	store := vectorstore.NewMemoryStore()
	seed(t, store, "ws", "note-1", "c1", model.FieldSubjective, []float32{1, 0.1, 0}, 5)
	seed(t, store, "ws", "note-2", "c1", model.FieldSubjective, []float32{1, 0.1, 0}, 5)
	engine := newTestEngine(provider, store, nil)

	first, err := engine.Retrieve(context.Background(), "ws", "pain", "", 5, 0.1)
	require.NoError(t, err)
	second, err := engine.Retrieve(context.Background(), "ws", "pain", "", 5, 0.1)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
