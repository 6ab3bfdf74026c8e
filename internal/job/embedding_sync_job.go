package job

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/ai"
	"github.com/praxisnote/praxisnote/internal/cache"
	"github.com/praxisnote/praxisnote/internal/embedder"
	"github.com/praxisnote/praxisnote/internal/model"
	"github.com/praxisnote/praxisnote/internal/notes"
	"github.com/praxisnote/praxisnote/internal/vectorstore"
)

// EmbeddingSyncJob re-embeds notes whose text changed after their embedding
// rows were written. Each note is processed whole: stale rows are dropped,
// every non-empty SOAP field gets a fresh row, and cached answers derived
// from the note are evicted.
type EmbeddingSyncJob struct {
	source      notes.Source
	embedder    *embedder.Client
	vectors     vectorstore.Store
	invalidator *cache.Invalidator
	batch       int
}

func NewEmbeddingSyncJob(source notes.Source, embedClient *embedder.Client,
	vectors vectorstore.Store, invalidator *cache.Invalidator, batch int) *EmbeddingSyncJob {
	if batch <= 0 {
		batch = 50
	}
	return &EmbeddingSyncJob{
		source:      source,
		embedder:    embedClient,
		vectors:     vectors,
		invalidator: invalidator,
		batch:       batch,
	}
}

func (j *EmbeddingSyncJob) Name() string {
	return "embedding_sync"
}

func (j *EmbeddingSyncJob) Run(ctx context.Context) error {
	if j.source == nil || j.embedder == nil || j.vectors == nil {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	stale, err := j.source.ListStale(ctx, j.batch)
	if err != nil {
		logger.Error("list stale notes failed", zap.Error(err))
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	logger.Info("re-embedding stale notes", zap.Int("count", len(stale)))
	for i := range stale {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := j.syncNote(ctx, &stale[i]); err != nil {
			logger.Error("re-embed note failed",
				zap.String("workspace_id", stale[i].WorkspaceID),
				zap.String("note_id", stale[i].ID),
				zap.Error(err))
			continue
		}
	}
	return nil
}

func (j *EmbeddingSyncJob) syncNote(ctx context.Context, note *model.Note) error {
	var fields []string
	var texts []string
	for _, field := range model.EmbeddableNoteFields {
		text := notes.ExtractText(note.FieldText(field))
		if text == "" {
			continue
		}
		fields = append(fields, field)
		texts = append(texts, text)
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = j.embedder.EmbedBatch(ctx, texts, ai.TaskRetrievalDocument)
		if err != nil {
			return err
		}
	}

	// Drop rows first so fields emptied by the edit disappear too.
	if err := j.vectors.DeleteByOwner(ctx, note.WorkspaceID, note.ID); err != nil {
		return err
	}
	now := time.Now().Unix()
	for i, field := range fields {
		rec := &model.EmbeddingRecord{
			WorkspaceID: note.WorkspaceID,
			OwnerID:     note.ID,
			ClientID:    note.ClientID,
			FieldName:   field,
			Embedding:   vectors[i],
			ContentHash: contentHash(texts[i]),
			Ctime:       now,
		}
		if err := j.vectors.Upsert(ctx, rec); err != nil {
			return err
		}
	}

	// The note's content changed, so any cached answer citing it is stale.
	if j.invalidator != nil {
		if _, err := j.invalidator.InvalidateForOwner(ctx, note.WorkspaceID, note.ID); err != nil {
			logutil.GetLogger(ctx).Warn("post-embed invalidation failed",
				zap.String("note_id", note.ID), zap.Error(err))
		}
	}
	return nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
