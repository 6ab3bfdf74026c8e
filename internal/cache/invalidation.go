package cache

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Invalidator evicts query-result entries when the notes they were derived
// from change. Eviction is best-effort and at-least-once: an entry that is
// already gone counts as success, and store failures are logged and
// swallowed so callers never fail because the cache was unreachable. The
// entries expire on TTL anyway.
type Invalidator struct {
	store Store
}

func NewInvalidator(store Store) *Invalidator {
	if store == nil {
		return nil
	}
	return &Invalidator{store: store}
}

// InvalidateForOwner removes all cached results in the workspace whose
// answer touched the given owner (note or client). Returns the number of
// entries actually evicted; zero with nil error when nothing was cached.
func (s *Invalidator) InvalidateForOwner(ctx context.Context, workspaceID, ownerID string) (int, error) {
	if s == nil {
		return 0, nil
	}
	idxKey := ownerIndexKey(workspaceID, ownerID)
	return s.evictIndexed(ctx, workspaceID, ownerID, idxKey)
}

// InvalidateForWorkspace removes every cached result for the workspace,
// used on workspace-level deletion.
func (s *Invalidator) InvalidateForWorkspace(ctx context.Context, workspaceID string) (int, error) {
	if s == nil {
		return 0, nil
	}
	return s.evictIndexed(ctx, workspaceID, "", workspaceIndexKey(workspaceID))
}

func (s *Invalidator) evictIndexed(ctx context.Context, workspaceID, ownerID, idxKey string) (int, error) {
	logger := logutil.GetLogger(ctx).With(
		zap.String("workspace_id", workspaceID),
		zap.String("owner_id", ownerID),
	)
	keys, err := s.store.SMembers(ctx, idxKey)
	if err != nil {
		logger.Warn("invalidation index read failed", zap.Error(err))
		return 0, nil
	}
	if len(keys) == 0 {
		if _, err := s.store.Del(ctx, idxKey); err != nil {
			logger.Warn("invalidation index cleanup failed", zap.Error(err))
		}
		return 0, nil
	}
	evicted, err := s.store.Del(ctx, keys...)
	if err != nil {
		logger.Warn("invalidation delete failed", zap.Error(err))
		return 0, nil
	}
	if _, err := s.store.Del(ctx, idxKey); err != nil {
		logger.Warn("invalidation index cleanup failed", zap.Error(err))
	}
	logger.Info("query cache invalidated", zap.Int64("evicted", evicted))
	return int(evicted), nil
}
