package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/praxisnote/praxisnote/internal/cache"
	"github.com/praxisnote/praxisnote/internal/pkg/errcode"
	"github.com/praxisnote/praxisnote/internal/pkg/response"
)

// InvalidateHandler is the hook the note CRUD layer calls after mutations.
type InvalidateHandler struct {
	invalidator *cache.Invalidator
}

func NewInvalidateHandler(invalidator *cache.Invalidator) *InvalidateHandler {
	return &InvalidateHandler{invalidator: invalidator}
}

type invalidateRequest struct {
	WorkspaceID string `json:"workspace_id"`
	// OwnerID is the note or client the mutation touched. Empty means
	// workspace-wide eviction (workspace deletion).
	OwnerID string `json:"owner_id"`
}

func (h *InvalidateHandler) Invalidate(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, errcode.ErrInvalid)
		return
	}
	if req.WorkspaceID == "" {
		response.Error(c, errcode.ErrInvalid, "workspace_id required")
		return
	}
	var (
		evicted int
		err     error
	)
	if req.OwnerID != "" {
		evicted, err = h.invalidator.InvalidateForOwner(c.Request.Context(), req.WorkspaceID, req.OwnerID)
	} else {
		evicted, err = h.invalidator.InvalidateForWorkspace(c.Request.Context(), req.WorkspaceID)
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"count_evicted": evicted})
}
