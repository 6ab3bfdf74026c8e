package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/praxisnote/praxisnote/internal/agent"
	"github.com/praxisnote/praxisnote/internal/pkg/errcode"
	"github.com/praxisnote/praxisnote/internal/pkg/response"
)

type AssistantHandler struct {
	agent *agent.Agent
}

func NewAssistantHandler(a *agent.Agent) *AssistantHandler {
	return &AssistantHandler{agent: a}
}

type assistantQueryRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Text        string `json:"text"`
	UserID      string `json:"user_id"`
	ClientID    string `json:"client_id"`
	MaxResults  int    `json:"max_results"`
	// Pointer so callers can request a 0.0 floor explicitly.
	MinSimilarity *float64 `json:"min_similarity"`
}

func (h *AssistantHandler) Query(c *gin.Context) {
	var req assistantQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, errcode.ErrInvalid)
		return
	}
	if req.WorkspaceID == "" {
		response.Error(c, errcode.ErrInvalid, "workspace_id required")
		return
	}
	result, err := h.agent.Query(c.Request.Context(), &agent.Request{
		WorkspaceID:   req.WorkspaceID,
		Text:          req.Text,
		UserID:        req.UserID,
		ClientID:      req.ClientID,
		MaxResults:    req.MaxResults,
		MinSimilarity: req.MinSimilarity,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
