package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/agent"
	"github.com/praxisnote/praxisnote/internal/embedder"
	"github.com/praxisnote/praxisnote/internal/pkg/errcode"
	pkgerrors "github.com/praxisnote/praxisnote/internal/pkg/errors"
	"github.com/praxisnote/praxisnote/internal/pkg/response"
	"github.com/praxisnote/praxisnote/internal/resilience"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	response.ErrorCode(c, codeFor(err))
}

// codeFor maps pipeline errors onto API error codes. Unavailability keeps
// its own code so callers can tell an outage from a bad request.
func codeFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalid):
		return errcode.ErrInvalid
	case errors.Is(err, pkgerrors.ErrNotFound):
		return errcode.ErrNotFound
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return errcode.ErrUnauthorized
	case errors.Is(err, pkgerrors.ErrForbidden):
		return errcode.ErrForbidden
	case errors.Is(err, agent.ErrSynthesisUnavailable),
		errors.Is(err, embedder.ErrEmbeddingUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen):
		return errcode.ErrAssistantUnavailable
	default:
		return errcode.ErrInternal
	}
}
