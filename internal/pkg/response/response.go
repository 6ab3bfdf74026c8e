package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/praxisnote/praxisnote/internal/pkg/errcode"
)

// Canonical caller-facing text per API error code. Handlers pass codes; the
// wording lives here so the same condition reads the same on every endpoint,
// and "assistant temporarily unavailable" stays distinguishable from a
// genuine content failure.
var messages = map[int]string{
	errcode.ErrUnknown:              "unknown error",
	errcode.ErrUnauthorized:         "unauthorized",
	errcode.ErrForbidden:            "forbidden",
	errcode.ErrNotFound:             "not found",
	errcode.ErrInvalid:              "invalid request",
	errcode.ErrTooMany:              "too many requests",
	errcode.ErrInternal:             "internal error",
	errcode.ErrAssistantUnavailable: "assistant temporarily unavailable",
}

func messageFor(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[errcode.ErrInternal]
}

type apiError struct {
	code uint32
	msg  string
}

func (e apiError) Error() string {
	return e.msg
}

func (e apiError) Code() uint32 {
	return e.code
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// ErrorCode replies with the canonical message for code.
func ErrorCode(c *gin.Context, code int) {
	Error(c, code, messageFor(code))
}

// Error replies with an explicit message, for cases where the handler has
// something more precise to say than the canonical text.
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = messageFor(code)
	}
	proxyutil.FailJson(c, 200, apiError{code: uint32(code), msg: message})
}
