package response

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/praxisnote/praxisnote/internal/pkg/errcode"
)

func TestMessageFor_EveryCodeHasText(t *testing.T) {
	codes := []int{
		errcode.ErrUnknown,
		errcode.ErrUnauthorized,
		errcode.ErrForbidden,
		errcode.ErrNotFound,
		errcode.ErrInvalid,
		errcode.ErrTooMany,
		errcode.ErrInternal,
		errcode.ErrAssistantUnavailable,
	}
	for _, code := range codes {
		require.NotEmpty(t, messageFor(code))
	}
	require.Equal(t, "assistant temporarily unavailable", messageFor(errcode.ErrAssistantUnavailable))
}

func TestMessageFor_UnknownCodeFallsBack(t *testing.T) {
	require.Equal(t, messageFor(errcode.ErrInternal), messageFor(99999999))
}

func TestAPIError_CarriesCode(t *testing.T) {
	e := apiError{code: uint32(errcode.ErrTooMany), msg: "too many requests"}
	require.Equal(t, uint32(errcode.ErrTooMany), e.Code())
	require.Equal(t, "too many requests", e.Error())
}
