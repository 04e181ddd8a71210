package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalisedAPIError(t *testing.T) {
	e := apperrors.NormalisedAPIError(http.StatusBadGateway, nil)
	assert.Equal(t, "API Error: Bad Gateway", e.Message)
	assert.Equal(t, "HTTP_502", e.Code)

	e = apperrors.NormalisedAPIError(http.StatusBadRequest, &apperrors.APIError{Message: "bad", Code: "BAD"})
	assert.Equal(t, "bad", e.Message)
	assert.Equal(t, "BAD", e.Code)
	assert.Equal(t, http.StatusBadRequest, e.Status)
}

func TestFromResponse(t *testing.T) {
	tests := []struct {
		name   string
		apiErr *apperrors.APIError
		target error
	}{
		{
			name:   "conflict",
			apiErr: &apperrors.APIError{Status: http.StatusConflict, Message: "email taken", Code: "CONFLICT"},
			target: apperrors.ErrConflict,
		},
		{
			name:   "not found",
			apiErr: &apperrors.APIError{Status: http.StatusNotFound, Message: "missing", Code: "HTTP_404"},
			target: apperrors.ErrNotFound,
		},
		{
			name:   "validation",
			apiErr: &apperrors.APIError{Status: http.StatusUnprocessableEntity, Message: "bad", Code: "VALIDATION"},
			target: apperrors.ErrValidation,
		},
		{
			name:   "server",
			apiErr: &apperrors.APIError{Status: http.StatusServiceUnavailable, Message: "down", Code: "HTTP_503"},
			target: apperrors.ErrServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := apperrors.FromResponse(tt.apiErr)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.target))
		})
	}
}

func TestFromResponse_ValidationField(t *testing.T) {
	err := apperrors.FromResponse(&apperrors.APIError{
		Status:  http.StatusBadRequest,
		Message: "invalid request",
		Details: map[string]any{"field": "email", "message": "must be a valid address"},
	})

	var ve *apperrors.ValidationError
	require.True(t, apperrors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)
	assert.Equal(t, "must be a valid address", ve.Message)

	err = apperrors.FromResponse(&apperrors.APIError{
		Status:  http.StatusUnprocessableEntity,
		Message: "invalid request",
		Details: map[string]any{"password": []any{"too short", "needs a digit"}},
	})
	require.True(t, apperrors.As(err, &ve))
	assert.Equal(t, "password", ve.Field)
	assert.Equal(t, "too short; needs a digit", ve.Message)
}

func TestServerErrorCode(t *testing.T) {
	err := apperrors.FromResponse(&apperrors.APIError{Status: 500, Code: "DB_DOWN"})
	var se *apperrors.ServerError
	require.True(t, apperrors.As(err, &se))
	assert.Equal(t, "DB_DOWN", se.Code)
	assert.Equal(t, 500, se.Status)
}

func TestNetworkErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := &apperrors.NetworkError{Op: "GET /health", Err: cause}
	assert.True(t, apperrors.Is(err, apperrors.ErrNetwork))
	assert.True(t, apperrors.Is(err, cause))
}

func TestWrapf(t *testing.T) {
	assert.Nil(t, apperrors.Wrapf(nil, "ctx"))
	err := apperrors.Wrapf(apperrors.ErrConflict, "register %s", "a@b.c")
	assert.EqualError(t, err, "register a@b.c: conflict")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}
