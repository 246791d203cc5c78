package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
	}{
		{NotFoundError("x"), http.StatusNotFound},
		{UnauthenticatedError("x"), http.StatusUnauthorized},
		{ForbiddenError("x"), http.StatusForbidden},
		{InvalidStateError("x"), http.StatusConflict},
		{ValidationError("x"), http.StatusBadRequest},
		{UpstreamError("x"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code)

		var resp APIResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.False(t, resp.Success)
		require.Equal(t, "x", resp.Message)
	}
}

func TestWriteErrorUnknownErrorIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("driver: bad connection"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// internals never leak to the client
	require.Equal(t, "Internal server error", resp.Message)
}
