package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/nodues/internal/app/models/dto"
	"github.com/yigit/nodues/internal/pkg/apperrors"
)

func TestHandleAPIErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{"validation", apperrors.NewValidationError("missing required fields: name"), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "missing required fields: name"},
		{"reference", apperrors.NewReferenceNotFoundError("hostel", "H9"), http.StatusNotFound, dto.ErrorCodeReferenceNotFound, "hostel with code 'H9' not found"},
		{"not found", apperrors.NewNotFoundError("request not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "request not found"},
		{"active request", apperrors.NewCustomError(apperrors.ErrActiveRequestExists, "An active no-dues request already exists"), http.StatusConflict, dto.ErrorCodeActiveRequestExists, "An active no-dues request already exists"},
		{"transition", apperrors.NewInvalidTransitionError("track is already Approved"), http.StatusConflict, dto.ErrorCodeInvalidTransition, "track is already Approved"},
		{"state", apperrors.NewInvalidStateError("query is already resolved"), http.StatusConflict, dto.ErrorCodeInvalidState, "query is already resolved"},
		{"wrapped credentials", fmt.Errorf("login: %w", apperrors.ErrInvalidCredentials), http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "login: invalid credentials"},
		{"forbidden", apperrors.NewCustomError(apperrors.ErrPermissionDenied, "not your unit"), http.StatusForbidden, dto.ErrorCodeForbidden, "not your unit"},
		{"store failure hides cause", apperrors.NewStoreFailure("lock request", context.DeadlineExceeded), http.StatusServiceUnavailable, dto.ErrorCodeStoreUnavailable, "Storage temporarily unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
		})
	}
}

func TestHandleAPIErrorKeepsDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	HandleAPIError(c, apperrors.NewCustomError(apperrors.ErrActiveRequestExists, "An active no-dues request already exists").
		WithDetails(map[string]interface{}{"requestId": 3}))

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 3, details["requestId"])
}
