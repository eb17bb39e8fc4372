package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/nodues/internal/app/models/dto"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/logger"
)

// errorMapping ties an error kind to its HTTP status and code
type errorMapping struct {
	kind   error
	status int
	code   dto.ErrorCode
	title  string
}

// Checked in order; the first kind in the error chain wins
var errorMappings = []errorMapping{
	{apperrors.ErrValidation, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrReferenceNotFound, http.StatusNotFound, dto.ErrorCodeReferenceNotFound, "Reference not found"},
	{apperrors.ErrNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrActiveRequestExists, http.StatusConflict, dto.ErrorCodeActiveRequestExists, "Active request exists"},
	{apperrors.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Invalid transition"},
	{apperrors.ErrInvalidState, http.StatusConflict, dto.ErrorCodeInvalidState, "Invalid state"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrInvalidFormat, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token format"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrStoreFailure, http.StatusServiceUnavailable, dto.ErrorCodeStoreUnavailable, "Storage temporarily unavailable"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}

		message := m.title
		if m.kind != apperrors.ErrStoreFailure {
			// Store failure messages carry driver text; keep it in the logs only
			message = apperrors.MessageOf(err)
		}
		detail := dto.NewErrorDetail(m.code, message)
		if details := apperrors.DetailsOf(err); details != nil {
			detail = detail.WithDetails(details)
		}
		if m.status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
			detail = detail.WithSeverity(dto.ErrorSeverityCritical)
		}
		c.JSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
	))
}
