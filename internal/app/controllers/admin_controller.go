package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/models/dto"
	"github.com/yigit/nodues/internal/app/services"
	"github.com/yigit/nodues/internal/middleware"
	"github.com/yigit/nodues/internal/pkg/helpers"
)

// AdminController serves the administrator's overview and bulk overrides
type AdminController struct {
	clearanceService *services.ClearanceService
}

// NewAdminController creates a new AdminController
func NewAdminController(clearanceService *services.ClearanceService) *AdminController {
	return &AdminController{clearanceService: clearanceService}
}

// ListRequests pages through all requests
// @Summary List requests
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Overall status" Enums(Pending, In-Progress, Ready for Collection, Completed, Rejected)
// @Param page query int false "Page number (1-based)"
// @Param size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.RequestListResponse} "Requests retrieved"
// @Failure 403 {object} dto.ErrorResponse "Admins only"
// @Router /admin/requests [get]
func (c *AdminController) ListRequests(ctx *gin.Context) {
	var status *models.RequestStatus
	if s := ctx.Query("status"); s != "" {
		rs := models.RequestStatus(s)
		status = &rs
	}
	page, size := helpers.ParsePaginationParams(ctx)
	offset, limit := helpers.CalculateOffsetLimit(page, size)

	requests, total, err := c.clearanceService.ListRequests(ctx.Request.Context(), status, offset, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.RequestListResponse{
		Requests:   requests,
		Pagination: helpers.NewPaginationInfo(int64(total), page, limit),
	}, ""))
}

// GetRequest returns one request
// @Summary Get request
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param requestId path int true "Request ID"
// @Success 200 {object} dto.APIResponse{data=models.Request} "Request retrieved"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Router /admin/requests/{requestId} [get]
func (c *AdminController) GetRequest(ctx *gin.Context) {
	requestID, ok := parseRequestID(ctx)
	if !ok {
		return
	}
	request, err := c.clearanceService.GetRequest(ctx.Request.Context(), requestID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request, ""))
}

// ApproveAll approves every pending track of a request
// @Summary Approve all tracks
// @Description Approves every Pending track. Tracks already decided are skipped; fails only when no track is Pending.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param requestId path int true "Request ID"
// @Success 200 {object} dto.APIResponse{data=models.Request} "Tracks approved"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "No pending track"
// @Router /admin/requests/{requestId}/approve-all [post]
func (c *AdminController) ApproveAll(ctx *gin.Context) {
	requestID, ok := parseRequestID(ctx)
	if !ok {
		return
	}
	request, err := c.clearanceService.ApproveAll(ctx.Request.Context(), requestID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request, "All pending tracks approved"))
}

// RejectAll rejects every pending track of a request
// @Summary Reject all tracks
// @Description Rejects every Pending track. With cascading rejection the request becomes Rejected and the student may submit again; otherwise it stays Pending or In-Progress and keeps blocking a new submission.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param requestId path int true "Request ID"
// @Success 200 {object} dto.APIResponse{data=models.Request} "Tracks rejected"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "No pending track, or the request is already Rejected or Completed"
// @Router /admin/requests/{requestId}/reject-all [post]
func (c *AdminController) RejectAll(ctx *gin.Context) {
	requestID, ok := parseRequestID(ctx)
	if !ok {
		return
	}
	request, err := c.clearanceService.RejectAll(ctx.Request.Context(), requestID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request, "All pending tracks rejected"))
}
