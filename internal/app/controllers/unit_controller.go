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

// UnitController serves unit officers: their queue, decisions and queries.
// Routes run behind UnitRequired, which puts the unit on the context.
type UnitController struct {
	clearanceService *services.ClearanceService
}

// NewUnitController creates a new UnitController
func NewUnitController(clearanceService *services.ClearanceService) *UnitController {
	return &UnitController{clearanceService: clearanceService}
}

// GetQueue lists the requests waiting on a unit
// @Summary Unit work queue
// @Description Requests whose track for the unit has the given status (Pending by default), newest first
// @Tags units
// @Produce json
// @Security BearerAuth
// @Param unit path string true "Unit type" Enums(Department, Hostel, Library, Accounts, Sports, Proctor)
// @Param status query string false "Track status" Enums(Pending, Approved, Rejected)
// @Param page query int false "Page number (1-based)"
// @Param size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.QueueResponse} "Queue retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid unit or status"
// @Failure 403 {object} dto.ErrorResponse "Not an officer of this unit"
// @Router /units/{unit}/requests [get]
func (c *UnitController) GetQueue(ctx *gin.Context) {
	var status *models.TrackStatus
	if s := ctx.Query("status"); s != "" {
		ts := models.TrackStatus(s)
		status = &ts
	}
	page, size := helpers.ParsePaginationParams(ctx)
	offset, limit := helpers.CalculateOffsetLimit(page, size)

	items, total, err := c.clearanceService.UnitQueue(ctx.Request.Context(), middleware.UnitFromContext(ctx), status, offset, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.QueueResponse{
		Items:      items,
		Pagination: helpers.NewPaginationInfo(int64(total), page, limit),
	}, ""))
}

// GetQueries lists the queries a unit has raised
// @Summary Unit queries
// @Tags units
// @Produce json
// @Security BearerAuth
// @Param unit path string true "Unit type" Enums(Department, Hostel, Library, Accounts, Sports, Proctor)
// @Param status query string false "Query status" Enums(Pending, Resolved)
// @Success 200 {object} dto.APIResponse{data=[]models.Query} "Queries retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid unit or status"
// @Failure 403 {object} dto.ErrorResponse "Not an officer of this unit"
// @Router /units/{unit}/queries [get]
func (c *UnitController) GetQueries(ctx *gin.Context) {
	var status *models.QueryStatus
	switch s := models.QueryStatus(ctx.Query("status")); s {
	case "":
	case models.QueryPending, models.QueryResolved:
		status = &s
	default:
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid query status").WithField("status")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	queries, err := c.clearanceService.UnitQueries(ctx.Request.Context(), middleware.UnitFromContext(ctx), status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(queries, ""))
}

// Approve approves the unit's track of a request
// @Summary Approve a track
// @Description Moves the unit's Pending track to Approved. Issues the final decision when it was the last one.
// @Tags units
// @Produce json
// @Security BearerAuth
// @Param unit path string true "Unit type" Enums(Department, Hostel, Library, Accounts, Sports, Proctor)
// @Param requestId path int true "Request ID"
// @Success 200 {object} dto.APIResponse{data=models.Request} "Track approved"
// @Failure 403 {object} dto.ErrorResponse "Not an officer of this unit"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Track already decided"
// @Router /units/{unit}/requests/{requestId}/approve [post]
func (c *UnitController) Approve(ctx *gin.Context) {
	requestID, ok := parseRequestID(ctx)
	if !ok {
		return
	}
	request, err := c.clearanceService.ApproveTrack(ctx.Request.Context(), requestID, middleware.UnitFromContext(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request, "Track approved"))
}

// Reject rejects the unit's track of a request
// @Summary Reject a track
// @Tags units
// @Produce json
// @Security BearerAuth
// @Param unit path string true "Unit type" Enums(Department, Hostel, Library, Accounts, Sports, Proctor)
// @Param requestId path int true "Request ID"
// @Success 200 {object} dto.APIResponse{data=models.Request} "Track rejected"
// @Failure 403 {object} dto.ErrorResponse "Not an officer of this unit"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Track already decided"
// @Router /units/{unit}/requests/{requestId}/reject [post]
func (c *UnitController) Reject(ctx *gin.Context) {
	requestID, ok := parseRequestID(ctx)
	if !ok {
		return
	}
	request, err := c.clearanceService.RejectTrack(ctx.Request.Context(), requestID, middleware.UnitFromContext(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request, "Track rejected"))
}

// RaiseQuery asks the student a question on the unit's track
// @Summary Raise a query
// @Description Opens a query on the unit's Pending track. The track status does not change; the student sees QueryRaised until it is resolved.
// @Tags units
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param unit path string true "Unit type" Enums(Department, Hostel, Library, Accounts, Sports, Proctor)
// @Param requestId path int true "Request ID"
// @Param request body dto.RaiseQueryRequest true "Query"
// @Success 201 {object} dto.APIResponse{data=models.Query} "Query raised"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Track already decided"
// @Router /units/{unit}/requests/{requestId}/queries [post]
func (c *UnitController) RaiseQuery(ctx *gin.Context) {
	requestID, ok := parseRequestID(ctx)
	if !ok {
		return
	}
	var req dto.RaiseQueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(ctx, err)
		return
	}

	query, err := c.clearanceService.RaiseQuery(ctx.Request.Context(), requestID, middleware.UnitFromContext(ctx), req.Message)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(query, "Query raised"))
}
