package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/nodues/internal/app/models/dto"
	"github.com/yigit/nodues/internal/app/services"
	"github.com/yigit/nodues/internal/middleware"
)

// ReferenceController serves departments, hostels and unit types
type ReferenceController struct {
	referenceService *services.ReferenceService
}

// NewReferenceController creates a new ReferenceController
func NewReferenceController(referenceService *services.ReferenceService) *ReferenceController {
	return &ReferenceController{
		referenceService: referenceService,
	}
}

// GetDepartments lists all departments
// @Summary List departments
// @Tags reference
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.Department} "Departments retrieved successfully"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /reference/departments [get]
func (c *ReferenceController) GetDepartments(ctx *gin.Context) {
	departments, err := c.referenceService.ListDepartments(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(departments, ""))
}

// GetHostels lists all hostels
// @Summary List hostels
// @Tags reference
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.Hostel} "Hostels retrieved successfully"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /reference/hostels [get]
func (c *ReferenceController) GetHostels(ctx *gin.Context) {
	hostels, err := c.referenceService.ListHostels(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(hostels, ""))
}

// GetUnits lists the approving units in step order
// @Summary List approving units
// @Tags reference
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.UnitInfo} "Units retrieved successfully"
// @Router /reference/units [get]
func (c *ReferenceController) GetUnits(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(c.referenceService.ListUnits(), ""))
}

// GetAll returns every lookup the submission form needs
// @Summary Form reference data
// @Description Departments, hostels and units in one call
// @Tags reference
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ReferenceDataResponse} "Reference data retrieved successfully"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /reference [get]
func (c *ReferenceController) GetAll(ctx *gin.Context) {
	departments, err := c.referenceService.ListDepartments(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	hostels, err := c.referenceService.ListHostels(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.ReferenceDataResponse{
		Departments: departments,
		Hostels:     hostels,
		Units:       c.referenceService.ListUnits(),
	}, ""))
}
