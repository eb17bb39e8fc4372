package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/nodues/internal/app/auth"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/models/dto"
	"github.com/yigit/nodues/internal/app/services"
	"github.com/yigit/nodues/internal/middleware"
	"github.com/yigit/nodues/internal/pkg/filestorage"
)

// ClearanceController serves the student side of the no-dues workflow
type ClearanceController struct {
	clearanceService *services.ClearanceService
	attachments      *filestorage.Attachments
	logger           zerolog.Logger
}

// NewClearanceController creates a new ClearanceController
func NewClearanceController(clearanceService *services.ClearanceService, attachments *filestorage.Attachments, logger zerolog.Logger) *ClearanceController {
	return &ClearanceController{
		clearanceService: clearanceService,
		attachments:      attachments,
		logger:           logger,
	}
}

// SubmitForm opens a new no-dues request
// @Summary Submit the no-dues form
// @Description Upserts the student profile and opens a request with six Pending unit tracks. Fails while another request of the student is still active.
// @Tags clearance
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param student_id formData string true "Student ID"
// @Param studentName formData string true "Full name"
// @Param email formData string true "Email"
// @Param course formData string true "Course"
// @Param department formData string false "Department code"
// @Param isHosteler formData boolean false "Lives in a hostel"
// @Param hostelNo formData string false "Hostel code, used only for hostelers"
// @Param scholarNo formData string false "Scholar number"
// @Param branch formData string false "Branch"
// @Param degree formData string false "Degree"
// @Param mobileNo formData string false "Mobile number"
// @Param roomNo formData string false "Room number"
// @Param cgpa formData number false "CGPA (0-10)"
// @Param aadharPassport formData string false "Aadhar or passport number"
// @Param address formData string false "Address"
// @Param bankAccountNo formData string false "Bank account number"
// @Param ifscCode formData string false "IFSC code"
// @Param reason formData string false "Reason for clearance"
// @Param profilePicture formData file false "Profile picture"
// @Param documents formData file false "Supporting documents (up to 10)"
// @Success 201 {object} dto.APIResponse{data=dto.SubmitFormResponse} "Request submitted"
// @Failure 400 {object} dto.ErrorResponse "Missing or invalid fields"
// @Failure 403 {object} dto.ErrorResponse "Not allowed to submit for this student"
// @Failure 404 {object} dto.ErrorResponse "Department or hostel not found"
// @Failure 409 {object} dto.ErrorResponse "An active request already exists"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /noduesform [post]
func (c *ClearanceController) SubmitForm(ctx *gin.Context) {
	var req dto.SubmitFormRequest
	if err := ctx.ShouldBind(&req); err != nil {
		middleware.RespondBindError(ctx, err)
		return
	}

	actor, _ := appauth.ActorFromContext(ctx)
	if err := appauth.AuthorizeSubmission(actor, req.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	// Reject an incomplete form before any upload touches the disk
	if err := req.ToCommand("", nil).Validate(); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	picture, documents, err := c.attachments.Save(req.StudentID, req.ProfilePicture, req.Documents)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	request, err := c.clearanceService.Submit(ctx.Request.Context(), req.ToCommand(picture, documents))
	if err != nil {
		c.attachments.Discard(picture, documents)
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(dto.SubmitFormResponse{Request: request}, "No-dues form submitted successfully"))
}

// GetForm returns the student's latest request
// @Summary Latest no-dues request
// @Description Returns the newest request of the student with its tracks, queries and final decision
// @Tags clearance
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.Request} "Request retrieved"
// @Failure 403 {object} dto.ErrorResponse "Not allowed to read this student"
// @Failure 404 {object} dto.ErrorResponse "No request found"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /noduesform/{studentId} [get]
func (c *ClearanceController) GetForm(ctx *gin.Context) {
	request, err := c.clearanceService.GetLatest(ctx.Request.Context(), ctx.Param("studentId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(request, ""))
}

// GetApprovalStatus returns the per-unit status view
// @Summary Per-unit approval status
// @Description Status of each unit for the latest request that is not Completed. A pending unit with an open query shows as QueryRaised.
// @Tags clearance
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]models.UnitStatus} "Approval status retrieved"
// @Failure 404 {object} dto.ErrorResponse "No open request found"
// @Router /approvalstatus/{studentId} [get]
func (c *ClearanceController) GetApprovalStatus(ctx *gin.Context) {
	statuses, err := c.clearanceService.ApprovalStatus(ctx.Request.Context(), ctx.Param("studentId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(statuses, ""))
}

// GetQueries lists the student's pending queries
// @Summary Pending queries
// @Description Unresolved queries raised against the student, newest first
// @Tags clearance
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Query} "Queries retrieved"
// @Router /queries/{studentId} [get]
func (c *ClearanceController) GetQueries(ctx *gin.Context) {
	queries, err := c.clearanceService.PendingQueries(ctx.Request.Context(), ctx.Param("studentId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(queries, ""))
}

// ResolveQuery records the student's reply to a query
// @Summary Resolve a query
// @Description Replies to a Pending query raised by the given unit. The query must belong to the student and the unit.
// @Tags clearance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param approvingUnitId path string true "Unit type that raised the query" Enums(Department, Hostel, Library, Accounts, Sports, Proctor)
// @Param request body dto.ResolveQueryRequest true "Reply"
// @Success 200 {object} dto.APIResponse{data=models.Query} "Query resolved"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Query not found for this student and unit"
// @Failure 409 {object} dto.ErrorResponse "Query already resolved"
// @Router /resolveQuery/{studentId}/{approvingUnitId} [put]
func (c *ClearanceController) ResolveQuery(ctx *gin.Context) {
	unit, ok := models.ParseUnitType(ctx.Param("approvingUnitId"))
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Unknown unit type").WithField("approvingUnitId")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	var req dto.ResolveQueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(ctx, err)
		return
	}

	query, err := c.clearanceService.ResolveQuery(ctx.Request.Context(), ctx.Param("studentId"), unit, req.QueryID, req.Response)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(query, "Query resolved successfully"))
}

// GetTracker returns the progress of the latest request
// @Summary Progress tracker
// @Tags clearance
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.ProgressSummary} "Progress retrieved"
// @Failure 404 {object} dto.ErrorResponse "No request found"
// @Router /tracker/{studentId} [get]
func (c *ClearanceController) GetTracker(ctx *gin.Context) {
	progress, err := c.clearanceService.Progress(ctx.Request.Context(), ctx.Param("studentId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(progress, ""))
}

// GetFinalStatus returns the overall status of the latest request
// @Summary Final status
// @Tags clearance
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.FinalStatusView} "Final status retrieved"
// @Failure 404 {object} dto.ErrorResponse "No request found"
// @Router /finalStatus/{studentId} [get]
func (c *ClearanceController) GetFinalStatus(ctx *gin.Context) {
	view, err := c.clearanceService.FinalStatus(ctx.Request.Context(), ctx.Param("studentId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(view, ""))
}

// GetHistory lists all requests of the student
// @Summary Request history
// @Description Every request of the student, newest first, with per-unit status and the final decision
// @Tags clearance
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]models.RequestSummary} "History retrieved"
// @Router /history/{studentId} [get]
func (c *ClearanceController) GetHistory(ctx *gin.Context) {
	history, err := c.clearanceService.History(ctx.Request.Context(), ctx.Param("studentId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(history, ""))
}

// GetAttachment serves one uploaded file of the student
// @Summary Download an attachment
// @Description Serves a profile picture or supporting document. Only the student and staff may read it.
// @Tags clearance
// @Produce octet-stream
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param filepath path string true "Path below the student's upload folder"
// @Success 200 {file} file "File content"
// @Failure 404 {object} dto.ErrorResponse "Attachment not found"
// @Router /uploads/students/{studentId}/{filepath} [get]
func (c *ClearanceController) GetAttachment(ctx *gin.Context) {
	full, err := c.attachments.Locate(ctx.Param("studentId"), ctx.Param("filepath"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.File(full)
}

// parseRequestID reads the requestId path parameter, writing a 400 when it is malformed
func parseRequestID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("requestId"), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request ID")
		errorDetail = errorDetail.WithField("requestId").WithDetails("Request ID must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}
