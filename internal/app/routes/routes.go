package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/nodues/internal/app/controllers"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/models/dto"
	"github.com/yigit/nodues/internal/middleware"
	"github.com/yigit/nodues/internal/pkg/websocket"
)

// Controllers groups every HTTP handler the router mounts
type Controllers struct {
	Auth      *controllers.AuthController
	Reference *controllers.ReferenceController
	Clearance *controllers.ClearanceController
	Unit      *controllers.UnitController
	Admin     *controllers.AdminController
	WebSocket *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, ctrl Controllers, authMiddleware *middleware.AuthMiddleware) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", ctrl.Auth.Register)
		auth.POST("/login", ctrl.Auth.Login)
		auth.POST("/staff/login", ctrl.Auth.StaffLogin)
	}

	// --- Public reference data used by the submission form ---
	reference := v1.Group("/reference")
	{
		reference.GET("", ctrl.Reference.GetAll)
		reference.GET("/departments", ctrl.Reference.GetDepartments)
		reference.GET("/hostels", ctrl.Reference.GetHostels)
		reference.GET("/units", ctrl.Reference.GetUnits)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		// Students submit for themselves; admins may submit on a student's behalf
		authenticated.POST("/noduesform",
			authMiddleware.RoleRequired(models.RoleStudent, models.RoleAdmin),
			ctrl.Clearance.SubmitForm)

		// Student-scoped reads: the student themself or any staff member
		student := authenticated.Group("")
		student.Use(authMiddleware.SelfOrStaff("studentId"))
		{
			student.GET("/noduesform/:studentId", ctrl.Clearance.GetForm)
			student.GET("/approvalstatus/:studentId", ctrl.Clearance.GetApprovalStatus)
			student.GET("/queries/:studentId", ctrl.Clearance.GetQueries)
			student.GET("/tracker/:studentId", ctrl.Clearance.GetTracker)
			student.GET("/finalStatus/:studentId", ctrl.Clearance.GetFinalStatus)
			student.GET("/history/:studentId", ctrl.Clearance.GetHistory)
			student.GET("/uploads/students/:studentId/*filepath", ctrl.Clearance.GetAttachment)
		}

		// Students answer their own queries; admins may answer on their behalf
		authenticated.PUT("/resolveQuery/:studentId/:approvingUnitId",
			authMiddleware.RoleRequired(models.RoleStudent, models.RoleAdmin),
			authMiddleware.SelfOrStaff("studentId"),
			ctrl.Clearance.ResolveQuery)

		// Unit officer routes, restricted to the officer's own unit (admins may act for any)
		units := authenticated.Group("/units/:unit")
		units.Use(authMiddleware.RoleRequired(models.RoleUnit, models.RoleAdmin), authMiddleware.UnitRequired("unit"))
		{
			units.GET("/requests", ctrl.Unit.GetQueue)
			units.GET("/queries", ctrl.Unit.GetQueries)
			units.POST("/requests/:requestId/approve", ctrl.Unit.Approve)
			units.POST("/requests/:requestId/reject", ctrl.Unit.Reject)
			units.POST("/requests/:requestId/queries", ctrl.Unit.RaiseQuery)
		}

		admin := authenticated.Group("/admin")
		admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
		{
			admin.GET("/requests", ctrl.Admin.ListRequests)
			admin.GET("/requests/:requestId", ctrl.Admin.GetRequest)
			admin.POST("/requests/:requestId/approve-all", ctrl.Admin.ApproveAll)
			admin.POST("/requests/:requestId/reject-all", ctrl.Admin.RejectAll)
		}

		// Live workflow events for one student
		authenticated.GET("/ws/students/:studentId", ctrl.WebSocket.HandleConnection)
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewAPIResponse(gin.H{"status": "ok"}, ""))
	})
}
