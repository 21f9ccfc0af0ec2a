package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/config"
	"github.com/ibnmalik/lms-admin/internal/handler"
	"github.com/ibnmalik/lms-admin/internal/middleware"
	"github.com/ibnmalik/lms-admin/internal/model"
	"github.com/ibnmalik/lms-admin/internal/response"
	"github.com/ibnmalik/lms-admin/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Course      *handler.CourseHandler
	CourseForm  *handler.CourseFormHandler
	ExamBuilder *handler.ExamBuilderHandler
	DraftWS     *handler.DraftWSHandler
	System      *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	submitLimiter gin.HandlerFunc,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	read := middleware.RequirePermission(model.PermissionCoursesRead)
	write := middleware.RequirePermission(model.PermissionCoursesWrite)

	// ─── 1. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService), middleware.NoStore())
	{
		adminAPI.GET("/system/status",
			middleware.RequireAnyPermission(model.PermissionCoursesRead, model.PermissionCoursesWrite),
			handlers.System.Status,
		)

		// Courses, straight from the course API
		adminAPI.GET("/courses", read, handlers.Course.ListCourses)
		adminAPI.GET("/courses/:course_id", read, handlers.Course.GetCourse)
		adminAPI.DELETE("/courses/:course_id",
			middleware.RequirePermission(model.PermissionCoursesDelete),
			handlers.Course.DeleteCourse,
		)
		adminAPI.PATCH("/courses/:course_id/status",
			middleware.RequirePermission(model.PermissionCoursesPublish),
			handlers.Course.SetCourseStatus,
		)
	}

	// ─── 2. Course Forms ───────────────────────────────────────────────
	forms := adminAPI.Group("/course-forms")
	forms.Use(write)
	{
		forms.POST("", handlers.CourseForm.OpenForm)
		forms.GET("/:form_id", handlers.CourseForm.GetForm)
		forms.DELETE("/:form_id", handlers.CourseForm.CloseForm)
		forms.POST("/:form_id/draft/restore", handlers.CourseForm.RestoreDraft)
		forms.POST("/:form_id/draft/discard", handlers.CourseForm.DiscardDraft)
		forms.POST("/:form_id/draft/save", handlers.CourseForm.SaveDraft)
		forms.PATCH("/:form_id/course", handlers.CourseForm.UpdateCourse)
		forms.PUT("/:form_id/videos", handlers.CourseForm.SetVideos)
		forms.PUT("/:form_id/image", handlers.CourseForm.SetImage)
		forms.POST("/:form_id/submit", submitLimiter, handlers.CourseForm.Submit)
	}

	// ─── 3. Exam Builder ───────────────────────────────────────────────
	exams := forms.Group("/:form_id/exams")
	{
		exams.POST("", handlers.ExamBuilder.StartExam)
		exams.POST("/:exam_id/edit", handlers.ExamBuilder.EditExam)
		exams.POST("/:exam_id/delete", handlers.ExamBuilder.RequestDelete)
		exams.POST("/delete/confirm", handlers.ExamBuilder.ConfirmDelete)
		exams.POST("/delete/cancel", handlers.ExamBuilder.CancelDelete)

		exams.GET("/editing", handlers.ExamBuilder.GetEditing)
		exams.PATCH("/editing", handlers.ExamBuilder.UpdateEditing)
		exams.POST("/editing/save", handlers.ExamBuilder.SaveEditing)
		exams.POST("/editing/cancel", handlers.ExamBuilder.CancelEditing)

		exams.POST("/editing/questions", handlers.ExamBuilder.AddQuestion)
		exams.PATCH("/editing/questions/:question_id", handlers.ExamBuilder.UpdateQuestion)
		exams.DELETE("/editing/questions/:question_id", handlers.ExamBuilder.RemoveQuestion)
		exams.POST("/editing/questions/:question_id/duplicate", handlers.ExamBuilder.DuplicateQuestion)
		exams.POST("/editing/questions/:question_id/options", handlers.ExamBuilder.AddOption)
		exams.PATCH("/editing/questions/:question_id/options/:index", handlers.ExamBuilder.UpdateOption)
		exams.DELETE("/editing/questions/:question_id/options/:index", handlers.ExamBuilder.RemoveOption)
	}

	// ─── 4. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1/admin")
	ws.Use(middleware.RequireAdminJWT(authService), write)
	{
		ws.GET("/course-forms/:form_id/draft", handlers.DraftWS.DraftStream)
	}

	return router
}
