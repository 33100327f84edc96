package app

import (
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	// 测评
	rg.GET("/assessments/:id/questions", c.assessment.GetQuestions)
	rg.POST("/assessments/:id/submit", c.assessment.Submit)
	rg.GET("/assessments/:id/attempts", c.assessment.GetAttempts)
	rg.GET("/assessments/:id/submissions", c.assessment.ListMySubmissions)
	rg.GET("/submissions/:id", c.assessment.GetSubmission)

	// 学习进度
	rg.POST("/lessons/:id/complete", c.progress.CompleteLesson)
	rg.POST("/lessons/:id/time", c.progress.RecordTime)
	rg.POST("/courses/:id/enroll", c.progress.Enroll)
	rg.GET("/courses/:id/enrollment", c.progress.GetEnrollment)

	// 诊断
	rg.POST("/diagnostics/:id/submit", c.diagnostic.Submit)
	rg.GET("/diagnostics/:id/result", c.diagnostic.GetResult)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.teacher.CreateCourse)
		teacher.GET("/courses/:id", c.teacher.GetCourse)
		teacher.POST("/courses/:id/modules", c.teacher.CreateModule)
		teacher.POST("/modules/:id/lessons", c.teacher.CreateLesson)
		teacher.DELETE("/modules/:id", c.teacher.DeleteModule)
		teacher.DELETE("/lessons/:id", c.teacher.DeleteLesson)

		teacher.POST("/assessments", c.teacher.CreateAssessment)
		teacher.GET("/assessments", c.teacher.ListAssessments)
		teacher.GET("/assessments/:id", c.teacher.GetAssessment)
		teacher.POST("/assessments/:id/publish", c.teacher.PublishAssessment)
		teacher.POST("/assessments/:id/questions", c.teacher.AddQuestion)
		teacher.PUT("/questions/:id", c.teacher.UpdateQuestion)
		teacher.DELETE("/questions/:id", c.teacher.DeleteQuestion)

		teacher.GET("/submissions/:id", c.teacher.GetSubmission)
		teacher.POST("/submissions/:id/review", c.teacher.ReviewSubmission)
	}
}
