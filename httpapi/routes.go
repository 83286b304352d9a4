package httpapi

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts every route named in the external interface onto
// e, grouped public/protected the way api/jwt.go's SetupRoutes splits
// them, with RequireAuth gating everything except auth's own entry
// points, the health probes, and the public file-download route.
func RegisterRoutes(e *echo.Echo, d *Deps) {
	auth := e.Group("/api/auth")
	auth.POST("/register", d.Register)
	auth.POST("/login", d.Login)
	auth.POST("/forgot-password", d.ForgotPassword)
	auth.POST("/reset-password", d.ResetPassword)

	authProtected := e.Group("/api/auth", RequireAuth(d.Auth))
	authProtected.POST("/logout", d.Logout)
	authProtected.GET("/profile", d.Profile)
	authProtected.POST("/verify-token", d.VerifyToken)
	authProtected.POST("/change-password", d.ChangePassword)

	e.GET("/api/health", d.Health)
	e.GET("/api/ping", d.Ping)
	e.GET("/api/status", d.Status)

	// Public, unauthenticated per the resolved open question in the
	// design notes: registered before the protected group below so no
	// auth middleware applies to this exact path.
	e.GET("/api/tasks/:task_id/files/:file_id/download", d.DownloadFile)

	tasks := e.Group("/api/tasks", RequireAuth(d.Auth))
	tasks.POST("/upload", d.UploadFile)
	tasks.POST("/upload-multiple", d.UploadMultiple)
	tasks.POST("/standard-processing", d.StandardProcessing)
	tasks.GET("", d.ListTasks)
	tasks.GET("/types", d.TaskTypes)
	tasks.GET("/dashboard", d.Dashboard)
	tasks.GET("/:task_id", d.GetTask)
	tasks.DELETE("/:task_id", d.DeleteTask)
	tasks.GET("/:task_id/files/:file_id/preview", d.PreviewFile)
	tasks.GET("/:task_id/results/paginated", d.ResultsPaginated)
	tasks.GET("/:task_id/results/export-excel", d.ExportExcel)
	tasks.GET("/:task_id/results/:result_id/export", d.ExportPDF)
	tasks.GET("/:task_id/results/:result_id/export-markdown", d.ExportMarkdown)

	dify := e.Group("/api/dify/v2", RequireAuth(d.Auth))
	dify.POST("/:scenario/chat-simple", d.ChatSimple)
	dify.GET("/:scenario/conversations", d.Conversations)
	dify.GET("/:scenario/messages", d.Messages)
	dify.POST("/:scenario/conversations/:id/name", d.RenameConversation)
	dify.DELETE("/:scenario/conversations/:id", d.DeleteConversation)
	dify.GET("/:scenario/config", d.ScenarioConfig)
	dify.GET("/scenarios", d.Scenarios)

	// Legacy back-compat aliases: same handlers, no :scenario segment so
	// c.Param("scenario") is empty and resolveScenario defaults to
	// multilingual_qa with a deprecation log.
	dify.POST("/chat-simple", d.ChatSimple)
	dify.GET("/conversations", d.Conversations)
	dify.GET("/messages", d.Messages)

	neo4j := e.Group("/api/neo4j", RequireAuth(d.Auth))
	neo4j.GET("/related-data", d.RelatedData)
	neo4j.GET("/health", d.GraphHealth)
}
