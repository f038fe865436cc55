package router

import (
	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/session", h.Auth.Session)
	}

	users := v1.Group("/users", middleware.RequireAdmin())
	{
		users.GET("", h.User.ListUsers)
		users.POST("", h.User.CreateUser)
		users.DELETE("/:email", h.User.DeleteUser)
	}

	v1.GET("/catalog", h.Catalog.GetCatalog)

	runs := v1.Group("/runs")
	{
		runs.POST("", h.Run.CreateRun)
		runs.GET("/:id", h.Run.GetRun)
		runs.GET("/:id/log", h.Run.GetLog)
		runs.POST("/:id/topic", h.Run.SubmitTopic)
		runs.POST("/:id/regenerate", h.Run.Regenerate)
		runs.POST("/:id/approve", h.Run.Approve)
		runs.POST("/:id/restart", h.Run.Restart)
		runs.PUT("/:id/style", h.Run.UpdateStyle)
		runs.POST("/:id/edit", h.Run.EditText)
		runs.GET("/:id/export/:format", h.Run.Export)

		// 章节编辑
		runs.POST("/:id/chapters", h.Run.AddChapter)
		runs.PUT("/:id/chapters/:index", h.Run.RenameChapter)
		runs.DELETE("/:id/chapters/:index", h.Run.RemoveChapter)
		runs.POST("/:id/chapters/:index/move", h.Run.MoveChapter)
		runs.PUT("/:id/chapters/:index/content", h.Run.UpdateChapterContent)
	}

	books := v1.Group("/books")
	{
		books.GET("", h.Book.ListBooks)
		books.GET("/:id", h.Book.GetBook)
		books.GET("/:id/export/:format", h.Book.ExportBook)
	}

	jobs := v1.Group("/jobs")
	{
		jobs.POST("", h.Job.CreateJob)
		jobs.GET("/:id", h.Job.GetJob)
	}
}
