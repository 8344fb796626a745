package api

import (
	"quizgo/internal/api/handlers"
	"quizgo/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes. Session middleware must already be
// installed on router.
func SetupRoutes(router *gin.Engine, handler *handlers.Handler) {
	handlers.UseJSONFieldNames()

	router.GET("/healthz", handler.HandleLiveness)

	// --- Public Auth Routes ---
	router.GET("/auth/google/login", handler.HandleGoogleLogin)
	router.GET("/auth/google/callback", handler.HandleGoogleCallback)

	// --- Protected non-API routes ---
	protected := router.Group("/")
	protected.Use(AuthRequired())
	{
		protected.POST("/upload", handler.HandleUpload)
		protected.GET("/download/:filename", handler.HandleDownload)
	}

	// --- API Routes ---
	api := router.Group("/api")
	{
		api.POST("/signup", handler.HandleSignup)
		api.POST("/login", handler.HandleLogin)
		api.POST("/logout", handler.HandleLogout)
		api.GET("/health", handler.HandleHealth)
		api.GET("/stats", handler.HandleStats)

		authorized := api.Group("/")
		authorized.Use(AuthRequired())
		{
			authorized.GET("/me", handler.HandleMe)
			authorized.GET("/profile", handler.HandleGetProfile)
			authorized.PUT("/profile", handler.HandleUpdateProfile)
			authorized.POST("/change-password", handler.HandleChangePassword)

			authorized.GET("/my-quizzes", handler.HandleListMyQuizzes)
			authorized.GET("/my-quizzes/:id", handler.HandleGetMyQuiz)
			authorized.DELETE("/my-quizzes/:id", handler.HandleDeleteMyQuiz)

			students := authorized.Group("/take-quiz")
			students.Use(RequireRole(models.RoleStudent))
			{
				students.GET("/:id", handler.HandleTakeQuiz)
				students.POST("/:id/check", handler.HandleCheckAnswers)
			}
		}
	}
}
