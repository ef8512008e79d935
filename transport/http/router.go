package http

import (
	"github.com/gin-gonic/gin"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(handlers *AuthHandlers, sessions *service.SessionService) *gin.Engine {
	router := gin.Default()

	auth := router.Group("/auth")
	{
		auth.POST("/wallet/challenge", handlers.WalletChallenge)
		auth.POST("/wallet/verify", handlers.WalletVerify)
		auth.POST("/register", handlers.Register)
		auth.POST("/verify-email", handlers.VerifyEmail)
		auth.POST("/resend", handlers.ResendCode)
		auth.POST("/refresh", handlers.Refresh)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(sessions))
	{
		api.GET("/me", handlers.Me)

		admin := api.Group("/admin")
		admin.Use(RequireRole(sessions, core.RoleAdmin))
		{
			admin.GET("/overview", handlers.AdminOverview)
		}
	}

	return router
}
