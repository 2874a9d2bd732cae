package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jorellortega/covionpartners-sub001/config"
	"github.com/jorellortega/covionpartners-sub001/middleware"
	"github.com/jorellortega/covionpartners-sub001/service"
)

// Services are the dependencies the HTTP surface is built on.
type Services struct {
	Identity  *service.ConfigIdentityProvider
	Contracts *service.ContractService
	Forms     *service.FormService
	Editing   *service.EditingService
}

// NewRouter wires middleware and routes.
func NewRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	if cfg.Tracing.Enabled {
		router.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	}
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.NoCache())

	authHandler := NewAuthHandler(cfg, svc.Identity, svc.Contracts)
	contractHandler := NewContractHandler(svc.Contracts, svc.Forms, svc.Editing.Pager(), cfg.Server.MaxUploadMB)
	sessionHandler := NewSessionHandler(svc.Contracts, svc.Editing)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/access/redeem", middleware.RateLimit(cfg.Server.RedeemRatePerMinute, time.Minute), authHandler.Redeem)
	}

	// Routes open to user and view tokens
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.GET("/contracts/:id", contractHandler.Get)
		protected.GET("/contracts/:id/pages", contractHandler.Pages)
		protected.GET("/contracts/:id/pages/:page", contractHandler.Page)
		protected.GET("/contracts/:id/file", contractHandler.FileLink)
		protected.GET("/contracts/:id/render", contractHandler.Render)
		protected.PUT("/contracts/:id/values", contractHandler.SaveValues)
		protected.GET("/contracts/:id/pdf-fields", contractHandler.PDFFields)
		protected.POST("/contracts/:id/fill", contractHandler.Fill)
	}

	// Routes that need a user session
	users := protected.Group("/")
	users.Use(middleware.RequireUser())
	{
		users.POST("/contracts", contractHandler.Create)
		users.GET("/contracts", contractHandler.List)
		users.PATCH("/contracts/:id", contractHandler.Update)
		users.DELETE("/contracts/:id", contractHandler.Delete)
		users.POST("/contracts/:id/file", contractHandler.UploadFile)
		users.POST("/contracts/:id/access-codes", contractHandler.IssueCode)
		users.GET("/contracts/:id/access-codes", contractHandler.ListCodes)
		users.DELETE("/contracts/:id/access-codes/:code", contractHandler.RevokeCode)

		users.POST("/contracts/:id/sessions", sessionHandler.Open)
		users.GET("/sessions/:sid", sessionHandler.Get)
		users.GET("/sessions/:sid/pages/:page", sessionHandler.GetPage)
		users.PUT("/sessions/:sid/pages/:page", sessionHandler.EditPage)
		users.POST("/sessions/:sid/pages", sessionHandler.AddPage)
		users.POST("/sessions/:sid/convert", sessionHandler.Convert)
		users.POST("/sessions/:sid/highlight", sessionHandler.Highlight)
		users.POST("/sessions/:sid/highlight/commit", sessionHandler.CommitHighlight)
		users.POST("/sessions/:sid/highlight/cancel", sessionHandler.CancelHighlight)
		users.PUT("/sessions/:sid/fields/:fid", sessionHandler.UpdateField)
		users.DELETE("/sessions/:sid/fields/:fid", sessionHandler.RemoveField)
		users.POST("/sessions/:sid/save", sessionHandler.Save)
		users.DELETE("/sessions/:sid", sessionHandler.Close)
	}

	return router
}
