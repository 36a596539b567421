package handler

import (
	"p2p-transfer-service/internal/adapter/http/middleware"
	"p2p-transfer-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TransferSvc    ports.TransferService
	UserSvc        ports.UserService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	v1 := r.Group("/v1")

	userHandler := NewUserHandler(deps.UserSvc)
	users := v1.Group("/users")
	{
		users.POST("", userHandler.Register)
		users.GET("", userHandler.List)
		users.GET("/:email", userHandler.GetByEmail)
	}

	transferHandler := NewTransferHandler(deps.TransferSvc)
	v1.POST("/transfer", transferHandler.Transfer)

	return r
}
