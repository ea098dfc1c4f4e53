package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "orderaudit/docs"
	"orderaudit/internal/handler"
	"orderaudit/internal/middleware"
	"orderaudit/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	log zerolog.Logger,
	allowedOrigins []string,
	authSvc service.AuthService,
	authH *handler.AuthHandler,
	auditH *handler.AuditHandler,
	healthH *handler.HealthHandler,
	metricsH http.Handler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	if metricsH != nil {
		r.GET("/metrics", gin.WrapH(metricsH))
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/token", authH.Token)

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))

	audits := protected.Group("/audits")
	audits.POST("", auditH.Run)
	audits.POST("/upload", auditH.Upload)
	audits.POST("/batch", auditH.Batch)
	audits.GET("", auditH.List)
	audits.GET("/:id", auditH.GetByID)
	audits.GET("/:id/export", auditH.ExportCSV)
	audits.GET("/:id/archive", auditH.Archive)

	protected.GET("/exports/:folder_id", auditH.ListExports)

	return r
}
