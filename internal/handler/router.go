package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"reservation-engine/internal/handler/api"
	"reservation-engine/internal/handler/middleware"
	"reservation-engine/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.Config, requestHandler *api.RequestHandler) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, requestHandler)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, requestHandler *api.RequestHandler) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		requests := apiGroup.Group("/requests")
		{
			addRoutes(requests, []route{
				{Method: http.MethodPost, Path: "", Handler: requestHandler.CreateRequest},
				{Method: http.MethodGet, Path: "", Handler: requestHandler.ListRequests},
				{Method: http.MethodGet, Path: "/:id", Handler: requestHandler.GetRequest},
				{Method: http.MethodDelete, Path: "/:id", Handler: requestHandler.DeleteRequest},
				{Method: http.MethodPost, Path: "/:id/approve", Handler: requestHandler.Approve},
				{Method: http.MethodPost, Path: "/:id/reject", Handler: requestHandler.Reject},
				{Method: http.MethodPost, Path: "/:id/return-for-amendment", Handler: requestHandler.ReturnForAmendment},
				{Method: http.MethodPost, Path: "/:id/resubmit", Handler: requestHandler.Resubmit},
				{Method: http.MethodPost, Path: "/:id/bind-resource", Handler: requestHandler.BindResource},
				{Method: http.MethodPost, Path: "/:id/allocate", Handler: requestHandler.Allocate},
				{Method: http.MethodPost, Path: "/:id/return", Handler: requestHandler.Return},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, r.Handler)
		case http.MethodPost:
			g.POST(r.Path, r.Handler)
		case http.MethodPut:
			g.PUT(r.Path, r.Handler)
		case http.MethodPatch:
			g.PATCH(r.Path, r.Handler)
		case http.MethodDelete:
			g.DELETE(r.Path, r.Handler)
		default:
			g.Any(r.Path, r.Handler)
		}
	}
}
