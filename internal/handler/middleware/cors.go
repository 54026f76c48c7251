package middleware

import (
	"log/slog"
	"slices"

	"reservation-engine/internal/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// actorHeader carries the caller identity the request log attributes to
// user_id; browser clients must always be allowed to send it.
const actorHeader = "X-User-ID"

func NewCORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowHeaders := cfg.AllowHeaders
	if !slices.Contains(allowHeaders, actorHeader) {
		allowHeaders = append(slices.Clone(allowHeaders), actorHeader)
	}

	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	slog.Info("CORS middleware initialized", "AllowOrigins", cfg.AllowOrigins)
	return cors.New(corsCfg)
}
