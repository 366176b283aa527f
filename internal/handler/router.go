package handler

import (
	"github.com/SergeiKhy/shortener/internal/middleware"
	"github.com/SergeiKhy/shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the HTTP API. rateLimiter and apiKeyMiddleware are optional;
// when set, the limiter covers every route and the key check covers link creation.
// Static segments registered here must be listed in service.IsReservedCode.
func NewRouter(
	linkService service.LinkService,
	rateLimiter *middleware.RateLimiter,
	apiKeyMiddleware gin.HandlerFunc,
	baseURL string,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware())
	}

	linkHandler := NewLinkHandler(linkService, baseURL, logger)

	router.GET("/health", linkHandler.HealthCheck)

	urls := router.Group("/urls")
	{
		urls.GET("", linkHandler.ListLinks)
		urls.GET("/:code", linkHandler.GetLink)
		urls.POST("/:code/visit", linkHandler.Visit)

		// Creation is the only write that needs an API key.
		create := urls.Group("")
		if apiKeyMiddleware != nil {
			create.Use(apiKeyMiddleware)
		}
		create.POST("", linkHandler.CreateLink)
		create.POST("/batch", linkHandler.CreateLinks)
	}

	router.GET("/:code", linkHandler.Redirect)

	return router
}
