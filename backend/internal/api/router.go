// Package api exposes rows, the relationship graph and change notifications over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tablegraph/backend/internal/datasets"
	"tablegraph/backend/internal/events"
	"tablegraph/backend/internal/metrics"
)

// Options configures the router
type Options struct {
	CORSOrigin string
	Production bool
}

// NewRouter builds the gin engine with every route registered
func NewRouter(svc *datasets.Service, broker *events.Broker, log *zap.Logger, opts Options) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors(opts.CORSOrigin))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if broker != nil {
		router.GET("/ws", events.Handler(broker, opts.CORSOrigin))
	}

	h := &handlers{svc: svc, log: log}

	api := router.Group("/api")
	{
		rows := api.Group("/datasets")
		rows.GET("", h.listRows)
		rows.POST("", h.createRow)
		rows.GET("/:id", h.getRow)
		rows.PUT("/:id", h.updateRow)
		rows.DELETE("/:id", h.deleteRow)
		rows.PUT("/:id/tags", h.overrideTags)
		rows.POST("/:id/regenerate", h.regenerate)

		api.GET("/relationships/graph", h.graph)
		api.GET("/relationships/graph/neighbors", h.neighbors)
	}

	return router
}
