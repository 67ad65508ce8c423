package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/webssh/sshgate/pkg/pool"
	"github.com/webssh/sshgate/pkg/poolmetrics"
	"github.com/webssh/sshgate/pkg/store"
)

// New assembles the gin.Engine serving targets CRUD, filesystem operations,
// SSH exec/terminal, connection introspection and /metrics, grounded on the
// teacher's NewServer/SetupRoutes (root router.go): same gin.New +
// gin.Recovery + localhost CORS middleware, one route group per concern.
func New(p *pool.Pool, targets *store.TargetStore, logger *slog.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	targetHandler := NewTargetHandler(targets, logger)
	fsHandler := NewFSHandler(p, logger)
	sshHandler := NewSSHHandler(p, logger)
	connHandler := NewConnectionHandler(p)

	api := engine.Group("/api")

	targetsGroup := api.Group("/targets")
	targetsGroup.POST("", targetHandler.Create)
	targetsGroup.GET("", targetHandler.List)
	targetsGroup.GET(":id", targetHandler.Get)
	targetsGroup.PUT(":id", targetHandler.Update)
	targetsGroup.DELETE(":id", targetHandler.Delete)

	fsGroup := api.Group("/fs")
	fsGroup.GET("/list", fsHandler.List)
	fsGroup.GET("/stat", fsHandler.Stat)
	fsGroup.GET("/download", fsHandler.Download)
	fsGroup.POST("/upload", fsHandler.Upload)
	fsGroup.POST("/mkdir", fsHandler.Mkdir)
	fsGroup.DELETE("/remove", fsHandler.Remove)
	fsGroup.DELETE("/rm_rf", fsHandler.RemoveAll)
	fsGroup.POST("/rename", fsHandler.Rename)
	fsGroup.POST("/cp", fsHandler.Copy)

	sshGroup := api.Group("/ssh")
	sshGroup.GET("/terminal/ws", sshHandler.Terminal)
	sshGroup.GET("/exec", sshHandler.Exec)
	sshGroup.POST("/cp", sshHandler.Copy)
	sshGroup.DELETE("/rm_rf", sshHandler.RemoveAll)

	connGroup := api.Group("/connections")
	connGroup.GET("", connHandler.List)
	connGroup.POST("/expire", connHandler.Expire)

	engine.GET("/metrics", poolmetrics.Register(p, "sshgate", prometheus.NewRegistry()))

	return engine
}

// corsMiddleware allows typical localhost dev origins, matching root
// router.go's CORS handling (the webview there; a browser SPA here).
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			allowed := strings.HasPrefix(origin, "http://localhost") ||
				strings.HasPrefix(origin, "http://127.0.0.1") ||
				strings.HasPrefix(origin, "https://localhost") ||
				strings.HasPrefix(origin, "https://127.0.0.1")
			if !allowed {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
