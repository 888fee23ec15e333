package app

import (
	"net/http"

	"TodoManager/internal/config"
	"TodoManager/internal/handlers"
	"TodoManager/internal/repo"
	"TodoManager/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"

	_ "TodoManager/docs"
)

const docsPath = "/swagger/index.html"

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, tasks *service.TaskService, store *repo.FileTaskStore) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(store))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, docsPath) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	registerTaskRoutes(r, handlers.NewTaskHandler(tasks))
}

// rootHandler greets, or redirects to the API docs on "?docs" / "?redoc".
func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		if q.Has("docs") || q.Has("redoc") {
			c.Redirect(http.StatusFound, docsPath)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Todo Manager API",
			"version": cfg.App.Version,
			"docs":    docsPath,
			"health":  "/health",
		})
	}
}

func healthHandler(store *repo.FileTaskStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": store.Stats()})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version, "env": cfg.App.Env})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerTaskRoutes(r *gin.Engine, h *handlers.TaskHandler) {
	r.GET("/tasks", h.List)
	r.POST("/tasks", h.Create)
	r.GET("/tasks/:id", h.Get)
	r.PUT("/tasks/:id", h.Update)
	r.PATCH("/tasks/:id", h.Update)
	r.DELETE("/tasks/:id", h.Delete)
}
