package app

import (
	"context"
	"time"

	"TodoManager/internal/config"
	"TodoManager/internal/logging"
	"TodoManager/internal/repo"
	"TodoManager/internal/service"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type App struct {
	cfg    config.Config
	log    *log.Logger
	store  *repo.FileTaskStore
	tasks  *service.TaskService
	router *gin.Engine
}

func New(cfg config.Config, logger *log.Logger) (*App, error) {
	a := &App{cfg: cfg, log: logger}

	a.store = repo.NewFileTaskStore(cfg.Store.Path, logger)
	a.tasks = service.NewTaskService(a.store)

	// Surface corruption at startup instead of on the first request.
	tasks, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("task store ready", "path", a.store.Path(), "tasks", len(tasks))

	a.router = newRouter(cfg, logger, a.tasks, a.store)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close has nothing to release: every operation finishes its file I/O
// before returning.
func (a *App) Close(context.Context) error {
	a.log.Info("app closed", "stats", a.store.Stats())
	return nil
}

func newRouter(cfg config.Config, logger *log.Logger, tasks *service.TaskService, store *repo.FileTaskStore) *gin.Engine {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(logger))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.HTTP.AllowOrigins) == 0 || contains(cfg.HTTP.AllowOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.HTTP.AllowOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	Setup(r, cfg, tasks, store)
	return r
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
