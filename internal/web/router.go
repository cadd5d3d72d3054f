// Package web serves the dashboard page and its JSON API.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meal-dashboard/internal/app"
	"meal-dashboard/internal/chat"
	"meal-dashboard/internal/config"
	"meal-dashboard/internal/metrics"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Dashboard is the application state the handlers drive.
type Dashboard interface {
	Week() app.View
	ChangeWeek(ctx context.Context, direction int) app.View
	Transcript() []chat.Message
	SendMessage(ctx context.Context, text string) error
	SaveSettings(ctx context.Context, creds config.Credentials) error
	ReloadRecipes(ctx context.Context) error
	Status() app.Status
}

// UsageReporter reads the recorded adapter calls.
type UsageReporter interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Router wires the HTTP routes to the dashboard.
type Router struct {
	engine    *gin.Engine
	dashboard Dashboard
	usage     UsageReporter
	health    func() metrics.SysHealth
	log       *zap.Logger
}

// NewRouter builds the gin engine. usage may be nil when no metrics are kept.
func NewRouter(dashboard Dashboard, usage UsageReporter, health func() metrics.SysHealth, log *zap.Logger) (*Router, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))
	engine.SetHTMLTemplate(tmpl)

	r := &Router{
		engine:    engine,
		dashboard: dashboard,
		usage:     usage,
		health:    health,
		log:       log,
	}
	r.routes()
	return r, nil
}

func (r *Router) routes() {
	r.engine.GET("/health", r.getHealth)

	r.engine.GET("/", r.index)
	r.engine.POST("/week/prev", r.weekForm(-1))
	r.engine.POST("/week/next", r.weekForm(1))
	r.engine.POST("/chat", r.chatForm)
	r.engine.POST("/settings", r.settingsForm)

	api := r.engine.Group("/api")
	{
		api.GET("/week", r.getWeek)
		api.POST("/week/:direction", r.changeWeek)
		api.GET("/chat", r.getChat)
		api.POST("/chat", r.postChat)
		api.GET("/settings", r.getSettings)
		api.POST("/settings", r.postSettings)
		api.POST("/recipes/reload", r.reloadRecipes)
		api.GET("/metrics", r.getMetrics)
	}
}

// Handler returns the HTTP handler serving every route.
func (r *Router) Handler() http.Handler {
	return r.engine
}

func (r *Router) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, r.health())
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
