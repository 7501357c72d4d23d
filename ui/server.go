package ui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"datalens/app"
	"datalens/internal"
	"datalens/internal/charts"
	"datalens/internal/config"
	"datalens/internal/session"
	"datalens/internal/tabs"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Server is the web front end: it accepts uploads, serves tab fragments over
// HTMX and exposes chart specs as JSON for the client-side chart runtime.
type Server struct {
	router    *gin.Engine
	service   *app.AnalysisService
	tabs      *tabs.Controller
	registry  *charts.Registry
	store     *session.Store
	cfg       *config.Config
	templates *template.Template
	log       *internal.Logger
}

// NewServer wires the server and its routes
func NewServer(
	service *app.AnalysisService,
	controller *tabs.Controller,
	registry *charts.Registry,
	store *session.Store,
	cfg *config.Config,
) (*Server, error) {
	gin.SetMode(cfg.Server.GinMode)

	templates, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		service:   service,
		tabs:      controller,
		registry:  registry,
		store:     store,
		cfg:       cfg,
		templates: templates,
		log:       internal.DefaultLogger.WithTag("ui"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.MaxMultipartMemory = s.cfg.Upload.MaxSizeBytes
}

// requestIDMiddleware tags every request so log lines can be tied together
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.POST("/upload", s.handleUpload)

	// HTMX tab endpoints
	s.router.GET("/tabs/:name", s.handleTab)
	s.router.POST("/tabs/:name/refresh", s.handleTabRefresh)
	s.router.POST("/filter", s.handleFilter)
	s.router.POST("/histogram/column", s.handleHistogramColumn)

	// JSON API consumed by the chart runtime and the notification tray
	s.router.GET("/api/session", s.handleSession)
	s.router.GET("/api/charts/:slot", s.handleChartSpec)
	s.router.GET("/api/notifications", s.handleNotifications)
	s.router.DELETE("/api/notifications/:id", s.handleDismissNotification)
}

// Router exposes the underlying handler, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	s.log.Info("listening on http://%s", addr)
	return s.router.Run(addr)
}
