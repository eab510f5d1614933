package api

import (
	"html/template"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"ngx_scraper/internal/api/handler"
	"ngx_scraper/internal/api/middleware"
	"ngx_scraper/internal/dataset"
	"ngx_scraper/web"
)

// Options carries what the router needs besides the dataset store.
type Options struct {
	Users      map[string]string
	Tokens     *middleware.Tokens
	CSVPath    string
	LoginRPS   float64
	LoginBurst int
	StartTime  time.Time
	Logger     *slog.Logger
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:    Recovery → Logger
//	/login:    RateLimit
//	Protected: Auth
//
// The dashboard and health endpoints are outside auth.
func NewRouter(store *dataset.Store, opts Options) *gin.Engine {
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(opts.Logger))
	r.SetHTMLTemplate(template.Must(template.ParseFS(web.Templates, "templates/*.html")))

	r.GET("/", handler.Dashboard(store))
	r.POST("/login", middleware.RateLimit(opts.LoginRPS, opts.LoginBurst), handler.Login(opts.Users, opts.Tokens))

	apiGroup := r.Group("/api")
	apiGroup.GET("/health", handler.Health(store, opts.StartTime))

	protected := apiGroup.Group("")
	protected.Use(middleware.Auth(opts.Tokens))
	protected.GET("/data", handler.Data(store))
	protected.GET("/csv", handler.CSV(opts.CSVPath))
	protected.GET("/xlsx", handler.XLSX(store))

	return r
}
