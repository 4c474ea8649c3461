package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/pdfonsubmit/internal/infrastructure/auth"
	"github.com/erp/pdfonsubmit/internal/infrastructure/logger"
	"github.com/erp/pdfonsubmit/internal/interfaces/http/handler"
	"github.com/erp/pdfonsubmit/internal/interfaces/http/middleware"
)

// Handlers are the endpoint handlers mounted by NewEngine
type Handlers struct {
	Hooks    *handler.HookHandler
	Settings *handler.SettingsHandler
	Jobs     *handler.JobHandler
	Files    *handler.FileHandler
	Folders  *handler.FolderHandler
	System   *handler.SystemHandler
}

// Options configure NewEngine
type Options struct {
	ServiceName    string
	Logger         *zap.Logger
	CORS           middleware.CORSConfig
	TrustedProxies []string
	MaxBodySize    int64

	// JWT enables bearer authentication on /api when set
	JWT *auth.JWTService

	// RateLimit is per-subject requests per second on /api; 0 disables it
	RateLimit float64
	RateBurst int

	Tracing   bool
	Profiling bool

	// Metrics records request metrics; MetricsHandler serves /metrics
	Metrics        middleware.RequestObserver
	MetricsHandler http.Handler
}

// probePaths are not logged, traced or counted
var probePaths = []string{"/health", "/metrics"}

// NewEngine builds the gin engine with middleware and all routes
func NewEngine(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	engine := gin.New()
	_ = engine.SetTrustedProxies(opts.TrustedProxies)
	middleware.SetupValidator()

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(opts.Logger),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: opts.ServiceName,
			Enabled:     opts.Tracing,
			SkipPaths:   probePaths,
		}),
		middleware.Metrics(opts.Metrics, probePaths...),
		logger.GinMiddleware(opts.Logger, probePaths...),
		middleware.Secure(),
		middleware.CORS(opts.CORS),
		middleware.BodyLimit(opts.MaxBodySize),
	)

	engine.GET("/health", h.System.Health)
	if opts.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	apiMiddleware := []gin.HandlerFunc{middleware.SpanEnricher()}
	if opts.JWT != nil {
		jwtCfg := middleware.DefaultJWTConfig(opts.JWT)
		jwtCfg.Logger = opts.Logger
		apiMiddleware = append(apiMiddleware, middleware.JWTAuthMiddleware(jwtCfg))
	}
	if opts.RateLimit > 0 {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(
			middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst, 10*time.Minute)))
	}
	apiMiddleware = append(apiMiddleware, middleware.Profiling(opts.Profiling))

	r := NewRouter(engine, WithAPIMiddleware(apiMiddleware...))

	system := NewDomainGroup("system", "/system")
	system.GET("/ping", h.System.Ping)
	system.GET("/info", h.System.GetSystemInfo)
	r.Register(system)

	hooks := NewDomainGroup("hooks", "/hooks").Use(middleware.RequireScope(auth.ScopeHooks))
	hooks.POST("/events", h.Hooks.Event)
	hooks.POST("/:doctype/submit", h.Hooks.Submit)
	r.Register(hooks)

	settings := NewDomainGroup("settings", "/settings")
	settings.GET("", middleware.RequireScope(auth.ScopeRead), h.Settings.Get)
	settings.PUT("", middleware.RequireScope(auth.ScopeSettings), h.Settings.Update)
	r.Register(settings)

	read := middleware.RequireScope(auth.ScopeRead)

	jobs := NewDomainGroup("jobs", "/jobs").Use(read)
	jobs.GET("", h.Jobs.List)
	jobs.GET("/:id", h.Jobs.Get)
	r.Register(jobs)

	files := NewDomainGroup("files", "/files").Use(read)
	files.GET("", h.Files.List)
	files.GET("/:id", h.Files.Get)
	files.GET("/:id/content", h.Files.Content)
	r.Register(files)

	doctypes := NewDomainGroup("doctypes", "/doctypes").Use(read)
	doctypes.GET("", h.Files.DocTypes)
	r.Register(doctypes)

	folders := NewDomainGroup("folders", "/folders").Use(read)
	folders.GET("", h.Folders.List)
	r.Register(folders)

	r.Setup()

	engine.NoRoute(func(c *gin.Context) {
		(&handler.BaseHandler{}).NotFound(c, "Route not found")
	})
	return engine
}
