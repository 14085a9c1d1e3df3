package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zachkp/solar-portfolio/internal/logging"
	"github.com/Zachkp/solar-portfolio/internal/observability"
	"github.com/Zachkp/solar-portfolio/internal/solar"
	"github.com/Zachkp/solar-portfolio/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

type app struct {
	cfg      Config
	log      logging.Logger
	store    *store.Store
	metrics  *observability.Collector
	calc     solar.Calculator
	regions  solar.RegionSet
	phases   []solar.Phase
	sessions *solar.Sessions
	tmpl     *template.Template

	adminHash []byte
	ipSalt    string
	sendMail  func(name, email, message string) error
	now       func() time.Time
}

// appDeps are the collaborators main builds; tests swap them for fakes.
type appDeps struct {
	log     logging.Logger
	store   *store.Store
	metrics *observability.Collector
	calc    solar.Calculator
}

func newApp(ctx context.Context, cfg Config, deps appDeps) (*app, error) {
	if deps.log == nil {
		deps.log = logging.Noop()
	}
	if deps.calc == nil {
		deps.calc = solar.NewHTTPCalculator(cfg.SolarAPIURL, cfg.SolarTimeout)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = generateToken()
	}

	a := &app{
		cfg:       cfg,
		log:       deps.log,
		store:     deps.store,
		metrics:   deps.metrics,
		calc:      deps.calc,
		regions:   solar.IndianRegions(),
		phases:    solar.DefaultPhases(cfg.PhaseDuration),
		tmpl:      tmpl,
		adminHash: hash,
		ipSalt:    generateToken(),
		now:       time.Now,
	}
	a.sendMail = func(name, email, message string) error {
		return sendContactEmail(cfg.SMTP, name, email, message)
	}
	a.sessions = solar.NewSessions(ctx, a.newFlow, cfg.SessionTTL,
		solar.OnComplete(a.recordCompletion),
		solar.WithSessionLogger(a.log))
	return a, nil
}

func (a *app) newFlow() *solar.Flow {
	return solar.NewFlow(a.calc, a.regions, a.phases,
		solar.WithMetrics(a.metrics),
		solar.WithLogger(a.log),
		solar.WithNotifier(solar.NotifierFunc(func(ctx context.Context, n solar.Notification) {
			a.log.Debug(ctx, "solar notification",
				logging.String("kind", string(n.Kind)),
				logging.String("title", n.Title))
		})))
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"currency": solar.FormatCurrency,
		"dict":     dict,
		"year":     func() int { return time.Now().Year() },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// dict builds a map from alternating keys and values for passing several
// values to a nested template.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

func (a *app) routes() *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(a.tmpl)
	r.Use(gin.Recovery(), a.requestLogger(), a.metricsMiddleware(), a.visitorTrackingMiddleware())

	r.Static("/images", "./images")
	r.Static("/static", "./static")

	r.GET("/healthz", a.handleHealth)
	if a.metrics != nil {
		r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	}

	a.setupPageRoutes(r)
	a.setupSolarRoutes(r)
	a.setupAdminRoutes(r)
	return r
}

func (a *app) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok", "solar_sessions": a.sessions.Len()}
	if a.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := a.store.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
	}
	c.JSON(http.StatusOK, status)
}

// requestLogger tags each request with an ID and logs it once finished.
func (a *app) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, id := logging.WithRequestID(c.Request.Context(), c.GetHeader("X-Request-ID"))
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)

		c.Next()

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			a.log.Error(ctx, "request failed", fields...)
			return
		}
		a.log.Debug(ctx, "request", fields...)
	}
}

func (a *app) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.metrics.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
