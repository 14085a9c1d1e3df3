package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"

	"github.com/Zachkp/solar-portfolio/internal/logging"
	"github.com/Zachkp/solar-portfolio/internal/observability"
	"github.com/Zachkp/solar-portfolio/internal/store"
)

func main() {
	cfg, warnings := loadConfig(os.Getenv)
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	for _, w := range warnings {
		log.Warn(ctx, w)
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Error(err))
		os.Exit(1)
	}
	defer observability.Shutdown(context.Background(), shutdownTracing, log)

	collector, err := observability.NewCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics", logging.Error(err))
		os.Exit(1)
	}

	db, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Error(ctx, "failed to open database", logging.String("driver", cfg.DBDriver), logging.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	a, err := newApp(ctx, cfg, appDeps{log: log, store: db, metrics: collector})
	if err != nil {
		log.Error(ctx, "failed to build app", logging.Error(err))
		os.Exit(1)
	}
	if err := observability.RegisterGaugeFunc(nil, "solar_sessions", "Live solar calculator sessions.",
		func() float64 { return float64(a.sessions.Len()) }); err != nil {
		log.Warn(ctx, "solar session gauge not registered", logging.Error(err))
	}

	go a.sessions.Janitor(ctx, time.Minute)
	go a.cleanupOldVisitorData(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withCORS(a.routes(), cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info(ctx, "portfolio listening", logging.String("addr", srv.Addr), logging.String("db", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server exited", logging.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	// Cancel in-flight calculations first so event streams can finish.
	a.sessions.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "graceful shutdown failed", logging.Error(err))
	}
}

// withCORS opens the JSON API to the configured origins. With no origins the
// handler is returned unchanged.
func withCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return h
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})(h)
}
