package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/internal/research"
	"github.com/mohammad-safakhou/researcher/internal/search"
	"github.com/mohammad-safakhou/researcher/internal/store"
	"github.com/mohammad-safakhou/researcher/internal/telemetry"
)

// Run wires the full service and blocks serving HTTP. An empty addr falls
// back to the configured server address.
func Run(cfg *appconfig.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	registerDocs(e)
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	dsn := cfg.Storage.Postgres.DSN()
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		baseLogger.Printf("migrate: %v", err)
	}

	// Initialize shared dependencies (top-level DI)
	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	var tele *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		tele = telemetry.New(prometheus.DefaultRegisterer)
	}

	// Findings cache is optional: no redis host means every fetch goes
	// upstream.
	var cache *research.Cache
	if cfg.Storage.Redis.Host != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		cache = research.NewCache(rdb, cfg.Storage.Redis.CacheTTLs, log.New(log.Writer(), "[CACHE] ", log.LstdFlags))
	}

	client := research.NewHTTPClient(cfg.Sources.Timeout)
	registry := research.NewRegistry(cache, tele, log.New(log.Writer(), "[SOURCES] ", log.LstdFlags))
	registry.Register(research.NewCryptoProvider(client, cfg.Sources.CoinGecko.Endpoint))
	if cfg.Sources.NewsAPI.APIKey != "" {
		registry.Register(research.NewNewsProvider(client, cfg.Sources.NewsAPI.Endpoint, cfg.Sources.NewsAPI.APIKey, cfg.Sources.NewsAPI.MaxResults))
	} else {
		baseLogger.Printf("newsapi api_key not set; news queries fall back to the general provider")
	}
	registry.Register(research.NewGeneralProvider(client, cfg.Sources.Wikipedia.Endpoint))

	// Rebuild the in-memory search index from the most recent results.
	index, err := search.New()
	if err != nil {
		return err
	}
	recent, err := st.List(ctx, cfg.Research.IndexRebuild)
	if err != nil {
		return err
	}
	for _, rec := range recent {
		if err := index.Add(rec.ID, rec.Query, rec.Findings); err != nil {
			baseLogger.Printf("index result %d: %v", rec.ID, err)
		}
	}

	opts := research.SessionOptions{
		MaxAttempts:    cfg.Research.MaxAttempts,
		AttemptTimeout: cfg.Research.AttemptTimeout,
		RetryBackoff:   cfg.Research.RetryBackoff,
	}
	writer := &indexedWriter{store: st, index: index, logger: baseLogger}

	sh := &StreamHandler{
		Registry: registry,
		Results:  writer,
		Opts:     opts,
		Tele:     tele,
		Logger:   log.New(log.Writer(), "[STREAM] ", log.LstdFlags),
	}
	sh.Register(e)

	api := e.Group("/api/research")
	hh := &HistoryHandler{Store: st, Index: index, DefaultLimit: cfg.Research.HistoryLimit, Logger: baseLogger}
	hh.Register(api)
	eh := &ExportHandler{Store: st}
	eh.Register(api)

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("starting server on %s", addr)
	return e.Start(addr)
}
