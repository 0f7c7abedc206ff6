package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "review_dashboard/internal/adapters/http_server"
	"review_dashboard/internal/adapters/observability"
	redisad "review_dashboard/internal/adapters/redis"
	"review_dashboard/internal/adapters/reviewapi"
	"review_dashboard/internal/adapters/storygen"
	"review_dashboard/internal/aggregate"
	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
	"review_dashboard/internal/shared"
	mysqlrepo "review_dashboard/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// backend
	api, err := reviewapi.New(cfg.ReviewAPIURL, reviewapi.Options{
		Timeout: cfg.APITimeout,
		RPS:     cfg.APIRPS,
		Retries: cfg.APIRetries,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("review api client")
	}

	// stories
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, story cache disabled")
		} else {
			cache = rc
			defer rc.Close()
			log.Info().Str("addr", cfg.RedisAddr).Msg("story cache ok")
		}
	}
	stories := app.NewStoryService(storyGenerator(ctx, cfg), cache, cfg.StoryCacheTTL, cfg.StoryWorkers)

	// archive
	var archive domain.StatsArchive
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		repo := mysqlrepo.New(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate stats archive")
		}
		archive = repo
		log.Info().Msg("database connection ok")
	}

	loc := cfg.Location()
	dash := app.NewDashboardService(api, stories, archive, app.DashboardOptions{
		RecentLimit:  cfg.RecentLimit,
		TrendDays:    cfg.TrendDays,
		Refresh:      cfg.Refresh,
		PendingPoll:  cfg.PendingPoll,
		Timeout:      cfg.CycleTimeout,
		StoryTimeout: cfg.StoryTimeout,
		Location:     loc,
		Weekdays:     aggregate.WeekdayLabels(cfg.WeekdayLang),
	})
	dash.Start(ctx)
	defer dash.Stop()

	// http
	srv := server.New(server.DefaultTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Dash:    dash,
		Actions: app.NewActionService(api, dash, loc),
		Session: app.NewSession(),
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.ReviewAPIURL).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}

// storyGenerator prefers Gemini, then the story endpoint. Nil means every
// story uses the fallback text.
func storyGenerator(ctx context.Context, cfg shared.Config) domain.StoryGenerator {
	if cfg.GeminiKey != "" {
		g, err := storygen.NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err == nil {
			log.Info().Str("model", cfg.GeminiModel).Msg("stories via Gemini")
			return g
		}
		log.Warn().Err(err).Msg("Gemini client unavailable")
	}
	if cfg.StoryURL != "" {
		g, err := storygen.NewHTTP(cfg.StoryURL, cfg.APITimeout)
		if err == nil {
			log.Info().Str("url", cfg.StoryURL).Msg("stories via story endpoint")
			return g
		}
		log.Warn().Err(err).Msg("story endpoint unavailable")
	}
	return nil
}
