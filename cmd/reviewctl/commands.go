package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	redisad "review_dashboard/internal/adapters/redis"
	"review_dashboard/internal/adapters/storygen"
	"review_dashboard/internal/aggregate"
	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
	mysqlrepo "review_dashboard/internal/storage/mysql"
)

var (
	maxCount     int
	logLimit     int
	historyLimit int
	workers      int
	full         bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Start a review scrape on the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		acts, err := newActions()
		if err != nil {
			return err
		}
		res, err := acts.Scrape(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate-replies",
	Short: "Generate AI replies for pending reviews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		acts, err := newActions()
		if err != nil {
			return err
		}
		res, err := acts.GenerateReplies(cmd.Context(), maxCount)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate <review-id>...",
	Short: "Regenerate the AI reply of one or more reviews",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRegenerate,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print recent backend logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		acts, err := newActions()
		if err != nil {
			return err
		}
		out, err := acts.Logs(cmd.Context(), logLimit)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run one dashboard load and print the result",
	Args:  cobra.NoArgs,
	RunE:  runSnapshot,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print archived stats rollups (needs MYSQL_DSN)",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	generateCmd.Flags().IntVar(&maxCount, "max-count", app.DefaultMaxReplies, "maximum replies to generate")
	logsCmd.Flags().IntVar(&logLimit, "limit", app.DefaultLogLimit, "number of log entries")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of records")
	regenerateCmd.Flags().IntVar(&workers, "workers", 4, "concurrent regenerate requests")
	snapshotCmd.Flags().BoolVar(&full, "full", false, "print every view, not just the dashboard")
}

func runRegenerate(cmd *cobra.Command, ids []string) error {
	acts, err := newActions()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	var acqErr error
	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if acqErr = sem.Acquire(ctx, 1); acqErr != nil {
			break
		}
		wg.Add(1)
		go func(reviewID string) {
			defer wg.Done()
			defer sem.Release(1)
			if _, err := acts.RegenerateReply(ctx, reviewID); err != nil {
				log.Warn().Str("id", reviewID).Err(err).Msg("regenerate failed")
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			log.Info().Str("id", reviewID).Msg("regenerate accepted")
		}(id)
	}
	wg.Wait()
	if acqErr != nil {
		return acqErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d regenerate requests failed", failed, len(ids))
	}
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	api, err := newAPI()
	if err != nil {
		return err
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		if err := rc.Ping(ctx); err == nil {
			cache = rc
		}
	}
	stories := app.NewStoryService(storyGenerator(ctx), cache, cfg.StoryCacheTTL, cfg.StoryWorkers)
	dash := app.NewDashboardService(api, stories, nil, app.DashboardOptions{
		RecentLimit:  cfg.RecentLimit,
		TrendDays:    cfg.TrendDays,
		Timeout:      cfg.CycleTimeout,
		StoryTimeout: cfg.StoryTimeout,
		Location:     cfg.Location(),
		Weekdays:     aggregate.WeekdayLabels(cfg.WeekdayLang),
	})
	if _, err := dash.Refresh(ctx); err != nil {
		return err
	}
	if full {
		sn, err := dash.Snapshot()
		if err != nil {
			return err
		}
		return printJSON(sn)
	}
	v, err := dash.Dashboard()
	if err != nil {
		return err
	}
	return printJSON(v)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.MySQLDSN == "" {
		return fmt.Errorf("MYSQL_DSN is not set")
	}
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	recs, err := mysqlrepo.New(db).RecentStats(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	return printJSON(recs)
}

func storyGenerator(ctx context.Context) domain.StoryGenerator {
	if cfg.GeminiKey != "" {
		if g, err := storygen.NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel); err == nil {
			return g
		}
	}
	if cfg.StoryURL != "" {
		if g, err := storygen.NewHTTP(cfg.StoryURL, cfg.APITimeout); err == nil {
			return g
		}
	}
	return nil
}
