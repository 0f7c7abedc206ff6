package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	ReviewAPIURL string
	APITimeout   time.Duration
	APIRPS       int
	APIRetries   int

	StoryURL      string
	GeminiKey     string
	GeminiModel   string
	StoryWorkers  int
	StoryCacheTTL time.Duration

	// empty RedisAddr disables the story cache, empty MySQLDSN the archive
	RedisAddr string
	RedisPass string
	RedisDB   int
	MySQLDSN  string

	Refresh      time.Duration
	PendingPoll  time.Duration
	CycleTimeout time.Duration
	StoryTimeout time.Duration
	RecentLimit  int
	TrendDays    int
	Timezone     string
	WeekdayLang  string
}

// Load reads the environment. A .env file in the working directory, when
// present, fills variables that are not already set.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", ""),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		ReviewAPIURL: env("REVIEW_API_URL", "http://localhost:8000"),
		APITimeout:   seconds("API_TIMEOUT_SECONDS", 30),
		APIRPS:       atoi("API_RPS", 10),
		APIRetries:   atoi("API_RETRIES", 0),

		StoryURL:      env("STORY_URL", ""),
		GeminiKey:     env("GEMINI_API_KEY", ""),
		GeminiModel:   env("GEMINI_MODEL", "gemini-2.5-flash"),
		StoryWorkers:  atoi("STORY_WORKERS", 4),
		StoryCacheTTL: seconds("STORY_CACHE_TTL_SECONDS", 86400),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		MySQLDSN:  env("MYSQL_DSN", ""),

		Refresh:      seconds("REFRESH_SECONDS", 30),
		PendingPoll:  seconds("PENDING_POLL_SECONDS", 5),
		CycleTimeout: seconds("CYCLE_TIMEOUT_SECONDS", 30),
		StoryTimeout: seconds("STORY_TIMEOUT_SECONDS", 30),
		RecentLimit:  atoi("RECENT_LIMIT", 200),
		TrendDays:    atoi("TREND_DAYS", 7),
		Timezone:     env("TIMEZONE", "Local"),
		WeekdayLang:  strings.ToLower(env("WEEKDAY_LANG", "en")),
	}
	if c.StoryURL == "" && c.GeminiKey == "" {
		log.Warn().Msg("neither STORY_URL nor GEMINI_API_KEY is set; customer stories use the fallback text")
	}
	return c
}

// Location resolves Timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.Timezone).Msg("unknown timezone, using local")
		return time.Local
	}
	return loc
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}

func seconds(k string, def int) time.Duration {
	return time.Duration(atoi(k, def)) * time.Second
}
