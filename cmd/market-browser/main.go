package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/eve-market-browser/pkg/fetch"
	"github.com/Sternrassler/eve-market-browser/pkg/logging"
	"github.com/Sternrassler/eve-market-browser/pkg/market"
	"github.com/Sternrassler/eve-market-browser/pkg/pagecache"
	"github.com/Sternrassler/eve-market-browser/pkg/session"
)

// config is the dashboard configuration, loaded from environment variables.
type config struct {
	OrdersURL   string        `env:"ORDERS_URL"    envDefault:"http://localhost:8080"` // Base URL of the market orders API
	UserAgent   string        `env:"USER_AGENT"    envDefault:"eve-market-browser/0.1.0"`
	RegionID    int32         `env:"REGION_ID"     envDefault:"10000002"` // Initial region filter (The Forge)
	PageSize    int           `env:"PAGE_SIZE"     envDefault:"50"`
	MaxRows     int           `env:"MAX_ROWS"      envDefault:"250"`
	CursorMode  bool          `env:"CURSOR_MODE"   envDefault:"false"` // Seek paging instead of offset paging
	RateLimit   float64       `env:"RATE_LIMIT"    envDefault:"10"`    // Requests per second against the orders API
	RedisURL    string        `env:"REDIS_URL"`                        // Empty disables the page cache
	CacheTTL    time.Duration `env:"PAGE_CACHE_TTL" envDefault:"30s"`
	MetricsAddr string        `env:"METRICS_ADDR"  envDefault:":9090"` // Empty disables the metrics endpoint
	LogLevel    string        `env:"LOG_LEVEL"     envDefault:"info"`
	LogFile     string        `env:"LOG_FILE"`                         // Empty discards logs; the TUI owns the terminal
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse config: %v\n", err)
		os.Exit(1)
	}

	// The alternate screen owns stderr while the program runs, so logs go
	// to a file or nowhere.
	var logOutput io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOutput = f
	}
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Output: logOutput,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Page cache is optional; a missing Redis degrades to uncached fetches.
	var cache *pagecache.Manager
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisURL).Msg("Redis unavailable, page cache disabled")
		} else {
			cache = pagecache.NewManager(redisClient, cfg.CacheTTL)
			defer redisClient.Close()
		}
	}

	fetchCfg := fetch.DefaultConfig(cfg.OrdersURL)
	fetchCfg.UserAgent = cfg.UserAgent
	fetchCfg.RateLimit = cfg.RateLimit
	fetchCfg.Cache = cache

	client, err := fetch.New(fetchCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create fetch client: %v\n", err)
		os.Exit(1)
	}

	coord := session.New(client, session.Config{
		PageSize:   cfg.PageSize,
		MaxRows:    cfg.MaxRows,
		CursorMode: cfg.CursorMode,
	})

	program := tea.NewProgram(newModel(coord), tea.WithAltScreen())

	g, ctx := errgroup.WithContext(ctx)

	// Forward coordinator change notifications into the UI loop.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-coord.Updates():
				program.Send(ordersUpdated{})
			}
		}
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

		g.Go(func() error {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// Initial session: the configured region, both order sides.
	coord.SetFilters(ctx, market.Filters{RegionID: cfg.RegionID})

	if _, err := program.Run(); err != nil {
		log.Error().Err(err).Msg("program failed")
	}

	cancel()
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}
