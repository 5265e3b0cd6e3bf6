// Package main is the ssamantle CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ssamantle/ssamantle/internal/cache"
	"github.com/ssamantle/ssamantle/internal/config"
	"github.com/ssamantle/ssamantle/internal/metrics"
	"github.com/ssamantle/ssamantle/internal/refresh"
	"github.com/ssamantle/ssamantle/internal/scheduler"
	"github.com/ssamantle/ssamantle/internal/server"
	"github.com/ssamantle/ssamantle/internal/source"
	"github.com/ssamantle/ssamantle/internal/state"
	"github.com/ssamantle/ssamantle/internal/vectorsearch"
	"github.com/ssamantle/ssamantle/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ssamantle/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "refresh":
		runRefresh()
	case "load":
		runLoad()
	case "answers":
		runAnswers()
	case "today":
		runToday()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("ssamantle version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	location, err := cfg.Game.Location()
	if err != nil {
		logger.Fatal("Failed to load timezone", zap.Error(err))
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	refreshNow := refreshJob(components.Pipeline, m, logger)

	// First run at startup so the service is answerable without waiting for
	// the schedule.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if _, err := refreshNow(startupCtx, time.Now().In(location).Format("2006-01-02")); err != nil {
		logger.Warn("startup refresh failed, serving degraded until next run", zap.Error(err))
	}
	startupCancel()

	sched := scheduler.New(cfg.Refresh.HourOrDefault(), cfg.Refresh.Minute, location,
		func(ctx context.Context, date string) {
			if _, err := refreshNow(ctx, date); err != nil {
				logger.Error("scheduled refresh failed", zap.String("date", date), zap.Error(err))
			}
		}, logger)
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	sched.Start(schedCtx)
	defer sched.Stop()

	// Re-run the refresh when the answers file changes so an edited word pool
	// takes effect without waiting a day.
	if cfg.Game.AnswersDBPath == "" {
		watchOpts := []source.FileWatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, source.WithLogger(logger))
		}
		fw := source.NewFileWatcher(cfg.Game.AnswersPath, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			date := time.Now().In(location).Format("2006-01-02")
			logger.Info("answers file changed, re-running refresh", zap.String("date", date))
			if _, err := refreshNow(ctx, date); err != nil {
				logger.Warn("refresh after answers change failed", zap.Error(err))
			}
		}, watchOpts...)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := fw.Start(watchCtx); err != nil {
			logger.Warn("answers file watch failed to start", zap.Error(err))
		}
	}

	var cacheReader server.CacheReader
	if components.Cache != nil {
		cacheReader = components.Cache
	}
	srv := server.NewServer(
		components.State,
		components.VectorStore,
		cacheReader,
		refreshNow,
		location,
		&cfg.Server,
		logger,
	).WithMetrics(m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runRefresh() {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	date := fs.String("date", "", "date to refresh (YYYY-MM-DD, default: today in the configured timezone)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	day := *date
	if day == "" {
		location, err := cfg.Game.Location()
		if err != nil {
			logger.Fatal("Failed to load timezone", zap.Error(err))
		}
		day = time.Now().In(location).Format("2006-01-02")
	}

	res, err := components.Pipeline.Run(context.Background(), day)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Refresh failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Refreshed %s: answer ready, vector_ready=%t, topk=%d\n",
		res.State.Date, res.State.HasVector(), len(res.TopK))
}

func runLoad() {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	vecPath := fs.String("vec", "", "word vector file to load (default: vector.vec_path from config)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	path := *vecPath
	if path == "" {
		path = cfg.Vector.VecPath
	}

	switch vectorsearch.Backend(cfg.Vector.Backend) {
	case vectorsearch.BackendWeaviate:
		store, err := vectorsearch.NewWeaviateStore(vectorsearch.WeaviateConfig{
			Scheme: cfg.Weaviate.Scheme,
			Host:   cfg.Weaviate.Host,
			Class:  cfg.Weaviate.Class,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to weaviate: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		ctx := context.Background()
		if err := store.EnsureSchema(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to ensure schema: %v\n", err)
			os.Exit(1)
		}
		n, err := store.LoadVecFile(ctx, path, cfg.Vector.Dimensions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Load failed after %d words: %v\n", n, err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %d word vectors into weaviate class %s\n", n, cfg.Weaviate.Class)
	case vectorsearch.BackendMemory:
		store, err := vectorsearch.NewMemoryStore(cfg.Vector.Dimensions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create store: %v\n", err)
			os.Exit(1)
		}
		n, err := store.LoadVecFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Load failed after %d words: %v\n", n, err)
			os.Exit(1)
		}
		if cfg.Vector.SnapshotPath == "" {
			fmt.Println("No vector.snapshot_path configured; nothing to persist for the memory backend")
			os.Exit(1)
		}
		if err := store.Save(cfg.Vector.SnapshotPath); err != nil {
			fmt.Fprintf(os.Stderr, "Snapshot save failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %d word vectors, snapshot written to %s\n", n, cfg.Vector.SnapshotPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown vector backend %q\n", cfg.Vector.Backend)
		os.Exit(1)
	}
}

func runAnswers() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: ssamantle answers <add|list> [word]")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("answers", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	description := fs.String("desc", "", "optional description stored with the word")
	_ = fs.Parse(os.Args[3:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Game.AnswersDBPath == "" {
		fmt.Println("answers subcommand requires game.answers_db_path (SQLite pool); file pools are edited directly")
		os.Exit(1)
	}
	db, err := source.NewSQLiteSource(cfg.Game.AnswersDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open answers database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: ssamantle answers add <word>")
			os.Exit(1)
		}
		word := fs.Arg(0)
		if err := db.AddAnswer(context.Background(), word, *description); err != nil {
			fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", word)
	case "list":
		words, err := db.ListAnswers(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
		for _, w := range words {
			fmt.Println(w)
		}
	default:
		fmt.Printf("Unknown answers subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runToday() {
	fs := flag.NewFlagSet("today", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/today")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Date        string `json:"date"`
		VectorReady bool   `json:"vector_ready"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("date:          %s\n", out.Date)
	fmt.Printf("vector_ready:  %t\n", out.VectorReady)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		var pretty map[string]interface{}
		if err := json.Unmarshal(b, &pretty); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(pretty)
	case "text":
		var status struct {
			Date        *string `json:"date"`
			VectorReady bool    `json:"vector_ready"`
			VectorStore *struct {
				Type string `json:"type"`
				Size int    `json:"size"`
			} `json:"vector_store"`
			Cache *struct {
				ActiveDate string `json:"active_date"`
				TopKSize   int    `json:"topk_size"`
			} `json:"cache"`
		}
		if err := json.Unmarshal(b, &status); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		if status.Date != nil {
			fmt.Printf("date:           %s\n", *status.Date)
		} else {
			fmt.Println("date:           (not published)")
		}
		fmt.Printf("vector_ready:   %t\n", status.VectorReady)
		if status.VectorStore != nil {
			fmt.Printf("vector_store:   %s (%d words)\n", status.VectorStore.Type, status.VectorStore.Size)
		}
		if status.Cache != nil {
			fmt.Printf("cache_active:   %s\n", status.Cache.ActiveDate)
			fmt.Printf("cache_topk:     %d\n", status.Cache.TopKSize)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// refreshJob wraps the pipeline with metrics and logging. All refresh
// triggers (startup, schedule, admin endpoint, file watch) go through it.
func refreshJob(p *refresh.Pipeline, m *metrics.Metrics, logger *zap.Logger) server.RefreshFunc {
	return func(ctx context.Context, date string) (*refresh.Result, error) {
		start := time.Now()
		res, err := p.Run(ctx, date)
		m.RefreshDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			m.RefreshTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		m.RefreshTotal.WithLabelValues("ok").Inc()
		m.ActiveTopKSize.Set(float64(len(res.TopK)))
		if res.State.HasVector() {
			m.AnswerVectorSet.Set(1)
		} else {
			m.AnswerVectorSet.Set(0)
		}
		logger.Info("refresh complete",
			zap.String("date", date),
			zap.Duration("took", time.Since(start)),
			zap.Int("topk", len(res.TopK)),
		)
		return res, nil
	}
}

// Components holds initialized services.
type Components struct {
	Source      source.Source
	VectorStore vectorsearch.Store
	Cache       *cache.BadgerCache
	State       *state.Store
	Pipeline    *refresh.Pipeline
}

func (c *Components) Close() {
	if c.VectorStore != nil {
		_ = c.VectorStore.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if closer, ok := c.Source.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	var src source.Source
	if cfg.Game.AnswersDBPath != "" {
		db, err := source.NewSQLiteSource(cfg.Game.AnswersDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open answers database: %w", err)
		}
		src = db
	} else {
		src = source.NewFileSource(cfg.Game.AnswersPath)
	}

	// A broken vector backend degrades the service instead of stopping it:
	// the answer is still picked and published without a vector.
	store, err := vectorsearch.NewStore(cfg.Vector.Backend, vectorsearch.Options{
		Dimensions:   cfg.Vector.Dimensions,
		VecPath:      cfg.Vector.VecPath,
		SnapshotPath: cfg.Vector.SnapshotPath,
		Weaviate: vectorsearch.WeaviateConfig{
			Scheme: cfg.Weaviate.Scheme,
			Host:   cfg.Weaviate.Host,
			Class:  cfg.Weaviate.Class,
		},
	})
	if err != nil {
		logger.Warn("vector store unavailable, running degraded",
			zap.String("backend", cfg.Vector.Backend),
			zap.Error(err))
		store = nil
	} else {
		logger.Info("vector store initialized",
			zap.String("backend", store.Type()),
			zap.Int("size", store.Size()))
	}

	dailyCache, err := cache.OpenBadgerCache(cache.BadgerConfig{
		Path:      cfg.Cache.Path,
		InMemory:  cfg.Cache.InMemory,
		KeyPrefix: cfg.Cache.KeyPrefix,
	})
	if err != nil {
		logger.Warn("daily cache unavailable, rotation disabled", zap.Error(err))
		dailyCache = nil
	}

	stateStore := state.NewStore()
	var cacheIface cache.DailyCache
	if dailyCache != nil {
		cacheIface = dailyCache
	}
	pipeline := refresh.NewPipeline(src, store, stateStore, cacheIface, cfg.Game.TopK, logger)

	return &Components{
		Source:      src,
		VectorStore: store,
		Cache:       dailyCache,
		State:       stateStore,
		Pipeline:    pipeline,
	}, nil
}

func printUsage() {
	fmt.Println(`ssamantle - Daily word guessing game backend

Usage:
  ssamantle server [flags]             Start the HTTP server with the daily scheduler
  ssamantle refresh [flags]            Run one refresh cycle and exit
  ssamantle load [flags]               Bulk-load word vectors into the configured backend
  ssamantle answers <add|list> [word]  Manage the SQLite answer pool
  ssamantle today [flags]              Show the active date from a running server
  ssamantle status [flags]             Show service status from a running server
  ssamantle version                    Show version
  ssamantle help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/ssamantle/config.yaml)
  --debug            Enable debug logging

Refresh Flags:
  --config string    Config file path
  --date string      Date to refresh (YYYY-MM-DD, default: today)

Load Flags:
  --config string    Config file path
  --vec string       Word vector file (default: vector.vec_path from config)

Today/Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format for status: text or json (default: text)

Examples:
  ssamantle server
  ssamantle refresh --date 2024-06-01
  ssamantle load --vec ./data/cc.ko.300.vec
  ssamantle answers add 사과
  ssamantle today
  ssamantle status --output json`)
}
