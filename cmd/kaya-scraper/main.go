package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"kaya-scraper/internal/app"
	"kaya-scraper/internal/config"
	"kaya-scraper/internal/usecase"
)

func main() {
	// Flags
	gym := flag.String("gym", "", "Sync a single gym by id")
	all := flag.Bool("all", false, "Sync every gym in the roster config")
	search := flag.String("search", "", "Search for gyms by term and exit")
	mode := flag.String("mode", "incremental", "Sync mode: full or incremental")
	batch := flag.Int("batch", 0, "Batch size for store writes (default 1000)")
	offset := flag.Int("offset", 0, "Starting page offset")
	forceCloud := flag.Bool("aws", false, "Force the cloud secret backend outside Lambda")
	serve := flag.Bool("serve", false, "Run the HTTP trigger server instead of a one-shot sync")
	addr := flag.String("addr", ":8080", "HTTP trigger server listen address")
	gymsConfig := flag.String("gyms-config", "", "Path to the gym roster JSON (overrides GYMS_CONFIG)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	// Logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *gymsConfig != "" {
		cfg.Gyms.ConfigPath = *gymsConfig
	}

	opts := usecase.SyncOptions{
		Mode:        usecase.Mode(*mode),
		BatchSize:   *batch,
		StartOffset: *offset,
	}
	if opts.Mode != usecase.ModeFull && opts.Mode != usecase.ModeIncremental {
		logger.Error("invalid -mode, expected full or incremental", slog.String("mode", *mode))
		os.Exit(1)
	}

	// Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// App
	application, err := app.New(ctx, logger, cfg, *forceCloud)
	if err != nil {
		logger.Error("failed to initialize app", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer application.Close()

	switch {
	case *search != "":
		gyms, err := application.SearchGyms(ctx, *search)
		if err != nil {
			logger.Error("gym search failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		for _, g := range gyms {
			city := ""
			if g.City != nil {
				city = *g.City
			}
			fmt.Printf("%s\t%s\t%s\n", g.ID, g.Name, city)
		}

	case *gym != "":
		res, err := application.SyncGym(ctx, *gym, opts)
		if err != nil {
			logger.Error("sync failed", slog.String("gym_id", *gym), slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("sync completed", slog.String("gym_id", *gym), slog.Int("total_written", res.TotalWritten))

	case *all:
		results, err := application.SyncAll(ctx, opts)
		if err != nil {
			logger.Error("sync-all failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		failed := 0
		for name, outcome := range results {
			if outcome != "Success" {
				failed++
			}
			logger.Info("gym result", slog.String("gym", name), slog.String("outcome", outcome))
		}
		if failed > 0 {
			logger.Error("some gyms failed", slog.Int("failed", failed), slog.Int("total", len(results)))
			os.Exit(1)
		}

	case *serve:
		srv := application.HTTPServer(*addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}()
		<-ctx.Done()
		logger.Info("shutting down")
		_ = srv.Shutdown(context.Background())

	default:
		fmt.Fprintln(os.Stderr, "one of -gym, -all, -search or -serve is required")
		flag.Usage()
		os.Exit(2)
	}
}
