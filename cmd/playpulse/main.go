package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"

	"github.com/playpulse/playpulse/internal/app"
	"github.com/playpulse/playpulse/internal/config"
	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/job"
	"github.com/playpulse/playpulse/internal/observability"
	"github.com/playpulse/playpulse/internal/platform/logging"
	"github.com/playpulse/playpulse/internal/usecase"
)

const (
	shutdownTimeout  = 10 * time.Second
	cancelTimeout    = 5 * time.Second
	pprofStopTimeout = 5 * time.Second
)

type cliOptions struct {
	player       string
	maxMatches   int
	pollInterval time.Duration
	history      int
}

func main() {
	opts := parseOptions()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, closeBetterStack, err := observability.InitBetterStackLogger(cfg, logging.NewJSON(cfg.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	closeUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build analysis stack", "error", err)
		os.Exit(1)
	}

	code := runAnalysis(ctx, components, opts, logger)

	// Teardown runs before os.Exit, which skips deferred calls.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := components.Close(); err != nil {
		logger.Warn("close analysis stack", "error", err)
	}
	if err := observability.StopPprofServer(pprofSrv, logger, pprofStopTimeout); err != nil {
		logger.Warn("stop pprof server", "error", err)
	}
	if err := stopPyroscope(); err != nil {
		logger.Warn("stop pyroscope", "error", err)
	}
	if err := closeUptrace(shutdownCtx); err != nil {
		logger.Warn("shutdown uptrace", "error", err)
	}
	if err := closeBetterStack(shutdownCtx); err != nil {
		logger.Warn("shutdown betterstack", "error", err)
	}
	_ = logger.Sync()

	os.Exit(code)
}

func parseOptions() cliOptions {
	var opts cliOptions
	flag.StringVar(&opts.player, "player", "", "player name or id to analyze (required)")
	flag.IntVar(&opts.maxMatches, "max-matches", 0, "recent matches to analyze, 1 to 50 (0 uses the configured default)")
	flag.DurationVar(&opts.pollInterval, "poll-interval", 2*time.Second, "delay between job polls")
	flag.IntVar(&opts.history, "history", 0, "print up to N archived runs for the player after completion")
	flag.Parse()

	if strings.TrimSpace(opts.player) == "" {
		fmt.Fprintln(os.Stderr, "playpulse: -player is required")
		flag.Usage()
		os.Exit(2)
	}
	if opts.pollInterval <= 0 {
		fmt.Fprintln(os.Stderr, "playpulse: -poll-interval must be > 0")
		os.Exit(2)
	}

	return opts
}

// runAnalysis submits the job, waits for a terminal state, and prints the
// result payload to stdout. Diagnostics go to the structured logger on stderr.
func runAnalysis(ctx context.Context, c *app.Components, opts cliOptions, logger *logging.Logger) int {
	req := usecase.AnalysisRequest{Player: opts.player, MaxMatches: opts.maxMatches}

	status, err := c.Orchestrator.Submit(ctx, req)
	if err != nil {
		logger.Error("submit analysis job", "player", opts.player, "error", err)
		return 1
	}

	if status.State == job.StateRunning {
		status, err = waitForOutcome(ctx, c.Orchestrator, req, opts.pollInterval, logger)
		if err != nil {
			logger.Error("wait for analysis result", "player", opts.player, "error", err)
			return 1
		}
	}

	switch status.State {
	case job.StateCompleted:
		if err := printResult(status.Result); err != nil {
			logger.Error("print analysis result", "error", err)
			return 1
		}
	case job.StateFailed:
		logger.Error("analysis job failed", "player", opts.player, "error", status.Error)
		return 1
	default:
		logger.Error("analysis job removed before completing", "player", opts.player, "state", string(status.State))
		return 1
	}

	if opts.history > 0 {
		if err := printHistory(ctx, c.Archive, status.Result.PlayerID, opts.history, logger); err != nil {
			logger.Warn("list archived runs", "error", err)
		}
	}

	return 0
}

// waitForOutcome polls the job key until it leaves the running state. On
// interrupt the job is cancelled so the write boundary discards the result
// this caller will never read.
func waitForOutcome(ctx context.Context, orch *usecase.AnalysisOrchestratorService, req usecase.AnalysisRequest, interval time.Duration, logger *logging.Logger) (usecase.AnalysisStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastProgress := ""
	for {
		select {
		case <-ctx.Done():
			cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
			defer cancel()
			if _, cancelErr := orch.Cancel(cancelCtx, req); cancelErr != nil {
				logger.Warn("cancel analysis job", "player", req.Player, "error", cancelErr)
			}
			return usecase.AnalysisStatus{}, ctx.Err()
		case <-ticker.C:
			status, err := orch.Poll(ctx, req)
			if err != nil {
				return usecase.AnalysisStatus{}, err
			}
			if status.State != job.StateRunning {
				return status, nil
			}
			if status.Progress != "" && status.Progress != lastProgress {
				logger.Info("analysis in progress", "player", req.Player, "progress", status.Progress)
				lastProgress = status.Progress
			}
		}
	}
}

func printResult(result *forecast.RunResult) error {
	if result == nil {
		return fmt.Errorf("completed job carried no result payload")
	}

	payload, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	fmt.Println(string(payload))
	return nil
}

// printHistory logs the most recent archived runs for the analyzed player.
// The archive only spans process restarts when the postgres backend is on.
func printHistory(ctx context.Context, archive forecast.Repository, playerID int64, limit int, logger *logging.Logger) error {
	records, err := archive.ListRecentByPlayer(ctx, playerID, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		logger.Info("no archived runs for player", "player_id", playerID)
		return nil
	}

	for _, rec := range records {
		logger.Info("archived analysis run",
			"run_id", rec.ID,
			"player", rec.PlayerName,
			"status", rec.Status,
			"matches_found", rec.MatchesFound,
			"max_matches", rec.MaxMatches,
			"processing_sec", rec.ProcessingSec,
			"created_at", rec.CreatedAt.Format(time.RFC3339),
		)
	}

	return nil
}
