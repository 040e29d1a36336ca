package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/alvarodevdoo/erp/internal/app"
	"github.com/alvarodevdoo/erp/jobs"
)

// runJobsCommand handles `erp jobs trigger <task>` and `erp jobs stats`.
func runJobsCommand(args []string) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)
	client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case len(args) == 2 && args[0] == "trigger":
		task, err := jobs.NewTask(args[1], cfg.LowStockLimit)
		if err != nil {
			logger.Error("build task", slog.String("task", args[1]), slog.Any("error", err))
			return 2
		}
		info, err := client.Enqueue(ctx, task)
		if err != nil {
			logger.Error("enqueue task", slog.String("task", args[1]), slog.Any("error", err))
			return 1
		}
		logger.Info("task enqueued", slog.String("task", info.Type), slog.String("id", info.ID), slog.String("queue", info.Queue))
		return 0
	case len(args) == 1 && args[0] == "stats":
		stats, err := client.Stats()
		if err != nil {
			logger.Error("inspect queue", slog.Any("error", err))
			return 1
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			logger.Error("encode stats", slog.Any("error", err))
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "usage: erp jobs trigger <%s|%s|%s>\n       erp jobs stats\n",
			jobs.TaskQuoteExpiry, jobs.TaskIdempotencyCleanup, jobs.TaskLowStockScan)
		return 2
	}
}
