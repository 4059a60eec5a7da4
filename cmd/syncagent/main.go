// Command syncagent keeps a local mail cache in step with the sync service.
//
// SIGUSR1 reports that the user is looking at the mailbox again and SIGUSR2
// forces an immediate sync.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jobhunt-backend/internal/syncclient"
	"jobhunt-backend/internal/syncclient/cache"
	"jobhunt-backend/pkg/config"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger.Named("syncagent")); err != nil {
		logger.Fatal("sync agent exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.LoadAgent()
	if err != nil {
		return err
	}

	store, err := cache.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client := syncclient.New(
		syncclient.NewHTTPClient(cfg.APIURL, cfg.APIKey, cfg.OwnerID),
		store,
		syncclient.Options{Interval: cfg.Interval, Enhanced: cfg.Enhanced},
		logger,
	)
	unsubscribe := client.Subscribe(func(s syncclient.State) {
		logger.Info("sync state",
			zap.String("status", string(s.Status)),
			zap.Bool("enhanced_healthy", s.EnhancedHealthy),
			zap.String("job_id", s.JobID),
			zap.Int("progress", s.Progress),
			zap.String("last_error", s.LastError))
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := client.Initialize(ctx); err != nil {
		return err
	}
	defer client.Destroy()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1, syscall.SIGUSR2, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	for sig := range signals {
		switch sig {
		case syscall.SIGUSR1:
			go func() { report(logger, "visibility", client.OnVisible(ctx)) }()
		case syscall.SIGUSR2:
			go func() { report(logger, "manual", client.ManualTrigger(ctx)) }()
		default:
			logger.Info("stopping", zap.String("signal", sig.String()))
			return nil
		}
	}
	return nil
}

func report(logger *zap.Logger, trigger string, res syncclient.Result) {
	if err := res.Err(); err != nil {
		logger.Warn("sync attempt failed", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	if out, ok := res.Outcome(); ok {
		logger.Info("sync attempt done",
			zap.String("trigger", trigger),
			zap.String("strategy", string(out.Strategy)),
			zap.String("job_id", out.JobID),
			zap.Bool("degraded", out.Degraded))
	}
}
