package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/honestbee/github-report-bot/src/internal/api"
	"github.com/honestbee/github-report-bot/src/internal/bot"
	"github.com/honestbee/github-report-bot/src/internal/classify"
	"github.com/honestbee/github-report-bot/src/internal/config"
	"github.com/honestbee/github-report-bot/src/internal/github"
	"github.com/honestbee/github-report-bot/src/internal/report"
	"github.com/honestbee/github-report-bot/src/internal/scheduler"
	slackclient "github.com/honestbee/github-report-bot/src/internal/slack"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("load config: %v", err)
	}
	teams, err := config.LoadTeams(cfg.TeamsFile)
	if err != nil {
		sugar.Fatalf("load teams: %v", err)
	}
	sugar.Infof("loaded %d team(s), reporting to channel %s", len(teams), cfg.TargetChannel)

	ghClient := github.NewClient(cfg.GithubAPIURL, cfg.RepoOwner, cfg.GithubAccessToken, cfg.EventPages, logger)
	classifier := classify.NewClassifier(cfg.RepoOwner, logger)
	aggregator := report.NewAggregator(ghClient, classifier, cfg.ShowAllUsers, logger)

	chat := slackclient.NewClient(cfg.SlackBotToken, logger)
	cronScheduler := scheduler.New()
	cronScheduler.Start()
	defer cronScheduler.Stop()

	controller := bot.NewController(chat, cronScheduler, aggregator, teams, cfg.TargetChannel, cfg.ReportCron, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		sugar.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := chat.Run(ctx, controller.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorf("slack connection closed: %v", err)
	}
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("server forced to shutdown: %v", err)
	}
	sugar.Info("stopped")
}
