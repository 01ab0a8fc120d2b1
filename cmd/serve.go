package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/maxaizer/autoapply/internal/api"
	"github.com/maxaizer/autoapply/internal/bot"
	"github.com/maxaizer/autoapply/internal/logger"
	"github.com/maxaizer/autoapply/internal/metrics"
	"github.com/maxaizer/autoapply/internal/services"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the expiry sweeper and the optional Telegram bot",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	metrics.Register()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.close()

	if _, err = services.NewNotifier(a.bus, a.notifications); err != nil {
		log.Fatalf("can't create notifier: %v", err)
	}

	sweeper, err := services.NewSweeper(a.lifecycle, a.scans, cfg.Lifecycle.SweepSchedule, cfg.Scanner.ReportRetention)
	if err != nil {
		log.Fatalf("can't create sweeper: %v", err)
	}
	defer sweeper.Stop()

	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()

		if _, err = services.NewEventRelay(a.bus, client, cfg.Redis.Channel); err != nil {
			log.Fatalf("can't create event relay: %v", err)
		}
	}

	if cfg.Bot.Enabled {
		tgbot, err := bot.NewBot(cfg.Bot.Token, a.bus, bot.Dependencies{
			Applications:  a.applications,
			Notifications: a.notifications,
			Lifecycle:     a.lifecycle,

			SubmitOnApproval: cfg.Lifecycle.SubmitOnApproval,
		})
		if err != nil {
			log.Fatalf("can't create bot: %v", err)
		}
		go tgbot.Run()
		defer tgbot.Stop()
	}

	server := api.NewServer(cfg.API, &api.Handlers{
		Pipeline:      a.service,
		Lifecycle:     a.lifecycle,
		Dispatcher:    a.dispatcher,
		Applications:  a.applications,
		Activity:      a.activity,
		Notifications: a.notifications,
		Criteria:      a.criteria,
		Profiles:      a.profiles,
	})
	if err = server.Run(ctx); err != nil {
		log.Errorf("api server stopped: %v", err)
	}

	log.Info("Shutting down services...")
}
