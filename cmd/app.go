package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/autoapply/internal/clients/claude"
	"github.com/maxaizer/autoapply/internal/clients/gemini"
	"github.com/maxaizer/autoapply/internal/clients/mail"
	"github.com/maxaizer/autoapply/internal/clients/web"
	"github.com/maxaizer/autoapply/internal/config"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/extractor"
	"github.com/maxaizer/autoapply/internal/generative"
	"github.com/maxaizer/autoapply/internal/lifecycle"
	"github.com/maxaizer/autoapply/internal/outreach"
	"github.com/maxaizer/autoapply/internal/repositories"
	"github.com/maxaizer/autoapply/internal/scanner"
	"github.com/maxaizer/autoapply/internal/services"
	log "github.com/sirupsen/logrus"
)

type outboundSender interface {
	Send(ctx context.Context, msg models.OutboundMessage) (string, error)
}

// app holds the wired components shared by the commands.
type app struct {
	cfg *config.Config
	db  *repositories.DbContext
	bus EventBus.Bus

	applications  *repositories.Applications
	activity      *repositories.Activity
	notifications *repositories.Notifications
	scans         *repositories.Scans
	criteria      *repositories.CachedCriteria
	profiles      *repositories.Profiles

	lifecycle  *lifecycle.Manager
	service    *services.AutoApplyService
	dispatcher *services.BatchDispatcher

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := repositories.NewDbContext(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("can't create db context: %w", err)
	}
	a := &app{cfg: cfg, db: db, bus: EventBus.New()}
	a.closers = append(a.closers, func() {
		if err := db.Close(); err != nil {
			log.Errorf("can't close db: %v", err)
		}
	})

	if err = db.Migrate(); err != nil {
		a.close()
		return nil, fmt.Errorf("can't migrate db context: %w", err)
	}

	generator, err := a.newGenerator(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	webClient := web.NewClient(cfg.Scanner.RequestTimeout)
	webClient.SetRateLimit(cfg.Scanner.MaxRequestsPerSecond)
	webClient.SetUserAgent(cfg.Scanner.UserAgent)
	webClient.SetMaxBodyBytes(cfg.Scanner.MaxBodyBytes)

	a.applications = repositories.NewApplicationsRepository(db.DB)
	a.activity = repositories.NewActivityRepository(db.DB)
	a.notifications = repositories.NewNotificationsRepository(db.DB)
	a.scans = repositories.NewScansRepository(db.DB)
	a.criteria = repositories.NewCachedCriteria(repositories.NewCriteriaRepository(db.DB))
	a.profiles = repositories.NewProfilesRepository(db.DB)

	var sender outboundSender = mail.LogSender{}
	if !cfg.Mail.DryRun() {
		sender = mail.NewSMTPSender(cfg.Mail)
	} else {
		log.Warn("mail host is not configured, outbound messages will only be logged")
	}

	a.lifecycle = lifecycle.NewManager(a.applications, a.activity, sender, a.bus, cfg.Lifecycle)
	a.closers = append(a.closers, a.lifecycle.Wait)

	a.service = services.NewAutoApplyService(services.Dependencies{
		Scanner:      scanner.NewScanner(webClient, extractor.New(generator), cfg.Scanner),
		Scans:        a.scans,
		Criteria:     a.criteria,
		Profiles:     a.profiles,
		Applications: a.applications,
		Composer:     outreach.NewComposer(generator),
		Lifecycle:    a.lifecycle,
		Bus:          a.bus,
	}, services.Settings{
		Matching:    cfg.Matching,
		Dispatch:    cfg.Dispatch,
		MatchWindow: cfg.Scanner.MatchWindow,
	})
	a.dispatcher = services.NewBatchDispatcher(a.service)

	return a, nil
}

// newGenerator builds the provider chain. It returns nil when no provider is configured,
// which keeps extraction structural and letters templated.
func (a *app) newGenerator(ctx context.Context) (generative.Generator, error) {
	cfg := a.cfg.AI
	var providers []generative.Provider

	for _, name := range cfg.Providers {
		switch strings.ToLower(name) {
		case config.ProviderGemini:
			client, err := gemini.NewClient(ctx, cfg.GeminiKey, gemini.Model(cfg.GeminiModel))
			if err != nil {
				return nil, fmt.Errorf("can't create gemini client: %w", err)
			}
			client.SetMaxTokens(cfg.MaxTokens)
			client.SetMinuteRateLimit(cfg.MaxRequestsPerMinute)
			client.SetDayRateLimit(cfg.MaxRequestsPerDay)
			a.closers = append(a.closers, func() { _ = client.Close() })
			providers = append(providers, client)
		case config.ProviderClaude:
			client := claude.NewClient(cfg.ClaudeKey, cfg.ClaudeModel, cfg.MaxTokens)
			client.SetMinuteRateLimit(cfg.MaxRequestsPerMinute)
			providers = append(providers, client)
		}
	}

	if len(providers) == 0 {
		log.Info("no generative provider configured, using templates only")
		return nil, nil
	}
	return generative.NewChain(cfg.Timeout, providers...), nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
