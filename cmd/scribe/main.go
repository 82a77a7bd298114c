package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scribe-bot/scribe/internal/accounting"
	"github.com/scribe-bot/scribe/internal/commands"
	"github.com/scribe-bot/scribe/internal/config"
	"github.com/scribe-bot/scribe/internal/goal"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/mgmt"
	"github.com/scribe-bot/scribe/internal/reminder"
	"github.com/scribe-bot/scribe/internal/scheduler"
	"github.com/scribe-bot/scribe/internal/slackbot"
	"github.com/scribe-bot/scribe/internal/sprint"
	"github.com/scribe-bot/scribe/internal/store"
)

// logNotifier stands in for the Slack Messenger when no tokens are
// configured. Engine output goes to the log instead of a channel.
type logNotifier struct {
	logger zerolog.Logger
}

func (n *logNotifier) Send(channel, text string) error {
	n.logger.Info().Str("channel", channel).Str("text", text).Msg("notification (slack disabled)")
	return nil
}

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("db_path", cfg.DBPath).
		Str("mgmt_addr", cfg.MgmtListenAddr).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Msg("starting scribe")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Storage
	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}

	// Message packs, with per-guild language resolved from guild settings
	langStore, err := lang.Load(func(guild string) string {
		code, lookupErr := st.GetGuildSetting(guild, store.SettingLang)
		if lookupErr != nil {
			return ""
		}
		return code
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load message packs")
	}

	m := metrics.New()
	applier := accounting.NewApplier(st, logger)
	dispatcher := scheduler.New(st, m, cfg.DispatcherTick, logger)

	// Slack connection is optional, gated on tokens being set. The engines
	// post through a Messenger when connected, the log otherwise.
	var slackApp *slackbot.App
	var notifier interface {
		Send(channel, text string) error
	} = &logNotifier{logger: logger}

	if cfg.SlackEnabled() {
		slackApp, err = slackbot.NewApp(cfg.SlackBotToken, cfg.SlackAppToken, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init Slack app")
		}
		notifier = slackbot.NewMessenger(slackApp.API(), logger)
	} else {
		logger.Info().Msg("Slack not configured, notifications go to the log")
	}

	// Sprint engine
	sprintMgr := sprint.New(st, m, langStore, applier, notifier, sprint.Options{
		DefaultLength: cfg.SprintDefaultLength,
		MaxLength:     cfg.SprintMaxLength,
		DefaultDelay:  cfg.SprintDefaultDelay,
		MaxDelay:      cfg.SprintMaxDelay,
		WPMCeiling:    cfg.WPMCeiling,
	}, logger)
	sprintMgr.Register(dispatcher)

	// Goal engine
	goalMgr := goal.NewManager(st, langStore, logger)
	goalEngine := goal.NewEngine(st, m, logger)
	if err := goalEngine.Register(dispatcher); err != nil {
		logger.Fatal().Err(err).Msg("failed to arm goal reset task")
	}

	// Reminder engine
	remEngine := reminder.New(st, m, langStore, notifier, cfg.ReminderStaleCutoff, logger)
	if err := remEngine.Register(dispatcher); err != nil {
		logger.Fatal().Err(err).Msg("failed to arm reminder sweep task")
	}

	// Command registry
	registry := commands.NewRegistry(st, m, langStore, logger)
	registry.Register(
		&commands.SprintCommand{Manager: sprintMgr, Lang: langStore},
		&commands.WroteCommand{Store: st, Applier: applier, Lang: langStore},
		&commands.GoalCommand{Manager: goalMgr, Lang: langStore},
		&commands.RemindCommand{Engine: remEngine, Lang: langStore},
		&commands.ChallengeCommand{Store: st, Lang: langStore},
		&commands.ProjectCommand{Store: st, Lang: langStore},
		&commands.ResetCommand{Store: st, Lang: langStore},
		&commands.XPCommand{Store: st, Lang: langStore},
		&commands.MySettingCommand{Store: st, Lang: langStore},
		&commands.SettingCommand{Store: st, Lang: langStore, KnownCommand: registry.Known},
	)

	if err := dispatcher.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start dispatcher")
	}

	var wg sync.WaitGroup

	// Start Slack Socket Mode loop
	if slackApp != nil {
		handler := slackbot.NewHandler(registry, notifier, cfg.Moderators, logger)
		slackApp.SetHandler(handler)

		if authResp, authErr := slackApp.API().AuthTest(); authErr == nil {
			logger.Info().Str("bot_user_id", authResp.UserID).Msg("Slack bot identity resolved")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := slackApp.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Slack Socket Mode error")
			}
		}()
	}

	// Management API
	mgmtServer := mgmt.NewServer(mgmt.Config{
		ListenAddr: cfg.MgmtListenAddr,
		APIKey:     cfg.MgmtAPIKey,
	}, st, m, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mgmtServer.Start(); err != nil {
			logger.Error().Err(err).Msg("management API server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()
	dispatcher.Stop()

	if err := mgmtServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("management API server shutdown error")
	}

	// Wait for in-flight work to complete
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	if err := st.Close(); err != nil {
		logger.Error().Err(err).Msg("store close error")
	}

	logger.Info().Msg("scribe stopped")
}
