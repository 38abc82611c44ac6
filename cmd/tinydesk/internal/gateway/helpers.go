package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/tinyland-inc/tinydesk/cmd/tinydesk/internal"
	"github.com/tinyland-inc/tinydesk/pkg/audit"
	"github.com/tinyland-inc/tinydesk/pkg/bus"
	"github.com/tinyland-inc/tinydesk/pkg/channels"
	"github.com/tinyland-inc/tinydesk/pkg/config"
	"github.com/tinyland-inc/tinydesk/pkg/generate"
	"github.com/tinyland-inc/tinydesk/pkg/locale"
	"github.com/tinyland-inc/tinydesk/pkg/logger"
	"github.com/tinyland-inc/tinydesk/pkg/relay"
	"github.com/tinyland-inc/tinydesk/pkg/store"
)

func gatewayCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured (set TINYDESK_TELEGRAM_TOKEN or edit %s)", internal.GetConfigPath())
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("error creating data dir: %w", err)
	}

	kv, err := store.OpenPebble(filepath.Join(cfg.Storage.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("error opening state store: %w", err)
	}

	journal, err := audit.Open(cfg.Storage.AuditPath)
	if err != nil {
		kv.Close()
		return fmt.Errorf("error opening audit log: %w", err)
	}

	generator := buildGenerator(cfg)
	eventBus := bus.NewEventBus()

	telegram, err := channels.NewTelegramChannel(
		cfg.Telegram.Token,
		cfg.Relay.SupportChatID,
		eventBus,
		cfg.Telegram.AllowFrom,
	)
	if err != nil {
		kv.Close()
		return fmt.Errorf("error creating telegram channel: %w", err)
	}

	orch := relay.NewOrchestrator(
		relay.Options{
			SupportChatID: strconv.FormatInt(cfg.Relay.SupportChatID, 10),
			TopicID:       cfg.Relay.TopicID,
			Autoreply:     cfg.Autoreply.Enabled,
			Languages:     cfg.Languages.Supported,
		},
		telegram,
		relay.NewIdentityStore(kv, cfg.Languages.Default),
		relay.NewRelayMap(kv),
		relay.NewAutoreplyWorkflow(kv),
		journal,
		generator,
		locale.NewTable(cfg.Languages.Default),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := telegram.Start(ctx); err != nil {
		kv.Close()
		return fmt.Errorf("error starting telegram channel: %w", err)
	}

	fmt.Printf("✓ Support chat: %d", cfg.Relay.SupportChatID)
	if cfg.Relay.TopicID != 0 {
		fmt.Printf(" (topic %d)", cfg.Relay.TopicID)
	}
	fmt.Println()
	fmt.Printf("✓ Languages: %v (default %s)\n", cfg.Languages.Supported, cfg.Languages.Default)
	if cfg.Autoreply.Enabled {
		fmt.Println("✓ Autoreply workflow enabled")
	}
	fmt.Printf("✓ Audit log: %s\n", cfg.Storage.AuditPath)
	fmt.Println("✓ Gateway started")
	fmt.Println("Press Ctrl+C to stop")

	// Single consumer loop: events are handled strictly one at a time so
	// routing-state writes never interleave.
	go func() {
		for {
			ev, ok := eventBus.Consume(ctx)
			if !ok {
				return
			}
			if err := orch.HandleEvent(ctx, ev); err != nil {
				logger.ErrorCF("gateway", "Event handling failed", map[string]any{
					"error": err.Error(),
					"scope": ev.Scope,
				})
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	telegram.Stop(context.Background())
	eventBus.Close()
	if err := kv.Close(); err != nil {
		logger.WarnCF("gateway", "State store close failed", map[string]any{"error": err.Error()})
	}
	fmt.Println("✓ Gateway stopped")

	return nil
}

func buildGenerator(cfg *config.Config) generate.Generator {
	if cfg.Autoreply.Enabled && cfg.Autoreply.AnthropicAPIKey != "" {
		logger.InfoCF("gateway", "Anthropic autoreply generation enabled", map[string]any{
			"model": cfg.Autoreply.Model,
		})
		return generate.NewAnthropic(
			cfg.Autoreply.AnthropicAPIKey,
			cfg.Autoreply.AnthropicAPIBase,
			cfg.Autoreply.Model,
			cfg.Autoreply.MaxTokens,
		)
	}
	return generate.Placeholder{}
}
