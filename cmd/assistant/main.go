package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"avr-control/config"
	"avr-control/internal/application"
	"avr-control/internal/domain"
	"avr-control/internal/infra/alexa"
	"avr-control/internal/infra/bridge"
	"avr-control/internal/infra/link"
	"avr-control/internal/infra/mcpserver"
	"avr-control/internal/infra/pioneer"
	"avr-control/internal/infra/pushover"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log, cfg.MCP.Enabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	timing := cfg.AVR.Timing
	dur := func(name, value string, def time.Duration) time.Duration {
		d, ok := config.Duration(value, def)
		if !ok {
			logger.Warn("invalid duration, using default", "setting", name, "value", value, "default", def)
		}
		return d
	}

	codec := pioneer.NewCodec(cfg.AVR.VolumeCeiling, cfg.AVR.PowerOffAck)
	b := bridge.New(logger)

	manager := link.NewManager(
		createDialer(cfg.AVR, dur("dial_timeout", timing.DialTimeout, 5*time.Second)),
		b,
		link.Config{
			ResponseWindow: dur("response_window", timing.ResponseWindow, 500*time.Millisecond),
			ReconnectDelay: dur("reconnect_delay", timing.ReconnectDelay, 10*time.Second),
			SilenceTimeout: dur("silence_timeout", timing.SilenceTimeout, 0),
			Terminator:     pioneer.ResponseTerminator,
			IsNoise:        pioneer.IsHeartbeat,
			SkipLeading:    []string{codec.Encode(domain.PowerOn())},
		},
		logger,
	)

	managerDone := make(chan struct{})
	go func() {
		defer close(managerDone)
		manager.Run(ctx)
	}()

	orchestrator := application.NewOrchestrator(
		codec,
		b,
		application.Timing{
			ReplyTimeout:  dur("reply_timeout", timing.ReplyTimeout, 1500*time.Millisecond),
			PowerOnSettle: dur("power_on_settle", timing.PowerOnSettle, time.Second),
			VolumeSettle:  dur("volume_settle", timing.VolumeSettle, 2*time.Second),
		},
		cfg.AVR.VolumeStep,
		logger,
	)

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
	} else {
		notifier = &application.NoopNotifier{}
	}

	assistant := application.NewAssistant(orchestrator, notifier, logger)

	webhook := alexa.NewServer(
		alexa.Config{
			Addr:      cfg.HTTP.Addr,
			AuthToken: cfg.HTTP.AuthToken,
			JWTSecret: cfg.HTTP.JWTSecret,
			RateLimit: cfg.HTTP.RateLimit,
		},
		assistant,
		func() string { return manager.State().String() },
		logger,
	)

	logger.Info("starting avr control",
		"version", version,
		"link", cfg.AVR.Link,
		"http_addr", cfg.HTTP.Addr,
		"mcp", cfg.MCP.Enabled,
	)

	if err := webhook.Start(ctx); err != nil {
		logger.Error("starting webhook", "error", err)
		os.Exit(1)
	}

	if cfg.MCP.Enabled {
		go func() {
			if err := mcpserver.NewServer(assistant, version, logger).Run(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("MCP server error", "error", err)
			}
		}()
	}

	<-ctx.Done()

	if err := webhook.Stop(); err != nil {
		logger.Error("stopping webhook", "error", err)
	}
	<-managerDone
}

func createDialer(cfg config.AVRConfig, timeout time.Duration) link.Dialer {
	if cfg.Link == "serial" {
		return link.SerialDialer{Device: cfg.SerialDevice, BaudRate: cfg.BaudRate}
	}
	return link.TCPDialer{Addr: cfg.Addr(), Timeout: timeout}
}

// setupLogger writes to stdout, or stderr when stdout carries the MCP
// protocol. A configured file is rotated instead.
func setupLogger(cfg config.LogConfig, mcpEnabled bool) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	if mcpEnabled {
		out = os.Stderr
	}
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
