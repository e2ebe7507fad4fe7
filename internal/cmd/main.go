package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/matchday/livebet/internal/betting/events"
	"github.com/matchday/livebet/internal/betting/feed"
	"github.com/matchday/livebet/internal/betting/gateway"
	"github.com/matchday/livebet/internal/betting/orchestrator"
	"github.com/matchday/livebet/internal/betting/panel"
	"github.com/matchday/livebet/internal/betting/pause"
	"github.com/matchday/livebet/internal/matchclock"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	config, err := loadConfig(configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("no config file, using defaults")
		config = &Config{}
	}

	clock := clockwork.NewRealClock()

	// Pause coordination and the betting panel
	coord := pause.NewCoordinator(clock)
	pnl := panel.NewPanel(clock, panel.NoopIndicator{})

	// Gateway first: it is the orchestrator's event sink, and its controls
	// are bound to the orchestrator once that exists.
	controls := &sessionControls{}
	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), controls)

	wallet := newDemoWallet(decimal.NewFromInt(int64(getEnvAsInt("DEMO_BALANCE", 1000))))

	orch := orchestrator.New(orchestrator.Config{
		BettingWindow:   config.bettingWindow(),
		PauseGrace:      config.pauseGrace(),
		ResumeCountdown: config.Session.ResumeCountdownSeconds,
		QueueStaleAfter: config.queueStale(),
	}, clock, coord, pnl, wallet, manager)
	controls.bind(orch)

	// Simulated match clock, frozen while the coordinator holds a pause
	speed := config.Match.Speed
	if speed <= 0 {
		speed = getEnvAsInt("MATCH_SPEED", 1)
	}
	mc := matchclock.New(clock, coord, speed)
	mc.Subscribe(func(mt matchclock.MatchTime) {
		manager.Publish(events.TypeMatchClockSync, events.MatchClockSyncPayload{
			Minute:  mt.Minute,
			Second:  mt.Second,
			Display: mt.Display,
			Paused:  mt.Paused,
		})
	})

	state := &sessionState{orch: orch, coord: coord, mc: mc}
	handler := gateway.NewHandler(manager, state)
	server := setupServer(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go manager.Run(ctx)
	go mc.Run(ctx)

	// Live feed or scripted timeline, whichever the config asks for
	var consumer *feed.Consumer
	if config.Feed.Enabled {
		natsURL := getEnv("NATS_URL", "nats://localhost:4222")
		consumer, err = feed.NewConsumer(natsURL, config.Feed.Subject, orch)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect match event feed")
		}
		if err := consumer.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start match event feed")
		}
	} else {
		go runTimeline(ctx, clock, config.Timeline, orch)
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error().Err(err).Msg("feed shutdown failed")
		}
	}

	orch.Shutdown()
	cancel()

	log.Info().Msg("livebet shutdown complete")
}
