package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/matchday/livebet/internal/betting/opportunity"
)

// TimelineEntry is one scripted match event, fired OffsetSeconds after the
// demo timeline starts.
type TimelineEntry struct {
	OffsetSeconds int           `yaml:"offset_seconds"`
	Event         TimelineEvent `yaml:"event"`
}

// TimelineEvent mirrors opportunity.MatchEvent with yaml tags.
type TimelineEvent struct {
	Type        string           `yaml:"type"`
	Minute      int              `yaml:"minute"`
	Description string           `yaml:"description"`
	Choices     []TimelineChoice `yaml:"choices"`
	WindowMs    float64          `yaml:"window_ms"`
}

type TimelineChoice struct {
	ID    string          `yaml:"id"`
	Label string          `yaml:"label"`
	Odds  decimal.Decimal `yaml:"odds"`
}

func (e TimelineEvent) matchEvent() opportunity.MatchEvent {
	evt := opportunity.MatchEvent{
		Type:        e.Type,
		Minute:      e.Minute,
		Description: e.Description,
		WindowMs:    e.WindowMs,
	}
	for _, ch := range e.Choices {
		evt.Choices = append(evt.Choices, opportunity.Choice{
			ID:    ch.ID,
			Label: ch.Label,
			Odds:  ch.Odds,
		})
	}
	return evt
}

type Config struct {
	Session struct {
		BettingWindowSeconds   int `yaml:"betting_window_seconds"`
		PauseGraceSeconds      int `yaml:"pause_grace_seconds"`
		ResumeCountdownSeconds int `yaml:"resume_countdown_seconds"`
		QueueStaleSeconds      int `yaml:"queue_stale_seconds"`
	} `yaml:"session"`

	Match struct {
		// Speed is simulated match seconds per real second. 1 is real time.
		Speed int `yaml:"speed"`
	} `yaml:"match"`

	Feed struct {
		Enabled bool   `yaml:"enabled"`
		Subject string `yaml:"subject"`
	} `yaml:"feed"`

	Timeline []TimelineEntry `yaml:"timeline"`
}

func (c *Config) bettingWindow() time.Duration {
	return time.Duration(c.Session.BettingWindowSeconds) * time.Second
}

func (c *Config) pauseGrace() time.Duration {
	return time.Duration(c.Session.PauseGraceSeconds) * time.Second
}

func (c *Config) queueStale() time.Duration {
	return time.Duration(c.Session.QueueStaleSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}
