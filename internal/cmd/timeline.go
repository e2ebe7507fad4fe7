package main

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/matchday/livebet/internal/betting/orchestrator"
)

// runTimeline plays a scripted list of match events into the orchestrator.
// Offsets are relative to the start of the timeline, so entries must be
// sorted by offset in the config.
func runTimeline(ctx context.Context, clock clockwork.Clock, entries []TimelineEntry, orch *orchestrator.Orchestrator) {
	if len(entries) == 0 {
		return
	}

	log.Info().Int("events", len(entries)).Msg("starting scripted match timeline")

	start := clock.Now()
	for _, entry := range entries {
		fireAt := start.Add(time.Duration(entry.OffsetSeconds) * time.Second)
		wait := fireAt.Sub(clock.Now())
		if wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-clock.After(wait):
			}
		}

		log.Info().
			Str("event_type", entry.Event.Type).
			Int("offset_seconds", entry.OffsetSeconds).
			Msg("timeline event")
		orch.HandleMatchEvent(entry.Event.matchEvent())
	}

	log.Info().Msg("scripted match timeline complete")
}
