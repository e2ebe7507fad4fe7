package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/matchday/livebet/internal/betting/orchestrator"
	"github.com/matchday/livebet/internal/betting/pause"
	"github.com/matchday/livebet/internal/betting/gateway"
	"github.com/matchday/livebet/internal/betting/opportunity"
	"github.com/matchday/livebet/internal/matchclock"
)

// sessionControls adapts client commands from the gateway onto the
// orchestrator and panel. The orchestrator is bound after the connection
// manager exists, so the field is set late.
type sessionControls struct {
	mu   sync.RWMutex
	orch *orchestrator.Orchestrator
}

func (s *sessionControls) bind(orch *orchestrator.Orchestrator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orch = orch
}

func (s *sessionControls) get() *orchestrator.Orchestrator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orch
}

func (s *sessionControls) Minimize() {
	if orch := s.get(); orch != nil {
		orch.Panel().Minimize()
	}
}

func (s *sessionControls) Restore() {
	if orch := s.get(); orch != nil {
		orch.Panel().Restore()
	}
}

func (s *sessionControls) Skip(oppID uuid.UUID) error {
	orch := s.get()
	if orch == nil {
		return orchestrator.ErrNoActiveOpportunity
	}
	return orch.SkipBet(oppID)
}

func (s *sessionControls) Place(ctx context.Context, oppID uuid.UUID, choiceID string, stake decimal.Decimal) error {
	orch := s.get()
	if orch == nil {
		return orchestrator.ErrNoActiveOpportunity
	}
	return orch.PlaceBet(ctx, oppID, choiceID, stake)
}

// sessionState serves the reconnect snapshot.
type sessionState struct {
	orch  *orchestrator.Orchestrator
	coord *pause.Coordinator
	mc    *matchclock.Clock
}

func (s *sessionState) GameState() gateway.GameState {
	state := gateway.GameState{
		QueueLength: s.orch.Queue().Len(),
	}

	ps := s.coord.Snapshot()
	state.Paused = ps.Active
	state.PauseReason = ps.Reason

	if mt, err := json.Marshal(s.mc.Snapshot()); err == nil {
		state.MatchTime = mt
	}

	if active := s.orch.Active(); active != nil {
		snap := struct {
			ID          string               `json:"id"`
			Type        string               `json:"type"`
			Description string               `json:"description"`
			Choices     []opportunity.Choice `json:"choices,omitempty"`
			Priority    int                  `json:"priority"`
			RemainingMs int64                `json:"remaining_ms"`
		}{
			ID:          active.ID.String(),
			Type:        active.Type,
			Description: active.Description,
			Choices:     active.Choices,
			Priority:    active.Priority,
			RemainingMs: s.orch.Panel().RemainingTime().Milliseconds(),
		}
		if raw, err := json.Marshal(snap); err == nil {
			state.Opportunity = raw
		}
	}

	return state
}

// demoWallet is the stand-in bookkeeping boundary for the demo binary. It
// keeps a balance so over-stake is rejected, and logs every accepted bet.
type demoWallet struct {
	mu      sync.Mutex
	balance decimal.Decimal
}

func newDemoWallet(balance decimal.Decimal) *demoWallet {
	return &demoWallet{balance: balance}
}

func (w *demoWallet) RecordBet(_ context.Context, oppID uuid.UUID, choiceID string, stake decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if stake.GreaterThan(w.balance) {
		return orchestrator.ErrInvalidStake
	}
	w.balance = w.balance.Sub(stake)

	log.Info().
		Str("opportunity_id", oppID.String()).
		Str("choice_id", choiceID).
		Str("stake", stake.String()).
		Str("balance", w.balance.String()).
		Msg("bet recorded")
	return nil
}
