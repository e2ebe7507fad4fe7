package gateway

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Controls is what a rendering client may drive through the gateway: panel
// presentation and bet decisions. The orchestrator side implements it.
type Controls interface {
	Minimize()
	Restore()
	Skip(opportunityID uuid.UUID) error
	Place(ctx context.Context, opportunityID uuid.UUID, choiceID string, stake decimal.Decimal) error
}

type noopControls struct{}

func (noopControls) Minimize() {}
func (noopControls) Restore()  {}
func (noopControls) Skip(uuid.UUID) error {
	return nil
}
func (noopControls) Place(context.Context, uuid.UUID, string, decimal.Decimal) error {
	return nil
}

// handleCommand decodes and applies a client command. Malformed payloads are
// logged no-ops; the state machine never breaks on garbage input.
func (cm *ConnectionManager) handleCommand(connID string, data []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Debug().Err(err).Str("conn_id", connID).Msg("malformed client command; ignoring")
		return
	}

	switch cmd.Action {
	case "minimize":
		cm.controls.Minimize()
	case "restore":
		cm.controls.Restore()
	case "skip":
		oppID, err := uuid.Parse(cmd.OpportunityID)
		if err != nil {
			log.Debug().Str("conn_id", connID).Str("opportunity_id", cmd.OpportunityID).Msg("skip with bad opportunity id")
			return
		}
		if err := cm.controls.Skip(oppID); err != nil {
			log.Debug().Err(err).Str("conn_id", connID).Msg("skip rejected")
		}
	case "place_bet":
		oppID, err := uuid.Parse(cmd.OpportunityID)
		if err != nil {
			log.Debug().Str("conn_id", connID).Str("opportunity_id", cmd.OpportunityID).Msg("place_bet with bad opportunity id")
			return
		}
		stake, err := decimal.NewFromString(cmd.Stake)
		if err != nil {
			log.Debug().Str("conn_id", connID).Str("stake", cmd.Stake).Msg("place_bet with unparseable stake")
			return
		}
		if err := cm.controls.Place(context.Background(), oppID, cmd.ChoiceID, stake); err != nil {
			log.Info().Err(err).Str("conn_id", connID).Msg("bet rejected")
		}
	default:
		log.Debug().Str("conn_id", connID).Str("action", cmd.Action).Msg("unknown client action; ignoring")
	}
}
