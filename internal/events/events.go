package events

import (
	"context"

	"feedgate/internal/interfaces"
	"feedgate/internal/models"

	"github.com/rs/zerolog"
)

// LogEmitter writes the full event payload at debug level and forwards it to
// the wrapped emitter, if any.
type LogEmitter struct {
	WrappedEmitter interfaces.EventEmitter
	Logger         *zerolog.Logger
}

var _ interfaces.EventEmitter = (*LogEmitter)(nil)

func (d *LogEmitter) EmitEvent(ctx context.Context, event models.SettlementEvent) error {
	if d.Logger != nil {
		d.Logger.Debug().
			Uint64("cycle", event.Cycle).
			Str("outcome", event.Outcome).
			Str("stage", event.Stage).
			Str("error", event.Error).
			Int("inputs", event.Inputs).
			Int64("total_sat", int64(event.Total)).
			Int64("fee_sat", int64(event.Fee)).
			Str("destination", event.Destination).
			Str("txid", event.TxID).
			Time("timestamp", event.Timestamp).
			Msg("Settlement event")
	}

	if d.WrappedEmitter != nil {
		return d.WrappedEmitter.EmitEvent(ctx, event)
	}
	return nil
}
