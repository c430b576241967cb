package interfaces

import (
	"context"

	"feedgate/internal/models"
)

// EventEmitter defines the interface for emitting settlement events
type EventEmitter interface {
	EmitEvent(ctx context.Context, event models.SettlementEvent) error
}
