package events

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"feedgate/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubEmitter struct {
	got []models.SettlementEvent
	err error
}

func (s *stubEmitter) EmitEvent(_ context.Context, event models.SettlementEvent) error {
	s.got = append(s.got, event)
	return s.err
}

func TestLogEmitterLogsAndForwards(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	inner := &stubEmitter{}
	emitter := &LogEmitter{WrappedEmitter: inner, Logger: &logger}

	err := emitter.EmitEvent(context.Background(), models.SettlementEvent{Cycle: 3, Outcome: "idle"})
	assert.NoError(t, err)
	assert.Len(t, inner.got, 1)
	assert.Contains(t, buf.String(), `"outcome":"idle"`)
	assert.Contains(t, buf.String(), `"level":"debug"`)
}

func TestLogEmitterRecordsFailureStage(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	emitter := &LogEmitter{Logger: &logger}

	err := emitter.EmitEvent(context.Background(), models.SettlementEvent{Outcome: "failed", Stage: "sign", Error: "boom"})
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"stage":"sign"`)
}

func TestLogEmitterReturnsWrappedError(t *testing.T) {
	boom := errors.New("boom")
	emitter := &LogEmitter{WrappedEmitter: &stubEmitter{err: boom}}

	assert.ErrorIs(t, emitter.EmitEvent(context.Background(), models.SettlementEvent{}), boom)
}
