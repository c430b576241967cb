package emitters

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"feedgate/internal/interfaces"
	"feedgate/internal/models"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the emitter uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes settlement events as JSON keyed by cycle number.
type KafkaEmitter struct {
	writer MessageWriter
	logger *zerolog.Logger
	mu     sync.Mutex
}

var _ interfaces.EventEmitter = (*KafkaEmitter)(nil)

// NewKafkaEmitter creates a new KafkaEmitter
func NewKafkaEmitter(brokerAddress, topic string, batchTimeout time.Duration, logger *zerolog.Logger) *KafkaEmitter {
	return NewKafkaEmitterWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokerAddress),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireAll,
	}, logger)
}

// NewKafkaEmitterWithWriter wraps an existing writer.
func NewKafkaEmitterWithWriter(writer MessageWriter, logger *zerolog.Logger) *KafkaEmitter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &KafkaEmitter{writer: writer, logger: logger}
}

func (k *KafkaEmitter) EmitEvent(ctx context.Context, event models.SettlementEvent) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer == nil {
		return fmt.Errorf("kafka emitter is closed")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(event.Cycle, 10)),
		Value: value,
		Time:  event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	k.logger.Info().
		Uint64("cycle", event.Cycle).
		Str("outcome", event.Outcome).
		Msg("Successfully emitted settlement event to Kafka")
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
