package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink mirrors samples onto a Kafka topic, keyed by sensor name so one
// sensor's samples stay ordered within a partition.
type KafkaSink struct {
	writer kafkaMessageWriter
	topic  string
}

// NewKafkaSink returns an async writer; WriteMessages never blocks on the
// brokers and failures are logged from the completion callback.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Warnf("kafka: %d messages lost: %v", len(msgs), err)
			}
		},
	}
	return &KafkaSink{writer: w, topic: topic}
}

func (k *KafkaSink) Emit(s sample.SensorSample) {
	msg, err := kafkaMessage(s)
	if err != nil {
		log.Printf("kafka: %v", err)
		return
	}
	if err := k.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Warnf("kafka: write to %s: %v", k.topic, err)
	}
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

func kafkaMessage(s sample.SensorSample) (kafka.Message, error) {
	value, err := json.Marshal(s)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s sample: %w", s.SensorID, err)
	}
	return kafka.Message{
		Key:   []byte(s.SensorID.Name()),
		Value: value,
		Time:  time.UnixMilli(s.Timestamp),
	}, nil
}
