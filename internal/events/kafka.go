package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// deliveryTimeout bounds how long a record may be retried against unreachable brokers
const deliveryTimeout = 10 * time.Second

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher produces avro-encoded events keyed by product id
type KafkaPublisher struct {
	cl     ProducerClient
	codec  *Codec
	logger *zap.Logger
}

// NewKafkaPublisher connects a producer that writes to topic
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.AllowAutoTopicCreation(),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	p, err := NewKafkaPublisherWithClient(cl, logger)
	if err != nil {
		cl.Close()
		return nil, err
	}
	return p, nil
}

func NewKafkaPublisherWithClient(cl ProducerClient, logger *zap.Logger) (*KafkaPublisher, error) {
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{cl: cl, codec: codec, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := p.codec.Encode(e)
	if err != nil {
		return err
	}

	r := &kgo.Record{
		Key:   []byte(strconv.FormatUint(uint64(e.ProductID), 10)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}
	if err := p.cl.ProduceSync(ctx, r).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce %s event: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() {
	p.logger.Info("Closing event producer...")
	p.cl.Close()
	p.logger.Info("Event producer is closed")
}
