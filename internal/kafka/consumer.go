package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"backoffice-alerts/internal/events"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
)

type Config struct {
	Broker  string
	Topic   string
	GroupID string
}

// envelope is the message value published by the back-office CRUD layer.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Consumer reads CRUD events from Kafka and publishes them on the bus.
type Consumer struct {
	reader *kafka.Reader
	bus    *events.Bus
	log    *logrus.Entry
}

func NewConsumer(cfg Config, bus *events.Bus, logger *logging.Logger) (*Consumer, error) {
	if cfg.Broker == "" {
		return nil, errors.New("kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(cfg.Broker, ","),
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})
	return &Consumer{reader: reader, bus: bus, log: logger.WithComponent("kafka")}, nil
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.log.Infof("Kafka consumer started on %s", c.reader.Config().Topic)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info("Kafka consumer stopped")
					return
				}
				c.log.Errorf("Read message failed: %v", err)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			if err := c.Handle(msg.Value); err != nil {
				c.log.Errorf("Dropping message at offset %d: %v", msg.Offset, err)
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.log.Errorf("Commit failed: %v", err)
			}
		}
	}()
}

// Handle decodes one message value and publishes the event it carries.
func (c *Consumer) Handle(value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("unmarshal message failed: %w", err)
	}
	evt, err := events.Decode(env.Type, env.Data)
	if err != nil {
		return err
	}
	metrics.EventsReceivedTotal.WithLabelValues(env.Type, "kafka").Inc()
	if n := c.bus.Publish(evt); n == 0 {
		c.log.Debugf("No subscribers for %s", env.Type)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
