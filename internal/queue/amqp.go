package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/utils"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	DefaultQueue    = "analyses"
	DefaultExchange = "analysis_updates"
	DefaultWorkers  = 3

	defaultDialAttempts = 5
)

var (
	dialAMQP    = amqp.Dial
	dialBackoff = 500 * time.Millisecond
)

type Config struct {
	URL             string
	Queue           string
	UpdatesExchange string
	Workers         int
	// DialAttempts bounds how often Dial tries to reach the broker before giving up.
	DialAttempts    int
}

func (c Config) withDefaults() Config {
	if c.Queue == "" {
		c.Queue = DefaultQueue
	}
	if c.UpdatesExchange == "" {
		c.UpdatesExchange = DefaultExchange
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.DialAttempts <= 0 {
		c.DialAttempts = defaultDialAttempts
	}
	return c
}

// Broker is a RabbitMQ connection used to enqueue analyses, consume them and publish updates.
type Broker struct {
	conn   *amqp.Connection
	cfg    Config
	logger *zap.Logger
}

// Dial connects to RabbitMQ and declares the work queue and the updates topic exchange.
// The connection is retried with a growing pause so a worker may start before the broker.
func Dial(ctx context.Context, cfg Config, log *zap.Logger) (*Broker, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("queue url is required")
	}
	cfg = cfg.withDefaults()
	log = logger.OrNop(log)

	conn, err := connect(ctx, cfg.URL, cfg.DialAttempts, log)
	if err != nil {
		return nil, err
	}

	b := &Broker{conn: conn, cfg: cfg, logger: log}
	if err := b.declare(); err != nil {
		conn.Close()
		return nil, err
	}

	return b, nil
}

func connect(ctx context.Context, url string, attempts int, log *zap.Logger) (*amqp.Connection, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := dialAMQP(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		wait := dialBackoff * time.Duration(i+1)
		log.Warn("rabbitmq is not reachable yet",
			zap.Int("attempt", i+1),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		if err := utils.WaitFor(ctx, wait); err != nil {
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
	}
	return nil, fmt.Errorf("dial rabbitmq after %d attempts: %w", attempts, lastErr)
}

func (b *Broker) declare() error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(b.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", b.cfg.Queue, err)
	}
	if err := ch.ExchangeDeclare(b.cfg.UpdatesExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", b.cfg.UpdatesExchange, err)
	}
	return nil
}

func (b *Broker) Close() error {
	return b.conn.Close()
}

// Enqueue publishes msg to the work queue and returns its analysis id.
func (b *Broker) Enqueue(_ context.Context, msg Message) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	if err := b.publish("", b.cfg.Queue, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Body:         body,
	}); err != nil {
		return "", fmt.Errorf("enqueue analysis %s: %w", msg.ID, err)
	}

	return msg.ID, nil
}

// Publish sends update to the updates exchange under RoutingKey(update.AnalysisID).
func (b *Broker) Publish(_ context.Context, update Update) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	return b.publish(b.cfg.UpdatesExchange, RoutingKey(update.AnalysisID), amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   update.Timestamp,
		Body:        body,
	})
}

func (b *Broker) publish(exchange, key string, msg amqp.Publishing) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	return ch.Publish(exchange, key, false, false, msg)
}

// Consume starts cfg.Workers consumers, each on its own channel, and blocks until ctx is
// cancelled or a consumer's delivery channel closes. Failed deliveries are rejected without
// requeue unless the failure came from shutdown.
func (b *Broker) Consume(ctx context.Context, h *Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for i := range b.cfg.Workers {
		ch, err := b.conn.Channel()
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("open worker channel: %w", err)
		}
		if err := ch.Qos(1, 0, false); err != nil {
			ch.Close()
			cancel()
			wg.Wait()
			return fmt.Errorf("set qos: %w", err)
		}

		deliveries, err := ch.Consume(b.cfg.Queue, fmt.Sprintf("resume-analyzer-%d", i+1), false, false, false, false, nil)
		if err != nil {
			ch.Close()
			cancel()
			wg.Wait()
			return fmt.Errorf("consume %s: %w", b.cfg.Queue, err)
		}

		wg.Add(1)
		go func(worker int, ch *amqp.Channel) {
			defer wg.Done()
			defer ch.Close()

			log := b.logger.With(zap.Int("worker", worker))
			log.Info("worker started", zap.String("queue", b.cfg.Queue))

			err := work(ctx, deliveries, h, log)
			if err != nil {
				errOnce.Do(func() { firstErr = err })
			}
			cancel()
		}(i+1, ch)
	}

	wg.Wait()
	return firstErr
}

type delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func work(ctx context.Context, deliveries <-chan amqp.Delivery, h *Handler, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			settle(ctx, &d, d.Body, h, log)
		}
	}
}

func settle(ctx context.Context, d delivery, body []byte, h *Handler, log *zap.Logger) {
	if err := h.Handle(ctx, body); err != nil {
		requeue := ctx.Err() != nil
		log.Warn("rejecting message", zap.Bool("requeue", requeue), zap.Error(err))
		if err := d.Nack(false, requeue); err != nil {
			log.Error("failed to nack message", zap.Error(err))
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Error("failed to ack message", zap.Error(err))
	}
}
