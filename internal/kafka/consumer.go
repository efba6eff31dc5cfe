package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-playground/validator/v10"

	"github.com/pokercrm/playtime/internal/config"
	"github.com/pokercrm/playtime/internal/domain"
)

// SessionHandler merges imported play sessions
type SessionHandler interface {
	ImportSessions(ctx context.Context, sessions []domain.Session) (*domain.ImportResult, error)
}

var validate = validator.New()

// DecodeSession parses and validates one session message
func DecodeSession(data []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if err := validate.Struct(session); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return session, nil
}

// Consumer consumes play session messages from Kafka and merges them into
// the players' daily entries
type Consumer struct {
	config        *config.KafkaConfig
	handler       SessionHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler SessionHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		handler:       handler,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	// Each session gets a fresh ready channel; Start only waits on the first
	ready := c.ready

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		sessionReady := ready
		for {
			handler := &consumerGroupHandler{
				consumer: c,
				ready:    sessionReady,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if err == sarama.ErrClosedConsumerGroup {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			// Check if context was cancelled
			if c.ctx.Err() != nil {
				return
			}

			sessionReady = make(chan bool)
		}
	}()

	// Wait until consumer is ready
	select {
	case <-ready:
		c.logger.Info("Kafka consumer ready")
	case <-c.ctx.Done():
	}

	// Handle errors in separate goroutine
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from a topic partition. Messages are
// marked only after the batch holding them was merged, so a failed batch is
// redelivered; replays are skipped by the import fingerprint.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	cfg := h.consumer.config
	batch := make([]domain.Session, 0, cfg.BatchSize)
	var last *sarama.ConsumerMessage
	batchTimer := time.NewTimer(cfg.BatchTimeout)
	defer batchTimer.Stop()

	processBatch := func() error {
		if last == nil {
			return nil
		}

		if len(batch) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			result, err := h.consumer.handler.ImportSessions(ctx, batch)
			if err != nil {
				h.consumer.logger.Error("failed to process batch", "error", err, "batch_size", len(batch))
				return err
			}
			h.consumer.logger.Debug("processed batch",
				"batch_size", len(batch),
				"merged", result.Merged,
				"skipped", result.Skipped,
				"failed", result.Failed,
			)
		}

		session.MarkMessage(last, "")
		batch = batch[:0]
		last = nil
		return nil
	}

	for {
		select {
		case <-session.Context().Done():
			// Process remaining batch before exit
			_ = processBatch()
			return nil

		case <-batchTimer.C:
			if err := processBatch(); err != nil {
				return err
			}
			batchTimer.Reset(cfg.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				_ = processBatch()
				return nil
			}
			last = message

			s, err := DecodeSession(message.Value)
			if err != nil {
				h.consumer.logger.Warn("invalid session message",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				continue
			}
			if s.Source == "" {
				s.Source = fmt.Sprintf("kafka:%s/%d", message.Topic, message.Partition)
			}

			batch = append(batch, s)
			if len(batch) >= cfg.BatchSize {
				if err := processBatch(); err != nil {
					return err
				}
				batchTimer.Reset(cfg.BatchTimeout)
			}
		}
	}
}
