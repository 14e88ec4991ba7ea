/**
 * Asynq Queue Consumer for the OCR extraction worker
 *
 * Alternative to RedisConsumer that uses asynq for scheduling and retries.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/processor"
)

// TypeExtractDocument is the asynq task type handled by Consumer
const TypeExtractDocument = "extract-document"

// Consumer handles job consumption from Redis queue
type Consumer struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.DocumentProcessorInterface
	config    *ConsumerConfig
	logger    *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.DocumentProcessorInterface
	ProcessingTimeout int64 // milliseconds (default: 1800000 = 30 minutes)
}

// NewExtractTask builds the asynq task for payload
func NewExtractTask(payload JobPayload, opts ...asynq.Option) (*asynq.Task, error) {
	if payload.JobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}
	if payload.DocumentPath == "" && len(payload.DocumentBuffer) == 0 {
		return nil, fmt.Errorf("job %s has no document", payload.JobID)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	return asynq.NewTask(TypeExtractDocument, data, opts...), nil
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger("asynq-consumer")

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			// Exponential backoff: 5s, 10s, 20s ... capped at 60s
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error", "type", task.Type(), "error", err)
			}),
			Logger: logging.Base(),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		client:    client,
		server:    server,
		mux:       mux,
		processor: cfg.Processor,
		config:    cfg,
		logger:    logger,
	}

	mux.HandleFunc(TypeExtractDocument, consumer.handleExtractDocument)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start() error {
	c.logger.Info("Starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)
	return c.server.Start(c.mux)
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop() error {
	c.logger.Info("Stopping queue consumer")

	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}

	return nil
}

// Enqueue submits an extraction job onto the consumer's queue. A missing JobID is generated.
func (c *Consumer) Enqueue(ctx context.Context, payload JobPayload, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	task, err := NewExtractTask(withJobID(payload))
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.Queue(c.config.QueueName)}, opts...)
	return c.client.EnqueueContext(ctx, task, opts...)
}

func (c *Consumer) handleExtractDocument(ctx context.Context, task *asynq.Task) error {
	var payload JobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %v: %w", err, asynq.SkipRetry)
	}

	if err := c.processor.UpdateJobStatus(ctx, payload.JobID, StatusProcessing, nil); err != nil {
		c.logger.Warn("Failed to update status to processing", "job", payload.JobID, "error", err)
	}

	timeout := timeoutOrDefault(c.config.ProcessingTimeout)
	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := runJob(processCtx, c.processor, &payload, timeout, c.logger)
	if err != nil {
		if updateErr := c.processor.UpdateJobStatus(ctx, payload.JobID, StatusFailed, failureMetadata(err, 1)); updateErr != nil {
			c.logger.Warn("Failed to update status to failed", "job", payload.JobID, "error", updateErr)
		}
		if !retryable(err) {
			return fmt.Errorf("document extraction failed: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("document extraction failed: %w", err)
	}

	if err := c.processor.UpdateJobStatus(ctx, payload.JobID, StatusCompleted, completionMetadata(result)); err != nil {
		c.logger.Warn("Failed to update status to completed", "job", payload.JobID, "error", err)
	}

	return nil
}
