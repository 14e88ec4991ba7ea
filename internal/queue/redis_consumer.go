/**
 * Direct Redis Queue Consumer for the OCR extraction worker
 *
 * Job IDs are pushed on a Redis LIST; job bodies live in the "<queue>:data" hash.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/processor"
)

var errNoJobs = fmt.Errorf("no jobs available")

// RedisJobData represents a job from the Redis queue
type RedisJobData struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Payload    JobPayload `json:"payload"`
	CreatedAt  time.Time  `json:"createdAt"`
	Attempts   int        `json:"attempts"`
	MaxRetries int        `json:"maxRetries"`
}

// RedisConsumer handles job consumption from Redis queue
type RedisConsumer struct {
	client    *redis.Client
	processor processor.DocumentProcessorInterface
	config    *RedisConsumerConfig
	logger    *logging.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// RedisConsumerConfig holds consumer configuration
type RedisConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.DocumentProcessorInterface
	ProcessingTimeout int64 // milliseconds (default: 1800000 = 30 minutes)
}

// NewRedisConsumer creates a new Redis-based queue consumer
func NewRedisConsumer(cfg *RedisConsumerConfig) (*RedisConsumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		cfg.QueueName = "pdfocr:jobs"
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	consumerCtx, cancel := context.WithCancel(context.Background())

	return &RedisConsumer{
		client:    client,
		processor: cfg.Processor,
		config:    cfg,
		logger:    logging.NewLogger("redis-consumer"),
		ctx:       consumerCtx,
		cancel:    cancel,
	}, nil
}

// Start begins processing jobs from the queue
func (c *RedisConsumer) Start() error {
	c.logger.Info("Starting Redis queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}

	return nil
}

// Stop gracefully stops the consumer
func (c *RedisConsumer) Stop() error {
	c.logger.Info("Stopping queue consumer")
	c.cancel()
	c.wg.Wait()
	return c.client.Close()
}

func (c *RedisConsumer) worker(id int) {
	defer c.wg.Done()
	c.logger.Info("Worker started", "worker", id)

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("Worker stopping", "worker", id)
			return
		default:
			if err := c.processNextJob(); err != nil {
				if err != errNoJobs && c.ctx.Err() == nil {
					c.logger.Error("Worker error", "worker", id, "error", err)
					time.Sleep(1 * time.Second)
				}
			}
		}
	}
}

func (c *RedisConsumer) key(suffix string) string {
	return fmt.Sprintf("%s:%s", c.config.QueueName, suffix)
}

// processNextJob fetches and processes the next job from the queue
func (c *RedisConsumer) processNextJob() error {
	result, err := c.client.BRPop(c.ctx, 5*time.Second, c.config.QueueName).Result()
	if err != nil {
		if err == redis.Nil {
			return errNoJobs
		}
		return fmt.Errorf("failed to fetch job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	jobID := result[1]

	jobData, err := c.client.HGet(c.ctx, c.key("data"), jobID).Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job RedisJobData
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.Payload.JobID == "" {
		job.Payload.JobID = job.ID
	}

	c.updateJobStatus(job.Payload.JobID, StatusProcessing, nil)

	processResult, err := c.processJob(&job)
	if err != nil {
		c.logger.Error("Job failed", "job", job.Payload.JobID, "error", err)

		if shouldRequeue(&job, err) {
			updatedData, _ := json.Marshal(job)
			c.client.HSet(c.ctx, c.key("data"), job.ID, updatedData)
			c.client.LPush(c.ctx, c.config.QueueName, job.ID)
			c.logger.Info("Job re-queued", "job", job.Payload.JobID, "attempt", job.Attempts, "maxRetries", job.MaxRetries)
		} else {
			c.updateJobStatus(job.Payload.JobID, StatusFailed, failureMetadata(err, job.Attempts))
		}
		return nil
	}

	c.updateJobStatus(job.Payload.JobID, StatusCompleted, processResult)
	c.logger.Info("Job completed", "job", job.Payload.JobID)
	return nil
}

// processJob handles the actual document processing
func (c *RedisConsumer) processJob(job *RedisJobData) (*processor.ProcessResult, error) {
	timeout := timeoutOrDefault(c.config.ProcessingTimeout)

	ctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()

	return runJob(ctx, c.processor, &job.Payload, timeout, c.logger)
}

// updateJobStatus updates the status of a job in Redis and the processor's store
func (c *RedisConsumer) updateJobStatus(jobID string, status string, result interface{}) {
	switch status {
	case StatusProcessing:
		c.client.SAdd(c.ctx, c.key("processing"), jobID)
	case StatusCompleted:
		c.client.SRem(c.ctx, c.key("processing"), jobID)
		c.client.SAdd(c.ctx, c.key("completed"), jobID)
		if res, ok := result.(*processor.ProcessResult); ok && res != nil {
			resultData, _ := json.Marshal(resultSummary(res))
			c.client.HSet(c.ctx, c.key("results"), jobID, resultData)
		}
	case StatusFailed:
		c.client.SRem(c.ctx, c.key("processing"), jobID)
		c.client.SAdd(c.ctx, c.key("failed"), jobID)
		if result != nil {
			errorData, _ := json.Marshal(result)
			c.client.HSet(c.ctx, c.key("errors"), jobID, errorData)
		}
	}

	var metadata map[string]interface{}
	switch v := result.(type) {
	case *processor.ProcessResult:
		metadata = completionMetadata(v)
	case map[string]interface{}:
		metadata = v
	}
	if err := c.processor.UpdateJobStatus(c.ctx, jobID, status, metadata); err != nil {
		c.logger.Warn("Failed to persist job status", "job", jobID, "status", status, "error", err)
	}

	event := map[string]interface{}{
		"event":     fmt.Sprintf("job:%s", status),
		"jobId":     jobID,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	eventData, _ := json.Marshal(event)
	c.client.Publish(c.ctx, c.key("events"), eventData)
}

// GetStats returns queue statistics
func (c *RedisConsumer) GetStats(ctx context.Context) (map[string]int64, error) {
	waiting, err := c.client.LLen(ctx, c.config.QueueName).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue length: %w", err)
	}
	processing, _ := c.client.SCard(ctx, c.key("processing")).Result()
	completed, _ := c.client.SCard(ctx, c.key("completed")).Result()
	failed, _ := c.client.SCard(ctx, c.key("failed")).Result()

	return map[string]int64{
		"waiting":    waiting,
		"processing": processing,
		"completed":  completed,
		"failed":     failed,
	}, nil
}
