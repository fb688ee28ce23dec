package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

// TaskTypePipelineEvent is the asynq task type carrying an Event.
const TaskTypePipelineEvent = "pipeline:event"

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// AsynqClient publishes events as asynq tasks on Redis.
type AsynqClient struct {
	client taskEnqueuer
	queue  string
}

// NewAsynqClient connects to the Redis instance at addr.
func NewAsynqClient(addr string) (*AsynqClient, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("EVENTS_REDIS_ADDR is required")
	}
	return &AsynqClient{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: addr}),
		queue:  "default",
	}, nil
}

// Send enqueues evt once; delivery is not retried.
func (a *AsynqClient) Send(ctx context.Context, evt Event) error {
	payload, err := EncodeEvent(evt)
	if err != nil {
		return fmt.Errorf("encode asynq task: %w", err)
	}
	task := asynq.NewTask(TaskTypePipelineEvent, payload)
	if _, err := a.client.EnqueueContext(ctx, task, asynq.MaxRetry(0), asynq.Queue(a.queue)); err != nil {
		return fmt.Errorf("asynq enqueue: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (a *AsynqClient) Close() error {
	return a.client.Close()
}

var _ Client = (*AsynqClient)(nil)
