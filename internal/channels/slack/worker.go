package slack

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/geekyuvi069/CureLink/internal/conversation"
	"github.com/geekyuvi069/CureLink/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5

	fallbackReply = "I'm sorry, I couldn't process that."
)

// Chatter runs one user message through the assistant.
type Chatter interface {
	Chat(ctx context.Context, sessionID, owner, message string) (*conversation.ChatResult, error)
}

// Poster delivers a reply to a channel.
type Poster interface {
	PostMessage(ctx context.Context, channel, text, threadTS string) error
}

// Worker consumes queued Slack messages and posts the assistant's replies.
type Worker struct {
	chat   Chatter
	queue  Queue
	poster Poster
	logger *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

func NewWorker(chat Chatter, queue Queue, poster Poster, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if chat == nil {
		panic("slack: chatter cannot be nil")
	}
	if queue == nil {
		panic("slack: queue cannot be nil")
	}
	if poster == nil {
		panic("slack: poster cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{chat: chat, queue: queue, poster: poster, logger: logger, cfg: cfg}
}

// Start launches the consumer goroutines. They stop when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all consumers have stopped.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("slack worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("slack worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive slack jobs", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg QueueMessage) {
	defer w.deleteMessage(msg.ReceiptHandle)

	var in InboundMessage
	if err := json.Unmarshal([]byte(msg.Body), &in); err != nil {
		w.logger.Error("failed to decode slack job", "msg_id", msg.ID, "error", err)
		return
	}
	w.Process(ctx, in)
}

// Process answers one message synchronously. Failures are logged; the job is
// not retried.
func (w *Worker) Process(ctx context.Context, in InboundMessage) {
	if strings.TrimSpace(in.Text) == "" || in.Channel == "" {
		w.logger.Debug("skipping empty slack message", "event_id", in.EventID)
		return
	}

	reply := fallbackReply
	res, err := w.chat.Chat(ctx, in.SessionID(), in.User, in.Text)
	switch {
	case err != nil:
		w.logger.Error("slack chat turn failed", "event_id", in.EventID, "session_id", in.SessionID(), "error", err)
	case strings.TrimSpace(res.Response) != "":
		reply = res.Response
	}

	if err := w.poster.PostMessage(ctx, in.Channel, reply, in.ThreadTS); err != nil {
		w.logger.Error("failed to post slack reply", "event_id", in.EventID, "channel", in.Channel, "error", err)
		return
	}
	w.logger.Info("slack reply posted", "event_id", in.EventID, "channel", in.Channel)
}

func (w *Worker) deleteMessage(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeoutSeconds*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to delete slack job", "error", err)
	}
}
