package store

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/beech80/clipt-final--sub000/internal/app/chat"
	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

const (
	// queueSize bounds the in-flight backlog. A full queue drops the message;
	// chat durability is best-effort and the broadcast already happened.
	queueSize = 1024

	// batchSize is the write batch cap.
	batchSize = 100

	// flushInterval bounds how long a partial batch may wait.
	flushInterval = 2 * time.Second

	// flushTimeout bounds one batch write.
	flushTimeout = 5 * time.Second
)

// Batcher is the asynchronous message write path. Sessions enqueue without
// blocking; a single worker groups messages into pgx batches.
type Batcher struct {
	pool *pgxpool.Pool

	queue chan chat.Message

	stop     chan struct{}
	stopOnce sync.Once
	drained  chan struct{}

	logger zerolog.Logger
}

// NewBatcher starts the write worker.
func NewBatcher(pool *pgxpool.Pool) *Batcher {
	b := &Batcher{
		pool:    pool,
		queue:   make(chan chat.Message, queueSize),
		stop:    make(chan struct{}),
		drained: make(chan struct{}),
		logger:  logx.Logger().With().Str("component", "MessageBatcher").Logger(),
	}

	go b.run()
	return b
}

// Enqueue queues one message for durable storage, returning false when the
// queue is full or the batcher is shutting down.
func (b *Batcher) Enqueue(msg chat.Message) bool {
	select {
	case <-b.stop:
		return false
	default:
	}

	select {
	case b.queue <- msg:
		return true
	default:
		return false
	}
}

// run groups queued messages into batches and flushes them on size or time.
func (b *Batcher) run() {
	defer close(b.drained)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	pending := make([]chat.Message, 0, batchSize)

	for {
		select {
		case msg := <-b.queue:
			pending = append(pending, msg)
			if len(pending) >= batchSize {
				b.flush(pending)
				pending = pending[:0]
			}

		case <-ticker.C:
			if len(pending) > 0 {
				b.flush(pending)
				pending = pending[:0]
			}

		case <-b.stop:
			for {
				select {
				case msg := <-b.queue:
					pending = append(pending, msg)
				default:
					if len(pending) > 0 {
						b.flush(pending)
					}
					return
				}
			}
		}
	}
}

// flush writes one batch. Failures are logged per statement and dropped.
func (b *Batcher) flush(pending []chat.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	queued := 0
	for _, msg := range pending {
		args, err := messageArgs(msg)
		if err != nil {
			b.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Message encode failed, dropped from batch.")
			continue
		}
		batch.Queue(insertMessageSQL, args...)
		queued++
	}
	if queued == 0 {
		return
	}

	results := b.pool.SendBatch(ctx, batch)
	defer results.Close()

	failed := 0
	for i := 0; i < queued; i++ {
		if _, err := results.Exec(); err != nil {
			failed++
			b.logger.Error().Err(err).Msg("Batch insert statement failed.")
		}
	}

	if failed > 0 {
		b.logger.Warn().Int("failed", failed).Int("batch", queued).Msg("Message batch flushed with failures.")
	} else {
		b.logger.Debug().Int("batch", queued).Msg("Message batch flushed.")
	}
}

// Close stops intake, flushes what is queued, and waits for the worker.
func (b *Batcher) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.drained
}
