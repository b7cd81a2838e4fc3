package event

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

const (
	minFetchBackoff = 500 * time.Millisecond
	maxFetchBackoff = 30 * time.Second
)

// MessageReader is the part of *kafka.Reader the consumer drives.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ContentConsumer feeds content events from Kafka to a handler. Malformed
// messages are committed and skipped; a failed handler leaves the message
// uncommitted for the next group rebalance.
type ContentConsumer struct {
	reader MessageReader
	handle ContentEventHandler
	logger logger.Logger
	// sleep waits between failed fetches; it returns false once ctx is done.
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewContentConsumer(reader MessageReader, handle ContentEventHandler, log logger.Logger) *ContentConsumer {
	return &ContentConsumer{reader: reader, handle: handle, logger: log, sleep: sleepCtx}
}

// Run consumes until ctx is cancelled or the reader is closed. Other fetch
// errors are retried with exponential backoff.
func (c *ContentConsumer) Run(ctx context.Context) error {
	backoff := minFetchBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return err
			}
			c.logger.Error("Failed to read message from Kafka", err, zap.Duration("retry_in", backoff))
			if !c.sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, maxFetchBackoff)
			continue
		}
		backoff = minFetchBackoff

		ev, err := DecodeContentEvent(msg)
		if err != nil {
			c.logger.Warn("Skipping malformed content event", zap.Error(err), zap.Int64("offset", msg.Offset))
			c.commit(ctx, msg)
			continue
		}

		if err := c.handle(ctx, ev); err != nil {
			c.logger.Error("Failed to handle content event", err, zap.String("collection", ev.Collection))
			continue
		}
		c.commit(ctx, msg)
	}
}

func (c *ContentConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
