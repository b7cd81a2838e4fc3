package event

import (
	"context"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
)

// ContentEventHandler consumes one content event.
type ContentEventHandler func(ctx context.Context, ev service.ContentEvent) error

// LocalPublisher hands events straight to in-process handlers. It replaces
// Kafka when the service runs without a broker.
type LocalPublisher struct {
	handlers []ContentEventHandler
}

var _ service.ContentPublisher = (*LocalPublisher)(nil)

func NewLocalPublisher(handlers ...ContentEventHandler) *LocalPublisher {
	return &LocalPublisher{handlers: handlers}
}

func (p *LocalPublisher) PublishContentEvent(ctx context.Context, ev service.ContentEvent) error {
	for _, h := range p.handlers {
		if err := h(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
