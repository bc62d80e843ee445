package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pollbook/pkg/requestcontext"
)

// ErrBufferFull is returned by an async Publisher whose inbox is saturated.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher enriches events with request metadata and hands them to a store,
// either inline or through a buffered inbox drained by a Worker.
type Publisher struct {
	store Store
	inbox chan Event
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking. A Worker must drain Inbox().
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		event.Device = describeDevice(requestcontext.UserAgent(ctx))
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Inbox is nil for synchronous publishers.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Store returns the destination events are appended to.
func (p *Publisher) Store() Store {
	return p.store
}
