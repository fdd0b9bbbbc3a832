package mq

import (
	"context"
	"errors"
	"sync"

	"github.com/stshume/ohh-marketplace-auth-service/pkg/idx"
)

var ErrClosed = errors.New("mq: backend closed")

// MemoryBackend is an in-process Backend. Messages published before anyone
// subscribes are buffered; a nacked message is redelivered.
type MemoryBackend struct {
	mu     sync.Mutex
	queues map[string]chan Message
	closed chan struct{}
	once   sync.Once
	size   int
}

// NewMemoryBackend returns a backend whose channels buffer up to size
// messages each.
func NewMemoryBackend(size int) *MemoryBackend {
	if size <= 0 {
		size = 64
	}
	return &MemoryBackend{
		queues: make(map[string]chan Message),
		closed: make(chan struct{}),
		size:   size,
	}
}

func (m *MemoryBackend) queue(name string) chan Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[name]
	if !ok {
		q = make(chan Message, m.size)
		m.queues[name] = q
	}
	return q
}

func (m *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if m.isClosed() {
		return "", ErrClosed
	}

	msg := Message{ID: idx.New().String(), Data: append([]byte(nil), data...), Attributes: attrs}
	select {
	case <-m.closed:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	case m.queue(channel) <- msg:
		return msg.ID, nil
	}
}

func (m *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	q := m.queue(channel)
	for {
		if m.isClosed() {
			return ErrClosed
		}
		select {
		case <-m.closed:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-q:
			if err := handler(ctx, msg); err != nil {
				// requeue without blocking the consumer
				select {
				case q <- msg:
				default:
				}
			}
		}
	}
}

func (m *MemoryBackend) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *MemoryBackend) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}
