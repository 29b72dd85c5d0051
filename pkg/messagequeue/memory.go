package messagequeue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by MemoryQueue after Close.
var ErrClosed = errors.New("message queue closed")

// MemoryQueue is a process-local MessageQueue for development and tests.
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	size   int
	closed chan struct{}
	once   sync.Once
}

// NewMemoryQueue creates a queue whose per-name buffers hold size messages.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{queues: make(map[string]chan []byte), size: size, closed: make(chan struct{})}
}

func (q *MemoryQueue) queue(name string) chan []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.queues[name]
	if !ok {
		ch = make(chan []byte, q.size)
		q.queues[name] = ch
	}
	return ch
}

func (q *MemoryQueue) Publish(ctx context.Context, queueName string, body []byte) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	msg := append([]byte(nil), body...)
	select {
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.queue(queueName) <- msg:
		return nil
	}
}

// Consume hands messages to handler until ctx is cancelled. Failed messages are dropped.
func (q *MemoryQueue) Consume(ctx context.Context, queueName string, handler Handler) error {
	ch := q.queue(queueName)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.closed:
			return nil
		case body := <-ch:
			_ = handler(ctx, body)
		}
	}
}

// Pending returns the number of undelivered messages on queueName.
func (q *MemoryQueue) Pending(queueName string) int {
	return len(q.queue(queueName))
}

func (q *MemoryQueue) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}
