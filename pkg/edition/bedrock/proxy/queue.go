package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/deque"
)

// ErrQueueFull is returned when a leg does not drain its writer queue fast enough.
var ErrQueueFull = errors.New("writer queue is full")

// writeQueue is the FIFO of encoded packets waiting to be written to one leg.
// Pushers never block, a single writer goroutine drains the queue in batches.
type writeQueue struct {
	max    int
	signal chan struct{}

	mu     sync.Mutex // Protects following fields
	queue  deque.Deque[[]byte]
	closed bool
}

func newWriteQueue(max int) *writeQueue {
	return &writeQueue{max: max, signal: make(chan struct{}, 1)}
}

// push appends payload to the queue.
func (q *writeQueue) push(payload []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosedConn
	}
	if q.max > 0 && q.queue.Len() >= q.max {
		q.mu.Unlock()
		return fmt.Errorf("%w (%d packets)", ErrQueueFull, q.max)
	}
	q.queue.PushBack(payload)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default: // writer is already notified
	}
	return nil
}

// Len returns the number of queued packets.
func (q *writeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue.Len()
}

// batch pops all queued packets.
func (q *writeQueue) batch() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.queue.Len() == 0 {
		return nil
	}
	b := make([][]byte, 0, q.queue.Len())
	for q.queue.Len() > 0 {
		b = append(b, q.queue.PopFront())
	}
	return b
}

// run writes queued packets to conn and flushes after every batch until ctx is done.
// Packets queued before ctx was done are still written.
func (q *writeQueue) run(ctx context.Context, conn Conn) error {
	for {
		select {
		case <-q.signal:
			if err := q.write(conn); err != nil {
				q.close()
				return err
			}
		case <-ctx.Done():
			q.close()
			return q.write(conn)
		}
	}
}

func (q *writeQueue) write(conn Conn) error {
	b := q.batch()
	if len(b) == 0 {
		return nil
	}
	for _, payload := range b {
		if _, err := conn.Write(payload); err != nil {
			return err
		}
	}
	return conn.Flush()
}

func (q *writeQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
