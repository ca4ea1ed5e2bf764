package fmilog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/fmu/internal/fmi2"
)

// ErrNotEnoughMessages is returned by PopMessages when more messages are
// requested than are buffered. Nothing is drained in that case.
var ErrNotEnoughMessages = errors.New("not enough buffered messages")

// Message is one recorded log entry.
type Message struct {
	Status   fmi2.Status `json:"status"`
	Category string      `json:"category"`
	Text     string      `json:"text"`
}

func (m Message) String() string {
	return fmt.Sprintf("%s:%s:%s", m.Status, m.Category, m.Text)
}

// messageQueue is a thread-safe, unbounded FIFO buffer of messages.
type messageQueue struct {
	mu       sync.Mutex
	messages []Message
}

func newMessageQueue() *messageQueue {
	return &messageQueue{messages: make([]Message, 0, 16)}
}

// Enqueue appends a message to the back of the queue.
func (q *messageQueue) Enqueue(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, m)
}

// PopN removes and returns the n oldest messages. It fails without
// removing anything when fewer than n are buffered.
func (q *messageQueue) PopN(n int) ([]Message, error) {
	if n < 0 {
		return nil, fmt.Errorf("pop %d messages: count must not be negative", n)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.messages) {
		return nil, fmt.Errorf("pop %d messages, %d buffered: %w", n, len(q.messages), ErrNotEnoughMessages)
	}

	out := make([]Message, n)
	copy(out, q.messages[:n])

	// Zero the vacated slots so the backing array does not pin message text.
	clear(q.messages[:n])
	if n == len(q.messages) {
		q.messages = q.messages[:0]
	} else {
		q.messages = q.messages[n:]
	}
	return out, nil
}

// PopAll removes and returns every buffered message.
func (q *messageQueue) PopAll() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.messages
	q.messages = make([]Message, 0, 16)
	return out
}

// Len returns the number of buffered messages.
func (q *messageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}
