package memory

import (
	"context"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Broadcaster implements ports.Messenger by fanning messages out to
// subscribers. Slow subscribers drop messages instead of blocking the engine.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.Message
	nextID int
	buffer int
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold buffer
// pending messages.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broadcaster{subs: make(map[int]chan domain.Message), buffer: buffer}
}

// Send delivers msg to every subscriber.
func (b *Broadcaster) Send(ctx context.Context, msg domain.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a message channel and a cancel function that closes it.
func (b *Broadcaster) Subscribe() (<-chan domain.Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Message, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Recorder implements ports.Messenger by keeping every message.
type Recorder struct {
	mu       sync.Mutex
	messages []domain.Message
}

// Send records msg.
func (r *Recorder) Send(ctx context.Context, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns the recorded messages in order.
func (r *Recorder) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.messages...)
}

// Reset drops every recorded message.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}
