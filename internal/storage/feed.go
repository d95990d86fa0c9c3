package storage

import (
	"sync"
	"sync/atomic"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change describes one committed row mutation. Subscribers use it as a
// "something changed, re-evaluate" signal; the payload is intentionally
// small enough that a missed event only costs a redundant reload.
type Change struct {
	Table string
	Op    Op
	ID    string
}

// Feed is the in-process push feed over repository writes. Publishing never
// blocks: a subscriber that cannot keep up drops events, and the drop is
// counted rather than stalling the writer.
type Feed struct {
	mu      sync.Mutex
	subs    map[int]chan Change
	nextID  int
	dropped uint64
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Change)}
}

// Subscribe registers a listener. The returned cancel func unregisters it
// and closes the channel; cancel is safe to call more than once.
func (f *Feed) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (f *Feed) Publish(change Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- change:
		default:
			atomic.AddUint64(&f.dropped, 1)
		}
	}
}

func (f *Feed) Dropped() uint64 {
	return atomic.LoadUint64(&f.dropped)
}
