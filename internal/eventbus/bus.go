// Package eventbus fans resolved outcome messages out to overlay renderers.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// MessageKind discriminates outcome-message variants.
type MessageKind string

const (
	KindThrowItem     MessageKind = "throw_item"
	KindTriggerHotkey MessageKind = "trigger_hotkey"
	KindPlaySound     MessageKind = "play_sound"
	KindUpdateHotkeys MessageKind = "update_hotkeys"
	KindAppDataUpdate MessageKind = "app_data_updated"
)

// Message is one outcome delivered to renderers.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop messages (at-most-once, best-effort).
type Message struct {
	Kind MessageKind
	Time time.Time

	ThrowItem     *ThrowItemPayload
	TriggerHotkey *TriggerHotkeyPayload
	PlaySound     *PlaySoundPayload
}

type Bus interface {
	Publish(m Message)
	Subscribe(buffer int) (ch <-chan Message, unsubscribe func())
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Message{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Message
	seq  atomic.Uint64
}

func (b *memBus) Publish(m Message) {
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan Message, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If subscriber is slow, we drop.
		// If a subscriber unsubscribes concurrently and the channel closes,
		// recover from a possible panic (send on closed channel).
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- m:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Message, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
