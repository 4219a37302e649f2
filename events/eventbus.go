package events

import (
	"sync"

	"github.com/Siasom1/herbchain/core/types"
	"github.com/google/uuid"
)

// ItemEvent reports that a batch or product changed because of BlockID.
type ItemEvent struct {
	ItemID  string `json:"itemId"`
	BlockID string `json:"blockId"`
	Kind    string `json:"kind"`
}

// Subscription is a handle on one subscriber channel. Slow subscribers
// miss events rather than blocking publishers.
type Subscription[T any] struct {
	ID string
	C  <-chan T

	ch chan T
}

type EventBus struct {
	mu        sync.RWMutex
	blockSubs map[string]chan types.Block
	itemSubs  map[string]chan ItemEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		blockSubs: make(map[string]chan types.Block),
		itemSubs:  make(map[string]chan ItemEvent),
	}
}

// -------------------- Blocks --------------------

func (b *EventBus) SubscribeBlocks() *Subscription[types.Block] {
	ch := make(chan types.Block, 16)
	id := uuid.NewString()

	b.mu.Lock()
	b.blockSubs[id] = ch
	b.mu.Unlock()

	return &Subscription[types.Block]{ID: id, C: ch, ch: ch}
}

func (b *EventBus) PublishBlock(block types.Block) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.blockSubs {
		// non-blocking send
		select {
		case ch <- block:
		default:
		}
	}
}

// -------------------- Items --------------------

func (b *EventBus) SubscribeItems() *Subscription[ItemEvent] {
	ch := make(chan ItemEvent, 64)
	id := uuid.NewString()

	b.mu.Lock()
	b.itemSubs[id] = ch
	b.mu.Unlock()

	return &Subscription[ItemEvent]{ID: id, C: ch, ch: ch}
}

func (b *EventBus) PublishItem(ev ItemEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.itemSubs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// -------------------- Teardown --------------------

// Unsubscribe closes the subscription's channel. Unknown ids are ignored.
func (b *EventBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.blockSubs[id]; ok {
		delete(b.blockSubs, id)
		close(ch)
	}
	if ch, ok := b.itemSubs[id]; ok {
		delete(b.itemSubs, id)
		close(ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blockSubs) + len(b.itemSubs)
}
