package claim

import (
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
)

const eventChanSize = 64

// Event is a notification of a completed state-mutating operation. Events
// are emitted in the order the operations completed and are never revised.
type Event interface {
	Kind() string
}

// RewardPaid is emitted after a successful claim.
type RewardPaid struct {
	Account ethcommon.Address
	Amount  *big.Int
}

func (RewardPaid) Kind() string { return "RewardPaid" }

// TokenConfigured is emitted after the reward-token reference changes.
type TokenConfigured struct {
	Token ethcommon.Address
}

func (TokenConfigured) Kind() string { return "TokenConfigured" }

// EventFeed fans out events to in-process subscribers. Durability is the
// store journal's job, not the feed's: a subscriber that falls behind its
// channel buffer misses events rather than blocking the service.
type EventFeed struct {
	mu   sync.RWMutex
	subs []chan Event
}

// NewEventFeed creates an event feed with no subscribers.
func NewEventFeed() *EventFeed {
	return &EventFeed{}
}

// Subscribe registers a new subscriber channel.
func (f *EventFeed) Subscribe() <-chan Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, eventChanSize)
	f.subs = append(f.subs, ch)

	return ch
}

// Publish delivers an event to all subscribers.
func (f *EventFeed) Publish(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			glog.Errorf("dropping event kind=%v for slow subscriber", ev.Kind())
		}
	}
}
