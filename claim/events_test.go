package claim

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventFeed(t *testing.T) {
	assert := assert.New(t)

	feed := NewEventFeed()
	sub1 := feed.Subscribe()
	sub2 := feed.Subscribe()

	account := RandAddress()
	feed.Publish(RewardPaid{Account: account, Amount: big.NewInt(100)})
	feed.Publish(TokenConfigured{Token: account})

	// All subscribers receive every event in publish order
	for _, sub := range []<-chan Event{sub1, sub2} {
		ev := <-sub
		assert.Equal("RewardPaid", ev.Kind())
		assert.Equal(account, ev.(RewardPaid).Account)

		ev = <-sub
		assert.Equal("TokenConfigured", ev.Kind())
		assert.Equal(account, ev.(TokenConfigured).Token)
	}
}

func TestEventFeed_SlowSubscriber(t *testing.T) {
	assert := assert.New(t)

	feed := NewEventFeed()
	sub := feed.Subscribe()

	// A full subscriber channel drops events instead of blocking Publish
	for i := 0; i < eventChanSize+10; i++ {
		feed.Publish(RewardPaid{Account: RandAddress(), Amount: big.NewInt(int64(i))})
	}

	received := 0
	for {
		select {
		case <-sub:
			received++
			continue
		default:
		}
		break
	}

	assert.Equal(eventChanSize, received)
}
