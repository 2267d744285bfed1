package services

import (
	"log"
	"sync"

	"github.com/bits-his/nibbes-api/models"
)

// Broadcast event types
const (
	EventNewOrder    = "new_order"
	EventOrderUpdate = "order_update"
)

// OrderEvent is the payload fanned out to every connected real-time client
// when an order is created or changes status.
type OrderEvent struct {
	Type        string `json:"type"`
	OrderID     uint   `json:"order_id"`
	OrderNumber int    `json:"order_number,omitempty"`
	Status      string `json:"status,omitempty"`
}

// BroadcastInterface defines the operations of the change broadcaster
type BroadcastInterface interface {
	Subscribe() *Subscriber
	Unsubscribe(sub *Subscriber)
	Publish(eventType string, order *models.Order)
	SubscriberCount() int
}

// Subscriber represents one connected real-time client. Events are consumed
// from the Events channel until it is closed by Unsubscribe.
type Subscriber struct {
	Events chan OrderEvent
}

// subscriberBuffer is the per-client event buffer. A client that falls this
// far behind starts losing events; delivery is best-effort and the client's
// polling fallback closes the gap.
const subscriberBuffer = 16

// BroadcastService owns the process-wide set of live subscribers
type BroadcastService struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
}

var broadcastServiceInstance BroadcastInterface

// InitBroadcastService initializes the broadcast service singleton
func InitBroadcastService() BroadcastInterface {
	broadcastServiceInstance = NewBroadcastService()
	return broadcastServiceInstance
}

// GetBroadcastService returns the initialized broadcast service instance
func GetBroadcastService() BroadcastInterface {
	return broadcastServiceInstance
}

// SetBroadcastService sets the broadcast service instance (primarily for testing)
func SetBroadcastService(service BroadcastInterface) {
	broadcastServiceInstance = service
}

// NewBroadcastService creates a broadcast service with an empty subscriber set
func NewBroadcastService() *BroadcastService {
	return &BroadcastService{
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new client and returns its subscriber handle.
// The client only sees events published after this call; it is expected to
// do a full fetch immediately after subscribing.
func (b *BroadcastService) Subscribe() *Subscriber {
	sub := &Subscriber{
		Events: make(chan OrderEvent, subscriberBuffer),
	}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes a client from the set and closes its event channel.
// Safe to call for an already-removed subscriber.
func (b *BroadcastService) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	// Closing under the lock: Publish holds the read lock while sending, so
	// no send can race the close.
	close(sub.Events)
}

// Publish fans the event out to every currently connected subscriber.
// Delivery is at-most-once and best-effort: a subscriber whose buffer is
// full is skipped so that one slow client never blocks the others or the
// mutation that triggered the event.
func (b *BroadcastService) Publish(eventType string, order *models.Order) {
	event := OrderEvent{
		Type:    eventType,
		OrderID: order.ID,
	}
	if order.OrderNumber != 0 {
		event.OrderNumber = order.OrderNumber
	}
	if order.Status != "" {
		event.Status = order.Status
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
			log.Printf("broadcast: dropping %s event for order %d, subscriber buffer full", eventType, order.ID)
		}
	}
}

// SubscriberCount returns the number of currently connected subscribers
func (b *BroadcastService) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
