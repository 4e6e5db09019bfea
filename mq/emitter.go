package mq

import (
	"context"
	"encoding/json"
	"log"

	"sufra/rdx"
)

// OrdersChannel carries order lifecycle events to the live feed and any other
// subscriber.
const OrdersChannel = "order-events"

// Event names
const (
	EventOrderCreated       = "order-created"
	EventOrderStatusChanged = "order-status-changed"
)

// OrderEvent is the payload published for every order lifecycle change.
type OrderEvent struct {
	Event       string `json:"event"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	BranchID    int    `json:"branch_id"`
	Status      string `json:"status"`
}

// Emit publishes an order event to Redis. Failures are logged and swallowed;
// event delivery is best-effort and never blocks the request path.
func Emit(ctx context.Context, event OrderEvent) {
	if rdx.Conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Emit] failed to marshal event: %v", err)
		return
	}
	if err := rdx.Conn.Publish(ctx, OrdersChannel, data).Err(); err != nil {
		log.Printf("[Emit] failed to publish event: %v", err)
	}
}

// Subscribe opens a subscription on the order events channel and returns the
// message stream plus a closer. The stream closes once ctx ends or the
// subscription is closed; a consumer that stops draining never strands the
// forwarding goroutine.
func Subscribe(ctx context.Context) (<-chan OrderEvent, func() error) {
	sub := rdx.Conn.Subscribe(ctx, OrdersChannel)
	out := make(chan OrderEvent)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event OrderEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("[Subscribe] failed to parse event: %v", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Close
}
