// Package notify fans order events out to the configured sinks: the admin
// websocket feed, Kafka, RabbitMQ and e-mail.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/enum"
	"github.com/roomservice/api/internal/events"
	"github.com/roomservice/api/internal/service"
)

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, env events.Envelope) error
}

// Dispatcher delivers events to every sink in the background. Failures are
// logged; an order is never rolled back because a notification failed.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: 15 * time.Second}
}

// OrderCreated implements service.OrderNotifier.
func (d *Dispatcher) OrderCreated(ctx context.Context, r service.OrderResult) {
	payload := events.OrderCreatedPayload{
		OrderID:       r.Order.ID.String(),
		OrderNumber:   r.Order.OrderNumber,
		CustomerName:  r.Order.CustomerName,
		CustomerPhone: r.Order.CustomerPhone,
		RoomNumber:    r.Order.RoomNumber,
		CreatedAt:     r.Order.CreatedAt,
		Items:         make([]events.OrderLine, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		payload.Items = append(payload.Items, events.OrderLine{
			ItemID:   it.ItemID,
			ItemName: it.ItemName,
			Quantity: it.Quantity,
		})
	}
	d.publish(ctx, enum.EventOrderCreated, payload.OrderID, payload)
}

// OrderStatusChanged announces a confirm or soft delete.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, o database.Order) {
	payload := events.OrderStatusChangedPayload{
		OrderID:     o.ID.String(),
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
	}
	if o.AdminComment.Valid {
		payload.AdminComment = o.AdminComment.String
	}
	d.publish(ctx, enum.EventOrderStatusChanged, payload.OrderID, payload)
}

func (d *Dispatcher) publish(ctx context.Context, eventType, orderID string, payload any) {
	env, err := events.New(eventType, orderID, payload)
	if err != nil {
		log.Printf("ERROR: build %s event: %v", eventType, err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			sctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			if err := s.Send(sctx, env); err != nil {
				log.Printf("ERROR: notify %s via %s: %v", eventType, s.Name(), err)
			}
		}(s)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }
