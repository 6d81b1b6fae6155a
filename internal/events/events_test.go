package events

import (
	"testing"

	"github.com/google/uuid"
)

func TestNew_WrapsPayload(t *testing.T) {
	env, err := New("order.created", "order-1", OrderCreatedPayload{
		OrderID:     "order-1",
		OrderNumber: "RS-000001",
		Items:       []OrderLine{{ItemID: 3, ItemName: "Tea", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(env.EventID); err != nil {
		t.Errorf("event id not a uuid: %q", env.EventID)
	}
	if env.EventVersion != 1 || env.Producer != Producer || env.CorrelationID != "order-1" {
		t.Errorf("unexpected envelope: %+v", env)
	}

	p, err := UnwrapPayload[OrderCreatedPayload](env.Payload)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if p.OrderNumber != "RS-000001" || len(p.Items) != 1 || p.Items[0].Quantity != 2 {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestUnwrapPayload_Invalid(t *testing.T) {
	if _, err := UnwrapPayload[OrderCreatedPayload]([]byte("{")); err == nil {
		t.Error("expected error for truncated payload")
	}
}
