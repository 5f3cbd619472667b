package main

import (
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox/registry"
)

// Attribute names subscribers filter on. Order and payout consumers subscribe with
// filters such as attributes.seller_id = "..." so they never decode foreign payloads.
const (
	attrEventID        = "event_id"
	attrEventType      = "event_type"
	attrAggregateType  = "aggregate_type"
	attrAggregateID    = "aggregate_id"
	attrSchemaVersion  = "schema_version"
	attrOccurredAt     = "occurred_at"
	attrOrderID        = "order_id"
	attrBuyerID        = "buyer_id"
	attrSellerID       = "seller_id"
	attrPayoutID       = "payout_id"
	attrSessionID      = "session_id"
	attrStripeEventID  = "stripe_event_id"
	attrRequiresRefund = "requires_refund"
)

// buildMessage turns a resolved outbox row into the Pub/Sub message. Data is always the
// stored envelope; attributes carry the ids a subscriber needs to route without decoding.
func buildMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	occurredAt := resolved.Envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = event.CreatedAt
	}
	attrs := map[string]string{
		attrEventID:       resolved.Envelope.EventID,
		attrEventType:     string(event.EventType),
		attrAggregateType: string(event.AggregateType),
		attrAggregateID:   event.AggregateID.String(),
		attrSchemaVersion: strconv.Itoa(resolved.Envelope.Version),
		attrOccurredAt:    occurredAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range payloadAttributes(resolved.Payload) {
		if v != "" {
			attrs[k] = v
		}
	}
	return &gcppubsub.Message{Data: event.Payload, Attributes: attrs}
}

func payloadAttributes(payload any) map[string]string {
	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return map[string]string{
			attrOrderID:   idOrEmpty(p.OrderID),
			attrBuyerID:   idOrEmpty(p.BuyerID),
			attrSellerID:  idOrEmpty(p.SellerID),
			attrSessionID: p.SessionID,
		}
	case *payloads.OrderPaidEvent:
		return map[string]string{
			attrOrderID:       idOrEmpty(p.OrderID),
			attrBuyerID:       idOrEmpty(p.BuyerID),
			attrSessionID:     p.SessionID,
			attrStripeEventID: p.StripeEventID,
		}
	case *payloads.OrderCanceledEvent:
		return map[string]string{attrOrderID: idOrEmpty(p.OrderID), attrBuyerID: idOrEmpty(p.BuyerID)}
	case *payloads.OrderRetriedEvent:
		return map[string]string{
			attrOrderID:   idOrEmpty(p.OrderID),
			attrBuyerID:   idOrEmpty(p.BuyerID),
			attrSessionID: p.SessionID,
		}
	case *payloads.OrderExpiredEvent:
		return map[string]string{attrOrderID: idOrEmpty(p.OrderID), attrBuyerID: idOrEmpty(p.BuyerID)}
	case *payloads.PaymentOrphanedEvent:
		// Captured funds with no pending order behind them.
		return map[string]string{
			attrOrderID:        idOrEmpty(p.OrderID),
			attrBuyerID:        idOrEmpty(p.BuyerID),
			attrSessionID:      p.SessionID,
			attrStripeEventID:  p.StripeEventID,
			attrRequiresRefund: "true",
		}
	case *payloads.PayoutRecordedEvent:
		return map[string]string{
			attrPayoutID: idOrEmpty(p.PayoutID),
			attrOrderID:  idOrEmpty(p.OrderID),
			attrSellerID: idOrEmpty(p.SellerID),
		}
	default:
		return nil
	}
}

func idOrEmpty(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
