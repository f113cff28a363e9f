package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
	"github.com/tournevent/courierhub/pkg/courier"
)

// Field names providers commonly use, probed in order.
var (
	eventKeys      = []string{"event", "event_type", "eventType", "type"}
	orderKeys      = []string{"order_id", "orderId", "orderID", "id"}
	newOrderKeys   = []string{"new_order_id", "newOrderId", "replacement_order_id"}
	nestedOrderKey = "order"
)

// decodeGeneric normalizes an event from a provider without its own decoder
// by probing the common field spellings.
func decodeGeneric(body []byte) (*courier.WebhookEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding generic event: %w", err)
	}

	ev := &courier.WebhookEvent{
		Type:       genericEventType(probe(payload, eventKeys)),
		OrderID:    probe(payload, orderKeys),
		NewOrderID: probe(payload, newOrderKeys),
		Raw:        body,
	}
	if ev.OrderID == "" {
		if nested := cast.ToStringMap(payload[nestedOrderKey]); nested != nil {
			ev.OrderID = probe(nested, orderKeys)
		}
	}
	return ev, nil
}

func probe(payload map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := payload[key]; ok {
			if s := cast.ToString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func genericEventType(raw string) courier.EventType {
	switch raw {
	case "status_changed", "order_changed", "ORDER_STATUS_CHANGED":
		return courier.EventStatusChanged
	case "driver_assigned", "courier_assigned", "DRIVER_ASSIGNED":
		return courier.EventDriverAssigned
	case "amount_changed", "ORDER_AMOUNT_CHANGED":
		return courier.EventAmountChanged
	case "order_replaced", "ORDER_REPLACED":
		return courier.EventOrderReplaced
	case "order_edited", "ORDER_EDITED":
		return courier.EventOrderEdited
	default:
		return courier.EventUnknown
	}
}
