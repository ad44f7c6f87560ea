package entity

import "time"

// OrderEvent is published after a provider message changes an order's status.
type OrderEvent struct {
	EventID     string    `json:"event_id"`
	OrderID     uint64    `json:"order_id"`
	IncrementID string    `json:"increment_id"`
	OrderUID    string    `json:"order_uid"`
	Source      string    `json:"source"`
	HPayStatus  string    `json:"hpay_status"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	NewState    string    `json:"new_state"`
	OccurredAt  time.Time `json:"occurred_at"`
}
