package domain

import "time"

// Các domain event bắn ra cho notifier/UI qua WebSocket. Engine không bao giờ
// block chờ việc giao event.
type EventType string

const (
	EventSessionOpened        EventType = "session_opened"
	EventSessionClosed        EventType = "session_closed"
	EventPaymentSettled       EventType = "payment_settled"
	EventBarrierCommandResult EventType = "barrier_command_result"
)

type DomainEvent struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	SiteID    int    `json:"site_id,omitempty"`
	SessionID int    `json:"session_id,omitempty"`
	Plate     string `json:"plate,omitempty"`

	FinalFee    *int64 `json:"final_fee,omitempty"`
	CloseReason string `json:"close_reason,omitempty"`

	CommandID     string `json:"command_id,omitempty"`
	LaneID        string `json:"lane_id,omitempty"`
	CommandStatus string `json:"command_status,omitempty"`
	Detail        string `json:"detail,omitempty"`
}
