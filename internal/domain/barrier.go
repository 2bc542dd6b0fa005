package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type BarrierAction string

const (
	BarrierOpen  BarrierAction = "open"
	BarrierClose BarrierAction = "close"
)

type BarrierCommandStatus string

const (
	CommandPending  BarrierCommandStatus = "pending"
	CommandExecuted BarrierCommandStatus = "executed"
	CommandFailed   BarrierCommandStatus = "failed"
)

// Barrier là một rào chắn vật lý tại một làn, điều khiển qua ESP32.
type Barrier struct {
	ID             int       `json:"id"`
	SiteID         int       `json:"site_id"`
	LaneID         string    `json:"lane_id"` // ví dụ: "entry_1", "exit_1"
	Esp32ThingName string    `json:"esp32_thing_name"`
	Direction      string    `json:"direction"` // "entry" hoặc "exit"
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BarrierCommand là một dòng trong sổ lệnh rào chắn. Append-only, không xóa.
// Cặp (correlation_id, action) là khóa idempotency: lệnh trùng trong cửa sổ
// idempotency trả lại kết quả của lệnh đã có thay vì gọi lại phần cứng.
type BarrierCommand struct {
	ID            string               `json:"id"` // uuid, đồng thời là request_id gửi xuống thiết bị
	SiteID        int                  `json:"site_id"`
	LaneID        string               `json:"lane_id"`
	Esp32Thing    string               `json:"esp32_thing_name"`
	Action        BarrierAction        `json:"action"`
	Reason        string               `json:"reason"`
	CorrelationID string               `json:"correlation_id"`
	Status        BarrierCommandStatus `json:"status"`
	Detail        null.String          `json:"detail"`
	IssuedAt      time.Time            `json:"issued_at"`
	CompletedAt   null.Time            `json:"completed_at"`
}

type IssueBarrierCommandDTO struct {
	LaneID        string `json:"lane_id" binding:"required"`
	Action        string `json:"action" binding:"required,oneof=open close"`
	Reason        string `json:"reason" binding:"required"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Kết quả gộp của lệnh mở khẩn cấp toàn bộ rào chắn: lỗi của một thiết bị
// không chặn các thiết bị còn lại.
type EmergencyOpenResult struct {
	Executed []string          `json:"executed"` // lane_id đã mở thành công
	Failed   map[string]string `json:"failed"`   // lane_id -> chi tiết lỗi
}

// Payload lệnh MQTT gửi từ backend xuống ESP32.
type BarrierControlCommandPayload struct {
	Command   string `json:"command"` // "open" hoặc "close"
	RequestID string `json:"request_id,omitempty"`
}
