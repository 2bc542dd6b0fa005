package domain

import (
	"encoding/json"
	"time"
)

// GenericDeviceEvent dùng để parse bước đầu message từ SQS, lấy message_type
// và các trường chung do IoT Rule thêm vào.
type GenericDeviceEvent struct {
	DeviceID          string          `json:"device_id"` // Thing Name của thiết bị
	MessageType       string          `json:"message_type"`
	Timestamp         string          `json:"timestamp"` // ISO 8601 UTC string từ thiết bị
	ReceivedMqttTopic string          `json:"received_mqtt_topic,omitempty"`
	ClientIDFromIoT   string          `json:"client_id_iot,omitempty"`
	RawPayload        json.RawMessage `json:"-"`
}

// PlateDetectedEvent là sự kiện camera ANPR nhận dạng được biển số tại một làn.
// Direction quyết định đi vào luồng entry hay exit của session.
type PlateDetectedEvent struct {
	GenericDeviceEvent
	EventID    string  `json:"event_id"`
	SiteID     int     `json:"site_id"`
	LaneID     string  `json:"lane_id"`
	Direction  string  `json:"direction"` // "entry" hoặc "exit"
	Plate      string  `json:"plate"`
	Confidence float32 `json:"confidence,omitempty"`
}

// DeviceCommandAckEvent: thiết bị xác nhận đã thực thi một lệnh rào chắn.
// RequestID khớp với BarrierCommand.ID trong sổ lệnh.
type DeviceCommandAckEvent struct {
	GenericDeviceEvent
	Status         string `json:"status"` // "acknowledged" hoặc "failed"
	RequestID      string `json:"request_id,omitempty"`
	ReceivedAction string `json:"received_action,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

// DeviceEventLog lưu payload gốc của mọi sự kiện thiết bị vào DB để audit.
type DeviceEventLog struct {
	ID              int64           `json:"id"`
	ReceivedAt      time.Time       `json:"received_at"`
	DeviceThingName string          `json:"device_thing_name"`
	MqttTopic       string          `json:"mqtt_topic"`
	MessageType     string          `json:"message_type"`
	Payload         json.RawMessage `json:"payload"`
	ProcessedStatus string          `json:"processed_status"` // "pending", "processed", "error"
	ProcessingNotes string          `json:"processing_notes,omitempty"`
}
