package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SessionStatus string

const (
	SessionParking     SessionStatus = "parking"
	SessionExitPending SessionStatus = "exit_pending"
	SessionPaid        SessionStatus = "paid"
	SessionClosed      SessionStatus = "closed"
	SessionError       SessionStatus = "error"
)

// OpenSessionStatuses là các trạng thái được tính là "đang chiếm chỗ":
// mỗi (site, plate) chỉ được phép có tối đa một session ở các trạng thái này.
var OpenSessionStatuses = []SessionStatus{SessionParking, SessionExitPending}

// IsTerminal: session ở trạng thái cuối thì bất biến, mọi transition tiếp theo bị từ chối.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionClosed || s == SessionError
}

type PaymentStatus string

const (
	PaymentNone      PaymentStatus = "none"
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

type ParkingSession struct {
	ID            int           `json:"id"`
	SiteID        int           `json:"site_id"`
	Plate         string        `json:"plate"` // đã chuẩn hóa qua NormalizePlate
	EntryLaneID   string        `json:"entry_lane_id"`
	ExitLaneID    null.String   `json:"exit_lane_id"`
	Status        SessionStatus `json:"status"`
	Exempt        bool          `json:"exempt"` // VIP hoặc membership còn hiệu lực tại thời điểm vào
	RatePlanID    int           `json:"rate_plan_id"`
	EntryTime     time.Time     `json:"entry_time"`
	ExitTime      null.Time     `json:"exit_time"`
	RawFee        null.Int      `json:"raw_fee"`
	DiscountTotal int64         `json:"discount_total"`
	FinalFee      null.Int      `json:"final_fee"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaidAmount    null.Int      `json:"paid_amount"`
	CloseReason   null.String   `json:"close_reason"` // chỉ đặt khi force close hoặc đóng do miễn phí
	CloseNote     null.String   `json:"close_note,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// DTO cho API ghi nhận xe vào (thiết bị nhận dạng biển số hoặc kiosk gửi lên)
type EntryEventDTO struct {
	Plate     string `json:"plate" binding:"required"`
	LaneID    string `json:"lane_id" binding:"required"`
	SiteID    int    `json:"site_id" binding:"required"`
	EventTime string `json:"event_time,omitempty"` // RFC3339, để trống thì dùng giờ server
}

// DTO cho API ghi nhận xe ra. Cần plate hoặc session_id.
type ExitEventDTO struct {
	Plate     string `json:"plate,omitempty"`
	SessionID *int   `json:"session_id,omitempty"`
	SiteID    int    `json:"site_id" binding:"required"`
	LaneID    string `json:"lane_id" binding:"required"`
	EventTime string `json:"event_time,omitempty"`
}

type ExitResultDTO struct {
	Session *ParkingSession `json:"session"`
	FeeDue  int64           `json:"fee_due"`
}

type ConfirmPaymentDTO struct {
	Amount *int64 `json:"amount" binding:"required"`
}

type ForceCloseDTO struct {
	Reason          string `json:"reason" binding:"required"`
	Note            string `json:"note,omitempty"`
	OverridePayment bool   `json:"override_payment,omitempty"`
}

type RecalculateDTO struct {
	RatePlanID *int   `json:"rate_plan_id,omitempty"`
	Reason     string `json:"reason" binding:"required"`
}

type ApplyDiscountDTO struct {
	DiscountRuleID int    `json:"discount_rule_id" binding:"required"`
	Reason         string `json:"reason,omitempty"`
}

type SessionFilterDTO struct {
	SiteID *int    `form:"siteId"`
	Plate  *string `form:"plate"`
	Status *string `form:"status"`
}
