package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type DiscountType string

const (
	DiscountAmount      DiscountType = "amount"       // trừ thẳng số tiền
	DiscountPercent     DiscountType = "percent"      // trừ % trên số tiền còn lại sau các giảm giá trước
	DiscountFreeMinutes DiscountType = "free_minutes" // cộng thêm phút miễn phí rồi lấy phần chênh lệch
	DiscountFreeAll     DiscountType = "free_all"     // miễn toàn bộ, bỏ qua mọi rule khác
)

type DiscountRule struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	Type      DiscountType `json:"type"`
	Value     int64        `json:"value"`
	Stackable bool         `json:"stackable"` // rule không stackable chỉ được là rule duy nhất của session
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DiscountApplication là một dòng trong sổ giảm giá của session.
// Append-only: không bao giờ sửa hoặc xóa.
type DiscountApplication struct {
	ID           int          `json:"id"`
	SessionID    int          `json:"session_id"`
	RuleID       int          `json:"rule_id"`
	RuleType     DiscountType `json:"rule_type"`
	Stackable    bool         `json:"stackable"`
	AppliedValue int64        `json:"applied_value"` // số tiền thực trừ
	Reason       null.String  `json:"reason"`
	AppliedAt    time.Time    `json:"applied_at"`
}

type DiscountRuleDTO struct {
	Name      string `json:"name" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=amount percent free_minutes free_all"`
	Value     int64  `json:"value"`
	Stackable bool   `json:"stackable"`
}

// DiscountRequest là một yêu cầu giảm giá đưa vào engine, theo thứ tự gửi lên.
type DiscountRequest struct {
	Rule   DiscountRule
	Reason string
}
