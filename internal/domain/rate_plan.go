package domain

import "time"

// RatePlanRules là bộ quy tắc tính phí. Đơn vị tiền là đơn vị nhỏ nhất (VND/won),
// đơn vị thời gian là phút. Phí của một session được tính theo plan đang active
// tại thời điểm xe VÀO; đổi plan giữa chừng không ảnh hưởng session cũ trừ khi
// admin recalculate.
type RatePlanRules struct {
	FreeMinutes       int64 `json:"free_minutes"`
	BaseFee           int64 `json:"base_fee"`
	BaseMinutes       int64 `json:"base_minutes"`
	AdditionalFee     int64 `json:"additional_fee"`
	AdditionalMinutes int64 `json:"additional_minutes"`
	DailyMax          int64 `json:"daily_max"` // 0 = không giới hạn
}

type RatePlan struct {
	ID        int           `json:"id"`
	SiteID    int           `json:"site_id"`
	Name      string        `json:"name"`
	Active    bool          `json:"active"` // mỗi site chỉ có một plan active
	Rules     RatePlanRules `json:"rules"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type RatePlanDTO struct {
	SiteID            int    `json:"site_id" binding:"required"`
	Name              string `json:"name" binding:"required"`
	FreeMinutes       int64  `json:"free_minutes"`
	BaseFee           int64  `json:"base_fee"`
	BaseMinutes       int64  `json:"base_minutes" binding:"required"`
	AdditionalFee     int64  `json:"additional_fee"`
	AdditionalMinutes int64  `json:"additional_minutes" binding:"required"`
	DailyMax          int64  `json:"daily_max"`
}
