package domain

import "time"

// Kết quả phân loại một biển số tại một thời điểm.
// BLOCKED luôn thắng EXEMPT: xe VIP nằm trong blacklist vẫn bị chặn.
type EligibilityStatus string

const (
	EligibilityBlocked EligibilityStatus = "blocked"
	EligibilityExempt  EligibilityStatus = "exempt"
	EligibilityNormal  EligibilityStatus = "normal"
)

// Các bảng dưới đây do lớp quản trị sở hữu; engine chỉ đọc.

type BlacklistEntry struct {
	ID        int       `json:"id"`
	Plate     string    `json:"plate"`
	Active    bool      `json:"active"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type VipEntry struct {
	ID        int       `json:"id"`
	Plate     string    `json:"plate"`
	Active    bool      `json:"active"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Membership struct {
	ID        int       `json:"id"`
	Plate     string    `json:"plate"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActiveAt kiểm tra membership còn hiệu lực tại thời điểm t (biên bao gồm).
func (m Membership) ActiveAt(t time.Time) bool {
	return !t.Before(m.ValidFrom) && !t.After(m.ValidTo)
}
