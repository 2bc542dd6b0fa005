package service

import (
	"fmt"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

// ErrRuleConflict dùng chung giá trị với tầng repository: engine bắt xung đột
// trước khi chạm sổ, store bắt lại lần nữa ngay tại lúc ghi.
var ErrRuleConflict = repository.ErrRuleConflict

// FeeContext gói đủ thông tin để tính lại phí gốc khi xét rule FREE_MINUTES.
type FeeContext struct {
	EntryTime time.Time
	ExitTime  time.Time
	Rules     domain.RatePlanRules
}

// DiscountOutcome là kết quả fold một loạt rule lên phí gốc.
// Applications chưa có SessionID, caller gán trước khi ghi sổ.
type DiscountOutcome struct {
	Total        int64
	Applications []domain.DiscountApplication
}

// ApplyDiscounts fold các rule mới lên phần phí còn lại sau những lần giảm
// trước đó (existing, đọc từ sổ append-only). Engine thuần túy, không chạm
// DB: caller chỉ ghi sổ khi fold thành công, nên lỗi ở đây không để lại
// dấu vết gì.
//
// Thứ tự đánh giá:
//  1. FREE_ALL: nếu có thì xóa toàn bộ phần còn lại, các rule khác bị bỏ qua
//  2. các rule khác theo đúng thứ tự yêu cầu, mỗi rule thấy phần còn lại
//     sau rule trước đó
//
// Tổng giảm không bao giờ vượt quá phí gốc.
func ApplyDiscounts(rawFee int64, fc FeeContext, existing []domain.DiscountApplication, requests []domain.DiscountRequest) (*DiscountOutcome, error) {
	remaining := rawFee - SumApplied(existing)
	if remaining < 0 {
		remaining = 0
	}

	now := time.Now().UTC()
	outcome := &DiscountOutcome{}

	// Một rule không stackable đã nằm trên sổ thì chặn mọi rule mới,
	// và ngược lại rule mới không stackable đòi sổ phải trống.
	for _, app := range existing {
		if !app.Stackable && len(requests) > 0 {
			return nil, fmt.Errorf("%w: session đã áp dụng rule %d (không stackable)", ErrRuleConflict, app.RuleID)
		}
	}

	// FREE_ALL thắng tuyệt đối: chỉ cần một rule là phí về 0.
	for _, req := range requests {
		if req.Rule.Type != domain.DiscountFreeAll {
			continue
		}
		if !req.Rule.Stackable && (len(existing) > 0 || len(requests) > 1) {
			return nil, fmt.Errorf("%w: rule FREE_ALL %d không stackable", ErrRuleConflict, req.Rule.ID)
		}
		outcome.Total = remaining
		outcome.Applications = append(outcome.Applications, newApplication(req, remaining, now))
		return outcome, nil
	}

	for _, req := range requests {
		if !req.Rule.Stackable && (len(existing)+len(outcome.Applications) > 0 || len(requests) > 1) {
			return nil, fmt.Errorf("%w: rule %d không stackable", ErrRuleConflict, req.Rule.ID)
		}

		var applied int64
		switch req.Rule.Type {
		case domain.DiscountAmount:
			applied = req.Rule.Value
		case domain.DiscountPercent:
			// phần trăm tính trên phần CÒN LẠI, làm tròn xuống
			applied = remaining * req.Rule.Value / 100
		case domain.DiscountFreeMinutes:
			// quy về chênh lệch tiền: tính lại phí gốc với free_minutes
			// được cộng thêm, phần giảm là hiệu của hai lần tính
			adjusted := fc.Rules
			adjusted.FreeMinutes += req.Rule.Value
			reduced, err := CalculateRawFee(fc.EntryTime, fc.ExitTime, adjusted)
			if err != nil {
				return nil, fmt.Errorf("DiscountEngine.ApplyDiscounts: %w", err)
			}
			applied = rawFee - reduced
		default:
			return nil, fmt.Errorf("DiscountEngine.ApplyDiscounts: loại rule không hỗ trợ '%s'", req.Rule.Type)
		}

		if applied < 0 {
			applied = 0
		}
		if applied > remaining {
			applied = remaining
		}
		remaining -= applied
		outcome.Total += applied
		outcome.Applications = append(outcome.Applications, newApplication(req, applied, now))
	}

	return outcome, nil
}

// SumApplied cộng dồn giá trị đã giảm trên sổ của một session.
func SumApplied(apps []domain.DiscountApplication) int64 {
	var total int64
	for _, app := range apps {
		total += app.AppliedValue
	}
	return total
}

func newApplication(req domain.DiscountRequest, applied int64, at time.Time) domain.DiscountApplication {
	app := domain.DiscountApplication{
		RuleID:       req.Rule.ID,
		RuleType:     req.Rule.Type,
		Stackable:    req.Rule.Stackable,
		AppliedValue: applied,
		AppliedAt:    at,
	}
	if req.Reason != "" {
		app.Reason.SetValid(req.Reason)
	}
	return app
}
