package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
)

var ErrRateRuleInvalid = errors.New("biểu phí không hợp lệ")

// ValidateRateRules kiểm tra biểu phí trước khi đem đi tính tiền.
// baseMinutes và additionalMinutes phải dương để phép chia khối có nghĩa.
func ValidateRateRules(rules domain.RatePlanRules) error {
	switch {
	case rules.FreeMinutes < 0:
		return fmt.Errorf("%w: free_minutes âm (%d)", ErrRateRuleInvalid, rules.FreeMinutes)
	case rules.BaseFee < 0:
		return fmt.Errorf("%w: base_fee âm (%d)", ErrRateRuleInvalid, rules.BaseFee)
	case rules.BaseMinutes <= 0:
		return fmt.Errorf("%w: base_minutes phải > 0 (%d)", ErrRateRuleInvalid, rules.BaseMinutes)
	case rules.AdditionalFee < 0:
		return fmt.Errorf("%w: additional_fee âm (%d)", ErrRateRuleInvalid, rules.AdditionalFee)
	case rules.AdditionalMinutes <= 0:
		return fmt.Errorf("%w: additional_minutes phải > 0 (%d)", ErrRateRuleInvalid, rules.AdditionalMinutes)
	case rules.DailyMax < 0:
		return fmt.Errorf("%w: daily_max âm (%d)", ErrRateRuleInvalid, rules.DailyMax)
	}
	return nil
}

// CalculateRawFee tính phí gốc cho một lượt đỗ, chưa trừ giảm giá.
// Hàm thuần túy: cùng input luôn cho cùng output.
//
// Quy tắc:
//   - thời lượng tính theo phút, làm tròn xuống
//   - trừ free_minutes; nếu còn <= 0 thì miễn phí
//   - phần còn lại trả base_fee cho base_minutes đầu, sau đó mỗi khối
//     additional_minutes (bắt đầu dở cũng tính tròn khối) trả additional_fee
//   - daily_max > 0 là trần phí
func CalculateRawFee(entryTime, exitTime time.Time, rules domain.RatePlanRules) (int64, error) {
	if err := ValidateRateRules(rules); err != nil {
		return 0, err
	}

	// Lệch đồng hồ giữa các lane có thể cho exit < entry: kẹp về 0 phút.
	if exitTime.Before(entryTime) {
		exitTime = entryTime
	}

	elapsed := int64(exitTime.Sub(entryTime) / time.Minute)
	billable := elapsed - rules.FreeMinutes
	if billable <= 0 {
		return 0, nil
	}

	fee := rules.BaseFee
	if extra := billable - rules.BaseMinutes; extra > 0 {
		blocks := (extra + rules.AdditionalMinutes - 1) / rules.AdditionalMinutes
		fee += blocks * rules.AdditionalFee
	}

	if rules.DailyMax > 0 && fee > rules.DailyMax {
		fee = rules.DailyMax
	}
	return fee, nil
}
