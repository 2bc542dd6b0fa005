package service

import (
	"errors"
	"testing"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
)

func feeContext(minutes int, rules domain.RatePlanRules) FeeContext {
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return FeeContext{
		EntryTime: entry,
		ExitTime:  entry.Add(time.Duration(minutes) * time.Minute),
		Rules:     rules,
	}
}

func rule(id int, t domain.DiscountType, value int64, stackable bool) domain.DiscountRule {
	return domain.DiscountRule{ID: id, Name: "rule", Type: t, Value: value, Stackable: stackable, Active: true}
}

func TestApplyDiscountsAmountThenPercent(t *testing.T) {
	// 5000 gốc: trừ 1000, sau đó 50% trên phần còn lại 4000 -> tổng giảm 3000
	fc := feeContext(150, standardRules)
	requests := []domain.DiscountRequest{
		{Rule: rule(1, domain.DiscountAmount, 1000, true)},
		{Rule: rule(2, domain.DiscountPercent, 50, true)},
	}

	outcome, err := ApplyDiscounts(5000, fc, nil, requests)
	if err != nil {
		t.Fatalf("ApplyDiscounts trả lỗi: %v", err)
	}
	if outcome.Total != 3000 {
		t.Errorf("tổng giảm = %d, muốn 3000", outcome.Total)
	}
	if len(outcome.Applications) != 2 {
		t.Fatalf("số dòng sổ = %d, muốn 2", len(outcome.Applications))
	}
	if outcome.Applications[0].AppliedValue != 1000 {
		t.Errorf("dòng 1 = %d, muốn 1000", outcome.Applications[0].AppliedValue)
	}
	if outcome.Applications[1].AppliedValue != 2000 {
		t.Errorf("dòng 2 = %d, muốn 2000", outcome.Applications[1].AppliedValue)
	}
}

func TestApplyDiscountsPercentRoundsDown(t *testing.T) {
	fc := feeContext(60, standardRules)
	outcome, err := ApplyDiscounts(999, fc, nil, []domain.DiscountRequest{
		{Rule: rule(1, domain.DiscountPercent, 50, true)},
	})
	if err != nil {
		t.Fatalf("ApplyDiscounts trả lỗi: %v", err)
	}
	if outcome.Total != 499 {
		t.Errorf("50%% của 999 phải là 499 (làm tròn xuống), nhận %d", outcome.Total)
	}
}

func TestApplyDiscountsFreeAllShortCircuits(t *testing.T) {
	fc := feeContext(150, standardRules)
	requests := []domain.DiscountRequest{
		{Rule: rule(1, domain.DiscountAmount, 1000, true)},
		{Rule: rule(2, domain.DiscountFreeAll, 0, true)},
		{Rule: rule(3, domain.DiscountPercent, 50, true)},
	}

	outcome, err := ApplyDiscounts(6500, fc, nil, requests)
	if err != nil {
		t.Fatalf("ApplyDiscounts trả lỗi: %v", err)
	}
	if outcome.Total != 6500 {
		t.Errorf("FREE_ALL phải xóa toàn bộ phí, tổng giảm = %d", outcome.Total)
	}
	if len(outcome.Applications) != 1 {
		t.Errorf("FREE_ALL phải là dòng sổ duy nhất, nhận %d dòng", len(outcome.Applications))
	}
	if outcome.Applications[0].RuleID != 2 {
		t.Errorf("dòng sổ phải là rule FREE_ALL, nhận rule %d", outcome.Applications[0].RuleID)
	}
}

func TestApplyDiscountsFreeMinutesDelta(t *testing.T) {
	// 150 phút với biểu phí chuẩn: phí gốc 6500. Cộng thêm 60 phút miễn phí:
	// billable 80, phí 1000 + ceil(50/10)*500 = 3500. Phần giảm = 3000.
	fc := feeContext(150, standardRules)
	outcome, err := ApplyDiscounts(6500, fc, nil, []domain.DiscountRequest{
		{Rule: rule(1, domain.DiscountFreeMinutes, 60, true)},
	})
	if err != nil {
		t.Fatalf("ApplyDiscounts trả lỗi: %v", err)
	}
	if outcome.Total != 3000 {
		t.Errorf("giảm theo free_minutes = %d, muốn 3000", outcome.Total)
	}
}

func TestApplyDiscountsNonStackableRejected(t *testing.T) {
	fc := feeContext(150, standardRules)
	nonStackable := rule(1, domain.DiscountAmount, 2000, false)
	stackable := rule(2, domain.DiscountPercent, 10, true)

	t.Run("rule mới không stackable khi sổ đã có dòng", func(t *testing.T) {
		existing := []domain.DiscountApplication{
			{RuleID: 2, RuleType: domain.DiscountPercent, Stackable: true, AppliedValue: 650},
		}
		_, err := ApplyDiscounts(6500, fc, existing, []domain.DiscountRequest{{Rule: nonStackable}})
		if !errors.Is(err, ErrRuleConflict) {
			t.Errorf("muốn ErrRuleConflict, nhận %v", err)
		}
	})

	t.Run("rule mới khi sổ đã có dòng không stackable", func(t *testing.T) {
		existing := []domain.DiscountApplication{
			{RuleID: 1, RuleType: domain.DiscountAmount, Stackable: false, AppliedValue: 2000},
		}
		_, err := ApplyDiscounts(6500, fc, existing, []domain.DiscountRequest{{Rule: stackable}})
		if !errors.Is(err, ErrRuleConflict) {
			t.Errorf("muốn ErrRuleConflict, nhận %v", err)
		}
	})

	t.Run("không stackable đi cùng rule khác trong một loạt", func(t *testing.T) {
		_, err := ApplyDiscounts(6500, fc, nil, []domain.DiscountRequest{
			{Rule: nonStackable}, {Rule: stackable},
		})
		if !errors.Is(err, ErrRuleConflict) {
			t.Errorf("muốn ErrRuleConflict, nhận %v", err)
		}
	})

	t.Run("không stackable một mình thì được", func(t *testing.T) {
		outcome, err := ApplyDiscounts(6500, fc, nil, []domain.DiscountRequest{{Rule: nonStackable}})
		if err != nil {
			t.Fatalf("không muốn lỗi, nhận %v", err)
		}
		if outcome.Total != 2000 {
			t.Errorf("tổng giảm = %d, muốn 2000", outcome.Total)
		}
	})
}

func TestApplyDiscountsNeverExceedsRawFee(t *testing.T) {
	fc := feeContext(40, standardRules)
	outcome, err := ApplyDiscounts(1000, fc, nil, []domain.DiscountRequest{
		{Rule: rule(1, domain.DiscountAmount, 5000, true)},
	})
	if err != nil {
		t.Fatalf("ApplyDiscounts trả lỗi: %v", err)
	}
	if outcome.Total != 1000 {
		t.Errorf("giảm bị kẹp tại phí gốc, nhận %d", outcome.Total)
	}
	if outcome.Applications[0].AppliedValue != 1000 {
		t.Errorf("dòng sổ ghi giá trị thực trừ %d, muốn 1000", outcome.Applications[0].AppliedValue)
	}
}

func TestApplyDiscountsOnRemainingAfterExisting(t *testing.T) {
	fc := feeContext(150, standardRules)
	existing := []domain.DiscountApplication{
		{RuleID: 9, RuleType: domain.DiscountAmount, Stackable: true, AppliedValue: 4000},
	}
	outcome, err := ApplyDiscounts(6500, fc, existing, []domain.DiscountRequest{
		{Rule: rule(1, domain.DiscountPercent, 100, true)},
	})
	if err != nil {
		t.Fatalf("ApplyDiscounts trả lỗi: %v", err)
	}
	if outcome.Total != 2500 {
		t.Errorf("100%% của phần còn lại 2500, nhận %d", outcome.Total)
	}
}
