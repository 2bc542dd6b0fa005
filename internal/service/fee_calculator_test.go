package service

import (
	"errors"
	"testing"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
)

var standardRules = domain.RatePlanRules{
	FreeMinutes:       10,
	BaseFee:           1000,
	BaseMinutes:       30,
	AdditionalFee:     500,
	AdditionalMinutes: 10,
	DailyMax:          15000,
}

func TestCalculateRawFee(t *testing.T) {
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		minutes int
		rules   domain.RatePlanRules
		want    int64
	}{
		{"trong thời gian miễn phí", 10, standardRules, 0},
		{"đúng hết miễn phí cộng một phút", 11, standardRules, 1000},
		{"trong khối cơ bản", 40, standardRules, 1000},
		{"khối phụ trội bắt đầu dở vẫn tính tròn", 41, standardRules, 1500},
		{"hai tiếng rưỡi", 150, standardRules, 6500},
		{"chạm trần daily_max", 24 * 60, standardRules, 15000},
		{"daily_max bằng 0 là không giới hạn", 24 * 60,
			domain.RatePlanRules{FreeMinutes: 10, BaseFee: 1000, BaseMinutes: 30, AdditionalFee: 500, AdditionalMinutes: 10},
			1000 + 140*500},
		{"không có phút miễn phí", 1,
			domain.RatePlanRules{BaseFee: 2000, BaseMinutes: 60, AdditionalFee: 1000, AdditionalMinutes: 30},
			2000},
		{"zero phút", 0, standardRules, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exit := entry.Add(time.Duration(tt.minutes) * time.Minute)
			got, err := CalculateRawFee(entry, exit, tt.rules)
			if err != nil {
				t.Fatalf("CalculateRawFee trả lỗi: %v", err)
			}
			if got != tt.want {
				t.Errorf("phí = %d, muốn %d", got, tt.want)
			}
		})
	}
}

func TestCalculateRawFeeClampsExitBeforeEntry(t *testing.T) {
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	exit := entry.Add(-5 * time.Minute)

	got, err := CalculateRawFee(entry, exit, standardRules)
	if err != nil {
		t.Fatalf("CalculateRawFee trả lỗi: %v", err)
	}
	if got != 0 {
		t.Errorf("exit trước entry phải cho phí 0, nhận %d", got)
	}
}

func TestCalculateRawFeeMonotonic(t *testing.T) {
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	var prev int64
	for minutes := 0; minutes <= 300; minutes++ {
		exit := entry.Add(time.Duration(minutes) * time.Minute)
		fee, err := CalculateRawFee(entry, exit, standardRules)
		if err != nil {
			t.Fatalf("CalculateRawFee trả lỗi tại phút %d: %v", minutes, err)
		}
		if fee < prev {
			t.Fatalf("phí giảm khi thời lượng tăng: phút %d cho %d, phút trước cho %d", minutes, fee, prev)
		}
		prev = fee
	}
}

func TestValidateRateRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   domain.RatePlanRules
		wantErr bool
	}{
		{"hợp lệ", standardRules, false},
		{"free_minutes âm", domain.RatePlanRules{FreeMinutes: -1, BaseMinutes: 30, AdditionalMinutes: 10}, true},
		{"base_fee âm", domain.RatePlanRules{BaseFee: -100, BaseMinutes: 30, AdditionalMinutes: 10}, true},
		{"base_minutes bằng 0", domain.RatePlanRules{BaseMinutes: 0, AdditionalMinutes: 10}, true},
		{"additional_minutes bằng 0", domain.RatePlanRules{BaseMinutes: 30, AdditionalMinutes: 0}, true},
		{"additional_fee âm", domain.RatePlanRules{BaseMinutes: 30, AdditionalMinutes: 10, AdditionalFee: -1}, true},
		{"daily_max âm", domain.RatePlanRules{BaseMinutes: 30, AdditionalMinutes: 10, DailyMax: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRateRules(tt.rules)
			if tt.wantErr {
				if !errors.Is(err, ErrRateRuleInvalid) {
					t.Errorf("muốn ErrRateRuleInvalid, nhận %v", err)
				}
			} else if err != nil {
				t.Errorf("không muốn lỗi, nhận %v", err)
			}
		})
	}
}
