package service

import (
	"context"
	"testing"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository/memory"
)

func TestResolveEligibility(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	store := memory.NewEligibilityStore()
	store.AddBlacklisted("30E99999")
	store.AddVip("29A11111")
	store.AddMembership(domain.Membership{
		Plate:     "51G12345",
		ValidFrom: now.AddDate(0, -1, 0),
		ValidTo:   now.AddDate(0, 1, 0),
	})
	store.AddMembership(domain.Membership{
		Plate:     "43A77777",
		ValidFrom: now.AddDate(0, -2, 0),
		ValidTo:   now.AddDate(0, -1, 0), // đã hết hạn
	})
	// vừa blacklist vừa VIP
	store.AddBlacklisted("86B66666")
	store.AddVip("86B66666")

	svc := NewEligibilityService(store)

	tests := []struct {
		name  string
		plate string
		want  domain.EligibilityStatus
	}{
		{"blacklist", "30E99999", domain.EligibilityBlocked},
		{"vip", "29A11111", domain.EligibilityExempt},
		{"membership còn hiệu lực", "51G12345", domain.EligibilityExempt},
		{"membership hết hạn", "43A77777", domain.EligibilityNormal},
		{"blacklist thắng vip", "86B66666", domain.EligibilityBlocked},
		{"xe lạ", "99Z00000", domain.EligibilityNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Resolve(context.Background(), tt.plate, now)
			if err != nil {
				t.Fatalf("Resolve trả lỗi: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%s) = %s, muốn %s", tt.plate, got, tt.want)
			}
		})
	}
}

func TestMembershipBoundsInclusive(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	m := domain.Membership{Plate: "51G12345", ValidFrom: from, ValidTo: to}

	if !m.ActiveAt(from) {
		t.Error("biên valid_from phải bao gồm")
	}
	if !m.ActiveAt(to) {
		t.Error("biên valid_to phải bao gồm")
	}
	if m.ActiveAt(from.Add(-time.Second)) {
		t.Error("trước valid_from phải hết hiệu lực")
	}
	if m.ActiveAt(to.Add(time.Second)) {
		t.Error("sau valid_to phải hết hiệu lực")
	}
}
