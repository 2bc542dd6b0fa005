package service

import (
	"context"
	"fmt"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

type EligibilityService struct {
	repo repository.EligibilityRepository
}

func NewEligibilityService(repo repository.EligibilityRepository) *EligibilityService {
	return &EligibilityService{repo: repo}
}

// Resolve xếp hạng biển số tại một thời điểm. BLOCKED thắng EXEMPT:
// xe vừa nằm blacklist vừa là VIP thì vẫn bị chặn.
func (s *EligibilityService) Resolve(ctx context.Context, plate string, at time.Time) (domain.EligibilityStatus, error) {
	blocked, err := s.repo.IsBlacklisted(ctx, plate, at)
	if err != nil {
		return "", fmt.Errorf("EligibilityService.Resolve: %w", err)
	}
	if blocked {
		return domain.EligibilityBlocked, nil
	}

	vip, err := s.repo.IsVip(ctx, plate, at)
	if err != nil {
		return "", fmt.Errorf("EligibilityService.Resolve: %w", err)
	}
	if vip {
		return domain.EligibilityExempt, nil
	}

	member, err := s.repo.IsMemberActive(ctx, plate, at)
	if err != nil {
		return "", fmt.Errorf("EligibilityService.Resolve: %w", err)
	}
	if member {
		return domain.EligibilityExempt, nil
	}

	return domain.EligibilityNormal, nil
}
