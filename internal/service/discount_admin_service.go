package service

import (
	"context"
	"fmt"
	"log"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

// DiscountAdminService quản lý danh mục rule giảm giá. Việc áp rule lên
// session nằm ở SessionService.ApplyDiscount.
type DiscountAdminService struct {
	repo repository.DiscountRepository
}

func NewDiscountAdminService(repo repository.DiscountRepository) *DiscountAdminService {
	return &DiscountAdminService{repo: repo}
}

func (s *DiscountAdminService) CreateRule(ctx context.Context, dto domain.DiscountRuleDTO) (*domain.DiscountRule, error) {
	ruleType := domain.DiscountType(dto.Type)
	switch ruleType {
	case domain.DiscountAmount, domain.DiscountPercent, domain.DiscountFreeMinutes:
		if dto.Value <= 0 {
			return nil, fmt.Errorf("DiscountAdminService.CreateRule: rule loại '%s' cần value > 0", ruleType)
		}
		if ruleType == domain.DiscountPercent && dto.Value > 100 {
			return nil, fmt.Errorf("DiscountAdminService.CreateRule: percent không được vượt 100 (%d)", dto.Value)
		}
	case domain.DiscountFreeAll:
		// FREE_ALL không dùng value
	default:
		return nil, fmt.Errorf("DiscountAdminService.CreateRule: loại rule không hỗ trợ '%s'", dto.Type)
	}

	rule := &domain.DiscountRule{
		Name:      dto.Name,
		Type:      ruleType,
		Value:     dto.Value,
		Stackable: dto.Stackable,
		Active:    true,
	}
	created, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("DiscountAdminService.CreateRule: %w", err)
	}
	log.Printf("Tạo rule giảm giá '%s' (id=%d, loại=%s, stackable=%t)", created.Name, created.ID, created.Type, created.Stackable)
	return created, nil
}

func (s *DiscountAdminService) GetRule(ctx context.Context, id int) (*domain.DiscountRule, error) {
	rule, err := s.repo.FindRuleByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("DiscountAdminService.GetRule: %w", err)
	}
	return rule, nil
}
