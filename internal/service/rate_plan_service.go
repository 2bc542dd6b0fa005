package service

import (
	"context"
	"fmt"
	"log"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

type RatePlanService struct {
	repo     repository.RatePlanRepository
	siteRepo repository.SiteRepository
}

func NewRatePlanService(repo repository.RatePlanRepository, siteRepo repository.SiteRepository) *RatePlanService {
	return &RatePlanService{repo: repo, siteRepo: siteRepo}
}

// CreatePlan tạo biểu phí mới cho site. Biểu phí hỏng bị chặn ngay từ đây
// thay vì đợi đến lúc tính tiền.
func (s *RatePlanService) CreatePlan(ctx context.Context, dto domain.RatePlanDTO) (*domain.RatePlan, error) {
	if _, err := s.siteRepo.FindByID(ctx, dto.SiteID); err != nil {
		return nil, fmt.Errorf("RatePlanService.CreatePlan: site %d: %w", dto.SiteID, err)
	}

	rules := domain.RatePlanRules{
		FreeMinutes:       dto.FreeMinutes,
		BaseFee:           dto.BaseFee,
		BaseMinutes:       dto.BaseMinutes,
		AdditionalFee:     dto.AdditionalFee,
		AdditionalMinutes: dto.AdditionalMinutes,
		DailyMax:          dto.DailyMax,
	}
	if err := ValidateRateRules(rules); err != nil {
		return nil, fmt.Errorf("RatePlanService.CreatePlan: %w", err)
	}

	plan := &domain.RatePlan{
		SiteID: dto.SiteID,
		Name:   dto.Name,
		Rules:  rules,
	}
	created, err := s.repo.Create(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("RatePlanService.CreatePlan: %w", err)
	}
	log.Printf("Tạo biểu phí '%s' (id=%d) cho site %d", created.Name, created.ID, created.SiteID)
	return created, nil
}

func (s *RatePlanService) GetPlan(ctx context.Context, id int) (*domain.RatePlan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("RatePlanService.GetPlan: %w", err)
	}
	return plan, nil
}

func (s *RatePlanService) ListBySite(ctx context.Context, siteID int) ([]domain.RatePlan, error) {
	plans, err := s.repo.FindBySite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("RatePlanService.ListBySite: %w", err)
	}
	return plans, nil
}

// ActivatePlan bật một biểu phí và hạ biểu phí active cũ của site trong cùng
// transaction. Session đã mở giữ nguyên plan gắn lúc vào.
func (s *RatePlanService) ActivatePlan(ctx context.Context, siteID, planID int) error {
	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		return fmt.Errorf("RatePlanService.ActivatePlan: %w", err)
	}
	if plan.SiteID != siteID {
		return fmt.Errorf("RatePlanService.ActivatePlan: biểu phí %d không thuộc site %d", planID, siteID)
	}
	if err := s.repo.Activate(ctx, siteID, planID); err != nil {
		return fmt.Errorf("RatePlanService.ActivatePlan: %w", err)
	}
	log.Printf("Site %d chuyển sang biểu phí %d", siteID, planID)
	return nil
}
