package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

type pgRatePlanRepository struct {
	db *sql.DB
}

func NewPgRatePlanRepository(db *sql.DB) repository.RatePlanRepository {
	return &pgRatePlanRepository{db: db}
}

const ratePlanColumns = `id, site_id, name, active, free_minutes, base_fee, base_minutes,
	additional_fee, additional_minutes, daily_max, created_at, updated_at`

func scanRatePlan(row interface{ Scan(...interface{}) error }, p *domain.RatePlan) error {
	return row.Scan(
		&p.ID, &p.SiteID, &p.Name, &p.Active,
		&p.Rules.FreeMinutes, &p.Rules.BaseFee, &p.Rules.BaseMinutes,
		&p.Rules.AdditionalFee, &p.Rules.AdditionalMinutes, &p.Rules.DailyMax,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *pgRatePlanRepository) Create(ctx context.Context, plan *domain.RatePlan) (*domain.RatePlan, error) {
	query := `INSERT INTO rate_plans
	           (site_id, name, active, free_minutes, base_fee, base_minutes, additional_fee, additional_minutes, daily_max, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		plan.SiteID, plan.Name, plan.Active,
		plan.Rules.FreeMinutes, plan.Rules.BaseFee, plan.Rules.BaseMinutes,
		plan.Rules.AdditionalFee, plan.Rules.AdditionalMinutes, plan.Rules.DailyMax,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("RatePlanRepository.Create: %w", err)
	}
	plan.CreatedAt = plan.CreatedAt.In(time.UTC)
	plan.UpdatedAt = plan.UpdatedAt.In(time.UTC)
	return plan, nil
}

func (r *pgRatePlanRepository) FindByID(ctx context.Context, id int) (*domain.RatePlan, error) {
	plan := &domain.RatePlan{}
	query := `SELECT ` + ratePlanColumns + ` FROM rate_plans WHERE id = $1`
	err := scanRatePlan(r.db.QueryRowContext(ctx, query, id), plan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("RatePlanRepository.FindByID: %w", err)
	}
	return plan, nil
}

func (r *pgRatePlanRepository) FindActiveBySite(ctx context.Context, siteID int) (*domain.RatePlan, error) {
	plan := &domain.RatePlan{}
	query := `SELECT ` + ratePlanColumns + ` FROM rate_plans WHERE site_id = $1 AND active = TRUE LIMIT 1`
	err := scanRatePlan(r.db.QueryRowContext(ctx, query, siteID), plan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("RatePlanRepository.FindActiveBySite: %w", err)
	}
	return plan, nil
}

func (r *pgRatePlanRepository) FindBySite(ctx context.Context, siteID int) ([]domain.RatePlan, error) {
	query := `SELECT ` + ratePlanColumns + ` FROM rate_plans WHERE site_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("RatePlanRepository.FindBySite: %w", err)
	}
	defer rows.Close()

	var plans []domain.RatePlan
	for rows.Next() {
		var plan domain.RatePlan
		if err := scanRatePlan(rows, &plan); err != nil {
			return nil, fmt.Errorf("RatePlanRepository.FindBySite (scanning row): %w", err)
		}
		plans = append(plans, plan)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("RatePlanRepository.FindBySite (rows error): %w", err)
	}
	return plans, nil
}

func (r *pgRatePlanRepository) Activate(ctx context.Context, siteID int, planID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("RatePlanRepository.Activate (begin tx): %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE rate_plans SET active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE site_id = $1 AND active = TRUE`,
		siteID); err != nil {
		return fmt.Errorf("RatePlanRepository.Activate (hạ plan cũ): %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE rate_plans SET active = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND site_id = $2`,
		planID, siteID)
	if err != nil {
		return fmt.Errorf("RatePlanRepository.Activate: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("RatePlanRepository.Activate (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit()
}
