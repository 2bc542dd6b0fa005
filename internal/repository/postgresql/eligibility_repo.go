package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

// Đường đọc blacklist / VIP / membership. Các bảng này do web quản trị ghi.
type pgEligibilityRepository struct {
	db *sql.DB
}

func NewPgEligibilityRepository(db *sql.DB) repository.EligibilityRepository {
	return &pgEligibilityRepository{db: db}
}

func (r *pgEligibilityRepository) IsBlacklisted(ctx context.Context, plate string, at time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM blacklist_entries WHERE plate = $1 AND active = TRUE)`
	if err := r.db.QueryRowContext(ctx, query, plate).Scan(&exists); err != nil {
		return false, fmt.Errorf("EligibilityRepository.IsBlacklisted: %w", err)
	}
	return exists, nil
}

func (r *pgEligibilityRepository) IsVip(ctx context.Context, plate string, at time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM vip_entries WHERE plate = $1 AND active = TRUE)`
	if err := r.db.QueryRowContext(ctx, query, plate).Scan(&exists); err != nil {
		return false, fmt.Errorf("EligibilityRepository.IsVip: %w", err)
	}
	return exists, nil
}

func (r *pgEligibilityRepository) IsMemberActive(ctx context.Context, plate string, at time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM memberships WHERE plate = $1 AND valid_from <= $2 AND valid_to >= $2)`
	if err := r.db.QueryRowContext(ctx, query, plate, at).Scan(&exists); err != nil {
		return false, fmt.Errorf("EligibilityRepository.IsMemberActive: %w", err)
	}
	return exists, nil
}
