package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

type pgBarrierRepository struct {
	db *sql.DB
}

func NewPgBarrierRepository(db *sql.DB) repository.BarrierRepository {
	return &pgBarrierRepository{db: db}
}

const barrierColumns = `id, site_id, lane_id, esp32_thing_name, direction, created_at, updated_at`

func scanBarrier(row interface{ Scan(...interface{}) error }, b *domain.Barrier) error {
	return row.Scan(&b.ID, &b.SiteID, &b.LaneID, &b.Esp32ThingName, &b.Direction, &b.CreatedAt, &b.UpdatedAt)
}

func (r *pgBarrierRepository) Create(ctx context.Context, barrier *domain.Barrier) (*domain.Barrier, error) {
	query := `INSERT INTO barriers (site_id, lane_id, esp32_thing_name, direction, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		barrier.SiteID, barrier.LaneID, barrier.Esp32ThingName, barrier.Direction,
	).Scan(&barrier.ID, &barrier.CreatedAt, &barrier.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: làn '%s' đã có rào chắn", repository.ErrDuplicateEntry, barrier.LaneID)
		}
		return nil, fmt.Errorf("BarrierRepository.Create: %w", err)
	}
	barrier.CreatedAt = barrier.CreatedAt.In(time.UTC)
	barrier.UpdatedAt = barrier.UpdatedAt.In(time.UTC)
	return barrier, nil
}

func (r *pgBarrierRepository) FindByLaneID(ctx context.Context, laneID string) (*domain.Barrier, error) {
	barrier := &domain.Barrier{}
	query := `SELECT ` + barrierColumns + ` FROM barriers WHERE lane_id = $1`
	err := scanBarrier(r.db.QueryRowContext(ctx, query, laneID), barrier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BarrierRepository.FindByLaneID: %w", err)
	}
	return barrier, nil
}

func (r *pgBarrierRepository) FindFirstBySiteAndDirection(ctx context.Context, siteID int, direction string) (*domain.Barrier, error) {
	barrier := &domain.Barrier{}
	query := `SELECT ` + barrierColumns + ` FROM barriers WHERE site_id = $1 AND direction = $2 ORDER BY id LIMIT 1`
	err := scanBarrier(r.db.QueryRowContext(ctx, query, siteID, direction), barrier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BarrierRepository.FindFirstBySiteAndDirection: %w", err)
	}
	return barrier, nil
}

func (r *pgBarrierRepository) FindAll(ctx context.Context) ([]domain.Barrier, error) {
	query := `SELECT ` + barrierColumns + ` FROM barriers ORDER BY site_id, lane_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("BarrierRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var barriers []domain.Barrier
	for rows.Next() {
		var barrier domain.Barrier
		if err := scanBarrier(rows, &barrier); err != nil {
			return nil, fmt.Errorf("BarrierRepository.FindAll (scanning row): %w", err)
		}
		barriers = append(barriers, barrier)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("BarrierRepository.FindAll (rows error): %w", err)
	}
	return barriers, nil
}
