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

// Sổ lệnh rào chắn: mỗi lần gọi phần cứng đều được ghi TRƯỚC khi gọi, cặp
// (correlation_id, action) là khóa idempotency. Không xóa bản ghi nào.
type pgBarrierCommandRepository struct {
	db *sql.DB
}

func NewPgBarrierCommandRepository(db *sql.DB) repository.BarrierCommandRepository {
	return &pgBarrierCommandRepository{db: db}
}

const barrierCommandColumns = `id, site_id, lane_id, esp32_thing_name, action, reason,
	correlation_id, status, detail, issued_at, completed_at`

func scanBarrierCommand(row interface{ Scan(...interface{}) error }, c *domain.BarrierCommand) error {
	return row.Scan(
		&c.ID, &c.SiteID, &c.LaneID, &c.Esp32Thing, &c.Action, &c.Reason,
		&c.CorrelationID, &c.Status, &c.Detail, &c.IssuedAt, &c.CompletedAt,
	)
}

func (r *pgBarrierCommandRepository) Create(ctx context.Context, cmd *domain.BarrierCommand) (*domain.BarrierCommand, error) {
	query := `INSERT INTO barrier_commands
	           (id, site_id, lane_id, esp32_thing_name, action, reason, correlation_id, status, issued_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		cmd.ID, cmd.SiteID, cmd.LaneID, cmd.Esp32Thing, cmd.Action, cmd.Reason,
		cmd.CorrelationID, cmd.Status, cmd.IssuedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("BarrierCommandRepository.Create: %w", err)
	}
	return cmd, nil
}

func (r *pgBarrierCommandRepository) FindByID(ctx context.Context, id string) (*domain.BarrierCommand, error) {
	cmd := &domain.BarrierCommand{}
	query := `SELECT ` + barrierCommandColumns + ` FROM barrier_commands WHERE id = $1`
	err := scanBarrierCommand(r.db.QueryRowContext(ctx, query, id), cmd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BarrierCommandRepository.FindByID: %w", err)
	}
	cmd.IssuedAt = cmd.IssuedAt.In(time.UTC)
	return cmd, nil
}

func (r *pgBarrierCommandRepository) FindByCorrelation(ctx context.Context, correlationID string, action domain.BarrierAction, since time.Time) (*domain.BarrierCommand, error) {
	cmd := &domain.BarrierCommand{}
	query := `SELECT ` + barrierCommandColumns + ` FROM barrier_commands
	           WHERE correlation_id = $1 AND action = $2 AND issued_at >= $3
	           ORDER BY issued_at DESC LIMIT 1`
	err := scanBarrierCommand(r.db.QueryRowContext(ctx, query, correlationID, action, since), cmd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BarrierCommandRepository.FindByCorrelation: %w", err)
	}
	cmd.IssuedAt = cmd.IssuedAt.In(time.UTC)
	return cmd, nil
}

func (r *pgBarrierCommandRepository) UpdateStatus(ctx context.Context, id string, status domain.BarrierCommandStatus, detail string, completedAt time.Time) error {
	query := `UPDATE barrier_commands
	           SET status = $1, detail = $2, completed_at = $3
	           WHERE id = $4`
	var detailVal sql.NullString
	if detail != "" {
		detailVal = sql.NullString{String: detail, Valid: true}
	}
	result, err := r.db.ExecContext(ctx, query, status, detailVal, completedAt, id)
	if err != nil {
		return fmt.Errorf("BarrierCommandRepository.UpdateStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("BarrierCommandRepository.UpdateStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
