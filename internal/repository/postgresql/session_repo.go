package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

type pgSessionRepository struct {
	db *sql.DB
}

func NewPgSessionRepository(db *sql.DB) repository.SessionRepository {
	return &pgSessionRepository{db: db}
}

const sessionColumns = `id, site_id, plate, entry_lane_id, exit_lane_id, status, exempt, rate_plan_id,
	entry_time, exit_time, raw_fee, discount_total, final_fee, payment_status, paid_amount,
	close_reason, close_note, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }, s *domain.ParkingSession) error {
	return row.Scan(
		&s.ID, &s.SiteID, &s.Plate, &s.EntryLaneID, &s.ExitLaneID, &s.Status, &s.Exempt, &s.RatePlanID,
		&s.EntryTime, &s.ExitTime, &s.RawFee, &s.DiscountTotal, &s.FinalFee, &s.PaymentStatus, &s.PaidAmount,
		&s.CloseReason, &s.CloseNote, &s.CreatedAt, &s.UpdatedAt,
	)
}

func normalizeSessionTimes(s *domain.ParkingSession) {
	s.EntryTime = s.EntryTime.In(time.UTC)
	if s.ExitTime.Valid {
		s.ExitTime.Time = s.ExitTime.Time.In(time.UTC)
	}
	s.CreatedAt = s.CreatedAt.In(time.UTC)
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
}

func (r *pgSessionRepository) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `INSERT INTO parking_sessions
	           (site_id, plate, entry_lane_id, status, exempt, rate_plan_id, entry_time,
	            discount_total, payment_status, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		session.SiteID, session.Plate, session.EntryLaneID, session.Status, session.Exempt,
		session.RatePlanID, session.EntryTime, session.DiscountTotal, session.PaymentStatus,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		// index unique một phần trên (site_id, plate) WHERE status IN ('parking','exit_pending')
		// đảm bảo bất biến "một session đang mở cho mỗi biển số" sống sót qua restart.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: xe '%s' đã có phiên đang mở tại site %d", repository.ErrDuplicateEntry, session.Plate, session.SiteID)
		}
		return nil, fmt.Errorf("SessionRepository.Create: %w", err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func (r *pgSessionRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`

	err := scanSession(r.db.QueryRowContext(ctx, query, id), session)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SessionRepository.FindByID: %w", err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func (r *pgSessionRepository) FindActiveByPlate(ctx context.Context, siteID int, plate string) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	           WHERE site_id = $1 AND plate = $2 AND status = ANY($3)
	           ORDER BY entry_time DESC LIMIT 1`

	statuses := make([]string, 0, len(domain.OpenSessionStatuses))
	for _, st := range domain.OpenSessionStatuses {
		statuses = append(statuses, string(st))
	}

	err := scanSession(r.db.QueryRowContext(ctx, query, siteID, plate, pq.Array(statuses)), session)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoActiveSession
		}
		return nil, fmt.Errorf("SessionRepository.FindActiveByPlate: %w", err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func (r *pgSessionRepository) UpdateFromStatus(ctx context.Context, session *domain.ParkingSession, allowedFrom ...domain.SessionStatus) (*domain.ParkingSession, error) {
	if len(allowedFrom) == 0 {
		return nil, fmt.Errorf("SessionRepository.UpdateFromStatus: thiếu danh sách trạng thái cho phép")
	}
	query := `UPDATE parking_sessions
	           SET exit_lane_id = $1, status = $2, exempt = $3, rate_plan_id = $4,
	               exit_time = $5, raw_fee = $6, discount_total = $7, final_fee = $8,
	               payment_status = $9, paid_amount = $10, close_reason = $11, close_note = $12,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = $13 AND status = ANY($14)
	           RETURNING updated_at`

	allowed := make([]string, 0, len(allowedFrom))
	for _, st := range allowedFrom {
		allowed = append(allowed, string(st))
	}

	err := r.db.QueryRowContext(ctx, query,
		session.ExitLaneID, session.Status, session.Exempt, session.RatePlanID,
		session.ExitTime, session.RawFee, session.DiscountTotal, session.FinalFee,
		session.PaymentStatus, session.PaidAmount, session.CloseReason, session.CloseNote,
		session.ID, pq.Array(allowed),
	).Scan(&session.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Không match: hoặc id không tồn tại, hoặc trạng thái đã bị request
			// khác chuyển đi. Phân biệt để caller báo lỗi đúng loại.
			var current string
			checkErr := r.db.QueryRowContext(ctx, `SELECT status FROM parking_sessions WHERE id = $1`, session.ID).Scan(&current)
			if errors.Is(checkErr, sql.ErrNoRows) {
				return nil, repository.ErrNotFound
			}
			if checkErr != nil {
				return nil, fmt.Errorf("SessionRepository.UpdateFromStatus (kiểm tra trạng thái): %w", checkErr)
			}
			return nil, fmt.Errorf("%w: trạng thái hiện tại '%s', yêu cầu một trong %v",
				repository.ErrInvalidTransition, current, allowedFrom)
		}
		return nil, fmt.Errorf("SessionRepository.UpdateFromStatus: %w", err)
	}
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

func (r *pgSessionRepository) Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	baseQuery := `SELECT ` + sessionColumns + ` FROM parking_sessions`

	var conditions []string
	var args []interface{}
	argID := 1

	if filter.SiteID != nil {
		conditions = append(conditions, fmt.Sprintf("site_id = $%d", argID))
		args = append(args, *filter.SiteID)
		argID++
	}
	if filter.Plate != nil {
		conditions = append(conditions, fmt.Sprintf("plate = $%d", argID))
		args = append(args, domain.NormalizePlate(*filter.Plate))
		argID++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}

	query := baseQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY entry_time DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.Find: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		var session domain.ParkingSession
		if err := scanSession(rows, &session); err != nil {
			return nil, fmt.Errorf("SessionRepository.Find (scanning row): %w", err)
		}
		normalizeSessionTimes(&session)
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SessionRepository.Find (rows error): %w", err)
	}
	return sessions, nil
}
