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

type pgDiscountRepository struct {
	db *sql.DB
}

func NewPgDiscountRepository(db *sql.DB) repository.DiscountRepository {
	return &pgDiscountRepository{db: db}
}

func (r *pgDiscountRepository) FindRuleByID(ctx context.Context, id int) (*domain.DiscountRule, error) {
	rule := &domain.DiscountRule{}
	query := `SELECT id, name, type, value, stackable, active, created_at, updated_at
	           FROM discount_rules WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rule.ID, &rule.Name, &rule.Type, &rule.Value, &rule.Stackable, &rule.Active,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("DiscountRepository.FindRuleByID: %w", err)
	}
	return rule, nil
}

func (r *pgDiscountRepository) CreateRule(ctx context.Context, rule *domain.DiscountRule) (*domain.DiscountRule, error) {
	query := `INSERT INTO discount_rules (name, type, value, stackable, active, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rule.Name, rule.Type, rule.Value, rule.Stackable, rule.Active,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("DiscountRepository.CreateRule: %w", err)
	}
	return rule, nil
}

func (r *pgDiscountRepository) AppendApplication(ctx context.Context, app *domain.DiscountApplication) (*domain.DiscountApplication, error) {
	// Sổ giảm giá là append-only: chỉ INSERT, không bao giờ UPDATE/DELETE.
	// Khóa dòng session để bước kiểm tra sole-rule và bước ghi nằm trong cùng
	// một khối nguyên tử: hai request song song phải xếp hàng tại đây, request
	// sau thấy dòng của request trước và bị từ chối thay vì cùng lọt qua.
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("DiscountRepository.AppendApplication (begin tx): %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT id FROM parking_sessions WHERE id = $1 FOR UPDATE`, app.SessionID); err != nil {
		return nil, fmt.Errorf("DiscountRepository.AppendApplication (khóa session): %w", err)
	}

	var conflict bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM discount_applications
		                 WHERE session_id = $1 AND (stackable = FALSE OR $2::boolean = FALSE))`,
		app.SessionID, app.Stackable,
	).Scan(&conflict)
	if err != nil {
		return nil, fmt.Errorf("DiscountRepository.AppendApplication (kiểm tra sổ): %w", err)
	}
	if conflict {
		return nil, fmt.Errorf("%w: session %d", repository.ErrRuleConflict, app.SessionID)
	}

	query := `INSERT INTO discount_applications (session_id, rule_id, rule_type, stackable, applied_value, reason, applied_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           RETURNING id`
	if err := tx.QueryRowContext(ctx, query,
		app.SessionID, app.RuleID, app.RuleType, app.Stackable, app.AppliedValue, app.Reason, app.AppliedAt,
	).Scan(&app.ID); err != nil {
		return nil, fmt.Errorf("DiscountRepository.AppendApplication: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("DiscountRepository.AppendApplication (commit): %w", err)
	}
	return app, nil
}

func (r *pgDiscountRepository) ListApplications(ctx context.Context, sessionID int) ([]domain.DiscountApplication, error) {
	query := `SELECT id, session_id, rule_id, rule_type, stackable, applied_value, reason, applied_at
	           FROM discount_applications WHERE session_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("DiscountRepository.ListApplications: %w", err)
	}
	defer rows.Close()

	var apps []domain.DiscountApplication
	for rows.Next() {
		var app domain.DiscountApplication
		if err := rows.Scan(
			&app.ID, &app.SessionID, &app.RuleID, &app.RuleType, &app.Stackable,
			&app.AppliedValue, &app.Reason, &app.AppliedAt,
		); err != nil {
			return nil, fmt.Errorf("DiscountRepository.ListApplications (scanning row): %w", err)
		}
		app.AppliedAt = app.AppliedAt.In(time.UTC)
		apps = append(apps, app)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("DiscountRepository.ListApplications (rows error): %w", err)
	}
	return apps, nil
}
