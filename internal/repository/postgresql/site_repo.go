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

type pgSiteRepository struct {
	db *sql.DB
}

func NewPgSiteRepository(db *sql.DB) repository.SiteRepository {
	return &pgSiteRepository{db: db}
}

func (r *pgSiteRepository) Create(ctx context.Context, site *domain.Site) (*domain.Site, error) {
	query := `INSERT INTO sites (name, address, created_at, updated_at)
	           VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, site.Name, site.Address).
		Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("SiteRepository.Create: %w", err)
	}
	site.CreatedAt = site.CreatedAt.In(time.UTC)
	site.UpdatedAt = site.UpdatedAt.In(time.UTC)
	return site, nil
}

func (r *pgSiteRepository) FindByID(ctx context.Context, id int) (*domain.Site, error) {
	site := &domain.Site{}
	query := `SELECT id, name, address, created_at, updated_at FROM sites WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&site.ID, &site.Name, &site.Address, &site.CreatedAt, &site.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SiteRepository.FindByID: %w", err)
	}
	return site, nil
}

func (r *pgSiteRepository) FindAll(ctx context.Context) ([]domain.Site, error) {
	query := `SELECT id, name, address, created_at, updated_at FROM sites ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("SiteRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var sites []domain.Site
	for rows.Next() {
		var site domain.Site
		if err := rows.Scan(&site.ID, &site.Name, &site.Address, &site.CreatedAt, &site.UpdatedAt); err != nil {
			return nil, fmt.Errorf("SiteRepository.FindAll (scanning row): %w", err)
		}
		sites = append(sites, site)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SiteRepository.FindAll (rows error): %w", err)
	}
	return sites, nil
}
