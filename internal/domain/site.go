package domain

import "time"

// Site là một bãi đỗ xe (một cơ sở vận hành độc lập). Mỗi site có một rate plan
// active và một tập rào chắn riêng.
type Site struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SiteDTO struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address,omitempty"`
}
