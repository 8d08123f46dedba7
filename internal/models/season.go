package models

import (
	"encoding/json"
	"time"
)

type Season struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	StartAt   time.Time       `json:"startAt" db:"start_at"`
	EndAt     time.Time       `json:"endAt" db:"end_at"`
	IsActive  bool            `json:"isActive" db:"is_active"`
	Rewards   json.RawMessage `json:"rewards" db:"rewards"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

type CreateSeasonRequest struct {
	Name    string          `json:"name" binding:"required"`
	StartAt time.Time       `json:"startAt" binding:"required"`
	EndAt   time.Time       `json:"endAt" binding:"required"`
	Rewards json.RawMessage `json:"rewards"`
}
