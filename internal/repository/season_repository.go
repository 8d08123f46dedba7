package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/database"
)

type SeasonRepository struct {
	db *database.DB
}

func NewSeasonRepository(db *database.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

const seasonColumns = `id, name, start_at, end_at, is_active, rewards, created_at`

func scanSeason(row interface{ Scan(...interface{}) error }) (*models.Season, error) {
	s := &models.Season{}
	var rewards []byte
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.StartAt,
		&s.EndAt,
		&s.IsActive,
		&rewards,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Rewards = json.RawMessage(rewards)
	return s, nil
}

// FindActive 활성 시즌 (없으면 nil, nil)
func (r *SeasonRepository) FindActive(ctx context.Context) (*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM pvp_seasons WHERE is_active LIMIT 1`

	s, err := scanSeason(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active season: %w", err)
	}

	return s, nil
}

func (r *SeasonRepository) FindByID(ctx context.Context, id int64) (*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM pvp_seasons WHERE id = $1`

	s, err := scanSeason(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find season: %w", err)
	}

	return s, nil
}

// Create 비활성 상태로 시즌 생성
func (r *SeasonRepository) Create(ctx context.Context, name string, startAt, endAt time.Time, rewards json.RawMessage) (*models.Season, error) {
	if len(rewards) == 0 {
		rewards = json.RawMessage(`[]`)
	}

	query := `
		INSERT INTO pvp_seasons (name, start_at, end_at, rewards)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + seasonColumns

	s, err := scanSeason(r.db.QueryRowContext(ctx, query, name, startAt, endAt, []byte(rewards)))
	if err != nil {
		return nil, fmt.Errorf("failed to create season: %w", err)
	}

	return s, nil
}

// Activate 지정 시즌만 활성화 (기존 활성 시즌은 같은 트랜잭션에서 비활성화)
func (r *SeasonRepository) Activate(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pvp_seasons SET is_active = FALSE WHERE is_active AND id <> $1`, id,
		); err != nil {
			return fmt.Errorf("failed to deactivate seasons: %w", err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE pvp_seasons SET is_active = TRUE WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to activate season: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return ErrSeasonNotFound
		}
		return nil
	})
}

// End 시즌 종료 (비활성화 + 종료 시각 기록)
func (r *SeasonRepository) End(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pvp_seasons SET is_active = FALSE, end_at = LEAST(end_at, NOW()) WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to end season: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrSeasonNotFound
	}
	return nil
}

func (r *SeasonRepository) FindAll(ctx context.Context) ([]*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM pvp_seasons ORDER BY start_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	seasons := []*models.Season{}
	for rows.Next() {
		s, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, s)
	}

	return seasons, rows.Err()
}
