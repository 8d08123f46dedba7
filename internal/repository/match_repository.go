package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/database"
)

type MatchRepository struct {
	db *database.DB
}

func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchColumns = `id, player_a_id, player_b_id, result, winner_id,
	rating_change_a, rating_change_b, battle_log, turns, duration_seconds,
	season_id, created_at, settled_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	var battleLog []byte
	err := row.Scan(
		&m.ID,
		&m.PlayerAID,
		&m.PlayerBID,
		&m.Result,
		&m.WinnerID,
		&m.RatingChangeA,
		&m.RatingChangeB,
		&battleLog,
		&m.Turns,
		&m.DurationSeconds,
		&m.SeasonID,
		&m.CreatedAt,
		&m.SettledAt,
	)
	if err != nil {
		return nil, err
	}

	if len(battleLog) > 0 {
		if err := json.Unmarshal(battleLog, &m.BattleLog); err != nil {
			return nil, fmt.Errorf("failed to decode battle log: %w", err)
		}
	}
	return m, nil
}

// Create pending 상태의 새 매치 생성
func (r *MatchRepository) Create(ctx context.Context, id, playerAID, playerBID string, seasonID *int64) (*models.Match, error) {
	query := `
		INSERT INTO pvp_matches (id, player_a_id, player_b_id, result, season_id)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING ` + matchColumns

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id, playerAID, playerBID, seasonID))
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	return m, nil
}

// FindByID ID로 매치 찾기 (없으면 nil, nil)
func (r *MatchRepository) FindByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM pvp_matches WHERE id = $1`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find match: %w", err)
	}

	return m, nil
}

// Settle 매치 결과 기록과 양측 레이팅 증감을 하나의 트랜잭션으로 커밋.
// pending이 아닌 매치면 ErrMatchAlreadySettled, 아무것도 바뀌지 않음.
func (r *MatchRepository) Settle(ctx context.Context, s models.MatchSettlement) error {
	battleLog, err := json.Marshal(s.BattleLog)
	if err != nil {
		return fmt.Errorf("failed to encode battle log: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE pvp_matches
			SET result = $1,
			    winner_id = $2,
			    rating_change_a = $3,
			    rating_change_b = $4,
			    battle_log = $5,
			    turns = $6,
			    duration_seconds = $7,
			    settled_at = NOW()
			WHERE id = $8 AND result = 'pending'
		`,
			s.Result,
			s.WinnerID,
			s.RatingChangeA,
			s.RatingChangeB,
			battleLog,
			s.Turns,
			s.DurationSeconds,
			s.MatchID,
		)
		if err != nil {
			return fmt.Errorf("failed to update match: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return ErrMatchAlreadySettled
		}

		ratingQuery := `UPDATE players SET pvp_rating = pvp_rating + $1 WHERE id = $2`
		if _, err := tx.ExecContext(ctx, ratingQuery, s.RatingChangeA, s.PlayerAID); err != nil {
			return fmt.Errorf("failed to update rating of %s: %w", s.PlayerAID, err)
		}
		if _, err := tx.ExecContext(ctx, ratingQuery, s.RatingChangeB, s.PlayerBID); err != nil {
			return fmt.Errorf("failed to update rating of %s: %w", s.PlayerBID, err)
		}

		return nil
	})
}

// FindByPlayer 플레이어의 정산된 매치 (최신순). seasonID가 nil이면 전 시즌
func (r *MatchRepository) FindByPlayer(ctx context.Context, playerID string, seasonID *int64, limit, offset int) ([]*models.Match, int, error) {
	where := `
		WHERE (player_a_id = $1 OR player_b_id = $1)
		  AND result <> 'pending'
		  AND ($2::BIGINT IS NULL OR season_id = $2)
	`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pvp_matches`+where, playerID, seasonID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	query := `SELECT ` + matchColumns + ` FROM pvp_matches` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	matches, err := r.queryMatches(ctx, query, playerID, seasonID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return matches, total, nil
}

// FindAll 전체 매치 (관리자용, 최신순)
func (r *MatchRepository) FindAll(ctx context.Context, limit, offset int) ([]*models.Match, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pvp_matches`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	query := `SELECT ` + matchColumns + ` FROM pvp_matches ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	matches, err := r.queryMatches(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return matches, total, nil
}

// CountResults 플레이어의 승/패/무 집계
func (r *MatchRepository) CountResults(ctx context.Context, playerID string) (models.MatchRecord, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE winner_id = $1),
			COUNT(*) FILTER (WHERE result <> 'draw' AND winner_id <> $1),
			COUNT(*) FILTER (WHERE result = 'draw')
		FROM pvp_matches
		WHERE (player_a_id = $1 OR player_b_id = $1)
		  AND result <> 'pending'
	`

	var rec models.MatchRecord
	if err := r.db.QueryRowContext(ctx, query, playerID).Scan(&rec.Wins, &rec.Losses, &rec.Draws); err != nil {
		return rec, fmt.Errorf("failed to count results: %w", err)
	}

	return rec, nil
}

func (r *MatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := []*models.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}
