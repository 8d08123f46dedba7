package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/database"
)

// RankingRepository 영속 랭킹 행 (빠른 인덱스의 원본)
type RankingRepository struct {
	db *database.DB
}

func NewRankingRepository(db *database.DB) *RankingRepository {
	return &RankingRepository{db: db}
}

// Upsert 점수와 표시 스냅샷 기록
func (r *RankingRepository) Upsert(ctx context.Context, e models.RankingEntry) error {
	snapshot, err := json.Marshal(e.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO pvp_rankings (player_id, category, season_id, score, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (player_id, category, season_id)
		DO UPDATE SET
			score = EXCLUDED.score,
			snapshot = EXCLUDED.snapshot,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, e.PlayerID, string(e.Category), e.SeasonID, e.Score, snapshot); err != nil {
		return fmt.Errorf("failed to upsert ranking: %w", err)
	}

	return nil
}

// FindSnapshots 여러 플레이어의 표시 스냅샷 일괄 조회
func (r *RankingRepository) FindSnapshots(
	ctx context.Context,
	category models.RankingCategory,
	seasonID int64,
	playerIDs []string,
) (map[string]models.DisplaySnapshot, error) {
	out := make(map[string]models.DisplaySnapshot, len(playerIDs))
	if len(playerIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT player_id, snapshot
		FROM pvp_rankings
		WHERE category = $1 AND season_id = $2 AND player_id = ANY($3)
	`
	rows, err := r.db.QueryContext(ctx, query, string(category), seasonID, pq.Array(playerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to find snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			playerID string
			raw      []byte
			snap     models.DisplaySnapshot
		)
		if err := rows.Scan(&playerID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot of %s: %w", playerID, err)
		}
		out[playerID] = snap
	}

	return out, rows.Err()
}

// ListByCategory 점수 내림차순, 동점은 player_id 바이트 순 내림차순 (ZREVRANGE와 동일, 로캘 무관)
func (r *RankingRepository) ListByCategory(
	ctx context.Context,
	category models.RankingCategory,
	seasonID int64,
	limit, offset int,
) ([]models.RankingEntry, error) {
	query := `
		SELECT player_id, category, season_id, score, snapshot, updated_at
		FROM pvp_rankings
		WHERE category = $1 AND season_id = $2
		ORDER BY score DESC, player_id COLLATE "C" DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, string(category), seasonID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}
	defer rows.Close()

	entries := []models.RankingEntry{}
	for rows.Next() {
		var (
			e   models.RankingEntry
			raw []byte
		)
		if err := rows.Scan(&e.PlayerID, &e.Category, &e.SeasonID, &e.Score, &raw, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot of %s: %w", e.PlayerID, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
