package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/database"
)

// PlayerRepository players 테이블 읽기 전용 접근 (레이팅 증감은 MatchRepository.Settle 트랜잭션에서)
type PlayerRepository struct {
	db *database.DB
}

func NewPlayerRepository(db *database.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

const playerColumns = `id, name, realm, avatar_url, sect_name, pvp_rating, combat_power, created_at`

func scanPlayer(row interface{ Scan(...interface{}) error }) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Realm,
		&p.AvatarURL,
		&p.SectName,
		&p.Rating,
		&p.CombatPower,
		&p.CreatedAt,
	)
	return p, err
}

// FindByID ID로 플레이어 찾기 (없으면 nil, nil)
func (r *PlayerRepository) FindByID(ctx context.Context, id string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	p, err := scanPlayer(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}

	return p, nil
}

// ListPage ID 순 페이지 조회 (랭킹 전체 동기화용)
func (r *PlayerRepository) ListPage(ctx context.Context, limit, offset int) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := []*models.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}

	return players, rows.Err()
}
