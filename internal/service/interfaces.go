package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
)

// PlayerRepository players 테이블 읽기
type PlayerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Player, error)
	ListPage(ctx context.Context, limit, offset int) ([]*models.Player, error)
}

// MatchRepository 매치 영속화. Settle은 매치 결과 기록과 양측 레이팅 증감을 단일 트랜잭션으로 처리한다.
type MatchRepository interface {
	Create(ctx context.Context, id, playerAID, playerBID string, seasonID *int64) (*models.Match, error)
	FindByID(ctx context.Context, id string) (*models.Match, error)
	Settle(ctx context.Context, s models.MatchSettlement) error
	FindByPlayer(ctx context.Context, playerID string, seasonID *int64, limit, offset int) ([]*models.Match, int, error)
	FindAll(ctx context.Context, limit, offset int) ([]*models.Match, int, error)
	CountResults(ctx context.Context, playerID string) (models.MatchRecord, error)
}

type SeasonRepository interface {
	FindActive(ctx context.Context) (*models.Season, error)
	FindByID(ctx context.Context, id int64) (*models.Season, error)
	Create(ctx context.Context, name string, startAt, endAt time.Time, rewards json.RawMessage) (*models.Season, error)
	Activate(ctx context.Context, id int64) error
	End(ctx context.Context, id int64) error
	FindAll(ctx context.Context) ([]*models.Season, error)
}

type RankingRepository interface {
	Upsert(ctx context.Context, e models.RankingEntry) error
	FindSnapshots(ctx context.Context, category models.RankingCategory, seasonID int64, playerIDs []string) (map[string]models.DisplaySnapshot, error)
	ListByCategory(ctx context.Context, category models.RankingCategory, seasonID int64, limit, offset int) ([]models.RankingEntry, error)
}

// Gateway 실시간 채널로 이벤트 전달 (웹소켓 허브가 구현)
type Gateway interface {
	JoinChannel(playerID, channel string)
	LeaveChannel(playerID, channel string)
	BroadcastToChannel(channel, msgType string, payload interface{})
	SendToPlayer(playerID, msgType string, payload interface{})
}

// DamageRoller [0, n) 균등 난수
type DamageRoller interface {
	Intn(n int) int
}

// nopGateway 게이트웨이 미설정 시 사용
type nopGateway struct{}

func (nopGateway) JoinChannel(string, string)                     {}
func (nopGateway) LeaveChannel(string, string)                    {}
func (nopGateway) BroadcastToChannel(string, string, interface{}) {}
func (nopGateway) SendToPlayer(string, string, interface{})       {}
