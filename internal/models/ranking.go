package models

import "time"

type RankingCategory string

const (
	RankingPVPRating   RankingCategory = "pvp_rating"
	RankingCombatPower RankingCategory = "combat_power"
)

// RankingCategories 전체 랭킹 카테고리
var RankingCategories = []RankingCategory{RankingPVPRating, RankingCombatPower}

// AllTimeSeason 시즌과 무관한 카테고리의 시즌 ID
const AllTimeSeason int64 = 0

// Seasonal reports whether the category is keyed by the active season.
func (c RankingCategory) Seasonal() bool {
	return c == RankingPVPRating
}

// Valid 알려진 카테고리인지 확인
func (c RankingCategory) Valid() bool {
	for _, known := range RankingCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ScoreOf 플레이어 엔티티에서 카테고리 점수 계산
func (c RankingCategory) ScoreOf(p *Player) float64 {
	switch c {
	case RankingPVPRating:
		return float64(p.Rating)
	case RankingCombatPower:
		return float64(p.CombatPower)
	}
	return 0
}

// DisplaySnapshot 랭킹 표시 정보
type DisplaySnapshot struct {
	Name      string `json:"name"`
	Realm     string `json:"realm"`
	AvatarURL string `json:"avatarUrl"`
	SectName  string `json:"sectName"`
}

// UnknownSnapshot 영속 행이 없을 때의 표시용 자리표시자
var UnknownSnapshot = DisplaySnapshot{Name: "unknown"}

// RankingEntry 영속 랭킹 행 (빠른 인덱스 재구축의 원본)
type RankingEntry struct {
	PlayerID  string          `json:"playerId" db:"player_id"`
	Category  RankingCategory `json:"category" db:"category"`
	SeasonID  int64           `json:"seasonId" db:"season_id"`
	Score     float64         `json:"score" db:"score"`
	Snapshot  DisplaySnapshot `json:"snapshot" db:"snapshot"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// RankedEntry 순위가 매겨진 표시 행
type RankedEntry struct {
	Rank     int64           `json:"rank"`
	PlayerID string          `json:"playerId"`
	Score    float64         `json:"score"`
	Snapshot DisplaySnapshot `json:"snapshot"`
}

// RankPosition 플레이어의 순위 (미등록이면 Ranked=false)
type RankPosition struct {
	PlayerID string  `json:"playerId"`
	Ranked   bool    `json:"ranked"`
	Rank     int64   `json:"rank,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

type RankingPage struct {
	Category RankingCategory `json:"category"`
	SeasonID int64           `json:"seasonId"`
	Entries  []RankedEntry   `json:"entries"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}
