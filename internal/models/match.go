package models

import "time"

type MatchResult string

const (
	MatchResultPending MatchResult = "pending"
	MatchResultAWin    MatchResult = "a_win"
	MatchResultBWin    MatchResult = "b_win"
	MatchResultDraw    MatchResult = "draw"
)

type Match struct {
	ID              string           `json:"id" db:"id"`
	PlayerAID       string           `json:"playerAId" db:"player_a_id"`
	PlayerBID       string           `json:"playerBId" db:"player_b_id"`
	Result          MatchResult      `json:"result" db:"result"`
	WinnerID        *string          `json:"winnerId,omitempty" db:"winner_id"`
	RatingChangeA   int              `json:"ratingChangeA" db:"rating_change_a"`
	RatingChangeB   int              `json:"ratingChangeB" db:"rating_change_b"`
	BattleLog       []BattleLogEntry `json:"battleLog,omitempty" db:"battle_log"`
	Turns           int              `json:"turns" db:"turns"`
	DurationSeconds int              `json:"durationSeconds" db:"duration_seconds"`
	SeasonID        *int64           `json:"seasonId,omitempty" db:"season_id"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
	SettledAt       *time.Time       `json:"settledAt,omitempty" db:"settled_at"`
}

// HasParticipant 매치 참가자 여부
func (m *Match) HasParticipant(playerID string) bool {
	return m.PlayerAID == playerID || m.PlayerBID == playerID
}

// Opponent 상대 플레이어 ID
func (m *Match) Opponent(playerID string) string {
	if m.PlayerAID == playerID {
		return m.PlayerBID
	}
	return m.PlayerAID
}

// MatchSettlement 정산 트랜잭션에 기록할 내용
type MatchSettlement struct {
	MatchID         string
	PlayerAID       string
	PlayerBID       string
	Result          MatchResult
	WinnerID        *string
	RatingChangeA   int
	RatingChangeB   int
	BattleLog       []BattleLogEntry
	Turns           int
	DurationSeconds int
}

// MatchPage 페이지 단위 매치 목록
type MatchPage struct {
	Matches  []*Match `json:"matches"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}
