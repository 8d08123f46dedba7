package service

import "github.com/xutongxue233/wanjielunhui-sub001/internal/models"

// 실시간 이벤트 타입
const (
	EventMatched = "matched"
	EventTurn    = "turn"
	EventEnd     = "end"
)

type MatchedEvent struct {
	MatchID    string            `json:"matchId"`
	Players    []string          `json:"players"`
	OpponentID string            `json:"opponentId"`
	State      models.BattleView `json:"state"`
}

type TurnEvent struct {
	MatchID string                `json:"matchId"`
	Turn    int                   `json:"turn"`
	Action  models.BattleLogEntry `json:"action"`
	State   models.BattleView     `json:"state"`
}

type EndEvent struct {
	MatchID       string             `json:"matchId"`
	WinnerID      *string            `json:"winnerId"`
	Result        models.MatchResult `json:"result"`
	RatingChanges map[string]int     `json:"ratingChanges"`
}
