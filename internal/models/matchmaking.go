package models

import "time"

type QueueStatus string

const (
	QueueStatusQueued  QueueStatus = "queued"
	QueueStatusMatched QueueStatus = "matched"
)

// QueueEntry 매칭 대기 항목 (플레이어당 최대 하나)
type QueueEntry struct {
	PlayerID string    `json:"playerId"`
	Rating   int       `json:"rating"`
	JoinedAt time.Time `json:"joinedAt"`
}

// JoinResult 매칭 큐 참가 결과
type JoinResult struct {
	Status     QueueStatus `json:"status"`
	MatchID    string      `json:"matchId,omitempty"`
	OpponentID string      `json:"opponentId,omitempty"`
}
