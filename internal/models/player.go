package models

import "time"

// DefaultRating 신규 플레이어의 PVP 레이팅
const DefaultRating = 1000

// Player 플레이어 관리 서비스가 소유하는 엔티티 (PVP는 조회 + 레이팅 증감만)
type Player struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Realm       string    `json:"realm" db:"realm"`
	AvatarURL   string    `json:"avatarUrl" db:"avatar_url"`
	SectName    string    `json:"sectName" db:"sect_name"`
	Rating      int       `json:"rating" db:"pvp_rating"`
	CombatPower int64     `json:"combatPower" db:"combat_power"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Snapshot 랭킹 표시용 스냅샷
func (p *Player) Snapshot() DisplaySnapshot {
	return DisplaySnapshot{
		Name:      p.Name,
		Realm:     p.Realm,
		AvatarURL: p.AvatarURL,
		SectName:  p.SectName,
	}
}

// PlayerStats PVP 전적 요약
type PlayerStats struct {
	PlayerID string `json:"playerId"`
	Rating   int    `json:"rating"`
	Rank     *int64 `json:"rank,omitempty"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}

// MatchRecord 승/패/무 집계
type MatchRecord struct {
	Wins   int
	Losses int
	Draws  int
}
