package models

import "time"

type BattleStatus string

const (
	BattleStatusInit     BattleStatus = "INIT"
	BattleStatusActive   BattleStatus = "ACTIVE"
	BattleStatusResolved BattleStatus = "RESOLVED"
)

const (
	MaxHP     = 1000
	MaxEnergy = 100
)

type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionSkill  ActionKind = "skill"
	ActionDefend ActionKind = "defend"
)

// BattleState 진행 중인 전투 상태 (빠른 저장소에 JSON으로 저장)
type BattleState struct {
	MatchID      string           `json:"matchId"`
	Status       BattleStatus     `json:"status"`
	Turn         int              `json:"turn"`
	PlayerAID    string           `json:"playerAId"`
	PlayerBID    string           `json:"playerBId"`
	HPA          int              `json:"hpA"`
	HPB          int              `json:"hpB"`
	EnergyA      int              `json:"energyA"`
	EnergyB      int              `json:"energyB"`
	ActionLog    []BattleLogEntry `json:"actionLog"`
	WinnerID     *string          `json:"winnerId,omitempty"`
	Surrendered  string           `json:"surrendered,omitempty"`
	StartedAt    time.Time        `json:"startedAt"`
	TurnDeadline time.Time        `json:"turnDeadline"`
	LastActionA  time.Time        `json:"lastActionA"`
	LastActionB  time.Time        `json:"lastActionB"`
	IdleStrikesA int              `json:"idleStrikesA"`
	IdleStrikesB int              `json:"idleStrikesB"`
	ResolvedAt   *time.Time       `json:"resolvedAt,omitempty"`
	Version      int64            `json:"version"`
}

// BattleLogEntry 전투 로그 한 줄
type BattleLogEntry struct {
	Turn     int        `json:"turn"`
	PlayerID string     `json:"playerId"`
	Action   ActionKind `json:"action"`
	SkillID  string     `json:"skillId,omitempty"`
	Damage   int        `json:"damage,omitempty"`
	Heal     int        `json:"heal,omitempty"`
	Timeout  bool       `json:"timeout,omitempty"`
	At       time.Time  `json:"at"`
}

// NewBattleState 양측 만피/만에너지로 시작하는 전투
func NewBattleState(matchID, playerAID, playerBID string, now time.Time) *BattleState {
	return &BattleState{
		MatchID:     matchID,
		Status:      BattleStatusActive,
		Turn:        1,
		PlayerAID:   playerAID,
		PlayerBID:   playerBID,
		HPA:         MaxHP,
		HPB:         MaxHP,
		EnergyA:     MaxEnergy,
		EnergyB:     MaxEnergy,
		ActionLog:   []BattleLogEntry{},
		StartedAt:   now,
		LastActionA: now,
		LastActionB: now,
	}
}

func (b *BattleState) IsParticipant(playerID string) bool {
	return b.PlayerAID == playerID || b.PlayerBID == playerID
}

func (b *BattleState) Opponent(playerID string) string {
	if b.PlayerAID == playerID {
		return b.PlayerBID
	}
	return b.PlayerAID
}

// HP 해당 플레이어의 체력 포인터
func (b *BattleState) HP(playerID string) *int {
	if b.PlayerAID == playerID {
		return &b.HPA
	}
	return &b.HPB
}

// Energy 해당 플레이어의 에너지 포인터
func (b *BattleState) Energy(playerID string) *int {
	if b.PlayerAID == playerID {
		return &b.EnergyA
	}
	return &b.EnergyB
}

func (b *BattleState) LastAction(playerID string) *time.Time {
	if b.PlayerAID == playerID {
		return &b.LastActionA
	}
	return &b.LastActionB
}

func (b *BattleState) IdleStrikes(playerID string) *int {
	if b.PlayerAID == playerID {
		return &b.IdleStrikesA
	}
	return &b.IdleStrikesB
}

// Result 승자 기준 매치 결과
func (b *BattleState) Result() MatchResult {
	switch {
	case b.WinnerID == nil:
		return MatchResultDraw
	case *b.WinnerID == b.PlayerAID:
		return MatchResultAWin
	default:
		return MatchResultBWin
	}
}

// PlayerView 클라이언트에 보여줄 전투 요약
type PlayerView struct {
	PlayerID string `json:"playerId"`
	HP       int    `json:"hp"`
	Energy   int    `json:"energy"`
}

type BattleView struct {
	MatchID  string       `json:"matchId"`
	Status   BattleStatus `json:"status"`
	Turn     int          `json:"turn"`
	Players  []PlayerView `json:"players"`
	WinnerID *string      `json:"winnerId,omitempty"`
}

func (b *BattleState) View() BattleView {
	return BattleView{
		MatchID: b.MatchID,
		Status:  b.Status,
		Turn:    b.Turn,
		Players: []PlayerView{
			{PlayerID: b.PlayerAID, HP: b.HPA, Energy: b.EnergyA},
			{PlayerID: b.PlayerBID, HP: b.HPB, Energy: b.EnergyB},
		},
		WinnerID: b.WinnerID,
	}
}
