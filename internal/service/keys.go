package service

import "fmt"

// 빠른 저장소 키
const (
	queueKey          = "pvp:queue"
	activeBattlesKey  = "pvp:battles:active"
	matchmakingLockID = "pvp:lock:matchmaking"
)

func queueEntryKey(playerID string) string {
	return "pvp:queue:entry:" + playerID
}

func battleKey(matchID string) string {
	return "pvp:battle:" + matchID
}

func battleLockKey(matchID string) string {
	return "pvp:lock:battle:" + matchID
}

func playerBattleKey(playerID string) string {
	return "pvp:player:battle:" + playerID
}

func matchChannel(matchID string) string {
	return "match:" + matchID
}

// RankingKey 카테고리/시즌별 랭킹 정렬 집합 키
func RankingKey(category string, seasonID int64) string {
	return fmt.Sprintf("ranking:%s:%d", category, seasonID)
}
