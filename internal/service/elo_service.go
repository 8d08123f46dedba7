package service

import (
	"math"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
)

// DefaultKFactor PVP 레이팅 변동 폭
const DefaultKFactor = 32

// ELOService ELO 레이팅 계산 서비스
type ELOService struct {
	kFactor float64
}

// NewELOService ELO 서비스 생성 (k <= 0 이면 기본값)
func NewELOService(k float64) *ELOService {
	if k <= 0 {
		k = DefaultKFactor
	}
	return &ELOService{kFactor: k}
}

// ExpectedScore ELO에 기반한 기대 승률 계산
func (s *ELOService) ExpectedScore(ratingSelf, ratingOpponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingOpponent-ratingSelf)/400.0))
}

// RatingChanges 매치 결과에 따른 양측 레이팅 변화.
// 승자의 변화량을 반올림한 뒤 패자에게 부호만 바꿔 적용하므로 항상 합이 0이다.
// 무승부는 양측 모두 0.
func (s *ELOService) RatingChanges(ratingA, ratingB int, result models.MatchResult) (changeA, changeB int) {
	switch result {
	case models.MatchResultAWin:
		gain := s.winnerGain(ratingA, ratingB)
		return gain, -gain
	case models.MatchResultBWin:
		gain := s.winnerGain(ratingB, ratingA)
		return -gain, gain
	}
	return 0, 0
}

func (s *ELOService) winnerGain(winnerRating, loserRating int) int {
	expected := s.ExpectedScore(winnerRating, loserRating)
	return int(math.Round(s.kFactor * (1.0 - expected)))
}
