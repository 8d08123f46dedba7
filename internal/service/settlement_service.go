package service

import (
	"context"
	"errors"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/repository"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/faststore"
	"go.uber.org/zap"
)

type SettleRequest struct {
	MatchID         string
	WinnerID        *string
	BattleLog       []models.BattleLogEntry
	DurationSeconds int
	Turns           int
}

type SettlementResult struct {
	MatchID       string             `json:"matchId"`
	Result        models.MatchResult `json:"result"`
	WinnerID      *string            `json:"winnerId"`
	RatingChanges map[string]int     `json:"ratingChanges"`
}

// RatingRecorder 정산 직후 레이팅 랭킹 갱신
type RatingRecorder interface {
	RecordPlayer(ctx context.Context, player *models.Player, categories ...models.RankingCategory) error
}

// SettlementService 매치 결과를 제로섬 ELO로 정산하고 정확히 한 번 영속화
type SettlementService struct {
	matchRepo  MatchRepository
	playerRepo PlayerRepository
	store      faststore.Store
	rankings   RatingRecorder
	elo        *ELOService
	logger     *zap.Logger
}

func NewSettlementService(
	matchRepo MatchRepository,
	playerRepo PlayerRepository,
	store faststore.Store,
	rankings RatingRecorder,
	elo *ELOService,
	logger *zap.Logger,
) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if elo == nil {
		elo = NewELOService(DefaultKFactor)
	}

	return &SettlementService{
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		store:      store,
		rankings:   rankings,
		elo:        elo,
		logger:     logger,
	}
}

// Settle 매치 정산.
// pending이 아닌 매치는 ErrAlreadySettled. 커밋 이후의 정리/랭킹 실패는 로그만 남긴다.
func (s *SettlementService) Settle(ctx context.Context, req SettleRequest) (*SettlementResult, error) {
	match, err := s.matchRepo.FindByID(ctx, req.MatchID)
	if err != nil {
		return nil, unavailable("failed to find match", err)
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	if match.Result != models.MatchResultPending {
		return nil, ErrAlreadySettled
	}
	if req.WinnerID != nil && !match.HasParticipant(*req.WinnerID) {
		return nil, ErrInvalidWinner
	}

	playerA, err := s.findPlayer(ctx, match.PlayerAID)
	if err != nil {
		return nil, err
	}
	playerB, err := s.findPlayer(ctx, match.PlayerBID)
	if err != nil {
		return nil, err
	}

	result := resultOf(match, req.WinnerID)
	changeA, changeB := s.elo.RatingChanges(playerA.Rating, playerB.Rating, result)

	err = s.matchRepo.Settle(ctx, models.MatchSettlement{
		MatchID:         match.ID,
		PlayerAID:       match.PlayerAID,
		PlayerBID:       match.PlayerBID,
		Result:          result,
		WinnerID:        req.WinnerID,
		RatingChangeA:   changeA,
		RatingChangeB:   changeB,
		BattleLog:       req.BattleLog,
		Turns:           req.Turns,
		DurationSeconds: req.DurationSeconds,
	})
	if errors.Is(err, repository.ErrMatchAlreadySettled) {
		return nil, ErrAlreadySettled
	}
	if err != nil {
		return nil, unavailable("failed to settle match", err)
	}

	s.logger.Info("Match settled",
		zap.String("matchId", match.ID),
		zap.String("result", string(result)),
		zap.String("playerA", match.PlayerAID),
		zap.Int("ratingChangeA", changeA),
		zap.String("playerB", match.PlayerBID),
		zap.Int("ratingChangeB", changeB))

	if err := clearBattle(ctx, s.store, match.ID, match.PlayerAID, match.PlayerBID); err != nil {
		s.logger.Warn("Failed to clear battle after settlement",
			zap.String("matchId", match.ID),
			zap.Error(err))
	}

	s.refreshRankings(ctx, match.ID, match.PlayerAID, match.PlayerBID)

	return &SettlementResult{
		MatchID:  match.ID,
		Result:   result,
		WinnerID: req.WinnerID,
		RatingChanges: map[string]int{
			match.PlayerAID: changeA,
			match.PlayerBID: changeB,
		},
	}, nil
}

func (s *SettlementService) findPlayer(ctx context.Context, id string) (*models.Player, error) {
	p, err := s.playerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, unavailable("failed to find player", err)
	}
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}

// refreshRankings 커밋된 레이팅을 다시 읽어 랭킹 반영 (실패 시 재동기화 대상)
func (s *SettlementService) refreshRankings(ctx context.Context, matchID string, playerIDs ...string) {
	if s.rankings == nil {
		return
	}
	for _, id := range playerIDs {
		p, err := s.playerRepo.FindByID(ctx, id)
		if err == nil && p != nil {
			err = s.rankings.RecordPlayer(ctx, p, models.RankingPVPRating)
		}
		if err != nil {
			s.logger.Warn("Ranking update failed, needs reconciliation",
				zap.String("matchId", matchID),
				zap.String("playerId", id),
				zap.Error(err))
		}
	}
}

func resultOf(match *models.Match, winnerID *string) models.MatchResult {
	switch {
	case winnerID == nil:
		return models.MatchResultDraw
	case *winnerID == match.PlayerAID:
		return models.MatchResultAWin
	default:
		return models.MatchResultBWin
	}
}
