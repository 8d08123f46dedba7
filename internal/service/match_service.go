package service

import (
	"context"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
)

// RankReader 통계 조회용 순위 읽기
type RankReader interface {
	SeasonFor(ctx context.Context, category models.RankingCategory) (int64, error)
	RankOf(ctx context.Context, category models.RankingCategory, seasonID int64, playerID string) (*models.RankPosition, error)
}

// MatchService 매치 기록/통계 조회
type MatchService struct {
	matchRepo  MatchRepository
	playerRepo PlayerRepository
	rankings   RankReader
}

func NewMatchService(matchRepo MatchRepository, playerRepo PlayerRepository, rankings RankReader) *MatchService {
	return &MatchService{
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		rankings:   rankings,
	}
}

// GetHistory 플레이어의 정산된 매치 (최신순). seasonID nil이면 전체
func (s *MatchService) GetHistory(ctx context.Context, playerID string, page, pageSize int, seasonID *int64) (*models.MatchPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	matches, total, err := s.matchRepo.FindByPlayer(ctx, playerID, seasonID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, unavailable("failed to find match history", err)
	}

	return &models.MatchPage{
		Matches:  matches,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetStats 레이팅, 현재 시즌 순위, 승/패/무
func (s *MatchService) GetStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	player, err := s.playerRepo.FindByID(ctx, playerID)
	if err != nil {
		return nil, unavailable("failed to find player", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	record, err := s.matchRepo.CountResults(ctx, playerID)
	if err != nil {
		return nil, unavailable("failed to count results", err)
	}

	stats := &models.PlayerStats{
		PlayerID: playerID,
		Rating:   player.Rating,
		Wins:     record.Wins,
		Losses:   record.Losses,
		Draws:    record.Draws,
	}

	if s.rankings != nil {
		seasonID, err := s.rankings.SeasonFor(ctx, models.RankingPVPRating)
		if err != nil {
			return nil, err
		}
		pos, err := s.rankings.RankOf(ctx, models.RankingPVPRating, seasonID, playerID)
		if err != nil {
			return nil, err
		}
		if pos.Ranked {
			rank := pos.Rank
			stats.Rank = &rank
		}
	}

	return stats, nil
}

func (s *MatchService) GetByID(ctx context.Context, id string) (*models.Match, error) {
	match, err := s.matchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, unavailable("failed to find match", err)
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	return match, nil
}

// ListAll 전체 매치 (관리자용)
func (s *MatchService) ListAll(ctx context.Context, page, pageSize int) (*models.MatchPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	matches, total, err := s.matchRepo.FindAll(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, unavailable("failed to list matches", err)
	}

	return &models.MatchPage{
		Matches:  matches,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
