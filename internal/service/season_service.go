package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/repository"
	"go.uber.org/zap"
)

type SeasonService struct {
	seasonRepo SeasonRepository
	logger     *zap.Logger
}

func NewSeasonService(seasonRepo SeasonRepository, logger *zap.Logger) *SeasonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeasonService{seasonRepo: seasonRepo, logger: logger}
}

// GetCurrent 활성 시즌 (없으면 ErrSeasonNotFound)
func (s *SeasonService) GetCurrent(ctx context.Context) (*models.Season, error) {
	season, err := s.seasonRepo.FindActive(ctx)
	if err != nil {
		return nil, unavailable("failed to find active season", err)
	}
	if season == nil {
		return nil, ErrSeasonNotFound
	}
	return season, nil
}

// Create 비활성 시즌 생성
func (s *SeasonService) Create(ctx context.Context, name string, startAt, endAt time.Time, rewards json.RawMessage) (*models.Season, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if !endAt.After(startAt) {
		return nil, ErrInvalidSeason
	}
	if len(rewards) > 0 && !json.Valid(rewards) {
		return nil, ErrInvalidInput
	}

	season, err := s.seasonRepo.Create(ctx, name, startAt, endAt, rewards)
	if err != nil {
		return nil, unavailable("failed to create season", err)
	}

	s.logger.Info("Season created", zap.Int64("seasonId", season.ID), zap.String("name", season.Name))
	return season, nil
}

// Activate 지정 시즌만 활성화
func (s *SeasonService) Activate(ctx context.Context, id int64) error {
	if err := s.seasonRepo.Activate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSeasonNotFound) {
			return ErrSeasonNotFound
		}
		return unavailable("failed to activate season", err)
	}

	s.logger.Info("Season activated", zap.Int64("seasonId", id))
	return nil
}

// End 시즌 종료
func (s *SeasonService) End(ctx context.Context, id int64) error {
	if err := s.seasonRepo.End(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSeasonNotFound) {
			return ErrSeasonNotFound
		}
		return unavailable("failed to end season", err)
	}

	s.logger.Info("Season ended", zap.Int64("seasonId", id))
	return nil
}

func (s *SeasonService) List(ctx context.Context) ([]*models.Season, error) {
	seasons, err := s.seasonRepo.FindAll(ctx)
	if err != nil {
		return nil, unavailable("failed to list seasons", err)
	}
	return seasons, nil
}
