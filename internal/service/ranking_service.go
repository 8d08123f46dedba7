package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/faststore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type RankingConfig struct {
	SyncBatchSize   int
	SyncConcurrency int
	MaxAround       int
}

func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		SyncBatchSize:   500,
		SyncConcurrency: 8,
		MaxAround:       50,
	}
}

// RankingService 빠른 정렬 인덱스 + 영속 랭킹 행.
// 영속 행이 원본이며 인덱스는 언제든 Rebuild로 재생성할 수 있다.
type RankingService struct {
	store       faststore.Store
	rankingRepo RankingRepository
	playerRepo  PlayerRepository
	seasonRepo  SeasonRepository
	cfg         RankingConfig
	logger      *zap.Logger
}

func NewRankingService(
	store faststore.Store,
	rankingRepo RankingRepository,
	playerRepo PlayerRepository,
	seasonRepo SeasonRepository,
	cfg RankingConfig,
	logger *zap.Logger,
) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SyncBatchSize <= 0 {
		cfg.SyncBatchSize = DefaultRankingConfig().SyncBatchSize
	}
	if cfg.SyncConcurrency <= 0 {
		cfg.SyncConcurrency = DefaultRankingConfig().SyncConcurrency
	}
	if cfg.MaxAround <= 0 {
		cfg.MaxAround = DefaultRankingConfig().MaxAround
	}

	return &RankingService{
		store:       store,
		rankingRepo: rankingRepo,
		playerRepo:  playerRepo,
		seasonRepo:  seasonRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// SeasonFor 카테고리의 현재 시즌 ID (시즌제가 아니거나 활성 시즌이 없으면 0)
func (s *RankingService) SeasonFor(ctx context.Context, category models.RankingCategory) (int64, error) {
	if !category.Valid() {
		return 0, ErrInvalidCategory
	}
	if !category.Seasonal() {
		return models.AllTimeSeason, nil
	}

	season, err := s.seasonRepo.FindActive(ctx)
	if err != nil {
		return 0, unavailable("failed to find active season", err)
	}
	if season == nil {
		return models.AllTimeSeason, nil
	}
	return season.ID, nil
}

// Update 영속 행을 먼저 쓰고 인덱스에 반영
func (s *RankingService) Update(
	ctx context.Context,
	playerID string,
	category models.RankingCategory,
	score float64,
	snapshot models.DisplaySnapshot,
	seasonID int64,
) error {
	if !category.Valid() {
		return ErrInvalidCategory
	}

	if err := s.rankingRepo.Upsert(ctx, models.RankingEntry{
		PlayerID: playerID,
		Category: category,
		SeasonID: seasonID,
		Score:    score,
		Snapshot: snapshot,
	}); err != nil {
		return unavailable("failed to persist ranking", err)
	}

	if err := s.store.ZAdd(ctx, RankingKey(string(category), seasonID), faststore.Member{
		Member: playerID,
		Score:  score,
	}); err != nil {
		return unavailable("failed to index ranking", err)
	}

	return nil
}

// RecordPlayer 플레이어 엔티티로 점수 계산 후 갱신 (카테고리 생략 시 전체)
func (s *RankingService) RecordPlayer(ctx context.Context, player *models.Player, categories ...models.RankingCategory) error {
	if len(categories) == 0 {
		categories = models.RankingCategories
	}

	for _, category := range categories {
		seasonID, err := s.SeasonFor(ctx, category)
		if err != nil {
			return err
		}
		if err := s.Update(ctx, player.ID, category, category.ScoreOf(player), player.Snapshot(), seasonID); err != nil {
			return err
		}
	}
	return nil
}

// List 페이지 조회 (1부터 시작)
func (s *RankingService) List(
	ctx context.Context,
	category models.RankingCategory,
	seasonID int64,
	page, pageSize int,
) (*models.RankingPage, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	page, pageSize = normalizePage(page, pageSize)

	key := RankingKey(string(category), seasonID)
	start := int64((page - 1) * pageSize)
	members, err := s.store.ZRevRange(ctx, key, start, start+int64(pageSize)-1)
	if err != nil {
		return nil, unavailable("failed to read ranking", err)
	}
	total, err := s.store.ZCard(ctx, key)
	if err != nil {
		return nil, unavailable("failed to count ranking", err)
	}

	entries, err := s.hydrate(ctx, category, seasonID, members, start)
	if err != nil {
		return nil, err
	}

	return &models.RankingPage{
		Category: category,
		SeasonID: seasonID,
		Entries:  entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// RankOf 1부터 시작하는 순위 (미등록이면 Ranked=false)
func (s *RankingService) RankOf(ctx context.Context, category models.RankingCategory, seasonID int64, playerID string) (*models.RankPosition, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}

	key := RankingKey(string(category), seasonID)
	rank, err := s.store.ZRevRank(ctx, key, playerID)
	if errors.Is(err, faststore.ErrNotFound) {
		return &models.RankPosition{PlayerID: playerID}, nil
	}
	if err != nil {
		return nil, unavailable("failed to read rank", err)
	}

	score, err := s.store.ZScore(ctx, key, playerID)
	if err != nil && !errors.Is(err, faststore.ErrNotFound) {
		return nil, unavailable("failed to read score", err)
	}

	return &models.RankPosition{
		PlayerID: playerID,
		Ranked:   true,
		Rank:     rank + 1,
		Score:    score,
	}, nil
}

// Around 플레이어 위아래 count명씩
func (s *RankingService) Around(
	ctx context.Context,
	category models.RankingCategory,
	seasonID int64,
	playerID string,
	count int,
) ([]models.RankedEntry, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	if count < 0 {
		count = 0
	}
	if count > s.cfg.MaxAround {
		count = s.cfg.MaxAround
	}

	key := RankingKey(string(category), seasonID)
	rank, err := s.store.ZRevRank(ctx, key, playerID)
	if errors.Is(err, faststore.ErrNotFound) {
		return nil, ErrNotRanked
	}
	if err != nil {
		return nil, unavailable("failed to read rank", err)
	}

	start := rank - int64(count)
	if start < 0 {
		start = 0
	}
	members, err := s.store.ZRevRange(ctx, key, start, rank+int64(count))
	if err != nil {
		return nil, unavailable("failed to read ranking", err)
	}

	return s.hydrate(ctx, category, seasonID, members, start)
}

// hydrate 영속 스냅샷을 한 번의 조회로 붙인다
func (s *RankingService) hydrate(
	ctx context.Context,
	category models.RankingCategory,
	seasonID int64,
	members []faststore.Member,
	offset int64,
) ([]models.RankedEntry, error) {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.Member)
	}

	snapshots, err := s.rankingRepo.FindSnapshots(ctx, category, seasonID, ids)
	if err != nil {
		return nil, unavailable("failed to load ranking snapshots", err)
	}

	entries := make([]models.RankedEntry, 0, len(members))
	for i, m := range members {
		snap, ok := snapshots[m.Member]
		if !ok {
			snap = models.UnknownSnapshot
		}
		entries = append(entries, models.RankedEntry{
			Rank:     offset + int64(i) + 1,
			PlayerID: m.Member,
			Score:    m.Score,
			Snapshot: snap,
		})
	}
	return entries, nil
}

// SyncAll 모든 플레이어의 모든 카테고리를 최신 엔티티로 다시 계산
func (s *RankingService) SyncAll(ctx context.Context) (int, error) {
	seasons := make(map[models.RankingCategory]int64, len(models.RankingCategories))
	for _, category := range models.RankingCategories {
		seasonID, err := s.SeasonFor(ctx, category)
		if err != nil {
			return 0, err
		}
		seasons[category] = seasonID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SyncConcurrency)

	var synced int64
	for offset := 0; ; offset += s.cfg.SyncBatchSize {
		players, err := s.playerRepo.ListPage(gctx, s.cfg.SyncBatchSize, offset)
		if err != nil {
			if werr := g.Wait(); werr != nil {
				err = werr
			}
			return int(atomic.LoadInt64(&synced)), unavailable("failed to list players", err)
		}

		for _, p := range players {
			p := p
			g.Go(func() error {
				for _, category := range models.RankingCategories {
					if err := s.Update(gctx, p.ID, category, category.ScoreOf(p), p.Snapshot(), seasons[category]); err != nil {
						return err
					}
				}
				atomic.AddInt64(&synced, 1)
				return nil
			})
		}

		if len(players) < s.cfg.SyncBatchSize {
			break
		}
	}

	err := g.Wait()
	n := int(atomic.LoadInt64(&synced))

	s.logger.Info("Ranking sync completed", zap.Int("players", n), zap.Error(err))
	return n, err
}

// Rebuild 인덱스를 비우고 영속 행에서 다시 적재
func (s *RankingService) Rebuild(ctx context.Context, category models.RankingCategory, seasonID int64) (int, error) {
	if !category.Valid() {
		return 0, ErrInvalidCategory
	}

	key := RankingKey(string(category), seasonID)
	if err := s.store.Del(ctx, key); err != nil {
		return 0, unavailable("failed to drop ranking index", err)
	}

	loaded := 0
	for offset := 0; ; offset += s.cfg.SyncBatchSize {
		rows, err := s.rankingRepo.ListByCategory(ctx, category, seasonID, s.cfg.SyncBatchSize, offset)
		if err != nil {
			return loaded, unavailable("failed to list ranking rows", err)
		}

		members := make([]faststore.Member, 0, len(rows))
		for _, row := range rows {
			members = append(members, faststore.Member{Member: row.PlayerID, Score: row.Score})
		}
		if err := s.store.ZAdd(ctx, key, members...); err != nil {
			return loaded, unavailable("failed to index ranking", err)
		}
		loaded += len(rows)

		if len(rows) < s.cfg.SyncBatchSize {
			break
		}
	}

	s.logger.Info("Ranking index rebuilt",
		zap.String("category", string(category)),
		zap.Int64("seasonId", seasonID),
		zap.Int("entries", loaded))

	return loaded, nil
}

// normalizePage 페이지 기본값/상한
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
