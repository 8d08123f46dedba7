package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/distributed"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/faststore"
	"go.uber.org/zap"
)

// MatchmakingConfig 매칭 큐 설정
type MatchmakingConfig struct {
	BaseWindow     int
	WindowStep     int
	MaxWindow      int
	WidenEvery     time.Duration
	QueueTTL       time.Duration
	SweepInterval  time.Duration
	SweepLockTTL   time.Duration
	CandidateLimit int64
}

func DefaultMatchmakingConfig() MatchmakingConfig {
	return MatchmakingConfig{
		BaseWindow:     100,
		WindowStep:     50,
		MaxWindow:      500,
		WidenEvery:     10 * time.Second,
		QueueTTL:       5 * time.Minute,
		SweepInterval:  5 * time.Second,
		SweepLockTTL:   10 * time.Second,
		CandidateLimit: 50,
	}
}

// SessionCreator 매칭 직후 전투 세션 생성
type SessionCreator interface {
	CreateSession(ctx context.Context, matchID, playerAID, playerBID string) error
}

// MatchmakingService 레이팅 범위 기반 매칭 큐.
// 대기자 점유는 정렬 집합 ZREM 결과(1이면 내가 가져감)로 판정한다.
type MatchmakingService struct {
	store      faststore.Store
	locks      *distributed.LockManager
	playerRepo PlayerRepository
	matchRepo  MatchRepository
	seasonRepo SeasonRepository
	battles    SessionCreator
	cfg        MatchmakingConfig
	logger     *zap.Logger
	now        func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewMatchmakingService(
	store faststore.Store,
	locks *distributed.LockManager,
	playerRepo PlayerRepository,
	matchRepo MatchRepository,
	seasonRepo SeasonRepository,
	battles SessionCreator,
	cfg MatchmakingConfig,
	logger *zap.Logger,
) *MatchmakingService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MatchmakingService{
		store:      store,
		locks:      locks,
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		seasonRepo: seasonRepo,
		battles:    battles,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		stopChan:   make(chan struct{}),
	}
}

// Join 매칭 큐 참가: 범위 안의 상대가 있으면 즉시 매칭, 없으면 대기
func (s *MatchmakingService) Join(ctx context.Context, playerID string) (*models.JoinResult, error) {
	player, err := s.playerRepo.FindByID(ctx, playerID)
	if err != nil {
		return nil, unavailable("failed to find player", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	if _, err := s.store.Get(ctx, playerBattleKey(playerID)); err == nil {
		return nil, ErrAlreadyInBattle
	} else if !errors.Is(err, faststore.ErrNotFound) {
		return nil, unavailable("failed to check battle participant", err)
	}

	entry := models.QueueEntry{
		PlayerID: playerID,
		Rating:   player.Rating,
		JoinedAt: s.now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.SetNX(ctx, queueEntryKey(playerID), data, s.cfg.QueueTTL)
	if err != nil {
		return nil, unavailable("failed to create queue entry", err)
	}
	if !ok {
		return nil, ErrAlreadyQueued
	}

	opponent, err := s.claimCandidate(ctx, entry, s.cfg.BaseWindow)
	if err != nil {
		s.dropEntry(ctx, playerID)
		return nil, err
	}

	if opponent != nil {
		match, err := s.pair(ctx, *opponent, entry)
		if err != nil {
			s.requeue(ctx, *opponent)
			s.dropEntry(ctx, playerID)
			return nil, err
		}

		return &models.JoinResult{
			Status:     models.QueueStatusMatched,
			MatchID:    match.ID,
			OpponentID: opponent.PlayerID,
		}, nil
	}

	if err := s.store.ZAdd(ctx, queueKey, faststore.Member{
		Member: playerID,
		Score:  float64(entry.Rating),
	}); err != nil {
		s.dropEntry(ctx, playerID)
		return nil, unavailable("failed to enqueue", err)
	}

	s.logger.Debug("Player queued",
		zap.String("playerId", playerID),
		zap.Int("rating", entry.Rating))

	return &models.JoinResult{Status: models.QueueStatusQueued}, nil
}

// Leave 큐 이탈 (멱등)
func (s *MatchmakingService) Leave(ctx context.Context, playerID string) error {
	if _, err := s.store.ZRem(ctx, queueKey, playerID); err != nil {
		return unavailable("failed to leave queue", err)
	}
	if err := s.store.Del(ctx, queueEntryKey(playerID)); err != nil {
		return unavailable("failed to delete queue entry", err)
	}
	return nil
}

// QueueSize 현재 대기 인원
func (s *MatchmakingService) QueueSize(ctx context.Context) (int64, error) {
	n, err := s.store.ZCard(ctx, queueKey)
	if err != nil {
		return 0, unavailable("failed to count queue", err)
	}
	return n, nil
}

// claimCandidate 범위 안의 최적 후보를 원자적으로 점유. 점유 실패 시 nil
func (s *MatchmakingService) claimCandidate(ctx context.Context, self models.QueueEntry, window int) (*models.QueueEntry, error) {
	members, err := s.store.ZRangeByScore(ctx, queueKey,
		float64(self.Rating-window), float64(self.Rating+window), s.cfg.CandidateLimit)
	if err != nil {
		return nil, unavailable("failed to search queue", err)
	}

	candidates := make([]models.QueueEntry, 0, len(members))
	for _, m := range members {
		if m.Member == self.PlayerID {
			continue
		}
		e, ok, err := s.liveEntry(ctx, m.Member)
		if err != nil {
			return nil, err
		}
		if ok {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sortCandidates(candidates, self.Rating)
	best := candidates[0]

	n, err := s.store.ZRem(ctx, queueKey, best.PlayerID)
	if err != nil {
		return nil, unavailable("failed to claim candidate", err)
	}
	if n == 0 {
		// 다른 요청이 먼저 가져감
		return nil, nil
	}
	return &best, nil
}

// liveEntry 대기 항목 조회. 항목 키가 만료된 구성원은 정렬 집합에서도 제거
func (s *MatchmakingService) liveEntry(ctx context.Context, playerID string) (models.QueueEntry, bool, error) {
	var e models.QueueEntry

	data, err := s.store.Get(ctx, queueEntryKey(playerID))
	if errors.Is(err, faststore.ErrNotFound) {
		if _, err := s.store.ZRem(ctx, queueKey, playerID); err != nil {
			return e, false, unavailable("failed to prune stale entry", err)
		}
		return e, false, nil
	}
	if err != nil {
		return e, false, unavailable("failed to read queue entry", err)
	}

	if err := json.Unmarshal(data, &e); err != nil {
		s.logger.Warn("Dropping unreadable queue entry", zap.String("playerId", playerID), zap.Error(err))
		_, _ = s.store.ZRem(ctx, queueKey, playerID)
		_ = s.store.Del(ctx, queueEntryKey(playerID))
		return e, false, nil
	}
	return e, true, nil
}

// sortCandidates 레이팅 차이, 먼저 들어온 순, 플레이어 ID 순
func sortCandidates(cs []models.QueueEntry, rating int) {
	sort.SliceStable(cs, func(i, j int) bool {
		di, dj := abs(cs[i].Rating-rating), abs(cs[j].Rating-rating)
		if di != dj {
			return di < dj
		}
		if !cs[i].JoinedAt.Equal(cs[j].JoinedAt) {
			return cs[i].JoinedAt.Before(cs[j].JoinedAt)
		}
		return cs[i].PlayerID < cs[j].PlayerID
	})
}

// pair 매치 생성 + 전투 세션 생성 + 양측 대기 항목 삭제
func (s *MatchmakingService) pair(ctx context.Context, a, b models.QueueEntry) (*models.Match, error) {
	var seasonID *int64
	season, err := s.seasonRepo.FindActive(ctx)
	if err != nil {
		return nil, unavailable("failed to find active season", err)
	}
	if season != nil {
		seasonID = &season.ID
	}

	match, err := s.matchRepo.Create(ctx, uuid.NewString(), a.PlayerID, b.PlayerID, seasonID)
	if err != nil {
		return nil, unavailable("failed to create match", err)
	}

	if err := s.battles.CreateSession(ctx, match.ID, a.PlayerID, b.PlayerID); err != nil {
		s.logger.Error("Failed to create battle session",
			zap.String("matchId", match.ID),
			zap.Error(err))
		return nil, err
	}

	if err := s.store.Del(ctx, queueEntryKey(a.PlayerID), queueEntryKey(b.PlayerID)); err != nil {
		s.logger.Warn("Failed to delete queue entries", zap.String("matchId", match.ID), zap.Error(err))
	}

	s.logger.Info("Match created",
		zap.String("matchId", match.ID),
		zap.String("playerA", a.PlayerID),
		zap.String("playerB", b.PlayerID),
		zap.Int("ratingDiff", abs(a.Rating-b.Rating)))

	return match, nil
}

// requeue 점유했던 후보를 되돌림 (항목 키가 살아 있을 때만 의미 있음)
func (s *MatchmakingService) requeue(ctx context.Context, e models.QueueEntry) {
	if err := s.store.ZAdd(ctx, queueKey, faststore.Member{Member: e.PlayerID, Score: float64(e.Rating)}); err != nil {
		s.logger.Error("Failed to requeue player", zap.String("playerId", e.PlayerID), zap.Error(err))
	}
}

func (s *MatchmakingService) dropEntry(ctx context.Context, playerID string) {
	if err := s.store.Del(ctx, queueEntryKey(playerID)); err != nil {
		s.logger.Warn("Failed to delete queue entry", zap.String("playerId", playerID), zap.Error(err))
	}
}

// Start 매칭 시스템 시작
func (s *MatchmakingService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting MatchmakingService", zap.Duration("interval", s.cfg.SweepInterval))

	s.wg.Add(1)
	go s.matchmakingLoop()
}

// Stop 매칭 시스템 중지
func (s *MatchmakingService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping MatchmakingService")
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("MatchmakingService stopped")
}

// matchmakingLoop 주기적 매칭 실행
func (s *MatchmakingService) matchmakingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunMatchmaking(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// RunMatchmaking 오래 기다린 순으로 대기자를 넓어진 범위로 짝지음.
// 인스턴스가 여럿이면 스윕 락을 잡은 하나만 실행한다.
func (s *MatchmakingService) RunMatchmaking(ctx context.Context) int {
	lock, err := s.locks.AcquireLock(ctx, matchmakingLockID, s.cfg.SweepLockTTL)
	if err != nil {
		if !errors.Is(err, distributed.ErrLockNotAcquired) {
			s.logger.Error("Failed to acquire matchmaking lock", zap.Error(err))
		}
		return 0
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logger.Warn("Failed to release matchmaking lock", zap.Error(err))
		}
	}()

	members, err := s.store.ZRangeByScore(ctx, queueKey, math.Inf(-1), math.Inf(1), 0)
	if err != nil {
		s.logger.Error("Failed to read queue", zap.Error(err))
		return 0
	}

	waiting := make([]models.QueueEntry, 0, len(members))
	for _, m := range members {
		e, ok, err := s.liveEntry(ctx, m.Member)
		if err != nil {
			s.logger.Error("Failed to read queue entry", zap.String("playerId", m.Member), zap.Error(err))
			continue
		}
		if ok {
			waiting = append(waiting, e)
		}
	}
	if len(waiting) < 2 {
		return 0
	}

	sort.SliceStable(waiting, func(i, j int) bool {
		return waiting[i].JoinedAt.Before(waiting[j].JoinedAt)
	})

	now := s.now()
	matched := 0
	processed := make(map[string]bool, len(waiting))

	for _, e := range waiting {
		if processed[e.PlayerID] {
			continue
		}

		window := s.windowFor(e, now)
		candidates := make([]models.QueueEntry, 0)
		for _, c := range waiting {
			if c.PlayerID == e.PlayerID || processed[c.PlayerID] {
				continue
			}
			if abs(c.Rating-e.Rating) <= window {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sortCandidates(candidates, e.Rating)
		opponent := candidates[0]

		n, err := s.store.ZRem(ctx, queueKey, e.PlayerID)
		if err != nil || n == 0 {
			processed[e.PlayerID] = true
			continue
		}
		n, err = s.store.ZRem(ctx, queueKey, opponent.PlayerID)
		if err != nil || n == 0 {
			s.requeue(ctx, e)
			processed[opponent.PlayerID] = true
			continue
		}

		if _, err := s.pair(ctx, e, opponent); err != nil {
			s.logger.Error("Failed to pair waiting players",
				zap.String("player1", e.PlayerID),
				zap.String("player2", opponent.PlayerID),
				zap.Error(err))
			s.requeue(ctx, e)
			s.requeue(ctx, opponent)
			processed[e.PlayerID] = true
			processed[opponent.PlayerID] = true
			continue
		}

		processed[e.PlayerID] = true
		processed[opponent.PlayerID] = true
		matched++
	}

	if matched > 0 {
		s.logger.Info("Matchmaking completed",
			zap.Int("waiting", len(waiting)),
			zap.Int("matches_created", matched))
	}
	return matched
}

// windowFor 대기 시간에 따라 넓어지는 레이팅 범위
func (s *MatchmakingService) windowFor(e models.QueueEntry, now time.Time) int {
	window := s.cfg.BaseWindow
	if s.cfg.WidenEvery > 0 {
		steps := int(now.Sub(e.JoinedAt) / s.cfg.WidenEvery)
		window += steps * s.cfg.WindowStep
	}
	if s.cfg.MaxWindow > 0 && window > s.cfg.MaxWindow {
		window = s.cfg.MaxWindow
	}
	return window
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
