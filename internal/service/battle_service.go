package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/distributed"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/faststore"
	"go.uber.org/zap"
)

// BattleConfig 전투 세션 설정
type BattleConfig struct {
	StateTTL          time.Duration
	TurnTimeout       time.Duration
	MaxIdleStrikes    int
	MaxTurns          int
	LockTTL           time.Duration
	LockRetries       int
	LockRetryInterval time.Duration
	SweepInterval     time.Duration
	SweepBatch        int64
}

func DefaultBattleConfig() BattleConfig {
	return BattleConfig{
		StateTTL:          10 * time.Minute,
		TurnTimeout:       30 * time.Second,
		MaxIdleStrikes:    3,
		MaxTurns:          200,
		LockTTL:           5 * time.Second,
		LockRetries:       20,
		LockRetryInterval: 25 * time.Millisecond,
		SweepInterval:     2 * time.Second,
		SweepBatch:        100,
	}
}

// Settler 종료된 매치 정산
type Settler interface {
	Settle(ctx context.Context, req SettleRequest) (*SettlementResult, error)
}

// TurnResult 행동 처리 결과
type TurnResult struct {
	Action   models.BattleLogEntry `json:"action"`
	State    models.BattleView     `json:"state"`
	Resolved bool                  `json:"resolved"`
}

// BattleService 매치별 전투 상태 머신 (INIT → ACTIVE → RESOLVED).
// 모든 상태 변경은 매치 단위 분산 락 아래에서 read-modify-write 된다.
type BattleService struct {
	store   faststore.Store
	locks   *distributed.LockManager
	settler Settler
	gateway Gateway
	roller  DamageRoller
	cfg     BattleConfig
	logger  *zap.Logger
	now     func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewBattleService(
	store faststore.Store,
	locks *distributed.LockManager,
	settler Settler,
	gateway Gateway,
	cfg BattleConfig,
	logger *zap.Logger,
) *BattleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gateway == nil {
		gateway = nopGateway{}
	}

	return &BattleService{
		store:    store,
		locks:    locks,
		settler:  settler,
		gateway:  gateway,
		roller:   newRandRoller(time.Now().UnixNano()),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// SetGateway 실시간 게이트웨이 연결 (허브와의 순환 의존 회피)
func (s *BattleService) SetGateway(gateway Gateway) {
	if gateway == nil {
		gateway = nopGateway{}
	}
	s.gateway = gateway
}

// CreateSession 양측 만피/만에너지로 전투 시작
func (s *BattleService) CreateSession(ctx context.Context, matchID, playerAID, playerBID string) error {
	now := s.now()
	state := models.NewBattleState(matchID, playerAID, playerBID, now)

	if err := s.save(ctx, state); err != nil {
		return err
	}

	view := state.View()
	for _, pid := range []string{playerAID, playerBID} {
		s.gateway.JoinChannel(pid, matchChannel(matchID))
		s.gateway.SendToPlayer(pid, EventMatched, MatchedEvent{
			MatchID:    matchID,
			Players:    []string{playerAID, playerBID},
			OpponentID: state.Opponent(pid),
			State:      view,
		})
	}

	s.logger.Info("Battle session created",
		zap.String("matchId", matchID),
		zap.String("playerA", playerAID),
		zap.String("playerB", playerBID))

	return nil
}

// SubmitAction 참가자의 행동 처리
func (s *BattleService) SubmitAction(ctx context.Context, matchID, playerID string, action Action) (*TurnResult, error) {
	if action == nil {
		return nil, ErrInvalidAction
	}

	var entry models.BattleLogEntry
	state, err := s.withBattle(ctx, matchID, func(st *models.BattleState) (bool, error) {
		if st.Status == models.BattleStatusResolved {
			return false, ErrMatchResolved
		}
		if !st.IsParticipant(playerID) {
			return false, ErrNotParticipant
		}

		e, err := s.apply(st, playerID, action, s.now(), false)
		if err != nil {
			return false, err
		}
		entry = e
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	view := state.View()
	s.gateway.BroadcastToChannel(matchChannel(matchID), EventTurn, TurnEvent{
		MatchID: matchID,
		Turn:    entry.Turn,
		Action:  entry,
		State:   view,
	})

	resolved := state.Status == models.BattleStatusResolved
	if resolved {
		s.finish(ctx, state)
	}

	return &TurnResult{Action: entry, State: view, Resolved: resolved}, nil
}

// Surrender 항복: 체력과 무관하게 상대 승리
func (s *BattleService) Surrender(ctx context.Context, matchID, playerID string) (*models.BattleView, error) {
	state, err := s.withBattle(ctx, matchID, func(st *models.BattleState) (bool, error) {
		if st.Status == models.BattleStatusResolved {
			return false, ErrMatchResolved
		}
		if !st.IsParticipant(playerID) {
			return false, ErrNotParticipant
		}

		winner := st.Opponent(playerID)
		st.Surrendered = playerID
		s.resolve(st, &winner, s.now())
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Player surrendered",
		zap.String("matchId", matchID),
		zap.String("playerId", playerID))

	s.finish(ctx, state)

	view := state.View()
	return &view, nil
}

// GetState 참가자 재접속용 현재 상태
func (s *BattleService) GetState(ctx context.Context, matchID, playerID string) (*models.BattleView, error) {
	state, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !state.IsParticipant(playerID) {
		return nil, ErrNotParticipant
	}

	view := state.View()
	return &view, nil
}

// ActiveMatch 플레이어가 참가 중인 매치 ID
func (s *BattleService) ActiveMatch(ctx context.Context, playerID string) (string, error) {
	data, err := s.store.Get(ctx, playerBattleKey(playerID))
	if errors.Is(err, faststore.ErrNotFound) {
		return "", ErrNoActiveBattle
	}
	if err != nil {
		return "", unavailable("failed to read battle participant", err)
	}
	return string(data), nil
}

// apply 비용 차감, 효과 적용, 로그 기록, 종료/턴 진행 판정
func (s *BattleService) apply(st *models.BattleState, actorID string, action Action, now time.Time, timeout bool) (models.BattleLogEntry, error) {
	energy := st.Energy(actorID)
	if *energy < action.Cost() {
		return models.BattleLogEntry{}, ErrInsufficientEnergy
	}
	*energy -= action.Cost()

	effect := resolveEffect(action, s.roller)
	opponentID := st.Opponent(actorID)

	if effect.damage > 0 {
		hp := st.HP(opponentID)
		*hp = clamp(*hp-effect.damage, 0, models.MaxHP)
	}
	if effect.heal > 0 {
		hp := st.HP(actorID)
		*hp = clamp(*hp+effect.heal, 0, models.MaxHP)
	}

	entry := models.BattleLogEntry{
		Turn:     st.Turn,
		PlayerID: actorID,
		Action:   action.Kind(),
		SkillID:  skillIDOf(action),
		Damage:   effect.damage,
		Heal:     effect.heal,
		Timeout:  timeout,
		At:       now,
	}
	st.ActionLog = append(st.ActionLog, entry)

	*st.LastAction(actorID) = now
	if !timeout {
		*st.IdleStrikes(actorID) = 0
	}

	switch {
	case *st.HP(opponentID) <= 0:
		s.resolve(st, &actorID, now)
	case s.cfg.MaxTurns > 0 && st.Turn >= s.cfg.MaxTurns:
		s.resolve(st, winnerByHP(st), now)
	default:
		st.Turn++
		st.EnergyA = clamp(st.EnergyA+EnergyRegen, 0, models.MaxEnergy)
		st.EnergyB = clamp(st.EnergyB+EnergyRegen, 0, models.MaxEnergy)
	}

	return entry, nil
}

func (s *BattleService) resolve(st *models.BattleState, winnerID *string, now time.Time) {
	st.Status = models.BattleStatusResolved
	st.WinnerID = winnerID
	st.ResolvedAt = &now
}

func winnerByHP(st *models.BattleState) *string {
	switch {
	case st.HPA > st.HPB:
		return &st.PlayerAID
	case st.HPB > st.HPA:
		return &st.PlayerBID
	}
	return nil
}

// finish 정산 후 종료 이벤트 전송. 정산 실패 시 활성 인덱스에 남아 스윕이 재시도한다.
func (s *BattleService) finish(ctx context.Context, st *models.BattleState) {
	result, err := s.settler.Settle(ctx, SettleRequest{
		MatchID:         st.MatchID,
		WinnerID:        st.WinnerID,
		BattleLog:       st.ActionLog,
		DurationSeconds: durationSeconds(st),
		Turns:           st.Turn,
	})
	if errors.Is(err, ErrAlreadySettled) {
		if err := clearBattle(ctx, s.store, st.MatchID, st.PlayerAID, st.PlayerBID); err != nil {
			s.logger.Warn("Failed to clear settled battle", zap.String("matchId", st.MatchID), zap.Error(err))
		}
		return
	}
	if err != nil {
		s.logger.Error("Settlement failed, will retry",
			zap.String("matchId", st.MatchID),
			zap.Error(err))
		return
	}

	s.gateway.BroadcastToChannel(matchChannel(st.MatchID), EventEnd, EndEvent{
		MatchID:       st.MatchID,
		WinnerID:      result.WinnerID,
		Result:        result.Result,
		RatingChanges: result.RatingChanges,
	})
	for _, pid := range []string{st.PlayerAID, st.PlayerBID} {
		s.gateway.LeaveChannel(pid, matchChannel(st.MatchID))
	}
}

// abandon 상태가 TTL로 사라진 전투는 무승부로 정산하고 채널을 정리
func (s *BattleService) abandon(ctx context.Context, matchID string) bool {
	result, err := s.settler.Settle(ctx, SettleRequest{MatchID: matchID})
	switch {
	case err == nil:
		s.logger.Warn("Abandoned battle settled as draw", zap.String("matchId", matchID))
		s.gateway.BroadcastToChannel(matchChannel(matchID), EventEnd, EndEvent{
			MatchID:       matchID,
			Result:        result.Result,
			RatingChanges: result.RatingChanges,
		})
		for pid := range result.RatingChanges {
			s.gateway.LeaveChannel(pid, matchChannel(matchID))
		}
	case errors.Is(err, ErrAlreadySettled), errors.Is(err, ErrMatchNotFound):
	default:
		s.logger.Error("Failed to settle abandoned battle, will retry",
			zap.String("matchId", matchID),
			zap.Error(err))
		return false
	}

	if _, err := s.store.ZRem(ctx, activeBattlesKey, matchID); err != nil {
		s.logger.Warn("Failed to drop stale battle index", zap.String("matchId", matchID), zap.Error(err))
	}
	return true
}

func durationSeconds(st *models.BattleState) int {
	end := time.Now()
	if st.ResolvedAt != nil {
		end = *st.ResolvedAt
	}
	return int(end.Sub(st.StartedAt).Seconds())
}

// withBattle 락 획득 → 로드 → fn → (변경 시) 저장
func (s *BattleService) withBattle(
	ctx context.Context,
	matchID string,
	fn func(st *models.BattleState) (bool, error),
) (*models.BattleState, error) {
	lock, err := s.locks.TryLockWithRetry(ctx, battleLockKey(matchID), s.cfg.LockTTL, s.cfg.LockRetries, s.cfg.LockRetryInterval)
	if errors.Is(err, distributed.ErrLockNotAcquired) {
		return nil, ErrBattleBusy
	}
	if err != nil {
		return nil, unavailable("failed to lock battle", err)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logger.Warn("Failed to release battle lock", zap.String("matchId", matchID), zap.Error(err))
		}
	}()

	state, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}

	changed, err := fn(state)
	if err != nil {
		return nil, err
	}
	if !changed {
		return state, nil
	}

	state.Version++
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *BattleService) load(ctx context.Context, matchID string) (*models.BattleState, error) {
	data, err := s.store.Get(ctx, battleKey(matchID))
	if errors.Is(err, faststore.ErrNotFound) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, unavailable("failed to load battle", err)
	}

	var state models.BattleState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, unavailable("failed to decode battle", err)
	}
	return &state, nil
}

// save 상태 저장 + TTL 갱신 + 활성 인덱스 점수(다음 마감 시각) 갱신 + 참가자 인덱스 갱신
func (s *BattleService) save(ctx context.Context, st *models.BattleState) error {
	deadline := st.LastActionA
	if st.LastActionB.Before(deadline) {
		deadline = st.LastActionB
	}
	st.TurnDeadline = deadline.Add(s.cfg.TurnTimeout)

	// 정산이 끝나면 정산 쪽에서 인덱스를 지운다. 남아 있으면 유예 후 스윕이 재정산
	score := st.TurnDeadline
	if st.Status == models.BattleStatusResolved {
		score = s.now().Add(s.cfg.TurnTimeout)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return unavailable("failed to encode battle", err)
	}
	if err := s.store.Set(ctx, battleKey(st.MatchID), data, s.cfg.StateTTL); err != nil {
		return unavailable("failed to save battle", err)
	}
	if err := s.store.ZAdd(ctx, activeBattlesKey, faststore.Member{
		Member: st.MatchID,
		Score:  float64(score.UnixMilli()),
	}); err != nil {
		return unavailable("failed to index active battle", err)
	}

	if st.Status != models.BattleStatusResolved {
		for _, pid := range []string{st.PlayerAID, st.PlayerBID} {
			if err := s.store.Set(ctx, playerBattleKey(pid), []byte(st.MatchID), s.cfg.StateTTL); err != nil {
				return unavailable("failed to index battle participant", err)
			}
		}
	}
	return nil
}

// Start 턴 타임아웃 스윕 시작
func (s *BattleService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting battle sweep", zap.Duration("interval", s.cfg.SweepInterval))

	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop 스윕 중지
func (s *BattleService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("Battle sweep stopped")
}

func (s *BattleService) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// Sweep 마감이 지난 전투 처리: 유휴 플레이어 기본 방어 + 경고 누적, 미정산 전투 재정산
func (s *BattleService) Sweep(ctx context.Context) int {
	now := s.now()
	due, err := s.store.ZRangeByScore(ctx, activeBattlesKey, math.Inf(-1), float64(now.UnixMilli()), s.cfg.SweepBatch)
	if err != nil {
		s.logger.Error("Failed to read active battles", zap.Error(err))
		return 0
	}

	handled := 0
	for _, m := range due {
		if s.sweepMatch(ctx, m.Member) {
			handled++
		}
	}

	if handled > 0 {
		s.logger.Debug("Battle sweep completed", zap.Int("handled", handled))
	}
	return handled
}

func (s *BattleService) sweepMatch(ctx context.Context, matchID string) bool {
	var (
		entries []models.BattleLogEntry
		retry   bool
	)

	state, err := s.withBattle(ctx, matchID, func(st *models.BattleState) (bool, error) {
		if st.Status == models.BattleStatusResolved {
			retry = true
			return false, nil
		}
		entries = s.applyTimeouts(st, s.now())
		return true, nil
	})
	if errors.Is(err, ErrMatchNotFound) {
		return s.abandon(ctx, matchID)
	}
	if err != nil {
		if !errors.Is(err, ErrBattleBusy) {
			s.logger.Error("Failed to sweep battle", zap.String("matchId", matchID), zap.Error(err))
		}
		return false
	}

	if retry {
		s.logger.Info("Retrying settlement", zap.String("matchId", matchID))
		s.finish(ctx, state)
		return true
	}

	view := state.View()
	for _, entry := range entries {
		s.gateway.BroadcastToChannel(matchChannel(matchID), EventTurn, TurnEvent{
			MatchID: matchID,
			Turn:    entry.Turn,
			Action:  entry,
			State:   view,
		})
	}
	if state.Status == models.BattleStatusResolved {
		s.logger.Info("Battle resolved by turn timeout",
			zap.String("matchId", matchID),
			zap.Int("idleStrikesA", state.IdleStrikesA),
			zap.Int("idleStrikesB", state.IdleStrikesB))
		s.finish(ctx, state)
	}
	return len(entries) > 0 || state.Status == models.BattleStatusResolved
}

// applyTimeouts 제한 시간 안에 행동하지 않은 참가자 처리.
// 경고가 MaxIdleStrikes에 도달하면 몰수패, 양측 동시 도달은 무승부.
func (s *BattleService) applyTimeouts(st *models.BattleState, now time.Time) []models.BattleLogEntry {
	var entries []models.BattleLogEntry

	for _, pid := range []string{st.PlayerAID, st.PlayerBID} {
		if st.Status == models.BattleStatusResolved {
			break
		}
		last := st.LastAction(pid)
		if now.Sub(*last) < s.cfg.TurnTimeout {
			continue
		}

		strikes := st.IdleStrikes(pid)
		*strikes++
		*last = now
		if *strikes >= s.cfg.MaxIdleStrikes {
			continue
		}

		entry, err := s.apply(st, pid, Defend{}, now, true)
		if err != nil {
			// 방어할 에너지도 없으면 경고만 누적
			entry = models.BattleLogEntry{
				Turn:     st.Turn,
				PlayerID: pid,
				Action:   models.ActionDefend,
				Timeout:  true,
				At:       now,
			}
			st.ActionLog = append(st.ActionLog, entry)
		}
		entries = append(entries, entry)
	}

	if st.Status == models.BattleStatusResolved {
		return entries
	}

	outA := st.IdleStrikesA >= s.cfg.MaxIdleStrikes
	outB := st.IdleStrikesB >= s.cfg.MaxIdleStrikes
	switch {
	case outA && outB:
		s.resolve(st, nil, now)
	case outA:
		s.resolve(st, &st.PlayerBID, now)
	case outB:
		s.resolve(st, &st.PlayerAID, now)
	}

	return entries
}

// clearBattle 전투 상태, 참가자 인덱스, 활성 인덱스 삭제
func clearBattle(ctx context.Context, store faststore.Store, matchID, playerAID, playerBID string) error {
	if err := store.Del(ctx, battleKey(matchID), playerBattleKey(playerAID), playerBattleKey(playerBID)); err != nil {
		return err
	}
	_, err := store.ZRem(ctx, activeBattlesKey, matchID)
	return err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// randRoller 동시 사용 가능한 math/rand 래퍼
type randRoller struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newRandRoller(seed int64) *randRoller {
	return &randRoller{r: rand.New(rand.NewSource(seed))}
}

func (r *randRoller) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Intn(n)
}
