package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/repository"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/distributed"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/faststore"
	"go.uber.org/zap/zaptest"
)

type fakePlayerRepo struct {
	mu      sync.Mutex
	players map[string]*models.Player
	err     error
}

func newFakePlayerRepo(players ...*models.Player) *fakePlayerRepo {
	r := &fakePlayerRepo{players: make(map[string]*models.Player)}
	for _, p := range players {
		r.players[p.ID] = p
	}
	return r
}

func (r *fakePlayerRepo) FindByID(_ context.Context, id string) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.players[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePlayerRepo) ListPage(_ context.Context, limit, offset int) ([]*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := []*models.Player{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		cp := *r.players[ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakePlayerRepo) rating(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[id].Rating
}

func (r *fakePlayerRepo) addRating(id string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[id].Rating += delta
}

// fakeMatchRepo Settle은 pending 조건부 갱신과 레이팅 증감을 한 번에 적용
type fakeMatchRepo struct {
	mu        sync.Mutex
	matches   map[string]*models.Match
	players   *fakePlayerRepo
	settles   int
	createErr error
	settleErr error
}

func newFakeMatchRepo(players *fakePlayerRepo) *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[string]*models.Match), players: players}
}

func (r *fakeMatchRepo) Create(_ context.Context, id, a, b string, seasonID *int64) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	m := &models.Match{
		ID:        id,
		PlayerAID: a,
		PlayerBID: b,
		Result:    models.MatchResultPending,
		SeasonID:  seasonID,
		CreatedAt: time.Now(),
	}
	r.matches[id] = m
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) FindByID(_ context.Context, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) Settle(_ context.Context, s models.MatchSettlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settleErr != nil {
		return r.settleErr
	}

	m, ok := r.matches[s.MatchID]
	if !ok || m.Result != models.MatchResultPending {
		return repository.ErrMatchAlreadySettled
	}
	now := time.Now()
	m.Result = s.Result
	m.WinnerID = s.WinnerID
	m.RatingChangeA = s.RatingChangeA
	m.RatingChangeB = s.RatingChangeB
	m.BattleLog = s.BattleLog
	m.Turns = s.Turns
	m.DurationSeconds = s.DurationSeconds
	m.SettledAt = &now
	r.settles++

	r.players.addRating(s.PlayerAID, s.RatingChangeA)
	r.players.addRating(s.PlayerBID, s.RatingChangeB)
	return nil
}

func (r *fakeMatchRepo) FindByPlayer(_ context.Context, playerID string, seasonID *int64, limit, offset int) ([]*models.Match, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := []*models.Match{}
	for _, m := range r.matches {
		if !m.HasParticipant(playerID) || m.Result == models.MatchResultPending {
			continue
		}
		if seasonID != nil && (m.SeasonID == nil || *m.SeasonID != *seasonID) {
			continue
		}
		cp := *m
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), len(all), nil
}

func (r *fakeMatchRepo) FindAll(_ context.Context, limit, offset int) ([]*models.Match, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := []*models.Match{}
	for _, m := range r.matches {
		cp := *m
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), len(all), nil
}

func (r *fakeMatchRepo) CountResults(_ context.Context, playerID string) (models.MatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rec models.MatchRecord
	for _, m := range r.matches {
		if !m.HasParticipant(playerID) || m.Result == models.MatchResultPending {
			continue
		}
		switch {
		case m.Result == models.MatchResultDraw:
			rec.Draws++
		case m.WinnerID != nil && *m.WinnerID == playerID:
			rec.Wins++
		default:
			rec.Losses++
		}
	}
	return rec, nil
}

func (r *fakeMatchRepo) settleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settles
}

func (r *fakeMatchRepo) only(t *testing.T) *models.Match {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(r.matches))
	}
	for _, m := range r.matches {
		cp := *m
		return &cp
	}
	return nil
}

func page(ms []*models.Match, limit, offset int) []*models.Match {
	if offset >= len(ms) {
		return []*models.Match{}
	}
	end := offset + limit
	if end > len(ms) {
		end = len(ms)
	}
	return ms[offset:end]
}

type fakeSeasonRepo struct {
	mu      sync.Mutex
	seasons map[int64]*models.Season
	nextID  int64
}

func newFakeSeasonRepo() *fakeSeasonRepo {
	return &fakeSeasonRepo{seasons: make(map[int64]*models.Season)}
}

func (r *fakeSeasonRepo) FindActive(context.Context) (*models.Season, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.seasons {
		if s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSeasonRepo) FindByID(_ context.Context, id int64) (*models.Season, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seasons[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSeasonRepo) Create(_ context.Context, name string, startAt, endAt time.Time, rewards json.RawMessage) (*models.Season, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s := &models.Season{ID: r.nextID, Name: name, StartAt: startAt, EndAt: endAt, Rewards: rewards, CreatedAt: time.Now()}
	r.seasons[s.ID] = s
	cp := *s
	return &cp, nil
}

func (r *fakeSeasonRepo) Activate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.seasons[id]
	if !ok {
		return repository.ErrSeasonNotFound
	}
	for _, s := range r.seasons {
		s.IsActive = false
	}
	target.IsActive = true
	return nil
}

func (r *fakeSeasonRepo) End(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seasons[id]
	if !ok {
		return repository.ErrSeasonNotFound
	}
	s.IsActive = false
	return nil
}

func (r *fakeSeasonRepo) FindAll(context.Context) ([]*models.Season, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Season{}
	for _, s := range r.seasons {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type rankingKey struct {
	playerID string
	category models.RankingCategory
	seasonID int64
}

type fakeRankingRepo struct {
	mu   sync.Mutex
	rows map[rankingKey]models.RankingEntry
	err  error
}

func newFakeRankingRepo() *fakeRankingRepo {
	return &fakeRankingRepo{rows: make(map[rankingKey]models.RankingEntry)}
}

func (r *fakeRankingRepo) Upsert(_ context.Context, e models.RankingEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows[rankingKey{e.PlayerID, e.Category, e.SeasonID}] = e
	return nil
}

func (r *fakeRankingRepo) FindSnapshots(_ context.Context, category models.RankingCategory, seasonID int64, ids []string) (map[string]models.DisplaySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]models.DisplaySnapshot)
	for _, id := range ids {
		if e, ok := r.rows[rankingKey{id, category, seasonID}]; ok {
			out[id] = e.Snapshot
		}
	}
	return out, nil
}

func (r *fakeRankingRepo) ListByCategory(_ context.Context, category models.RankingCategory, seasonID int64, limit, offset int) ([]models.RankingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []models.RankingEntry{}
	for k, e := range r.rows {
		if k.category == category && k.seasonID == seasonID {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].PlayerID > all[j].PlayerID
	})
	if offset >= len(all) {
		return []models.RankingEntry{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeRankingRepo) row(playerID string, category models.RankingCategory, seasonID int64) (models.RankingEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[rankingKey{playerID, category, seasonID}]
	return e, ok
}

type sentEvent struct {
	target  string
	msgType string
	payload interface{}
}

type recordingGateway struct {
	mu        sync.Mutex
	direct    []sentEvent
	broadcast []sentEvent
	channels  map[string]map[string]bool
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{channels: make(map[string]map[string]bool)}
}

func (g *recordingGateway) JoinChannel(playerID, channel string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.channels[channel] == nil {
		g.channels[channel] = make(map[string]bool)
	}
	g.channels[channel][playerID] = true
}

func (g *recordingGateway) LeaveChannel(playerID, channel string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.channels[channel], playerID)
}

func (g *recordingGateway) BroadcastToChannel(channel, msgType string, payload interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcast = append(g.broadcast, sentEvent{target: channel, msgType: msgType, payload: payload})
}

func (g *recordingGateway) SendToPlayer(playerID, msgType string, payload interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.direct = append(g.direct, sentEvent{target: playerID, msgType: msgType, payload: payload})
}

func (g *recordingGateway) broadcastsOf(msgType string) []sentEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := []sentEvent{}
	for _, e := range g.broadcast {
		if e.msgType == msgType {
			out = append(out, e)
		}
	}
	return out
}

func (g *recordingGateway) directOf(msgType string) []sentEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := []sentEvent{}
	for _, e := range g.direct {
		if e.msgType == msgType {
			out = append(out, e)
		}
	}
	return out
}

func (g *recordingGateway) members(channel string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.channels[channel])
}

// fixedRoller 항상 같은 값을 굴림 (범위 상한 테스트용)
type fixedRoller struct {
	value int
}

func (r fixedRoller) Intn(n int) int {
	if r.value >= n {
		return n - 1
	}
	return r.value
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// pvpFixture 전체 PVP 흐름을 메모리 구현으로 묶는다
type pvpFixture struct {
	clock       *fakeClock
	store       *faststore.MemoryStore
	players     *fakePlayerRepo
	matches     *fakeMatchRepo
	seasons     *fakeSeasonRepo
	rankingRows *fakeRankingRepo
	gateway     *recordingGateway

	rankings    *RankingService
	settlement  *SettlementService
	battles     *BattleService
	matchmaking *MatchmakingService
}

func newPVPFixture(t *testing.T, players ...*models.Player) *pvpFixture {
	t.Helper()

	f := &pvpFixture{
		clock:       newFakeClock(),
		players:     newFakePlayerRepo(players...),
		seasons:     newFakeSeasonRepo(),
		rankingRows: newFakeRankingRepo(),
		gateway:     newRecordingGateway(),
	}
	f.store = faststore.NewMemoryStore(faststore.WithClock(f.clock.Now))
	f.matches = newFakeMatchRepo(f.players)

	logger := zaptest.NewLogger(t)
	locks := distributed.NewLockManager(f.store)

	f.rankings = NewRankingService(f.store, f.rankingRows, f.players, f.seasons, DefaultRankingConfig(), logger)
	f.settlement = NewSettlementService(f.matches, f.players, f.store, f.rankings, NewELOService(DefaultKFactor), logger)

	f.battles = NewBattleService(f.store, locks, f.settlement, f.gateway, DefaultBattleConfig(), logger)
	f.battles.now = f.clock.Now
	f.battles.roller = fixedRoller{value: 0}

	f.matchmaking = NewMatchmakingService(f.store, locks, f.players, f.matches, f.seasons, f.battles, DefaultMatchmakingConfig(), logger)
	f.matchmaking.now = f.clock.Now

	return f
}

// startBattle 두 플레이어를 매칭시키고 매치 ID 반환
func (f *pvpFixture) startBattle(t *testing.T, a, b string) string {
	t.Helper()
	ctx := context.Background()

	res, err := f.matchmaking.Join(ctx, a)
	if err != nil || res.Status != models.QueueStatusQueued {
		t.Fatalf("join %s: %+v, %v", a, res, err)
	}
	res, err = f.matchmaking.Join(ctx, b)
	if err != nil || res.Status != models.QueueStatusMatched {
		t.Fatalf("join %s: %+v, %v", b, res, err)
	}
	return res.MatchID
}

func player(id string, rating int) *models.Player {
	return &models.Player{ID: id, Name: "name-" + id, Realm: "qi", Rating: rating, CombatPower: int64(rating * 10)}
}
