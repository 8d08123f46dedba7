package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/faststore"
)

func pendingMatch(t *testing.T, f *pvpFixture, a, b string) string {
	t.Helper()
	m, err := f.matches.Create(context.Background(), "m-"+a+"-"+b, a, b, nil)
	require.NoError(t, err)
	return m.ID
}

func strPtr(s string) *string { return &s }

func TestSettlementService_WinnerTakesZeroSumChange(t *testing.T) {
	f := newPVPFixture(t, player("p1", 1500), player("p2", 1500))
	matchID := pendingMatch(t, f, "p1", "p2")
	log := []models.BattleLogEntry{{Turn: 1, PlayerID: "p1", Action: models.ActionAttack, Damage: 50}}

	res, err := f.settlement.Settle(context.Background(), SettleRequest{
		MatchID:         matchID,
		WinnerID:        strPtr("p1"),
		BattleLog:       log,
		DurationSeconds: 42,
		Turns:           1,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MatchResultAWin, res.Result)
	assert.Equal(t, map[string]int{"p1": 16, "p2": -16}, res.RatingChanges)

	m := f.matches.only(t)
	assert.Equal(t, 16, m.RatingChangeA)
	assert.Equal(t, -16, m.RatingChangeB)
	assert.Equal(t, log, m.BattleLog)
	assert.Equal(t, 42, m.DurationSeconds)
	assert.NotNil(t, m.SettledAt)

	assert.Equal(t, 1516, f.players.rating("p1"))
	assert.Equal(t, 1484, f.players.rating("p2"))
}

func TestSettlementService_UnderdogWin(t *testing.T) {
	f := newPVPFixture(t, player("p1", 1800), player("p2", 1000))
	matchID := pendingMatch(t, f, "p1", "p2")

	res, err := f.settlement.Settle(context.Background(), SettleRequest{MatchID: matchID, WinnerID: strPtr("p2")})
	require.NoError(t, err)

	assert.Equal(t, models.MatchResultBWin, res.Result)
	assert.Equal(t, -32, res.RatingChanges["p1"])
	assert.Equal(t, 32, res.RatingChanges["p2"])
}

func TestSettlementService_Draw(t *testing.T) {
	f := newPVPFixture(t, player("p1", 1400), player("p2", 1600))
	matchID := pendingMatch(t, f, "p1", "p2")

	res, err := f.settlement.Settle(context.Background(), SettleRequest{MatchID: matchID})
	require.NoError(t, err)

	assert.Equal(t, models.MatchResultDraw, res.Result)
	assert.Nil(t, res.WinnerID)
	assert.Equal(t, map[string]int{"p1": 0, "p2": 0}, res.RatingChanges)
	assert.Equal(t, 1400, f.players.rating("p1"))
	assert.Equal(t, 1600, f.players.rating("p2"))
}

func TestSettlementService_SecondSettleIsRejected(t *testing.T) {
	f := newPVPFixture(t, player("p1", 1500), player("p2", 1500))
	matchID := pendingMatch(t, f, "p1", "p2")
	ctx := context.Background()

	_, err := f.settlement.Settle(ctx, SettleRequest{MatchID: matchID, WinnerID: strPtr("p1")})
	require.NoError(t, err)

	_, err = f.settlement.Settle(ctx, SettleRequest{MatchID: matchID, WinnerID: strPtr("p2")})

	assert.ErrorIs(t, err, ErrAlreadySettled)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, 1516, f.players.rating("p1"))
	assert.Equal(t, 1484, f.players.rating("p2"))
	assert.Equal(t, 1, f.matches.settleCount())
}

func TestSettlementService_ConcurrentSettleAppliesOnce(t *testing.T) {
	f := newPVPFixture(t, player("p1", 1500), player("p2", 1500))
	matchID := pendingMatch(t, f, "p1", "p2")
	ctx := context.Background()

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.settlement.Settle(ctx, SettleRequest{MatchID: matchID, WinnerID: strPtr("p1")})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrAlreadySettled)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.matches.settleCount())
	assert.Equal(t, 1516, f.players.rating("p1"))
}

func TestSettlementService_Validation(t *testing.T) {
	f := newPVPFixture(t, player("p1", 1500), player("p2", 1500))
	matchID := pendingMatch(t, f, "p1", "p2")
	ctx := context.Background()

	_, err := f.settlement.Settle(ctx, SettleRequest{MatchID: "missing", WinnerID: strPtr("p1")})
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = f.settlement.Settle(ctx, SettleRequest{MatchID: matchID, WinnerID: strPtr("stranger")})
	assert.ErrorIs(t, err, ErrInvalidWinner)
	assert.Equal(t, KindInvalidState, KindOf(err))

	assert.Zero(t, f.matches.settleCount())
}

func TestSettlementService_StoreFailureIsUnavailable(t *testing.T) {
	f := newPVPFixture(t, player("p1", 1500), player("p2", 1500))
	matchID := pendingMatch(t, f, "p1", "p2")
	f.matches.settleErr = errors.New("connection reset")

	_, err := f.settlement.Settle(context.Background(), SettleRequest{MatchID: matchID, WinnerID: strPtr("p1")})

	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.Equal(t, 1500, f.players.rating("p1"))
}

func TestSettlementService_ClearsBattleAndUpdatesRanking(t *testing.T) {
	f := newPVPFixture(t, player("p1", 1500), player("p2", 1500))
	ctx := context.Background()
	matchID := f.startBattle(t, "p1", "p2")

	_, err := f.settlement.Settle(ctx, SettleRequest{MatchID: matchID, WinnerID: strPtr("p2")})
	require.NoError(t, err)

	_, err = f.store.Get(ctx, battleKey(matchID))
	assert.ErrorIs(t, err, faststore.ErrNotFound)
	for _, pid := range []string{"p1", "p2"} {
		_, err = f.store.Get(ctx, playerBattleKey(pid))
		assert.ErrorIs(t, err, faststore.ErrNotFound)
	}

	row, ok := f.rankingRows.row("p2", models.RankingPVPRating, models.AllTimeSeason)
	require.True(t, ok)
	assert.Equal(t, 1516.0, row.Score)
	assert.Equal(t, "name-p2", row.Snapshot.Name)

	pos, err := f.rankings.RankOf(ctx, models.RankingPVPRating, models.AllTimeSeason, "p2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos.Rank)
}

func TestSettlementService_RankingFailureDoesNotFailSettlement(t *testing.T) {
	f := newPVPFixture(t, player("p1", 1500), player("p2", 1500))
	matchID := pendingMatch(t, f, "p1", "p2")
	f.rankingRows.err = errors.New("rankings down")

	_, err := f.settlement.Settle(context.Background(), SettleRequest{MatchID: matchID, WinnerID: strPtr("p1")})

	require.NoError(t, err)
	assert.Equal(t, 1516, f.players.rating("p1"))
}
