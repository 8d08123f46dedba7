package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/database"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return database.Wrap(db), mock
}

func settlementFixture() models.MatchSettlement {
	winner := "p1"
	return models.MatchSettlement{
		MatchID:         "m1",
		PlayerAID:       "p1",
		PlayerBID:       "p2",
		Result:          models.MatchResultAWin,
		WinnerID:        &winner,
		RatingChangeA:   16,
		RatingChangeB:   -16,
		BattleLog:       []models.BattleLogEntry{{Turn: 1, PlayerID: "p1", Action: models.ActionAttack, Damage: 42}},
		Turns:           1,
		DurationSeconds: 30,
	}
}

func TestMatchRepository_SettleCommitsMatchAndRatings(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pvp_matches`).
		WithArgs("a_win", "p1", 16, -16, sqlmock.AnyArg(), 1, 30, "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE players SET pvp_rating`).
		WithArgs(16, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE players SET pvp_rating`).
		WithArgs(-16, "p2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Settle(context.Background(), settlementFixture())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepository_SettleAlreadySettledRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pvp_matches`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Settle(context.Background(), settlementFixture())

	assert.ErrorIs(t, err, ErrMatchAlreadySettled)
	assert.NoError(t, mock.ExpectationsWereMet(), "ratings must not be touched")
}

func TestMatchRepository_SettleRatingFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pvp_matches`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE players SET pvp_rating`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Settle(context.Background(), settlementFixture())

	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepository_FindByID(t *testing.T) {
	t.Run("존재하지 않는 매치", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMatchRepository(db)

		mock.ExpectQuery(`FROM pvp_matches WHERE id`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		m, err := repo.FindByID(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("정산된 매치", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMatchRepository(db)

		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"id", "player_a_id", "player_b_id", "result", "winner_id",
			"rating_change_a", "rating_change_b", "battle_log", "turns", "duration_seconds",
			"season_id", "created_at", "settled_at",
		}).AddRow(
			"m1", "p1", "p2", "b_win", "p2",
			-12, 12, []byte(`[{"turn":1,"playerId":"p2","action":"skill","skillId":"fire","damage":90}]`), 1, 12,
			int64(3), now, now,
		)
		mock.ExpectQuery(`FROM pvp_matches WHERE id`).WithArgs("m1").WillReturnRows(rows)

		m, err := repo.FindByID(context.Background(), "m1")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, models.MatchResultBWin, m.Result)
		require.NotNil(t, m.WinnerID)
		assert.Equal(t, "p2", *m.WinnerID)
		require.Len(t, m.BattleLog, 1)
		assert.Equal(t, "fire", m.BattleLog[0].SkillID)
		require.NotNil(t, m.SeasonID)
		assert.Equal(t, int64(3), *m.SeasonID)
	})
}

func TestSeasonRepository_ActivateUnknownSeason(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSeasonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pvp_seasons SET is_active = FALSE`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE pvp_seasons SET is_active = TRUE`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Activate(context.Background(), 9)

	assert.ErrorIs(t, err, ErrSeasonNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
