package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
)

func TestRankingRepository_ListByCategoryOrdersTiesBytewise(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRankingRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"player_id", "category", "season_id", "score", "snapshot", "updated_at"}).
		AddRow("b", "pvp_rating", 3, 1500.0, []byte(`{"name":"B"}`), now).
		AddRow("a", "pvp_rating", 3, 1500.0, []byte(`{"name":"A"}`), now)

	// 로캘 정렬이 아닌 바이트 순서로 동점 처리
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY score DESC, player_id COLLATE "C" DESC`)).
		WithArgs("pvp_rating", int64(3), 10, 0).
		WillReturnRows(rows)

	entries, err := repo.ListByCategory(context.Background(), models.RankingPVPRating, 3, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].PlayerID)
	assert.Equal(t, "B", entries[0].Snapshot.Name)
	assert.Equal(t, models.RankingPVPRating, entries[1].Category)

	assert.NoError(t, mock.ExpectationsWereMet())
}
