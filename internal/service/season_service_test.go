package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSeasonService_Lifecycle(t *testing.T) {
	repo := newFakeSeasonRepo()
	svc := NewSeasonService(repo, zaptest.NewLogger(t))
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.GetCurrent(ctx)
	assert.ErrorIs(t, err, ErrSeasonNotFound)

	s1, err := svc.Create(ctx, " 봄 시즌 ", start, start.AddDate(0, 1, 0), json.RawMessage(`[{"rank":1,"item":"jade"}]`))
	require.NoError(t, err)
	assert.Equal(t, "봄 시즌", s1.Name)
	assert.False(t, s1.IsActive)

	s2, err := svc.Create(ctx, "여름 시즌", start.AddDate(0, 1, 0), start.AddDate(0, 2, 0), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Activate(ctx, s1.ID))
	current, err := svc.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, s1.ID, current.ID)

	// 활성 시즌은 항상 하나
	require.NoError(t, svc.Activate(ctx, s2.ID))
	current, err = svc.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, s2.ID, current.ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	active := 0
	for _, s := range all {
		if s.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
	assert.Len(t, all, 2)

	require.NoError(t, svc.End(ctx, s2.ID))
	_, err = svc.GetCurrent(ctx)
	assert.ErrorIs(t, err, ErrSeasonNotFound)
}

func TestSeasonService_CreateValidation(t *testing.T) {
	svc := NewSeasonService(newFakeSeasonRepo(), nil)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		title   string
		endAt   time.Time
		rewards json.RawMessage
		wantErr error
	}{
		{"이름 없음", "  ", start.Add(time.Hour), nil, ErrInvalidInput},
		{"종료가 시작보다 빠름", "S", start.Add(-time.Hour), nil, ErrInvalidSeason},
		{"종료와 시작이 같음", "S", start, nil, ErrInvalidSeason},
		{"잘못된 보상 JSON", "S", start.Add(time.Hour), json.RawMessage(`{bad`), ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.title, start, tt.endAt, tt.rewards)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, KindInvalid, KindOf(err))
		})
	}
}

func TestSeasonService_UnknownSeason(t *testing.T) {
	svc := NewSeasonService(newFakeSeasonRepo(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Activate(ctx, 42), ErrSeasonNotFound)
	assert.ErrorIs(t, svc.End(ctx, 42), ErrSeasonNotFound)
}
