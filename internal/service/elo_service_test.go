package service

import (
	"math"
	"testing"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
)

func TestELOService_ExpectedScore(t *testing.T) {
	eloService := NewELOService(DefaultKFactor)

	tests := []struct {
		name     string
		self     int
		opponent int
		expected float64
	}{
		{name: "Equal ratings", self: 1500, opponent: 1500, expected: 0.5},
		{name: "100 points lower", self: 1200, opponent: 1300, expected: 0.3599},
		{name: "100 points higher", self: 1300, opponent: 1200, expected: 0.6401},
		{name: "800 points lower", self: 1000, opponent: 1800, expected: 0.0099},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eloService.ExpectedScore(tt.self, tt.opponent)
			if math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("ExpectedScore(%d, %d) = %.4f, want %.4f", tt.self, tt.opponent, got, tt.expected)
			}
		})
	}
}

func TestELOService_RatingChanges(t *testing.T) {
	eloService := NewELOService(DefaultKFactor)

	tests := []struct {
		name        string
		ratingA     int
		ratingB     int
		result      models.MatchResult
		wantChangeA int
		wantChangeB int
	}{
		{
			name:        "Equal ratings, A wins",
			ratingA:     1500,
			ratingB:     1500,
			result:      models.MatchResultAWin,
			wantChangeA: 16,
			wantChangeB: -16,
		},
		{
			name:        "Equal ratings, B wins",
			ratingA:     1500,
			ratingB:     1500,
			result:      models.MatchResultBWin,
			wantChangeA: -16,
			wantChangeB: 16,
		},
		{
			name:        "Underdog wins",
			ratingA:     1200,
			ratingB:     1300,
			result:      models.MatchResultAWin,
			wantChangeA: 20,
			wantChangeB: -20,
		},
		{
			name:        "Favourite wins",
			ratingA:     1300,
			ratingB:     1200,
			result:      models.MatchResultAWin,
			wantChangeA: 12,
			wantChangeB: -12,
		},
		{
			name:        "Heavy favourite wins, rounds to zero",
			ratingA:     1000,
			ratingB:     1800,
			result:      models.MatchResultBWin,
			wantChangeA: 0,
			wantChangeB: 0,
		},
		{
			name:        "Huge upset",
			ratingA:     1000,
			ratingB:     1800,
			result:      models.MatchResultAWin,
			wantChangeA: 32,
			wantChangeB: -32,
		},
		{
			name:        "Draw",
			ratingA:     1400,
			ratingB:     1600,
			result:      models.MatchResultDraw,
			wantChangeA: 0,
			wantChangeB: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changeA, changeB := eloService.RatingChanges(tt.ratingA, tt.ratingB, tt.result)

			if changeA != tt.wantChangeA || changeB != tt.wantChangeB {
				t.Errorf("RatingChanges(%d, %d, %s) = (%+d, %+d), want (%+d, %+d)",
					tt.ratingA, tt.ratingB, tt.result, changeA, changeB, tt.wantChangeA, tt.wantChangeB)
			}

			// 제로섬
			if changeA+changeB != 0 {
				t.Errorf("rating exchange must be zero-sum, got %+d and %+d", changeA, changeB)
			}
		})
	}
}

func TestELOService_ZeroSumAcrossRatingGrid(t *testing.T) {
	eloService := NewELOService(DefaultKFactor)

	for ratingA := 800; ratingA <= 2400; ratingA += 137 {
		for ratingB := 800; ratingB <= 2400; ratingB += 151 {
			for _, result := range []models.MatchResult{models.MatchResultAWin, models.MatchResultBWin} {
				changeA, changeB := eloService.RatingChanges(ratingA, ratingB, result)
				if changeA != -changeB {
					t.Fatalf("(%d, %d, %s): %+d vs %+d", ratingA, ratingB, result, changeA, changeB)
				}
				if changeA < -DefaultKFactor || changeA > DefaultKFactor {
					t.Fatalf("(%d, %d, %s): change %+d exceeds K", ratingA, ratingB, result, changeA)
				}
			}
		}
	}
}

func TestNewELOService_DefaultsK(t *testing.T) {
	eloService := NewELOService(0)

	changeA, _ := eloService.RatingChanges(1500, 1500, models.MatchResultAWin)
	if changeA != 16 {
		t.Errorf("expected default K=32 to yield +16, got %+d", changeA)
	}
}
