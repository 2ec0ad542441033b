package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cutoff-predictor/internal/predict/model"
)

func TestPercentileScore(t *testing.T) {
	tests := []struct {
		candidate, cutoff, tol float64
		want                   int
	}{
		{90, 90, 10, 100},
		{99, 90, 10, 100},
		{85, 90, 10, 85},
		{80, 90, 10, 70},
		{75, 90, 10, 45},
		{66, 90, 10, 12},
		{60, 90, 10, 1},
		{55, 90, 10, 0},
		{89, 90, 2, 85},
	}
	for _, tt := range tests {
		got := displayScore(PercentileScore(tt.candidate, tt.cutoff, tt.tol))
		assert.Equal(t, tt.want, got, "candidate=%v cutoff=%v tol=%v", tt.candidate, tt.cutoff, tt.tol)
	}
}

func TestPercentileScore_Monotonic(t *testing.T) {
	prev := 101.0
	for c := 100.0; c >= 40; c -= 0.5 {
		s := PercentileScore(c, 90, 10)
		assert.LessOrEqual(t, s, prev, "candidate=%v", c)
		prev = s
	}
}

func TestRankScore(t *testing.T) {
	tests := []struct {
		rank, closing int
		want          int
	}{
		{4000, 5000, 100},
		{5000, 5000, 100},
		{5000, 4000, 97},
		{20000, 10000, 70},
		{20000, 5000, 60},
		{30000, 5000, 45},
		{100000, 5000, 0},
	}
	for _, tt := range tests {
		got := displayScore(RankScore(tt.rank, tt.closing, 10))
		assert.Equal(t, tt.want, got, "rank=%d closing=%d", tt.rank, tt.closing)
	}
}

func TestPercentileReason(t *testing.T) {
	assert.Equal(t, "Excellent - Above cutoff by +5.0%", PercentileReason(95, 90))
	assert.Equal(t, "Good Chance - Near cutoff (+4.0%)", PercentileReason(96, 92))
	assert.Equal(t, "Good Chance - Near cutoff (+0.0%)", PercentileReason(90, 90))
	assert.Equal(t, "Possible - Slightly below cutoff (-2.0%)", PercentileReason(88, 90))
	assert.Equal(t, "Borderline - Below cutoff (-8.0%)", PercentileReason(82, 90))
	assert.Equal(t, "Reach - Well below cutoff (-20.0%)", PercentileReason(70, 90))
}

func TestRankReason(t *testing.T) {
	assert.Equal(t, "Excellent - Ahead of closing rank by +6000 ranks", RankReason(1000, 7000))
	assert.Equal(t, "Good Chance - Near closing rank (+0 ranks)", RankReason(7000, 7000))
	assert.Equal(t, "Possible - Slightly behind closing rank (-5000 ranks)", RankReason(12000, 7000))
	assert.Equal(t, "Borderline - Behind closing rank (-8000 ranks)", RankReason(15000, 7000))
	assert.Equal(t, "Reach - Well behind closing rank (-20000 ranks)", RankReason(27000, 7000))
}

func TestScorerFor_SkipsMissingField(t *testing.T) {
	pct := 90.0
	closing := 5000

	score := scorerFor(model.ModePercentile, 90, 10)
	_, _, ok := score(model.CutoffRecord{ClosingRank: &closing})
	assert.False(t, ok)
	s, reason, ok := score(model.CutoffRecord{Percentile: &pct})
	assert.True(t, ok)
	assert.Equal(t, 100.0, s)
	assert.Contains(t, reason, "Good Chance")

	score = scorerFor(model.ModeRank, 4000, 10)
	_, _, ok = score(model.CutoffRecord{Percentile: &pct})
	assert.False(t, ok)
	s, _, ok = score(model.CutoffRecord{ClosingRank: &closing})
	assert.True(t, ok)
	assert.Equal(t, 100.0, s)
}
