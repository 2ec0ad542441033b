package service

import (
	"fmt"
	"math"

	"cutoff-predictor/internal/predict/model"
)

// rankUnit переводит допуск (тысячи мест) в позиции рейтинга.
const rankUnit = 1000.0

// scoreFunc даёт match score и причину для одной отсечки. ok == false, если
// у записи нет поля, нужного режиму.
type scoreFunc func(c model.CutoffRecord) (score float64, reason string, ok bool)

// scorerFor выбирает вариант оценки один раз на запрос.
func scorerFor(mode model.ScoringMode, candidate, tolerance float64) scoreFunc {
	if mode == model.ModeRank {
		rank := int(candidate)
		return func(c model.CutoffRecord) (float64, string, bool) {
			if c.ClosingRank == nil {
				return 0, "", false
			}
			return RankScore(rank, *c.ClosingRank, tolerance), RankReason(rank, *c.ClosingRank), true
		}
	}
	return func(c model.CutoffRecord) (float64, string, bool) {
		if c.Percentile == nil {
			return 0, "", false
		}
		return PercentileScore(candidate, *c.Percentile, tolerance), PercentileReason(candidate, *c.Percentile), true
	}
}

// PercentileScore: не ниже отсечки это 100, дальше три линейные полосы по
// одному допуску (100..70, 70..20, 20..1), потом 0.
func PercentileScore(candidate, cutoff, tolerance float64) float64 {
	diff := candidate - cutoff
	if diff >= 0 {
		return 100
	}
	gap := math.Abs(diff)

	var s float64
	switch {
	case gap <= tolerance:
		s = 100 - (gap/tolerance)*30
	case gap <= 2*tolerance:
		s = 70 - ((gap-tolerance)/tolerance)*50
	case gap <= 3*tolerance:
		s = 20 - ((gap-2*tolerance)/tolerance)*19
	default:
		s = 0
	}
	return clampScore(s)
}

func PercentileReason(candidate, cutoff float64) string {
	diff := candidate - cutoff
	switch {
	case diff >= 5:
		return fmt.Sprintf("Excellent - Above cutoff by %+.1f%%", diff)
	case diff >= 0:
		return fmt.Sprintf("Good Chance - Near cutoff (%+.1f%%)", diff)
	case diff >= -5:
		return fmt.Sprintf("Possible - Slightly below cutoff (%+.1f%%)", diff)
	case diff >= -10:
		return fmt.Sprintf("Borderline - Below cutoff (%+.1f%%)", diff)
	default:
		return fmt.Sprintf("Reach - Well below cutoff (%+.1f%%)", diff)
	}
}

// RankScore считает по closingRank - candidateRank; положительный разрыв
// значит, что кандидат выше последнего принятого. Допуск в тысячах мест.
func RankScore(candidateRank, closingRank int, tolerance float64) float64 {
	diff := closingRank - candidateRank
	if diff >= 0 {
		return 100
	}
	gap := math.Abs(float64(diff))
	tolRanks := tolerance * rankUnit

	var s float64
	switch {
	case gap <= tolRanks:
		s = 100 - (gap/tolRanks)*30
	case gap <= 2*tolRanks:
		s = 70 - ((gap-tolRanks)/tolRanks)*20
	default:
		s = math.Max(0, 50-(gap-2*tolRanks)/rankUnit)
	}
	return clampScore(s)
}

func RankReason(candidateRank, closingRank int) string {
	diff := closingRank - candidateRank
	switch {
	case diff >= 5000:
		return fmt.Sprintf("Excellent - Ahead of closing rank by %+d ranks", diff)
	case diff >= 0:
		return fmt.Sprintf("Good Chance - Near closing rank (%+d ranks)", diff)
	case diff >= -5000:
		return fmt.Sprintf("Possible - Slightly behind closing rank (%+d ranks)", diff)
	case diff >= -10000:
		return fmt.Sprintf("Borderline - Behind closing rank (%+d ranks)", diff)
	default:
		return fmt.Sprintf("Reach - Well behind closing rank (%+d ranks)", diff)
	}
}

func clampScore(s float64) float64 {
	return math.Min(100, math.Max(0, s))
}

// displayScore: целое, которое видит пользователь.
func displayScore(s float64) int {
	return int(math.Round(clampScore(s)))
}
