package service

import (
	"sort"

	"cutoff-predictor/internal/predict/model"
)

// Rank сортирует по match score, затем по полю оценки самой отсечки, оба по
// убыванию, и нумерует с 1. Сортировка стабильная: равные строки остаются в
// порядке выборки. Строки не схлопываются.
func Rank(results []model.PredictionResult, mode model.ScoringMode) []model.PredictionResult {
	native := func(r model.PredictionResult) float64 {
		if mode == model.ModeRank {
			if r.Cutoff.ClosingRank != nil {
				return float64(*r.Cutoff.ClosingRank)
			}
			return 0
		}
		if r.Cutoff.Percentile != nil {
			return *r.Cutoff.Percentile
		}
		return 0
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MatchScore != results[j].MatchScore {
			return results[i].MatchScore > results[j].MatchScore
		}
		return native(results[i]) > native(results[j])
	})

	for i := range results {
		results[i].SerialNumber = i + 1
	}
	return results
}
