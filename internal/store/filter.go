package store

import (
	"strings"

	"cutoff-predictor/internal/predict/model"
)

// matchCutoff: запрос отсечек в памяти; SQL-бэкенды выражают тот же
// предикат в WHERE.
func matchCutoff(f model.CutoffFilter, c model.CutoffRecord) bool {
	if c.Exam != f.Exam || c.Year != f.Year || c.Round != f.Round {
		return false
	}
	if !contains(f.Categories, c.Category) || !contains(f.SeatTypes, c.SeatType) {
		return false
	}
	if f.ScoreMin != nil || f.ScoreMax != nil {
		v, ok := scoreValue(f.Mode, c)
		if !ok {
			return false
		}
		if f.ScoreMin != nil && v < *f.ScoreMin {
			return false
		}
		if f.ScoreMax != nil && v > *f.ScoreMax {
			return false
		}
	}
	return matchBranch(f.BranchSubstrings, c.Branch)
}

func scoreValue(mode model.ScoringMode, c model.CutoffRecord) (float64, bool) {
	if mode == model.ModeRank {
		if c.ClosingRank == nil {
			return 0, false
		}
		return float64(*c.ClosingRank), true
	}
	if c.Percentile == nil {
		return 0, false
	}
	return *c.Percentile, true
}

// matchBranch: без фильтров проходит всё, иначе любое вхождение подстроки
// без учёта регистра.
func matchBranch(subs []string, branch string) bool {
	if len(subs) == 0 {
		return true
	}
	b := strings.ToLower(branch)
	for _, s := range subs {
		if strings.Contains(b, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func matchCollege(f model.CollegeFilter, c model.CollegeRecord) bool {
	return containsFold(f.Cities, c.City, true) && containsFold(f.Statuses, c.Status, true)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// containsFold: при emptyMatches пустое множество значит "без фильтра".
func containsFold(set []string, v string, emptyMatches bool) bool {
	if len(set) == 0 {
		return emptyMatches
	}
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// mergeCollege накладывает in на old: пустые строки и нулевые fees/rating
// не затирают сохранённое. Имя, равное коду, это заглушка из листа отсечек.
func mergeCollege(old, in model.CollegeRecord) model.CollegeRecord {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	if in.Name != "" && in.Name != in.Code {
		old.Name = in.Name
	}
	set(&old.Code, in.Code)
	set(&old.City, in.City)
	set(&old.State, in.State)
	set(&old.University, in.University)
	set(&old.Status, in.Status)
	if in.Fees != 0 {
		old.Fees = in.Fees
	}
	if in.Rating != 0 {
		old.Rating = in.Rating
	}
	return old
}
