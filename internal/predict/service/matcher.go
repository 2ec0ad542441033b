package service

import (
	"sort"

	"cutoff-predictor/internal/predict/taxonomy"
)

// DefaultMatchThreshold: минимальная похожесть, с которой нечёткий поиск
// оставляет каноническое значение.
const DefaultMatchThreshold = 60.0

// Matcher сводит произвольный ввод категории и типа места к каноническим
// значениям: сначала группы алиасов, потом оценка похожести.
type Matcher struct {
	tax *taxonomy.Taxonomy
}

func NewMatcher(tax *taxonomy.Taxonomy) *Matcher {
	return &Matcher{tax: tax}
}

// MatchCategory возвращает канонические категории, на которые похож raw,
// лучшие первыми. Без fuzzy возвращает raw как есть. Пустой результат
// допустим и уходит в хранилище пустым множеством.
func (m *Matcher) MatchCategory(raw string, threshold float64, fuzzy bool) []string {
	return match(raw, threshold, fuzzy, m.tax.CategoryAlias, m.tax.Categories())
}

func (m *Matcher) MatchSeatType(raw string, threshold float64, fuzzy bool) []string {
	return match(raw, threshold, fuzzy, m.tax.SeatTypeAlias, m.tax.SeatTypes())
}

type scoredValue struct {
	value string
	score float64
}

func match(raw string, threshold float64, fuzzy bool, alias func(string) ([]string, bool), canon []string) []string {
	if !fuzzy {
		return []string{raw}
	}

	// (1) группа алиасов, как есть
	if group, ok := alias(raw); ok {
		return group
	}

	// (2) похожесть на каждое каноническое значение
	hits := make([]scoredValue, 0, len(canon))
	for _, c := range canon {
		if s := Similarity(raw, c); s >= threshold {
			hits = append(hits, scoredValue{value: c, score: s})
		}
	}
	// stable: при равных оценках порядок объявления
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.value
	}
	return out
}
