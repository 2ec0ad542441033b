package service

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// Уровни похожести. Срабатывает первый подходящий, они не складываются.
const (
	scoreExact          = 100.0
	scoreTargetContains = 85.0 // input входит в каноническое значение
	scoreInputContains  = 80.0 // каноническое значение входит в input
	substringCeiling    = 75.0
	editBase            = 70.0
	editPenalty         = 10.0
)

// Similarity оценивает в [0,100], насколько input похож на target. Сравнение
// без учёта регистра, в остальном буквальное: пунктуация и диакритика важны.
//
// После уровней точного совпадения и вхождения берётся лучший из двух
// сигналов: общая подстрока относительно длинной строки (не выше 75) и
// 70 минус 10 за каждую правку Левенштейна.
func Similarity(input, target string) float64 {
	in := cases.Fold().String(input)
	tg := cases.Fold().String(target)

	if in == tg {
		return scoreExact
	}
	if in != "" && strings.Contains(tg, in) {
		return scoreTargetContains
	}
	if tg != "" && strings.Contains(in, tg) {
		return scoreInputContains
	}
	return math.Max(substringSignal(in, tg), editSignal(in, tg))
}

func substringSignal(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return float64(longestCommonSubstring(a, b)) / float64(longest) * substringCeiling
}

func editSignal(a, b string) float64 {
	return math.Max(0, editBase-editPenalty*float64(levenshtein.ComputeDistance(a, b)))
}
