package taxonomy

import (
	"sort"
	"strings"
)

var examSeparators = strings.NewReplacer(" ", "", "\t", "", "-", "", "_", "", "\u00a0", "")

// cleanExam: верхний регистр, без пробелов, дефисов и подчёркиваний.
// "mht-cet 2024" -> "MHTCET2024"
func cleanExam(s string) string {
	return strings.ToUpper(examSeparators.Replace(strings.TrimSpace(s)))
}

// NormalizeExam сводит строку экзамена к каноническому id. Побеждает первый
// объявленный экзамен, чей токен входит в очищенный ввод. Неизвестный ввод
// возвращается как есть, хранилище просто ничего по нему не найдёт.
func (t *Taxonomy) NormalizeExam(raw string) string {
	clean := cleanExam(raw)
	if clean == "" {
		return raw
	}
	for _, e := range t.exams {
		for _, tok := range e.Tokens {
			if strings.Contains(clean, tok) {
				return e.ID
			}
		}
	}
	return raw
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
