package importer

import (
	"regexp"
	"strings"
)

var rxNonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// нормализуем имя колонки: нижний регистр, служебные символы и повторные пробелы -> один пробел
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("\u00A0", " ", "\u202F", " ").Replace(s) // NBSP/NNBSP
	s = rxNonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// resolveKey ищет реальный заголовок по желаемому имени.
// Варианты через "|": "Closing Rank|Rank|Cutoff Rank".
// Порядок: точное совпадение -> нормализованное -> вхождение (самое длинное).
func resolveKey(headers []string, want string) string {
	want = strings.TrimSpace(want)
	if want == "" {
		return ""
	}
	alts := strings.Split(want, "|")
	for i := range alts {
		alts[i] = strings.TrimSpace(alts[i])
	}

	// 1) как есть
	for _, a := range alts {
		for _, h := range headers {
			if h == a {
				return h
			}
		}
	}

	// 2) нормализованное, в порядке альтернатив
	norm := make([]string, len(alts))
	for i, a := range alts {
		norm[i] = normHeaderKey(a)
	}
	for _, n := range norm {
		for _, h := range headers {
			if normHeaderKey(h) == n {
				return h
			}
		}
	}

	// 3) составные заголовки: "cap round i closing percentile" содержит "percentile"
	bestKey, bestScore := "", 0
	for _, h := range headers {
		nh := normHeaderKey(h)
		for _, n := range norm {
			if n != "" && strings.Contains(nh, n) && len(n) > bestScore {
				bestScore, bestKey = len(n), h
			}
		}
	}
	return bestKey
}

// looksLikeHeaderMap: повтор шапки внутри данных (склеенные выгрузки по раундам).
func looksLikeHeaderMap(m map[string]string) bool {
	cnt := 0
	for k, v := range m {
		if v != "" && normHeaderKey(k) == normHeaderKey(v) {
			cnt++
		}
	}
	return cnt >= 2
}
