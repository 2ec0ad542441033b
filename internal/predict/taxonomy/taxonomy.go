// Package taxonomy: канонические экзамены, категории и типы мест плюс группы
// алиасов для разбора вольного пользовательского ввода.
//
// Taxonomy собирается один раз при старте и дальше не меняется, её можно
// делить между горутинами запросов без блокировок. Аксессоры отдают копии.
package taxonomy

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"cutoff-predictor/internal/predict/model"
)

// ExamSpec: канонический экзамен и подстроки, по которым он узнаётся в
// очищенной (верхний регистр, без разделителей) строке.
type ExamSpec struct {
	ID        string   `koanf:"id"`
	Tokens    []string `koanf:"tokens"`
	RankBased bool     `koanf:"rank_based"`
}

// Spec: декларативная форма таксономии, встроенная или прочитанная из YAML.
type Spec struct {
	Exams           []ExamSpec          `koanf:"exams"`
	Categories      []string            `koanf:"categories"`
	SeatTypes       []string            `koanf:"seat_types"`
	CategoryAliases map[string][]string `koanf:"category_aliases"`
	SeatTypeAliases map[string][]string `koanf:"seat_type_aliases"`
}

type Taxonomy struct {
	exams           []ExamSpec
	rankBased       map[string]bool
	categories      []string
	seatTypes       []string
	categoryAliases map[string][]string
	seatTypeAliases map[string][]string
}

// New проверяет spec и замораживает его приватную копию.
func New(spec Spec) (*Taxonomy, error) {
	if len(spec.Exams) == 0 {
		return nil, errors.New("taxonomy: no exams declared")
	}
	if len(spec.Categories) == 0 || len(spec.SeatTypes) == 0 {
		return nil, errors.New("taxonomy: categories and seat types must not be empty")
	}

	t := &Taxonomy{
		exams:           make([]ExamSpec, 0, len(spec.Exams)),
		rankBased:       make(map[string]bool, len(spec.Exams)),
		categories:      dedupe(spec.Categories),
		seatTypes:       dedupe(spec.SeatTypes),
		categoryAliases: make(map[string][]string, len(spec.CategoryAliases)),
		seatTypeAliases: make(map[string][]string, len(spec.SeatTypeAliases)),
	}

	for _, e := range spec.Exams {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return nil, errors.New("taxonomy: exam with empty id")
		}
		tokens := make([]string, 0, len(e.Tokens))
		for _, tok := range e.Tokens {
			if tok = cleanExam(tok); tok != "" {
				tokens = append(tokens, tok)
			}
		}
		if len(tokens) == 0 {
			tokens = append(tokens, cleanExam(id))
		}
		t.exams = append(t.exams, ExamSpec{ID: id, Tokens: tokens, RankBased: e.RankBased})
		t.rankBased[id] = e.RankBased
	}

	if err := copyAliases(t.categoryAliases, spec.CategoryAliases, "category"); err != nil {
		return nil, err
	}
	if err := copyAliases(t.seatTypeAliases, spec.SeatTypeAliases, "seat type"); err != nil {
		return nil, err
	}
	return t, nil
}

func copyAliases(dst, src map[string][]string, kind string) error {
	for k, group := range src {
		key := AliasKey(k)
		if key == "" {
			return fmt.Errorf("taxonomy: empty %s alias key", kind)
		}
		if len(group) == 0 {
			return fmt.Errorf("taxonomy: %s alias %q has no members", kind, k)
		}
		dst[key] = dedupe(group)
	}
	return nil
}

// AliasKey: ключ поиска алиаса, без крайних пробелов и регистра.
func AliasKey(raw string) string {
	return cases.Fold().String(strings.TrimSpace(raw))
}

func (t *Taxonomy) IsRankBased(examID string) bool {
	return t.rankBased[examID]
}

// Mode выбирает вариант оценки для id экзамена. Неизвестные экзамены
// считаются по перцентилю.
func (t *Taxonomy) Mode(examID string) model.ScoringMode {
	if t.IsRankBased(examID) {
		return model.ModeRank
	}
	return model.ModePercentile
}

func (t *Taxonomy) Exams() []ExamSpec {
	out := make([]ExamSpec, len(t.exams))
	for i, e := range t.exams {
		out[i] = ExamSpec{ID: e.ID, Tokens: append([]string(nil), e.Tokens...), RankBased: e.RankBased}
	}
	return out
}

func (t *Taxonomy) Categories() []string { return append([]string(nil), t.categories...) }
func (t *Taxonomy) SeatTypes() []string  { return append([]string(nil), t.seatTypes...) }

func (t *Taxonomy) CategoryAlias(raw string) ([]string, bool) {
	return lookup(t.categoryAliases, raw)
}

func (t *Taxonomy) SeatTypeAlias(raw string) ([]string, bool) {
	return lookup(t.seatTypeAliases, raw)
}

// CategoryAliasKeys и SeatTypeAliasKeys отдают ключи алиасов по порядку.
func (t *Taxonomy) CategoryAliasKeys() []string { return sortedKeys(t.categoryAliases) }
func (t *Taxonomy) SeatTypeAliasKeys() []string { return sortedKeys(t.seatTypeAliases) }

func lookup(m map[string][]string, raw string) ([]string, bool) {
	group, ok := m[AliasKey(raw)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), group...), true
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
