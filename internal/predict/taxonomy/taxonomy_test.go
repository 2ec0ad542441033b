package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutoff-predictor/internal/predict/model"
)

func TestNormalizeExam(t *testing.T) {
	tax := Default()

	tests := []struct {
		raw  string
		want string
	}{
		{"MHT-CET", "MHTCET"},
		{"mht cet", "MHTCET"},
		{"CET", "MHTCET"},
		{"MHTCET", "MHTCET"},
		{"mht_cet 2024", "MHTCET"},
		{"JEE Main", "JEE"},
		{"jee-advanced", "JEE"},
		{"NEET-UG", "NEET"},
		{"neet", "NEET"},
		{"GATE", "GATE"},
		{"  bitsat ", "  bitsat "},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, tax.NormalizeExam(tt.raw))
		})
	}
}

func TestModeAndRankBased(t *testing.T) {
	tax := Default()

	assert.False(t, tax.IsRankBased("MHTCET"))
	assert.True(t, tax.IsRankBased("JEE"))
	assert.True(t, tax.IsRankBased("NEET"))
	assert.False(t, tax.IsRankBased("GATE"), "unknown exams default to percentile")

	assert.Equal(t, model.ModePercentile, tax.Mode("MHTCET"))
	assert.Equal(t, model.ModeRank, tax.Mode(tax.NormalizeExam("jee main")))
	assert.Equal(t, model.ModePercentile, tax.Mode("unknown"))
}

func TestAliasLookup(t *testing.T) {
	tax := Default()

	open, ok := tax.CategoryAlias(" Open ")
	require.True(t, ok)
	assert.Equal(t, []string{"OPEN", "OPEN-L"}, open)

	obc, ok := tax.CategoryAlias("OBC")
	require.True(t, ok)
	assert.Equal(t, []string{"OBC", "OBC-L", "DEF-OBC"}, obc)

	home, ok := tax.SeatTypeAlias("HOME")
	require.True(t, ok)
	assert.Contains(t, home, "GOPENH")
	assert.Contains(t, home, "LOBCH")
	assert.Contains(t, home, "PWDOPENH")
	assert.Contains(t, home, "HS")
	assert.NotContains(t, home, "GOPENO")
	assert.NotContains(t, home, "GOPENS")

	state, ok := tax.SeatTypeAlias("state")
	require.True(t, ok)
	assert.Contains(t, state, "DEFOPENS")
	assert.NotContains(t, state, "EWS")

	_, ok = tax.CategoryAlias("ZZZZ")
	assert.False(t, ok)
}

func TestAccessorsReturnCopies(t *testing.T) {
	tax := Default()

	cats := tax.Categories()
	cats[0] = "MUTATED"
	assert.Equal(t, "OPEN", tax.Categories()[0])

	open, _ := tax.CategoryAlias("open")
	open[0] = "MUTATED"
	again, _ := tax.CategoryAlias("open")
	assert.Equal(t, "OPEN", again[0])

	exams := tax.Exams()
	exams[0].Tokens[0] = "X"
	assert.Equal(t, "MHTCET", tax.NormalizeExam("MHT-CET"))
}

func TestNewRejectsBrokenSpecs(t *testing.T) {
	_, err := New(Spec{})
	assert.Error(t, err)

	spec := DefaultSpec()
	spec.CategoryAliases = map[string][]string{"open": nil}
	_, err = New(spec)
	assert.Error(t, err)

	spec = DefaultSpec()
	spec.Exams = []ExamSpec{{ID: " "}}
	_, err = New(spec)
	assert.Error(t, err)
}

func TestLoadOverridesAliases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	yml := `
exams:
  - id: KCET
    tokens: [KCET, KARNATAKA]
  - id: COMEDK
    tokens: [COMEDK]
    rank_based: true
category_aliases:
  gm: [GM, GMK]
  home university: [GM]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	tax, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "KCET", tax.NormalizeExam("Karnataka CET"))
	assert.True(t, tax.IsRankBased("COMEDK"))
	assert.Equal(t, "MHT-CET", tax.NormalizeExam("MHT-CET"), "default exams replaced by file")

	gm, ok := tax.CategoryAlias("GM")
	require.True(t, ok)
	assert.Equal(t, []string{"GM", "GMK"}, gm)

	_, ok = tax.CategoryAlias("home university")
	assert.True(t, ok)

	// незаданные секции остаются по умолчанию
	assert.Contains(t, tax.SeatTypes(), "GOPENH")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
