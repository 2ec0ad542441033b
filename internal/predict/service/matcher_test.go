package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cutoff-predictor/internal/predict/taxonomy"
)

func TestMatcher_Category(t *testing.T) {
	m := NewMatcher(taxonomy.Default())

	tests := []struct {
		name  string
		raw   string
		fuzzy bool
		want  []string
	}{
		{"alias group verbatim", "  General ", true, []string{"OPEN", "OPEN-L"}},
		{"alias beats similarity", "OBC", true, []string{"OBC", "OBC-L", "DEF-OBC"}},
		{"one edit away", "OBX", true, []string{"OBC"}},
		// сначала вхождения, потом ST ровно на пороге
		{"containment ordered by declaration", "nt", true, []string{"NT1", "NT1-L", "NT2", "NT2-L", "NT3", "NT3-L", "ST"}},
		{"fuzzy off passes raw through", "obc", false, []string{"obc"}},
		{"nothing close", "QQQQQQ", true, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.MatchCategory(tt.raw, DefaultMatchThreshold, tt.fuzzy))
		})
	}
}

func TestMatcher_SeatType(t *testing.T) {
	m := NewMatcher(taxonomy.Default())

	assert.Equal(t, []string{"GOPENH", "GOPENO", "GOPENS"}, m.MatchSeatType("GOPEN", DefaultMatchThreshold, true))
	assert.Empty(t, m.MatchSeatType("ZZZZ", DefaultMatchThreshold, true))
	assert.Equal(t, []string{"AI"}, m.MatchSeatType("All India", DefaultMatchThreshold, true))

	home := m.MatchSeatType("home", DefaultMatchThreshold, true)
	assert.Contains(t, home, "GOPENH")
	assert.Contains(t, home, "HS")
	assert.NotContains(t, home, "GOPENS")
}

func TestMatcher_Threshold(t *testing.T) {
	m := NewMatcher(taxonomy.Default())

	assert.Equal(t, []string{"OBC"}, m.MatchCategory("OBX", 60, true))
	assert.Empty(t, m.MatchCategory("OBX", 61, true))
}
