package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutoff-predictor/internal/apperr"
	"cutoff-predictor/internal/config"
	"cutoff-predictor/internal/metrics"
	"cutoff-predictor/internal/predict/model"
	"cutoff-predictor/internal/predict/taxonomy"
	"cutoff-predictor/internal/store"
	"cutoff-predictor/internal/validation"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	mem *store.Memory
	eng *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.UpsertColleges(ctx, []model.CollegeRecord{
		{ID: "coep", Name: "COEP Technological University", Code: "6006", City: "Pune", Status: "Autonomous"},
		{ID: "vjti", Name: "VJTI", Code: "3012", City: "Mumbai", Status: "Government"},
		{ID: "pict", Name: "Pune Institute of Computer Technology", City: "", State: "Maharashtra", Status: "Private"},
		{ID: "nitt", Name: "NIT Trichy", City: "Tiruchirappalli", Status: "Government"},
	}))
	require.NoError(t, mem.UpsertCutoffs(ctx, []model.CutoffRecord{
		{ID: "c1", CollegeID: "coep", Exam: "MHTCET", Year: 2024, Round: 1, Branch: "Computer Engineering", Category: "OPEN", SeatType: "GOPENS", Percentile: ptr(92.0)},
		{ID: "c2", CollegeID: "vjti", Exam: "MHTCET", Year: 2024, Round: 1, Branch: "Information Technology", Category: "OPEN", SeatType: "GOPENH", Percentile: ptr(90.0)},
		{ID: "c3", CollegeID: "pict", Exam: "MHTCET", Year: 2024, Round: 1, Branch: "Computer Engineering", Category: "OPEN-L", SeatType: "LOPENS", Percentile: ptr(98.0)},
		{ID: "c4", CollegeID: "coep", Exam: "MHTCET", Year: 2024, Round: 1, Branch: "Civil Engineering", Category: "OPEN", SeatType: "GOPENS", Percentile: ptr(70.0)},
		{ID: "c5", CollegeID: "ghost", Exam: "MHTCET", Year: 2024, Round: 1, Branch: "Computer Engineering", Category: "OPEN", SeatType: "GOPENS", Percentile: ptr(93.0)},
		{ID: "c6", CollegeID: "coep", Exam: "MHTCET", Year: 2023, Round: 1, Branch: "Computer Engineering", Category: "OPEN", SeatType: "GOPENS", Percentile: ptr(92.0)},
		{ID: "j1", CollegeID: "nitt", Exam: "JEE", Year: 2024, Round: 1, Branch: "CSE", Category: "OPEN", SeatType: "AI", OpeningRank: ptr(100), ClosingRank: ptr(4000)},
		{ID: "j2", CollegeID: "nitt", Exam: "JEE", Year: 2024, Round: 1, Branch: "Civil", Category: "OPEN", SeatType: "AI", OpeningRank: ptr(3000), ClosingRank: ptr(9000)},
	}))

	return &fixture{
		mem: mem,
		eng: NewEngine(taxonomy.Default(), mem, Options{}, zerolog.Nop()),
	}
}

func mhtRequest(pct float64) model.PredictionRequest {
	return model.PredictionRequest{
		ExamType:   "MHT-CET",
		Percentile: ptr(pct),
		Year:       ptr(2024),
		Round:      ptr(1),
		Category:   "OPEN",
		SeatType:   "GOPENS",
	}
}

func cutoffIDs(rs []model.PredictionResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Cutoff.ID
	}
	return out
}

func TestPredict_EndToEnd(t *testing.T) {
	f := newFixture(t)

	req := mhtRequest(96)
	req.PreferredBranches = []string{"computer"}
	req.PreferredCities = []string{"pune"}

	resp, err := f.eng.Predict(context.Background(), req)
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.Equal(t, 1, resp.Count)
	p := resp.Predictions[0]
	assert.Equal(t, 1, p.SerialNumber)
	assert.Equal(t, "c1", p.Cutoff.ID)
	assert.Equal(t, 100, p.MatchScore)
	// +4.0 попадает в корзину 0..5 таблицы причин, а не в "Excellent" (>= 5).
	// Таблица причин главнее примера сквозного сценария, где ждали "Excellent".
	assert.Equal(t, "Good Chance - Near cutoff (+4.0%)", p.MatchReason)
	assert.Equal(t, "COEP Technological University", p.College.Name)
	assert.Equal(t, "6006", p.College.InstituteCode)
	assert.Equal(t, "Pune", p.College.Location)

	assert.Equal(t, "MHTCET", resp.Parameters.NormalizedExam)
	assert.Equal(t, "percentile", resp.Parameters.ScoringMode)
	assert.Equal(t, 10.0, resp.Parameters.ToleranceRange)
	assert.True(t, resp.Parameters.FuzzyMatch)
	assert.Equal(t, []string{"OPEN", "OPEN-L"}, resp.Parameters.MatchingCategories)
	assert.Equal(t, "GOPENS", resp.Parameters.MatchingSeatTypes[0])
}

func TestPredict_ExcellentAboveCutoff(t *testing.T) {
	f := newFixture(t)

	req := mhtRequest(98)
	req.PreferredBranches = []string{"computer"}
	req.PreferredCities = []string{"Pune"}
	resp, err := f.eng.Predict(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Excellent - Above cutoff by +6.0%", resp.Predictions[0].MatchReason)
}

func TestPredict_RankingAcrossFuzzySets(t *testing.T) {
	f := newFixture(t)

	resp, err := f.eng.Predict(context.Background(), mhtRequest(91))
	require.NoError(t, err)

	// c1 92 -> 97, c2 90 -> 100, c3 98 -> 79; c4 вне окна; c5 без колледжа; c6 другой год
	assert.Equal(t, []string{"c2", "c1", "c3"}, cutoffIDs(resp.Predictions))
	assert.Equal(t, []int{100, 97, 79}, []int{
		resp.Predictions[0].MatchScore, resp.Predictions[1].MatchScore, resp.Predictions[2].MatchScore,
	})
	for i, p := range resp.Predictions {
		assert.Equal(t, i+1, p.SerialNumber)
		assert.GreaterOrEqual(t, p.MatchScore, 0)
		assert.LessOrEqual(t, p.MatchScore, 100)
	}
	assert.Equal(t, "Maharashtra", resp.Predictions[2].College.Location)
	assert.Equal(t, "N/A", resp.Predictions[2].College.InstituteCode)
}

func TestPredict_OrphansDropped(t *testing.T) {
	f := newFixture(t)
	before := testutil.ToFloat64(metrics.OrphanCutoffs)

	resp, err := f.eng.Predict(context.Background(), mhtRequest(93))
	require.NoError(t, err)

	assert.NotContains(t, cutoffIDs(resp.Predictions), "c5")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrphanCutoffs))
}

func TestPredict_NoSeatTypeMatch(t *testing.T) {
	f := newFixture(t)

	req := mhtRequest(95)
	req.SeatType = "ZZZZ"
	resp, err := f.eng.Predict(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Predictions)
	assert.Empty(t, resp.Predictions)
	assert.Empty(t, resp.Parameters.MatchingSeatTypes)
	assert.Equal(t, "No colleges found matching your criteria. Try adjusting filters.", resp.Message)
}

func TestPredict_FuzzyOff(t *testing.T) {
	f := newFixture(t)

	req := mhtRequest(95)
	req.Category = "open"
	req.FuzzyMatch = ptr(false)
	resp, err := f.eng.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count, "raw lowercase category matches nothing")
	assert.Equal(t, []string{"open"}, resp.Parameters.MatchingCategories)

	req.Category = "OPEN"
	resp, err = f.eng.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, cutoffIDs(resp.Predictions), "exact seat type only")
}

func TestPredict_ToleranceWindow(t *testing.T) {
	f := newFixture(t)

	req := mhtRequest(91)
	req.ToleranceRange = ptr(1.0)
	resp, err := f.eng.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c1"}, cutoffIDs(resp.Predictions))
	assert.Equal(t, 70, resp.Predictions[1].MatchScore)
}

func TestPredict_CollegeStatusFilter(t *testing.T) {
	f := newFixture(t)

	req := mhtRequest(91)
	req.CollegeStatuses = []string{"government"}
	resp, err := f.eng.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, cutoffIDs(resp.Predictions))
}

func TestPredict_RankMode(t *testing.T) {
	f := newFixture(t)

	resp, err := f.eng.Predict(context.Background(), model.PredictionRequest{
		ExamType:   "jee-main",
		Percentile: ptr(12.0), // для экзаменов по рангу не учитывается
		Rank:       ptr(5000),
		Year:       ptr(2024),
		Round:      ptr(1),
		Category:   "general",
		SeatType:   "all india",
	})
	require.NoError(t, err)

	assert.Equal(t, "JEE", resp.Parameters.NormalizedExam)
	assert.Equal(t, "rank", resp.Parameters.ScoringMode)
	assert.Equal(t, []string{"j2", "j1"}, cutoffIDs(resp.Predictions))
	assert.Equal(t, 100, resp.Predictions[0].MatchScore)
	assert.Equal(t, 97, resp.Predictions[1].MatchScore)
	assert.Equal(t, "Possible - Slightly behind closing rank (-1000 ranks)", resp.Predictions[1].MatchReason)
}

func TestPredict_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		req   func() model.PredictionRequest
		field string
	}{
		{"missing year", func() model.PredictionRequest { r := mhtRequest(90); r.Year = nil; return r }, "year"},
		{"percentile above 100", func() model.PredictionRequest { return mhtRequest(101) }, "percentile"},
		{"missing category", func() model.PredictionRequest { r := mhtRequest(90); r.Category = ""; return r }, "category"},
		{"zero tolerance", func() model.PredictionRequest { r := mhtRequest(90); r.ToleranceRange = ptr(0.0); return r }, "toleranceRange"},
		{"percentile exam without percentile", func() model.PredictionRequest {
			r := mhtRequest(90)
			r.Percentile = nil
			r.Rank = ptr(100)
			return r
		}, "percentile"},
		{"rank exam without rank", func() model.PredictionRequest {
			r := mhtRequest(90)
			r.ExamType = "NEET"
			return r
		}, "rank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.Predict(context.Background(), tt.req())
			require.Error(t, err)

			var ae *apperr.AppError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, apperr.CodeValidationFailed, ae.Code)
			assert.Equal(t, http.StatusBadRequest, ae.HTTPCode)

			fields, ok := ae.Details.([]validation.FieldError)
			require.True(t, ok, "details are field errors")
			var names []string
			for _, fe := range fields {
				names = append(names, fe.Field)
			}
			assert.Contains(t, names, tt.field)
		})
	}
}

type failingStore struct {
	*store.Memory
	err   error
	calls int
}

func (s *failingStore) LookupCutoffs(context.Context, model.CutoffFilter) ([]model.CutoffRecord, error) {
	s.calls++
	return nil, s.err
}

func TestPredict_StoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	eng := NewEngine(taxonomy.Default(), &failingStore{Memory: store.NewMemory(), err: boom}, Options{}, zerolog.Nop())

	resp, err := eng.Predict(context.Background(), mhtRequest(90))
	require.Nil(t, resp)
	require.ErrorIs(t, err, boom)

	var ae *apperr.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.CodeStoreFailure, ae.Code)
	assert.Equal(t, http.StatusInternalServerError, ae.HTTPCode)
}

func TestPredict_BreakerOpen(t *testing.T) {
	fs := &failingStore{Memory: store.NewMemory(), err: errors.New("timeout")}
	br := store.NewBreaker(fs, config.BreakerConfig{Name: "engine-test", FailureThreshold: 1}, zerolog.Nop())
	eng := NewEngine(taxonomy.Default(), br, Options{}, zerolog.Nop())

	_, err := eng.Predict(context.Background(), mhtRequest(90))
	var ae *apperr.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.CodeStoreFailure, ae.Code)

	_, err = eng.Predict(context.Background(), mhtRequest(90))
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.CodeStoreUnavailable, ae.Code)
	assert.Equal(t, http.StatusServiceUnavailable, ae.HTTPCode)
	assert.Equal(t, 1, fs.calls, "open breaker never reaches the store")
}

func TestPredict_ResultCap(t *testing.T) {
	f := newFixture(t)
	eng := NewEngine(taxonomy.Default(), f.mem, Options{ResultCap: 2}, zerolog.Nop())

	resp, err := eng.Predict(context.Background(), mhtRequest(91))
	require.NoError(t, err)
	assert.LessOrEqual(t, resp.Count, 2)
}

func TestSearchCutoffs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.eng.SearchCutoffs(ctx, model.SearchRequest{
		ExamType: "MHTCET", Year: 2024, Round: 1, Category: "OPEN", SeatType: "GOPENS",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count, "orphan c5 dropped")
	assert.Equal(t, "c1", resp.Results[0].Cutoff.ID)
	assert.Equal(t, "c4", resp.Results[1].Cutoff.ID)

	resp, err = f.eng.SearchCutoffs(ctx, model.SearchRequest{
		ExamType: "MHTCET", Year: 2024, Round: 1, Category: "OPEN", SeatType: "GOPENH", Search: "vj",
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "VJTI", resp.Results[0].College.Name)

	resp, err = f.eng.SearchCutoffs(ctx, model.SearchRequest{
		ExamType: "MHTCET", Year: 2024, Round: 1, Category: "OPEN", SeatType: "GOPENH", Search: "coep",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)

	resp, err = f.eng.SearchCutoffs(ctx, model.SearchRequest{
		ExamType: "MHTCET", Year: 2024, Round: 3, Category: "OPEN", SeatType: "GOPENS",
	})
	require.NoError(t, err)
	assert.Equal(t, "No cutoffs found for these criteria", resp.Message)

	_, err = f.eng.SearchCutoffs(ctx, model.SearchRequest{ExamType: "MHTCET"})
	var ae *apperr.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.CodeValidationFailed, ae.Code)
}
