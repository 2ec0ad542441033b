package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cutoff-predictor/internal/apperr"
	"cutoff-predictor/internal/metrics"
	"cutoff-predictor/internal/predict/model"
	"cutoff-predictor/internal/predict/taxonomy"
	"cutoff-predictor/internal/store"
	"cutoff-predictor/internal/validation"
)

const (
	DefaultResultCap   = 200
	DefaultTolerance   = 10.0
	defaultSearchLimit = 100

	emptyPredictionMessage = "No colleges found matching your criteria. Try adjusting filters."
	emptySearchMessage     = "No cutoffs found for these criteria"
)

// CutoffRetriever: читающая сторона хранилища, нужная движку.
type CutoffRetriever interface {
	LookupCutoffs(ctx context.Context, f model.CutoffFilter) ([]model.CutoffRecord, error)
	LookupColleges(ctx context.Context, f model.CollegeFilter) ([]model.CollegeRecord, error)
}

type Options struct {
	ResultCap        int
	MatchThreshold   float64
	DefaultTolerance float64
}

// withDefaults: нулевые поля значат "не задано"; config не пропускает нулевой порог.
func (o Options) withDefaults() Options {
	if o.ResultCap <= 0 {
		o.ResultCap = DefaultResultCap
	}
	if o.MatchThreshold <= 0 {
		o.MatchThreshold = DefaultMatchThreshold
	}
	if o.DefaultTolerance <= 0 {
		o.DefaultTolerance = DefaultTolerance
	}
	return o
}

// Engine превращает профиль кандидата в ранжированный список шансов.
// Состояния на запрос не держит, безопасен для конкурентного вызова.
type Engine struct {
	tax     *taxonomy.Taxonomy
	matcher *Matcher
	store   CutoffRetriever
	opts    Options
	log     zerolog.Logger
}

func NewEngine(tax *taxonomy.Taxonomy, st CutoffRetriever, opts Options, logger zerolog.Logger) *Engine {
	return &Engine{
		tax:     tax,
		matcher: NewMatcher(tax),
		store:   st,
		opts:    opts.withDefaults(),
		log:     logger.With().Str("component", "predict").Logger(),
	}
}

func (e *Engine) Taxonomy() *taxonomy.Taxonomy { return e.tax }

// Predict: один прогноз. Пустая выборка это успешный ответ с подсказкой;
// ошибки хранилища возвращаются как *apperr.AppError.
func (e *Engine) Predict(ctx context.Context, req model.PredictionRequest) (*model.PredictionResponse, error) {
	start := time.Now()

	if verr := validation.ValidateStruct(req); verr != nil {
		metrics.PredictionsTotal.WithLabelValues("unknown", "invalid").Inc()
		return nil, apperr.Validation("invalid prediction request", verr.Fields)
	}

	exam := e.tax.NormalizeExam(req.ExamType)
	mode := e.tax.Mode(exam)
	modeLabel := mode.String()
	defer func() {
		metrics.PredictionDuration.WithLabelValues(modeLabel).Observe(time.Since(start).Seconds())
	}()

	candidate, err := candidateScore(req, mode)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(modeLabel, "invalid").Inc()
		return nil, err
	}

	tolerance := e.opts.DefaultTolerance
	if req.ToleranceRange != nil {
		tolerance = *req.ToleranceRange
	}
	fuzzy := true
	if req.FuzzyMatch != nil {
		fuzzy = *req.FuzzyMatch
	}

	categories := e.matcher.MatchCategory(req.Category, e.opts.MatchThreshold, fuzzy)
	seatTypes := e.matcher.MatchSeatType(req.SeatType, e.opts.MatchThreshold, fuzzy)

	params := model.Parameters{
		ExamType:           req.ExamType,
		NormalizedExam:     exam,
		ScoringMode:        modeLabel,
		Percentile:         req.Percentile,
		Rank:               req.Rank,
		Year:               *req.Year,
		Round:              *req.Round,
		Category:           req.Category,
		SeatType:           req.SeatType,
		ToleranceRange:     tolerance,
		FuzzyMatch:         fuzzy,
		PreferredBranches:  req.PreferredBranches,
		PreferredCities:    req.PreferredCities,
		CollegeStatuses:    req.CollegeStatuses,
		MatchingCategories: categories,
		MatchingSeatTypes:  seatTypes,
	}

	filter := model.CutoffFilter{
		Exam:             exam,
		Year:             *req.Year,
		Round:            *req.Round,
		Categories:       categories,
		SeatTypes:        seatTypes,
		Mode:             mode,
		BranchSubstrings: req.PreferredBranches,
		ResultCap:        e.opts.ResultCap,
	}
	lo, hi := scoreWindow(mode, candidate, tolerance)
	filter.ScoreMin, filter.ScoreMax = &lo, &hi

	log := e.log.With().Str("exam", exam).Str("mode", modeLabel).Logger()
	log.Debug().
		Strs("categories", categories).
		Strs("seat_types", seatTypes).
		Float64("score_min", lo).
		Float64("score_max", hi).
		Msg("cutoff lookup")

	cutoffs, err := e.store.LookupCutoffs(ctx, filter)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(modeLabel, "store_error").Inc()
		log.Error().Err(err).Msg("lookup cutoffs")
		return nil, storeError("lookup_cutoffs", err)
	}
	if len(cutoffs) == 0 {
		metrics.PredictionsTotal.WithLabelValues(modeLabel, "empty").Inc()
		metrics.PredictionResults.Observe(0)
		return emptyResponse(params), nil
	}

	colleges, err := e.store.LookupColleges(ctx, model.CollegeFilter{
		IDs:      uniqueCollegeIDs(cutoffs),
		Cities:   req.PreferredCities,
		Statuses: req.CollegeStatuses,
	})
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(modeLabel, "store_error").Inc()
		log.Error().Err(err).Msg("lookup colleges")
		return nil, storeError("lookup_colleges", err)
	}
	byID := make(map[string]model.CollegeRecord, len(colleges))
	for _, c := range colleges {
		byID[c.ID] = c
	}

	score := scorerFor(mode, candidate, tolerance)
	results := make([]model.PredictionResult, 0, len(cutoffs))
	orphans, unscored := 0, 0
	for _, c := range cutoffs {
		college, ok := byID[c.CollegeID]
		if !ok {
			orphans++
			continue
		}
		s, reason, ok := score(c)
		if !ok {
			unscored++
			continue
		}
		results = append(results, model.PredictionResult{
			College:     college.Summary(),
			Cutoff:      c.Summary(),
			MatchScore:  displayScore(s),
			MatchReason: reason,
		})
	}
	if orphans > 0 {
		metrics.OrphanCutoffs.Add(float64(orphans))
	}
	results = Rank(results, mode)

	log.Debug().
		Int("retrieved", len(cutoffs)).
		Int("orphans", orphans).
		Int("unscored", unscored).
		Int("count", len(results)).
		Msg("prediction done")

	if len(results) == 0 {
		metrics.PredictionsTotal.WithLabelValues(modeLabel, "empty").Inc()
		metrics.PredictionResults.Observe(0)
		return emptyResponse(params), nil
	}
	metrics.PredictionsTotal.WithLabelValues(modeLabel, "ok").Inc()
	metrics.PredictionResults.Observe(float64(len(results)))

	return &model.PredictionResponse{
		Success:     true,
		Count:       len(results),
		Predictions: results,
		Parameters:  params,
	}, nil
}

// SearchCutoffs: точный фильтр плюс колледжи, без оценки.
// Строка поиска от двух символов сужает колледжи по имени или городу.
func (e *Engine) SearchCutoffs(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, apperr.Validation("invalid search request", verr.Fields)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	exam := e.tax.NormalizeExam(req.ExamType)

	cutoffs, err := e.store.LookupCutoffs(ctx, model.CutoffFilter{
		Exam:       exam,
		Year:       req.Year,
		Round:      req.Round,
		Categories: []string{req.Category},
		SeatTypes:  []string{req.SeatType},
		Mode:       e.tax.Mode(exam),
		ResultCap:  limit,
	})
	if err != nil {
		return nil, storeError("lookup_cutoffs", err)
	}
	if len(cutoffs) == 0 {
		return &model.SearchResponse{Success: true, Results: []model.SearchResult{}, Message: emptySearchMessage}, nil
	}

	colleges, err := e.store.LookupColleges(ctx, model.CollegeFilter{IDs: uniqueCollegeIDs(cutoffs)})
	if err != nil {
		return nil, storeError("lookup_colleges", err)
	}
	term := strings.ToLower(strings.TrimSpace(req.Search))
	byID := make(map[string]model.CollegeRecord, len(colleges))
	for _, c := range colleges {
		if len([]rune(term)) >= 2 && !collegeMentions(c, term) {
			continue
		}
		byID[c.ID] = c
	}

	results := make([]model.SearchResult, 0, len(cutoffs))
	for _, c := range cutoffs {
		college, ok := byID[c.CollegeID]
		if !ok {
			continue
		}
		results = append(results, model.SearchResult{College: college.Summary(), Cutoff: c.Summary()})
	}
	return &model.SearchResponse{Success: true, Count: len(results), Results: results}, nil
}

// candidateScore берёт поле, нужное режиму экзамена; второе игнорируется.
func candidateScore(req model.PredictionRequest, mode model.ScoringMode) (float64, error) {
	if mode == model.ModeRank {
		if req.Rank == nil {
			return 0, apperr.Validation("rank is required for rank-based exams", []validation.FieldError{{
				Field: "rank", Tag: "required", Message: "rank is required for rank-based exams",
			}})
		}
		return float64(*req.Rank), nil
	}
	if req.Percentile == nil {
		return 0, apperr.Validation("percentile is required for percentile-based exams", []validation.FieldError{{
			Field: "percentile", Tag: "required", Message: "percentile is required for percentile-based exams",
		}})
	}
	return *req.Percentile, nil
}

// scoreWindow: замкнутый диапазон, по которому хранилище фильтрует поле режима.
func scoreWindow(mode model.ScoringMode, candidate, tolerance float64) (lo, hi float64) {
	if mode == model.ModeRank {
		w := tolerance * rankUnit
		return candidate - w, candidate + w
	}
	return candidate - tolerance, candidate + tolerance
}

// uniqueCollegeIDs сохраняет порядок первого появления.
func uniqueCollegeIDs(cutoffs []model.CutoffRecord) []string {
	seen := make(map[string]struct{}, len(cutoffs))
	ids := make([]string, 0, len(cutoffs))
	for _, c := range cutoffs {
		if _, ok := seen[c.CollegeID]; ok {
			continue
		}
		seen[c.CollegeID] = struct{}{}
		ids = append(ids, c.CollegeID)
	}
	return ids
}

func collegeMentions(c model.CollegeRecord, term string) bool {
	return strings.Contains(strings.ToLower(c.Name), term) ||
		strings.Contains(strings.ToLower(c.City), term) ||
		strings.Contains(strings.ToLower(c.State), term)
}

func emptyResponse(params model.Parameters) *model.PredictionResponse {
	return &model.PredictionResponse{
		Success:     true,
		Count:       0,
		Predictions: []model.PredictionResult{},
		Parameters:  params,
		Message:     emptyPredictionMessage,
	}
}

func storeError(op string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return apperr.StoreUnavailable(op, err)
	}
	return apperr.StoreFailure(op, err)
}
