package serverhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutoff-predictor/internal/config"
	"cutoff-predictor/internal/importer"
	"cutoff-predictor/internal/predict/model"
	"cutoff-predictor/internal/predict/service"
	"cutoff-predictor/internal/predict/taxonomy"
	"cutoff-predictor/internal/store"
)

func newTestRouter(t *testing.T, st store.Store) http.Handler {
	t.Helper()
	cfg := config.Config{
		AllowOrigins: []string{"*"},
		MaxUploadMB:  1,
		RateLimit:    config.RateLimitConfig{Requests: 100, Window: time.Minute},
	}
	tax := taxonomy.Default()
	return NewRouter(cfg, zerolog.Nop(), Deps{
		Engine:   service.NewEngine(tax, st, service.Options{}, zerolog.Nop()),
		Store:    st,
		Importer: importer.New(st, tax, zerolog.Nop()),
	})
}

func TestRouter_Routes(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertCutoffs(context.Background(), []model.CutoffRecord{
		{ID: "c1", CollegeID: "x", Exam: "MHTCET", Year: 2024, Round: 1, Category: "OPEN", SeatType: "GOPENS"},
	}))
	r := newTestRouter(t, mem)

	tests := []struct {
		method, path, body string
		want               int
		contains           string
	}{
		{http.MethodGet, "/health", "", http.StatusOK, `"status":"ok"`},
		{http.MethodGet, "/metrics", "", http.StatusOK, "cutoff"},
		{http.MethodGet, "/api/cutoffs/count", "", http.StatusOK, `"count":1`},
		{http.MethodGet, "/api/cutoffs/meta/categories?exam=MHT-CET", "", http.StatusOK, `"exam":"MHTCET"`},
		{http.MethodPost, "/api/predict", `{}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{http.MethodGet, "/api/predict", "", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nope", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

type downStore struct{ *store.Memory }

func (downStore) Ping(context.Context) error { return store.ErrUnavailable }

func TestRouter_HealthDegraded(t *testing.T) {
	r := newTestRouter(t, downStore{store.NewMemory()})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"down"`)
}
