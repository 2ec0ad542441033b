package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cutoff-predictor/internal/apperr"
	"cutoff-predictor/internal/config"
	"cutoff-predictor/internal/fileio"
	"cutoff-predictor/internal/importer"
	"cutoff-predictor/internal/predict/model"
	"cutoff-predictor/internal/predict/taxonomy"
	"cutoff-predictor/internal/validation"
)

type Predictor interface {
	Predict(ctx context.Context, req model.PredictionRequest) (*model.PredictionResponse, error)
	SearchCutoffs(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error)
}

type CutoffCounter interface {
	CountCutoffs(ctx context.Context) (int, error)
}

// Predict: POST /api/predict
func Predict(p Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req model.PredictionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		resp, err := p.Predict(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := writeJSON(w, http.StatusOK, resp); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("write json")
			return
		}

		zerolog.Ctx(r.Context()).Info().
			Str("exam", resp.Parameters.NormalizedExam).
			Str("mode", resp.Parameters.ScoringMode).
			Int("count", resp.Count).
			Dur("elapsed", time.Since(start)).
			Msg("predict done")
	}
}

// SearchCutoffs: POST /api/search-cutoffs
func SearchCutoffs(p Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.SearchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		resp, err := p.SearchCutoffs(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		_ = writeJSON(w, http.StatusOK, resp)
	}
}

type categoriesData struct {
	Exam            string   `json:"exam"`
	ScoringMode     string   `json:"scoringMode"`
	Categories      []string `json:"categories"`
	SeatTypes       []string `json:"seatTypes"`
	CategoryAliases []string `json:"categoryAliases"`
	SeatTypeAliases []string `json:"seatTypeAliases"`
}

// Categories: GET /api/cutoffs/meta/categories?exam=MHT-CET
func Categories(tax *taxonomy.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exam := strings.TrimSpace(r.URL.Query().Get("exam"))
		if exam == "" {
			writeError(w, r, apperr.Validation("exam is required", []validation.FieldError{{
				Field: "exam", Tag: "required", Message: "exam is required",
			}}))
			return
		}
		id := tax.NormalizeExam(exam)
		_ = writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": categoriesData{
				Exam:            id,
				ScoringMode:     tax.Mode(id).String(),
				Categories:      tax.Categories(),
				SeatTypes:       tax.SeatTypes(),
				CategoryAliases: tax.CategoryAliasKeys(),
				SeatTypeAliases: tax.SeatTypeAliasKeys(),
			},
		})
	}
}

// CountCutoffs: GET /api/cutoffs/count
func CountCutoffs(c CutoffCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := c.CountCutoffs(r.Context())
		if err != nil {
			writeError(w, r, storeError("count_cutoffs", err))
			return
		}
		_ = writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": n})
	}
}

var exportHeader = []string{
	"Rank", "College Name", "Branch", "City", "Status", "Year", "Round",
	"Category", "Seat Type", "Closing Rank", "Closing Percentile", "Match Score",
}

// Export: POST /api/export/predictions
// format=csv (по умолчанию): CSV строкой в JSON; format=xlsx: файл.
func Export() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.ExportRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if verr := validation.ValidateStruct(req); verr != nil {
			writeError(w, r, apperr.Validation("No predictions to export", verr.Fields))
			return
		}

		table := exportTable(req.Predictions)
		stamp := time.Now().UnixMilli()

		if strings.EqualFold(req.Format, "xlsx") {
			var buf bytes.Buffer
			if err := fileio.WriteXLSX(&buf, table); err != nil {
				writeError(w, r, apperr.Wrap(err, apperr.CodeInternal, "export failed", http.StatusInternalServerError))
				return
			}
			name := fmt.Sprintf("CutoffPredictions_%d.xlsx", stamp)
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
			w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
			w.WriteHeader(http.StatusOK)
			_, _ = buf.WriteTo(w)
			return
		}

		var buf bytes.Buffer
		if err := fileio.WriteCSV(&buf, table); err != nil {
			writeError(w, r, apperr.Wrap(err, apperr.CodeInternal, "export failed", http.StatusInternalServerError))
			return
		}
		_ = writeJSON(w, http.StatusOK, model.ExportResponse{
			Success:  true,
			Message:  "Export generated",
			CSVData:  strings.TrimPrefix(buf.String(), "\ufeff"),
			FileName: fmt.Sprintf("CutoffPredictions_%d.csv", stamp),
		})
	}
}

func exportTable(rows []model.ExportRow) fileio.Table {
	t := fileio.Table{Sheet: "Predictions", Header: exportHeader, Rows: make([][]string, 0, len(rows))}
	for _, p := range rows {
		closingRank, closingPct := "N/A", "N/A"
		if p.ClosingRank != nil {
			closingRank = strconv.Itoa(*p.ClosingRank)
		}
		if p.ClosingPercentile != nil {
			closingPct = strconv.FormatFloat(*p.ClosingPercentile, 'f', -1, 64)
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(p.Rank), p.CollegeName, p.Branch, p.City, p.Status,
			strconv.Itoa(p.Year), strconv.Itoa(p.Round), p.Category, p.SeatType,
			closingRank, closingPct, strconv.Itoa(p.MatchScore),
		})
	}
	return t
}

// Import: POST /api/cutoffs/import (multipart: file, header_row, exam, year, round, dry_run)
func Import(cfg config.Config, im *importer.Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := zerolog.Ctx(r.Context())

		if err := r.ParseMultipartForm(int64(cfg.MaxUploadMB) << 20); err != nil {
			writeError(w, r, apperr.BadRequest("bad multipart form", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, apperr.BadRequest("missing file", err))
			return
		}
		defer file.Close()

		opts := importer.Options{
			HeaderRow: atoi(r.FormValue("header_row"), 1),
			Exam:      r.FormValue("exam"),
			Year:      atoi(r.FormValue("year"), 0),
			Round:     atoi(r.FormValue("round"), 0),
		}

		var rep importer.Report
		if toBool(r.FormValue("dry_run"), false) {
			rows, err := fileio.ReadAnyMaps(file, header.Filename, opts.HeaderRow)
			if err != nil {
				writeError(w, r, apperr.BadRequest("failed to read file", err))
				return
			}
			_, rep = importer.Parse(rows, im.Taxonomy(), opts)
		} else {
			rep, err = im.ImportFile(r.Context(), file, header.Filename, opts)
			if err != nil {
				writeError(w, r, importError(err))
				return
			}
		}

		_ = writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": rep})
		log.Info().
			Str("file", header.Filename).
			Int("cutoffs", rep.Cutoffs).
			Int("skipped", rep.Skipped).
			Dur("elapsed", time.Since(start)).
			Msg("import request done")
	}
}
