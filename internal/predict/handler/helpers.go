package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"cutoff-predictor/internal/apperr"
	"cutoff-predictor/internal/importer"
	"cutoff-predictor/internal/store"
)

type errorBody struct {
	Success bool        `json:"success"`
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Details any         `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeError: *apperr.AppError -> его HTTP-код, всё остальное -> 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.From(err)
	log := zerolog.Ctx(r.Context())
	if ae.HTTPCode >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", string(ae.Code)).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("code", string(ae.Code)).Msg("request rejected")
	}
	_ = writeJSON(w, ae.HTTPCode, errorBody{Code: ae.Code, Message: ae.Message, Details: ae.Details})
}

// decodeJSON читает тело в v. Пустое тело, битый JSON и превышение лимита: 4xx.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperr.BadRequest("request body is required", nil)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperr.New(apperr.CodeBadRequest, "request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			return apperr.BadRequest("request body is required", err)
		default:
			return apperr.BadRequest("invalid JSON body", err)
		}
	}
	return nil
}

func storeError(op string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return apperr.StoreUnavailable(op, err)
	}
	return apperr.StoreFailure(op, err)
}

// importError: нечитаемый файл это ошибка клиента, всё остальное относим к хранилищу.
func importError(err error) error {
	if errors.Is(err, importer.ErrUnreadable) {
		return apperr.BadRequest("failed to read file", err)
	}
	return storeError("import", err)
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

func toBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
