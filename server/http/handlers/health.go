package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type healthBody struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Error  string `json:"error,omitempty"`
}

// Health пингует хранилище; недоступное хранилище: 503.
func Health(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		body, status := healthBody{Status: "ok", Store: "up"}, http.StatusOK
		if err := p.Ping(ctx); err != nil {
			body, status = healthBody{Status: "degraded", Store: "down", Error: err.Error()}, http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
