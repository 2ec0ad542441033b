// Package store: хранилище отсечек и колледжей за движком прогноза. Любой
// бэкенд отдаёт строки в стабильном порядке, а пустое множество категорий или
// типов мест значит "ничего не найдено".
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cutoff-predictor/internal/config"
	"cutoff-predictor/internal/predict/model"
)

// ErrUnavailable: вызов отклонён, не дойдя до бэкенда.
var ErrUnavailable = errors.New("store unavailable")

type Store interface {
	LookupCutoffs(ctx context.Context, f model.CutoffFilter) ([]model.CutoffRecord, error)
	LookupColleges(ctx context.Context, f model.CollegeFilter) ([]model.CollegeRecord, error)
	UpsertColleges(ctx context.Context, colleges []model.CollegeRecord) error
	UpsertCutoffs(ctx context.Context, cutoffs []model.CutoffRecord) error
	CountCutoffs(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open собирает бэкенд по cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
