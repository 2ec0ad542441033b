package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"cutoff-predictor/internal/config"
	"cutoff-predictor/internal/metrics"
	"cutoff-predictor/internal/predict/model"
)

// Breaker прикрывает Store автоматом. Пока он открыт, вызовы сразу падают с
// ErrUnavailable, не доходя до бэкенда.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker оборачивает next. Нулевые настройки: 5 отказов подряд, 30s в
// открытом состоянии, 3 пробных запроса в half-open.
func NewBreaker(next Store, cfg config.BreakerConfig, log zerolog.Logger) *Breaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	halfOpenMax := cfg.MaxRequests
	if halfOpenMax == 0 {
		halfOpenMax = 3
	}
	name := cfg.Name
	if name == "" {
		name = "store"
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpenMax,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// отмена со стороны клиента не говорит о здоровье бэкенда
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("store circuit breaker state change")
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// State: текущее состояние автомата ("closed", "half-open", "open").
func (b *Breaker) State() string { return b.cb.State().String() }

func (b *Breaker) exec(op string, fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if err == nil {
		return v, nil
	}
	metrics.StoreErrors.WithLabelValues(op).Inc()
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return nil, err
}

func (b *Breaker) LookupCutoffs(ctx context.Context, f model.CutoffFilter) ([]model.CutoffRecord, error) {
	v, err := b.exec("lookup_cutoffs", func() (any, error) { return b.next.LookupCutoffs(ctx, f) })
	if err != nil {
		return nil, err
	}
	return v.([]model.CutoffRecord), nil
}

func (b *Breaker) LookupColleges(ctx context.Context, f model.CollegeFilter) ([]model.CollegeRecord, error) {
	v, err := b.exec("lookup_colleges", func() (any, error) { return b.next.LookupColleges(ctx, f) })
	if err != nil {
		return nil, err
	}
	return v.([]model.CollegeRecord), nil
}

func (b *Breaker) UpsertColleges(ctx context.Context, colleges []model.CollegeRecord) error {
	_, err := b.exec("upsert_colleges", func() (any, error) { return nil, b.next.UpsertColleges(ctx, colleges) })
	return err
}

func (b *Breaker) UpsertCutoffs(ctx context.Context, cutoffs []model.CutoffRecord) error {
	_, err := b.exec("upsert_cutoffs", func() (any, error) { return nil, b.next.UpsertCutoffs(ctx, cutoffs) })
	return err
}

func (b *Breaker) CountCutoffs(ctx context.Context) (int, error) {
	v, err := b.exec("count_cutoffs", func() (any, error) { return b.next.CountCutoffs(ctx) })
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Ping идёт мимо автомата, health check видит бэкенд напрямую.
func (b *Breaker) Ping(ctx context.Context) error { return b.next.Ping(ctx) }

func (b *Breaker) Close() error { return b.next.Close() }
