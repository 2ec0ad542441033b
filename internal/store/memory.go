package store

import (
	"context"
	"sync"

	"cutoff-predictor/internal/predict/model"
)

// Memory держит всё в процессе в порядке вставки. Upsert заменяет запись на
// месте, позиция в выборке не сдвигается.
type Memory struct {
	mu         sync.RWMutex
	cutoffs    []model.CutoffRecord
	cutoffIdx  map[string]int
	colleges   []model.CollegeRecord
	collegeIdx map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		cutoffIdx:  make(map[string]int),
		collegeIdx: make(map[string]int),
	}
}

func (m *Memory) LookupCutoffs(ctx context.Context, f model.CutoffFilter) ([]model.CutoffRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.Categories) == 0 || len(f.SeatTypes) == 0 {
		return []model.CutoffRecord{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.CutoffRecord, 0)
	for _, c := range m.cutoffs {
		if !matchCutoff(f, c) {
			continue
		}
		out = append(out, c)
		if f.ResultCap > 0 && len(out) >= f.ResultCap {
			break
		}
	}
	return out, nil
}

func (m *Memory) LookupColleges(ctx context.Context, f model.CollegeFilter) ([]model.CollegeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.CollegeRecord, 0, len(f.IDs))
	seen := make(map[string]struct{}, len(f.IDs))
	for _, id := range f.IDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		i, ok := m.collegeIdx[id]
		if !ok {
			continue
		}
		if c := m.colleges[i]; matchCollege(f, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) UpsertColleges(ctx context.Context, colleges []model.CollegeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range colleges {
		if i, ok := m.collegeIdx[c.ID]; ok {
			m.colleges[i] = mergeCollege(m.colleges[i], c)
			continue
		}
		m.collegeIdx[c.ID] = len(m.colleges)
		m.colleges = append(m.colleges, c)
	}
	return nil
}

func (m *Memory) UpsertCutoffs(ctx context.Context, cutoffs []model.CutoffRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cutoffs {
		if i, ok := m.cutoffIdx[c.ID]; ok {
			m.cutoffs[i] = c
			continue
		}
		m.cutoffIdx[c.ID] = len(m.cutoffs)
		m.cutoffs = append(m.cutoffs, c)
	}
	return nil
}

func (m *Memory) CountCutoffs(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cutoffs), nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }
