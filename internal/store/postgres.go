package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"cutoff-predictor/internal/predict/model"
)

type collegeRow struct {
	Seq        int64  `gorm:"autoIncrement;uniqueIndex"`
	ID         string `gorm:"primaryKey;size:64"`
	Name       string `gorm:"not null"`
	Code       string
	City       string
	State      string
	University string
	Status     string
	Fees       float64
	Rating     float64
}

func (collegeRow) TableName() string { return "colleges" }

type cutoffRow struct {
	Seq         int64  `gorm:"autoIncrement;uniqueIndex"`
	ID          string `gorm:"primaryKey;size:64"`
	CollegeID   string `gorm:"index;not null"`
	Exam        string `gorm:"index:idx_cutoff_lookup;not null"`
	Year        int    `gorm:"index:idx_cutoff_lookup;not null"`
	Round       int    `gorm:"index:idx_cutoff_lookup;not null"`
	Branch      string
	Category    string `gorm:"index:idx_cutoff_lookup;not null"`
	SeatType    string `gorm:"index:idx_cutoff_lookup;not null"`
	Percentile  *float64
	OpeningRank *int
	ClosingRank *int
}

func (cutoffRow) TableName() string { return "cutoffs" }

// Postgres: общий бэкенд на базе, работает через gorm.
type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: empty dsn")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&collegeRow{}, &cutoffRow{}); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) LookupCutoffs(ctx context.Context, f model.CutoffFilter) ([]model.CutoffRecord, error) {
	if len(f.Categories) == 0 || len(f.SeatTypes) == 0 {
		return []model.CutoffRecord{}, nil
	}

	q := p.db.WithContext(ctx).Model(&cutoffRow{}).
		Where("exam = ? AND year = ? AND round = ?", f.Exam, f.Year, f.Round).
		Where("category IN ?", f.Categories).
		Where("seat_type IN ?", f.SeatTypes)

	col := f.Mode.ScoreField()
	if f.ScoreMin != nil || f.ScoreMax != nil {
		q = q.Where(col + " IS NOT NULL")
	}
	if f.ScoreMin != nil {
		q = q.Where(col+" >= ?", *f.ScoreMin)
	}
	if f.ScoreMax != nil {
		q = q.Where(col+" <= ?", *f.ScoreMax)
	}
	if subs := lowerAll(f.BranchSubstrings); len(subs) > 0 {
		ors := make([]string, len(subs))
		args := make([]any, len(subs))
		for i, sub := range subs {
			ors[i] = "strpos(lower(branch), ?) > 0"
			args[i] = sub
		}
		q = q.Where("("+strings.Join(ors, " OR ")+")", args...)
	}
	q = q.Order("seq")
	if f.ResultCap > 0 {
		q = q.Limit(f.ResultCap)
	}

	var rows []cutoffRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: lookup cutoffs: %w", err)
	}
	out := make([]model.CutoffRecord, len(rows))
	for i, r := range rows {
		out[i] = model.CutoffRecord{
			ID: r.ID, CollegeID: r.CollegeID, Exam: r.Exam, Year: r.Year, Round: r.Round,
			Branch: r.Branch, Category: r.Category, SeatType: r.SeatType,
			Percentile: r.Percentile, OpeningRank: r.OpeningRank, ClosingRank: r.ClosingRank,
		}
	}
	return out, nil
}

func (p *Postgres) LookupColleges(ctx context.Context, f model.CollegeFilter) ([]model.CollegeRecord, error) {
	if len(f.IDs) == 0 {
		return []model.CollegeRecord{}, nil
	}
	var rows []collegeRow
	if err := p.db.WithContext(ctx).Where("id IN ?", f.IDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: lookup colleges: %w", err)
	}
	byID := make(map[string]model.CollegeRecord, len(rows))
	for _, r := range rows {
		byID[r.ID] = model.CollegeRecord{
			ID: r.ID, Name: r.Name, Code: r.Code, City: r.City, State: r.State,
			University: r.University, Status: r.Status, Fees: r.Fees, Rating: r.Rating,
		}
	}
	return orderColleges(f, byID), nil
}

func (p *Postgres) UpsertColleges(ctx context.Context, colleges []model.CollegeRecord) error {
	if len(colleges) == 0 {
		return nil
	}
	rows := make([]collegeRow, len(colleges))
	for i, c := range colleges {
		rows[i] = collegeRow{
			ID: c.ID, Name: c.Name, Code: c.Code, City: c.City, State: c.State,
			University: c.University, Status: c.Status, Fees: c.Fees, Rating: c.Rating,
		}
	}
	err := p.db.WithContext(ctx).Omit("seq").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: collegeMergeAssignments(),
	}).CreateInBatches(rows, 500).Error
	if err != nil {
		return fmt.Errorf("postgres: upsert colleges: %w", err)
	}
	return nil
}

// collegeMergeAssignments: те же правила, что и collegeMergeSet.
func collegeMergeAssignments() clause.Set {
	set := clause.Set{{
		Column: clause.Column{Name: "name"},
		Value:  gorm.Expr("CASE WHEN excluded.name IN ('', excluded.code) THEN colleges.name ELSE excluded.name END"),
	}}
	for _, col := range []string{"code", "city", "state", "university", "status"} {
		set = append(set, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr(fmt.Sprintf("COALESCE(NULLIF(excluded.%[1]s, ''), colleges.%[1]s)", col)),
		})
	}
	for _, col := range []string{"fees", "rating"} {
		set = append(set, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr(fmt.Sprintf("CASE WHEN excluded.%[1]s <> 0 THEN excluded.%[1]s ELSE colleges.%[1]s END", col)),
		})
	}
	return set
}

func (p *Postgres) UpsertCutoffs(ctx context.Context, cutoffs []model.CutoffRecord) error {
	if len(cutoffs) == 0 {
		return nil
	}
	rows := make([]cutoffRow, len(cutoffs))
	for i, c := range cutoffs {
		rows[i] = cutoffRow{
			ID: c.ID, CollegeID: c.CollegeID, Exam: c.Exam, Year: c.Year, Round: c.Round,
			Branch: c.Branch, Category: c.Category, SeatType: c.SeatType,
			Percentile: c.Percentile, OpeningRank: c.OpeningRank, ClosingRank: c.ClosingRank,
		}
	}
	err := p.db.WithContext(ctx).Omit("seq").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"college_id", "exam", "year", "round", "branch", "category", "seat_type",
			"percentile", "opening_rank", "closing_rank",
		}),
	}).CreateInBatches(rows, 500).Error
	if err != nil {
		return fmt.Errorf("postgres: upsert cutoffs: %w", err)
	}
	return nil
}

func (p *Postgres) CountCutoffs(ctx context.Context) (int, error) {
	var n int64
	if err := p.db.WithContext(ctx).Model(&cutoffRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("postgres: count cutoffs: %w", err)
	}
	return int(n), nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
