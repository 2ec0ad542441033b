package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"cutoff-predictor/internal/predict/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS colleges (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	code       TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	university TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	fees       REAL NOT NULL DEFAULT 0,
	rating     REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS cutoffs (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	college_id   TEXT NOT NULL,
	exam         TEXT NOT NULL,
	year         INTEGER NOT NULL,
	round        INTEGER NOT NULL,
	branch       TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL,
	seat_type    TEXT NOT NULL,
	percentile   REAL,
	opening_rank INTEGER,
	closing_rank INTEGER
);
CREATE INDEX IF NOT EXISTS idx_cutoffs_lookup ON cutoffs (exam, year, round, category, seat_type);
`

// collegeMergeSet: правила mergeCollege в виде SQL.
const collegeMergeSet = `
	name = CASE WHEN excluded.name IN ('', excluded.code) THEN colleges.name ELSE excluded.name END,
	code = COALESCE(NULLIF(excluded.code, ''), colleges.code),
	city = COALESCE(NULLIF(excluded.city, ''), colleges.city),
	state = COALESCE(NULLIF(excluded.state, ''), colleges.state),
	university = COALESCE(NULLIF(excluded.university, ''), colleges.university),
	status = COALESCE(NULLIF(excluded.status, ''), colleges.status),
	fees = CASE WHEN excluded.fees <> 0 THEN excluded.fees ELSE colleges.fees END,
	rating = CASE WHEN excluded.rating <> 0 THEN excluded.rating ELSE colleges.rating END`

// SQLite: встроенный бэкенд в одном файле.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite открывает (при нужде создаёт) базу по dsn и применяет схему.
// ":memory:" даёт приватную базу в памяти.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = "data/cutoffs.db"
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// одно соединение, иначе у каждого свой ":memory:"
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) LookupCutoffs(ctx context.Context, f model.CutoffFilter) ([]model.CutoffRecord, error) {
	if len(f.Categories) == 0 || len(f.SeatTypes) == 0 {
		return []model.CutoffRecord{}, nil
	}

	var (
		where = []string{"exam = ?", "year = ?", "round = ?"}
		args  = []any{f.Exam, f.Year, f.Round}
	)
	where = append(where, "category IN ("+placeholders(len(f.Categories))+")")
	args = appendStrings(args, f.Categories)
	where = append(where, "seat_type IN ("+placeholders(len(f.SeatTypes))+")")
	args = appendStrings(args, f.SeatTypes)

	col := f.Mode.ScoreField()
	if f.ScoreMin != nil || f.ScoreMax != nil {
		where = append(where, col+" IS NOT NULL")
	}
	if f.ScoreMin != nil {
		where = append(where, col+" >= ?")
		args = append(args, *f.ScoreMin)
	}
	if f.ScoreMax != nil {
		where = append(where, col+" <= ?")
		args = append(args, *f.ScoreMax)
	}
	if subs := lowerAll(f.BranchSubstrings); len(subs) > 0 {
		ors := make([]string, len(subs))
		for i, sub := range subs {
			ors[i] = "instr(lower(branch), ?) > 0"
			args = append(args, sub)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	q := `SELECT id, college_id, exam, year, round, branch, category, seat_type,
	             percentile, opening_rank, closing_rank
	      FROM cutoffs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY seq`
	if f.ResultCap > 0 {
		q += " LIMIT ?"
		args = append(args, f.ResultCap)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: lookup cutoffs: %w", err)
	}
	defer rows.Close()

	out := make([]model.CutoffRecord, 0)
	for rows.Next() {
		var (
			c        model.CutoffRecord
			pct      sql.NullFloat64
			open, cl sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.CollegeID, &c.Exam, &c.Year, &c.Round, &c.Branch,
			&c.Category, &c.SeatType, &pct, &open, &cl); err != nil {
			return nil, fmt.Errorf("sqlite: scan cutoff: %w", err)
		}
		if pct.Valid {
			v := pct.Float64
			c.Percentile = &v
		}
		c.OpeningRank = nullInt(open)
		c.ClosingRank = nullInt(cl)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) LookupColleges(ctx context.Context, f model.CollegeFilter) ([]model.CollegeRecord, error) {
	if len(f.IDs) == 0 {
		return []model.CollegeRecord{}, nil
	}
	q := `SELECT id, name, code, city, state, university, status, fees, rating
	      FROM colleges WHERE id IN (` + placeholders(len(f.IDs)) + `)`
	rows, err := s.db.QueryContext(ctx, q, appendStrings(nil, f.IDs)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: lookup colleges: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]model.CollegeRecord, len(f.IDs))
	for rows.Next() {
		var c model.CollegeRecord
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.City, &c.State, &c.University,
			&c.Status, &c.Fees, &c.Rating); err != nil {
			return nil, fmt.Errorf("sqlite: scan college: %w", err)
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orderColleges(f, byID), nil
}

func (s *SQLite) UpsertColleges(ctx context.Context, colleges []model.CollegeRecord) error {
	return s.inTx(ctx, `
		INSERT INTO colleges (id, name, code, city, state, university, status, fees, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET `+collegeMergeSet,
		len(colleges), func(i int) []any {
			c := colleges[i]
			return []any{c.ID, c.Name, c.Code, c.City, c.State, c.University, c.Status, c.Fees, c.Rating}
		})
}

func (s *SQLite) UpsertCutoffs(ctx context.Context, cutoffs []model.CutoffRecord) error {
	return s.inTx(ctx, `
		INSERT INTO cutoffs (id, college_id, exam, year, round, branch, category, seat_type,
		                     percentile, opening_rank, closing_rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			college_id = excluded.college_id, exam = excluded.exam, year = excluded.year,
			round = excluded.round, branch = excluded.branch, category = excluded.category,
			seat_type = excluded.seat_type, percentile = excluded.percentile,
			opening_rank = excluded.opening_rank, closing_rank = excluded.closing_rank`,
		len(cutoffs), func(i int) []any {
			c := cutoffs[i]
			return []any{c.ID, c.CollegeID, c.Exam, c.Year, c.Round, c.Branch, c.Category, c.SeatType,
				c.Percentile, c.OpeningRank, c.ClosingRank}
		})
}

func (s *SQLite) CountCutoffs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cutoffs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count cutoffs: %w", err)
	}
	return n, nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) inTx(ctx context.Context, stmt string, n int, args func(int) []any) error {
	if n == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	ps, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer ps.Close()

	for i := 0; i < n; i++ {
		if _, err := ps.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("sqlite: upsert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func appendStrings(args []any, vals []string) []any {
	for _, v := range vals {
		args = append(args, v)
	}
	return args
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// orderColleges возвращает записи byID в порядке запроса, с фильтрами
// города и статуса.
func orderColleges(f model.CollegeFilter, byID map[string]model.CollegeRecord) []model.CollegeRecord {
	out := make([]model.CollegeRecord, 0, len(byID))
	seen := make(map[string]struct{}, len(f.IDs))
	for _, id := range f.IDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if c, ok := byID[id]; ok && matchCollege(f, c) {
			out = append(out, c)
		}
	}
	return out
}
