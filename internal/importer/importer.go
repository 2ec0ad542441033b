// Package importer загружает таблицы отсечек и колледжей (CSV/XLS/XLSX) в хранилище.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cutoff-predictor/internal/fileio"
	"cutoff-predictor/internal/metrics"
	"cutoff-predictor/internal/predict/model"
	"cutoff-predictor/internal/predict/taxonomy"
	"cutoff-predictor/internal/utils"
)

const maxReportedErrors = 20

// ErrUnreadable: файл не удалось прочитать как таблицу.
var ErrUnreadable = errors.New("unreadable file")

// Writer: сторона хранилища, в которую пишет импорт.
type Writer interface {
	UpsertColleges(ctx context.Context, colleges []model.CollegeRecord) error
	UpsertCutoffs(ctx context.Context, cutoffs []model.CutoffRecord) error
}

// Columns: желаемые заголовки, варианты через "|".
type Columns struct {
	CollegeCode string
	CollegeName string
	City        string
	State       string
	University  string
	Status      string
	Fees        string
	Rating      string

	Exam        string
	Year        string
	Round       string
	Branch      string
	Category    string
	SeatType    string
	Percentile  string
	OpeningRank string
	ClosingRank string
}

func DefaultColumns() Columns {
	return Columns{
		CollegeCode: "College Code|Institute Code|Inst Code|Choice Code|Code",
		CollegeName: "College Name|Institute Name|Institute|College|Name",
		City:        "City|Location|District",
		State:       "State",
		University:  "University|Home University",
		Status:      "College Status|Institute Status|Status|Type",
		Fees:        "Fees|Fee|Annual Fees",
		Rating:      "Rating",

		Exam:        "Exam|Exam Type|ExamType",
		Year:        "Year",
		Round:       "Round|CAP Round",
		Branch:      "Branch|Course|Course Name|Branch Name",
		Category:    "Category|Caste Category",
		SeatType:    "Seat Type|SeatType|Quota",
		Percentile:  "Percentile|Closing Percentile|Cutoff Percentile|Merit Percentile",
		OpeningRank: "Opening Rank",
		ClosingRank: "Closing Rank|Cutoff Rank|Merit Rank|Rank",
	}
}

// Options: значения по умолчанию для колонок, которых нет в файле.
type Options struct {
	HeaderRow int
	Exam      string
	Year      int
	Round     int
	Columns   *Columns
}

type RowError struct {
	Record int    `json:"record"`
	Reason string `json:"reason"`
}

type Report struct {
	Records  int        `json:"records"`
	Colleges int        `json:"colleges"`
	Cutoffs  int        `json:"cutoffs"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

func (r *Report) skip(record int, reason string) {
	r.Skipped++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, RowError{Record: record, Reason: reason})
	}
}

// Batch: результат разбора, записи готовы к upsert.
type Batch struct {
	Colleges []model.CollegeRecord
	Cutoffs  []model.CutoffRecord
}

type Importer struct {
	w   Writer
	tax *taxonomy.Taxonomy
	log zerolog.Logger
}

func New(w Writer, tax *taxonomy.Taxonomy, logger zerolog.Logger) *Importer {
	return &Importer{w: w, tax: tax, log: logger.With().Str("component", "importer").Logger()}
}

func (im *Importer) Taxonomy() *taxonomy.Taxonomy { return im.tax }

// ImportFile читает таблицу (формат по расширению) и пишет её в хранилище.
func (im *Importer) ImportFile(ctx context.Context, r io.Reader, filename string, opts Options) (Report, error) {
	start := time.Now()
	if opts.HeaderRow <= 0 {
		opts.HeaderRow = 1
	}
	rows, err := fileio.ReadAnyMaps(r, filename, opts.HeaderRow)
	if err != nil {
		return Report{}, fmt.Errorf("%w %s: %w", ErrUnreadable, filename, err)
	}
	batch, rep := Parse(rows, im.tax, opts)
	if err := im.Write(ctx, batch); err != nil {
		return rep, err
	}
	im.log.Info().
		Str("file", filename).
		Int("records", rep.Records).
		Int("colleges", rep.Colleges).
		Int("cutoffs", rep.Cutoffs).
		Int("skipped", rep.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("import done")
	return rep, nil
}

// Write: сначала колледжи, потом отсечки, чтобы join не находил сирот.
func (im *Importer) Write(ctx context.Context, b Batch) error {
	if err := im.w.UpsertColleges(ctx, b.Colleges); err != nil {
		return fmt.Errorf("upsert colleges: %w", err)
	}
	if err := im.w.UpsertCutoffs(ctx, b.Cutoffs); err != nil {
		return fmt.Errorf("upsert cutoffs: %w", err)
	}
	return nil
}

// resolved: реальные заголовки листа для каждого поля, "" если колонки нет.
type resolved struct {
	code        string
	name        string
	city        string
	state       string
	university  string
	status      string
	fees        string
	rating      string
	exam        string
	year        string
	round       string
	branch      string
	category    string
	seatType    string
	percentile  string
	openingRank string
	closingRank string
}

// resolveColumns раздаёт заголовки полям; заголовок достаётся одному полю.
// Специфичные поля идут первыми, иначе "Status|Type" заберёт "Seat Type",
// а "Rank" заберёт "Opening Rank".
func resolveColumns(headers []string, c Columns) resolved {
	taken := make(map[string]bool, len(headers))
	pick := func(want string) string {
		free := make([]string, 0, len(headers))
		for _, h := range headers {
			if !taken[h] {
				free = append(free, h)
			}
		}
		k := resolveKey(free, want)
		if k != "" {
			taken[k] = true
		}
		return k
	}

	var r resolved
	r.seatType = pick(c.SeatType)
	r.category = pick(c.Category)
	r.branch = pick(c.Branch)
	r.openingRank = pick(c.OpeningRank)
	r.closingRank = pick(c.ClosingRank)
	r.percentile = pick(c.Percentile)
	r.exam = pick(c.Exam)
	r.year = pick(c.Year)
	r.round = pick(c.Round)
	r.code = pick(c.CollegeCode)
	r.name = pick(c.CollegeName)
	r.city = pick(c.City)
	r.state = pick(c.State)
	r.university = pick(c.University)
	r.status = pick(c.Status)
	r.fees = pick(c.Fees)
	r.rating = pick(c.Rating)
	return r
}

// Parse превращает строки таблицы в колледжи и отсечки. Лист без колонки
// категории считается справочником колледжей.
func Parse(rows []map[string]string, tax *taxonomy.Taxonomy, opts Options) (Batch, Report) {
	var (
		batch Batch
		rep   Report
	)
	if len(rows) == 0 {
		return batch, rep
	}
	cols := DefaultColumns()
	if opts.Columns != nil {
		cols = *opts.Columns
	}
	headers := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	rc := resolveColumns(headers, cols)
	cutoffSheet := rc.category != ""

	collegeIdx := map[string]int{}
	cutoffIdx := map[string]int{}

	for i, rec := range rows {
		n := i + 1
		if looksLikeHeaderMap(rec) {
			continue
		}
		rep.Records++
		get := func(key string) string {
			if key == "" {
				return ""
			}
			return strings.TrimSpace(rec[key])
		}

		college := model.CollegeRecord{
			Code:       get(rc.code),
			Name:       get(rc.name),
			City:       get(rc.city),
			State:      get(rc.state),
			University: get(rc.university),
			Status:     get(rc.status),
		}
		if college.Code == "" && college.Name == "" {
			rep.skip(n, "missing college code and name")
			metrics.ImportedRows.WithLabelValues("skipped").Inc()
			continue
		}
		if college.Name == "" {
			college.Name = college.Code
		}
		college.ID = CollegeID(college.Code, college.Name)
		if v, ok := utils.ParseNumber(get(rc.fees)); ok {
			college.Fees = v
		}
		if v, ok := utils.ParseNumber(get(rc.rating)); ok {
			college.Rating = v
		}

		if cutoffSheet {
			c, err := parseCutoff(get, rc, tax, opts)
			if err != nil {
				rep.skip(n, err.Error())
				metrics.ImportedRows.WithLabelValues("skipped").Inc()
				continue
			}
			c.CollegeID = college.ID
			c.ID = CutoffID(c)
			// последняя строка побеждает, как при upsert
			if j, dup := cutoffIdx[c.ID]; dup {
				batch.Cutoffs[j] = c
			} else {
				cutoffIdx[c.ID] = len(batch.Cutoffs)
				batch.Cutoffs = append(batch.Cutoffs, c)
			}
		}

		if j, ok := collegeIdx[college.ID]; ok {
			batch.Colleges[j] = mergeCollege(batch.Colleges[j], college)
		} else {
			collegeIdx[college.ID] = len(batch.Colleges)
			batch.Colleges = append(batch.Colleges, college)
		}
		metrics.ImportedRows.WithLabelValues("imported").Inc()
	}

	rep.Colleges = len(batch.Colleges)
	rep.Cutoffs = len(batch.Cutoffs)
	return batch, rep
}

func parseCutoff(get func(string) string, rc resolved, tax *taxonomy.Taxonomy, opts Options) (model.CutoffRecord, error) {
	var c model.CutoffRecord

	exam := get(rc.exam)
	if exam == "" {
		exam = opts.Exam
	}
	if exam == "" {
		return c, errors.New("missing exam")
	}
	c.Exam = tax.NormalizeExam(exam)

	var ok bool
	if c.Year, ok = intOr(get(rc.year), opts.Year); !ok {
		return c, errors.New("missing or invalid year")
	}
	if c.Round, ok = intOr(get(rc.round), opts.Round); !ok {
		return c, errors.New("missing or invalid round")
	}

	c.Branch = get(rc.branch)
	c.Category = strings.ToUpper(get(rc.category))
	c.SeatType = strings.ToUpper(get(rc.seatType))
	if c.Category == "" {
		return c, errors.New("missing category")
	}
	if c.SeatType == "" {
		return c, errors.New("missing seat type")
	}

	if v, ok := utils.ParseNumber(get(rc.percentile)); ok {
		if v < 0 || v > 100 {
			return c, fmt.Errorf("percentile %v out of range", v)
		}
		c.Percentile = &v
	}
	if v, ok := utils.ParseInt(get(rc.openingRank)); ok && v > 0 {
		c.OpeningRank = &v
	}
	if v, ok := utils.ParseInt(get(rc.closingRank)); ok && v > 0 {
		c.ClosingRank = &v
	}

	mode := tax.Mode(c.Exam)
	if mode == model.ModeRank && c.ClosingRank == nil {
		return c, errors.New("missing closing rank for rank-based exam")
	}
	if mode == model.ModePercentile && c.Percentile == nil {
		return c, errors.New("missing percentile for percentile-based exam")
	}
	return c, nil
}

func intOr(s string, def int) (int, bool) {
	if s == "" {
		return def, def > 0
	}
	v, ok := utils.ParseInt(s)
	return v, ok && v > 0
}

// mergeCollege дополняет пустые поля a значениями из b.
func mergeCollege(a, b model.CollegeRecord) model.CollegeRecord {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&a.City, b.City)
	fill(&a.State, b.State)
	fill(&a.University, b.University)
	fill(&a.Status, b.Status)
	if a.Fees == 0 {
		a.Fees = b.Fees
	}
	if a.Rating == 0 {
		a.Rating = b.Rating
	}
	return a
}

var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("cutoff-predictor"))

// CollegeID детерминирован: повторный импорт обновляет, а не дублирует.
// Ключ: код колледжа, а если кода нет, нормализованное имя.
func CollegeID(code, name string) string {
	key := strings.ToLower(strings.TrimSpace(code))
	if key == "" {
		key = "name:" + strings.ToLower(strings.Join(strings.Fields(name), " "))
	}
	return uuid.NewSHA1(idSpace, []byte("college:"+key)).String()
}

// CutoffID строится по уникальному ключу отсечки (колледж, экзамен, год, раунд, направление, категория, тип места).
func CutoffID(c model.CutoffRecord) string {
	key := strings.Join([]string{
		c.CollegeID, c.Exam, strconv.Itoa(c.Year), strconv.Itoa(c.Round),
		strings.ToLower(c.Branch), c.Category, c.SeatType,
	}, "|")
	return uuid.NewSHA1(idSpace, []byte("cutoff:"+key)).String()
}
