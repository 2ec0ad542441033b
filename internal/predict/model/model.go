package model

// ScoringMode says how an exam expresses its admission cutoff.
type ScoringMode int

const (
	ModePercentile ScoringMode = iota // higher is better
	ModeRank                          // lower is better
)

func (m ScoringMode) String() string {
	if m == ModeRank {
		return "rank"
	}
	return "percentile"
}

// ScoreField is the cutoff column the mode filters and ranks on.
func (m ScoringMode) ScoreField() string {
	if m == ModeRank {
		return "closing_rank"
	}
	return "percentile"
}

// CutoffRecord is one historical closing cutoff. Percentile exams fill
// Percentile, rank exams fill OpeningRank/ClosingRank.
type CutoffRecord struct {
	ID          string   `json:"_id"`
	CollegeID   string   `json:"collegeId"`
	Exam        string   `json:"examType"`
	Year        int      `json:"year"`
	Round       int      `json:"round"`
	Branch      string   `json:"branch"`
	Category    string   `json:"category"`
	SeatType    string   `json:"seatType"`
	Percentile  *float64 `json:"percentile,omitempty"`
	OpeningRank *int     `json:"openingRank,omitempty"`
	ClosingRank *int     `json:"closingRank,omitempty"`
}

type CollegeRecord struct {
	ID         string  `json:"_id"`
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	University string  `json:"university"`
	Status     string  `json:"collegeStatus"` // Autonomous, Government, ...
	Fees       float64 `json:"fees"`
	Rating     float64 `json:"rating"`
}

// CutoffFilter is the single logical read the engine issues against a store.
// Empty Categories or SeatTypes match nothing. A nil ScoreMin/ScoreMax leaves
// that side of the window open.
type CutoffFilter struct {
	Exam             string
	Year             int
	Round            int
	Categories       []string
	SeatTypes        []string
	Mode             ScoringMode
	ScoreMin         *float64
	ScoreMax         *float64
	BranchSubstrings []string
	ResultCap        int
}

type CollegeFilter struct {
	IDs      []string
	Cities   []string
	Statuses []string
}

// PredictionRequest mirrors the JSON body of POST /api/predict.
type PredictionRequest struct {
	ExamType          string   `json:"examType" validate:"required"`
	Percentile        *float64 `json:"percentile,omitempty" validate:"omitempty,gte=0,lte=100"`
	Rank              *int     `json:"rank,omitempty" validate:"omitempty,gte=1"`
	Year              *int     `json:"year" validate:"required,gte=1990,lte=2100"`
	Round             *int     `json:"round" validate:"required,gte=1,lte=20"`
	Category          string   `json:"category" validate:"required"`
	SeatType          string   `json:"seatType" validate:"required"`
	ToleranceRange    *float64 `json:"toleranceRange,omitempty" validate:"omitempty,gt=0,lte=100"`
	PreferredBranches []string `json:"preferredBranches,omitempty" validate:"omitempty,dive,required"`
	PreferredCities   []string `json:"preferredCities,omitempty"`
	CollegeStatuses   []string `json:"collegeStatuses,omitempty"`
	FuzzyMatch        *bool    `json:"fuzzyMatch,omitempty"`
}

type CollegeSummary struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	InstituteCode string  `json:"instituteCode"`
	Location      string  `json:"location"`
	University    string  `json:"university,omitempty"`
	Status        string  `json:"status,omitempty"`
	Fees          float64 `json:"fees"`
	Rating        float64 `json:"rating"`
}

type CutoffSummary struct {
	ID          string   `json:"_id"`
	Branch      string   `json:"branch"`
	Percentile  *float64 `json:"percentile,omitempty"`
	OpeningRank *int     `json:"openingRank,omitempty"`
	ClosingRank *int     `json:"closingRank,omitempty"`
	Year        int      `json:"year"`
	Round       int      `json:"round"`
	Category    string   `json:"category"`
	SeatType    string   `json:"seatType"`
}

type PredictionResult struct {
	SerialNumber int            `json:"serialNumber"`
	College      CollegeSummary `json:"college"`
	Cutoff       CutoffSummary  `json:"cutoff"`
	MatchScore   int            `json:"matchScore"`
	MatchReason  string         `json:"matchReason"`
}

// Parameters echoes what the engine actually resolved from the request.
type Parameters struct {
	ExamType           string   `json:"examType"`
	NormalizedExam     string   `json:"normalizedExam"`
	ScoringMode        string   `json:"scoringMode"`
	Percentile         *float64 `json:"percentile,omitempty"`
	Rank               *int     `json:"rank,omitempty"`
	Year               int      `json:"year"`
	Round              int      `json:"round"`
	Category           string   `json:"category"`
	SeatType           string   `json:"seatType"`
	ToleranceRange     float64  `json:"toleranceRange"`
	FuzzyMatch         bool     `json:"fuzzyMatch"`
	PreferredBranches  []string `json:"preferredBranches,omitempty"`
	PreferredCities    []string `json:"preferredCities,omitempty"`
	CollegeStatuses    []string `json:"collegeStatuses,omitempty"`
	MatchingCategories []string `json:"matchingCategories"`
	MatchingSeatTypes  []string `json:"matchingSeatTypes"`
}

type PredictionResponse struct {
	Success     bool               `json:"success"`
	Count       int                `json:"count"`
	Predictions []PredictionResult `json:"predictions"`
	Parameters  Parameters         `json:"parameters"`
	Message     string             `json:"message,omitempty"`
}

// SearchRequest is an exact-filter cutoff lookup without scoring.
type SearchRequest struct {
	ExamType string `json:"examType" validate:"required"`
	Year     int    `json:"year" validate:"required,gte=1990,lte=2100"`
	Round    int    `json:"round" validate:"required,gte=1,lte=20"`
	Category string `json:"category" validate:"required"`
	SeatType string `json:"seatType" validate:"required"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"omitempty,gte=1,lte=500"`
}

type SearchResult struct {
	College CollegeSummary `json:"college"`
	Cutoff  CutoffSummary  `json:"cutoff"`
}

type SearchResponse struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
	Message string         `json:"message,omitempty"`
}

// Summary flattens a college for embedding in a result row.
func (c CollegeRecord) Summary() CollegeSummary {
	code := c.Code
	if code == "" {
		code = "N/A"
	}
	loc := c.City
	if loc == "" {
		loc = c.State
	}
	if loc == "" {
		loc = "N/A"
	}
	return CollegeSummary{
		ID:            c.ID,
		Name:          c.Name,
		InstituteCode: code,
		Location:      loc,
		University:    c.University,
		Status:        c.Status,
		Fees:          c.Fees,
		Rating:        c.Rating,
	}
}

func (c CutoffRecord) Summary() CutoffSummary {
	return CutoffSummary{
		ID:          c.ID,
		Branch:      c.Branch,
		Percentile:  c.Percentile,
		OpeningRank: c.OpeningRank,
		ClosingRank: c.ClosingRank,
		Year:        c.Year,
		Round:       c.Round,
		Category:    c.Category,
		SeatType:    c.SeatType,
	}
}

// ExportRow is one prediction as the client lists it for export.
type ExportRow struct {
	Rank              int      `json:"rank"`
	CollegeName       string   `json:"collegeName" validate:"required"`
	Branch            string   `json:"branch"`
	City              string   `json:"city"`
	Status            string   `json:"status"`
	Year              int      `json:"year"`
	Round             int      `json:"round"`
	Category          string   `json:"category"`
	SeatType          string   `json:"seatType"`
	ClosingRank       *int     `json:"closingRank,omitempty"`
	ClosingPercentile *float64 `json:"closingPercentile,omitempty"`
	MatchScore        int      `json:"matchScore"`
}

type UserInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email" validate:"omitempty,email"`
	Mobile string `json:"mobile"`
}

// ExportRequest mirrors POST /api/export/predictions. Format is "csv"
// (default, returned inline as JSON) or "xlsx" (file download).
type ExportRequest struct {
	Predictions []ExportRow `json:"predictions" validate:"required,min=1,dive"`
	UserInfo    *UserInfo   `json:"userInfo,omitempty"`
	Format      string      `json:"format,omitempty" validate:"omitempty,oneof=csv xlsx"`
}

type ExportResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	CSVData  string `json:"csvData"`
	FileName string `json:"fileName"`
}

// ExportRowsFrom converts engine output into export rows.
func ExportRowsFrom(results []PredictionResult) []ExportRow {
	out := make([]ExportRow, len(results))
	for i, r := range results {
		out[i] = ExportRow{
			Rank:              r.SerialNumber,
			CollegeName:       r.College.Name,
			Branch:            r.Cutoff.Branch,
			City:              r.College.Location,
			Status:            r.College.Status,
			Year:              r.Cutoff.Year,
			Round:             r.Cutoff.Round,
			Category:          r.Cutoff.Category,
			SeatType:          r.Cutoff.SeatType,
			ClosingRank:       r.Cutoff.ClosingRank,
			ClosingPercentile: r.Cutoff.Percentile,
			MatchScore:        r.MatchScore,
		}
	}
	return out
}
