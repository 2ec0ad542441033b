package taxonomy

import "strings"

// Коды мест CAP Махараштры: <пол><категория><университет>:
// G/L (общий/женский), категория, затем H/O/S (home, other, state level).
var (
	capGenders      = []string{"G", "L"}
	capCategories   = []string{"OPEN", "SC", "ST", "VJ", "NT1", "NT2", "NT3", "OBC", "SEBC"}
	capUniversities = []string{"H", "O", "S"}
)

// DefaultSpec возвращает свежую копию встроенной таксономии.
func DefaultSpec() Spec {
	seatTypes := make([]string, 0, 80)
	for _, g := range capGenders {
		for _, c := range capCategories {
			for _, u := range capUniversities {
				seatTypes = append(seatTypes, g+c+u)
			}
		}
	}
	for _, c := range []string{"OPEN", "OBC", "SC", "ST", "VJ", "NT1", "NT2", "NT3", "SEBC"} {
		seatTypes = append(seatTypes, "DEF"+c+"S")
	}
	for _, c := range []string{"OPEN", "OBC", "SC", "ST"} {
		seatTypes = append(seatTypes, "PWD"+c+"H", "PWD"+c+"O")
	}
	seatTypes = append(seatTypes, "TFWS", "EWS", "ORPHAN", "MI", "AI", "HS", "OS")

	return Spec{
		Exams: []ExamSpec{
			{ID: "MHTCET", Tokens: []string{"MHT", "CET"}},
			{ID: "JEE", Tokens: []string{"JEE"}, RankBased: true},
			{ID: "NEET", Tokens: []string{"NEET"}, RankBased: true},
		},
		Categories: []string{
			"OPEN", "OPEN-L",
			"OBC", "OBC-L", "DEF-OBC",
			"SC", "SC-L",
			"ST", "ST-L",
			"VJ", "VJ-L",
			"NT1", "NT1-L",
			"NT2", "NT2-L",
			"NT3", "NT3-L",
			"SEBC", "SEBC-L",
			"EWS", "TFWS",
			"DEF-OPEN",
			"PWD-OPEN", "PWD-OBC",
			"ORPHAN", "MI",
		},
		SeatTypes: seatTypes,
		CategoryAliases: map[string][]string{
			"open":     {"OPEN", "OPEN-L"},
			"general":  {"OPEN", "OPEN-L"},
			"gen":      {"OPEN", "OPEN-L"},
			"obc":      {"OBC", "OBC-L", "DEF-OBC"},
			"sc":       {"SC", "SC-L"},
			"st":       {"ST", "ST-L"},
			"vjnt":     {"VJ", "VJ-L"},
			"vj":       {"VJ", "VJ-L"},
			"nt1":      {"NT1", "NT1-L"},
			"ntb":      {"NT1", "NT1-L"},
			"nt2":      {"NT2", "NT2-L"},
			"ntc":      {"NT2", "NT2-L"},
			"nt3":      {"NT3", "NT3-L"},
			"ntd":      {"NT3", "NT3-L"},
			"sebc":     {"SEBC", "SEBC-L"},
			"ews":      {"EWS"},
			"tfws":     {"TFWS"},
			"def":      {"DEF-OPEN", "DEF-OBC"},
			"defence":  {"DEF-OPEN", "DEF-OBC"},
			"pwd":      {"PWD-OPEN", "PWD-OBC"},
			"orphan":   {"ORPHAN"},
			"minority": {"MI"},
		},
		SeatTypeAliases: map[string][]string{
			"home":             withSuffix(seatTypes, "H"),
			"home university":  withSuffix(seatTypes, "H"),
			"hu":               withSuffix(seatTypes, "H"),
			"hs":               withSuffix(seatTypes, "H"),
			"other":            withSuffix(seatTypes, "O"),
			"other university": withSuffix(seatTypes, "O"),
			"ou":               withSuffix(seatTypes, "O"),
			"os":               withSuffix(seatTypes, "O"),
			"state":            withSuffix(seatTypes, "S"),
			"state level":      withSuffix(seatTypes, "S"),
			"sl":               withSuffix(seatTypes, "S"),
			"ladies":           withPrefix(seatTypes, "L"),
			"female":           withPrefix(seatTypes, "L"),
			"defence":          withPrefix(seatTypes, "DEF"),
			"def":              withPrefix(seatTypes, "DEF"),
			"pwd":              withPrefix(seatTypes, "PWD"),
			"all india":        {"AI"},
			"ai":               {"AI"},
			"tfws":             {"TFWS"},
			"ews":              {"EWS"},
			"orphan":           {"ORPHAN"},
			"minority":         {"MI"},
		},
	}
}

// Default собирает встроенную таксономию. Ошибки быть не может.
func Default() *Taxonomy {
	t, err := New(DefaultSpec())
	if err != nil {
		panic(err)
	}
	return t
}

// withSuffix оставляет коды CAP/PWD, оканчивающиеся на букву университета.
// Голые HS/OS идут вместе с семейством, чтобы "home" находил и их.
func withSuffix(codes []string, u string) []string {
	out := make([]string, 0, len(codes)/3)
	for _, c := range codes {
		switch {
		case c == u+"S":
			out = append(out, c)
		case len(c) > 2 && strings.HasSuffix(c, u) && isCAPCode(c):
			out = append(out, c)
		}
	}
	return out
}

func withPrefix(codes []string, p string) []string {
	out := make([]string, 0, len(codes)/2)
	for _, c := range codes {
		if strings.HasPrefix(c, p) && isCAPCode(c) {
			out = append(out, c)
		}
	}
	return out
}

func isCAPCode(c string) bool {
	for _, p := range []string{"G", "L", "DEF", "PWD"} {
		if strings.HasPrefix(c, p) {
			return true
		}
	}
	return false
}
