package fileio

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func TestReadAnyMaps_CSV(t *testing.T) {
	in := "\xEF\xBB\xBFCollege Code,College Name,,Percentile\n" +
		"6006,COEP Technological University,x,99.5\n" +
		",,,\n" +
		"3012, VJTI  Mumbai ,,98.1\n"

	rows, err := ReadAnyMaps(strings.NewReader(in), "cutoffs.CSV", 1)
	require.NoError(t, err)
	require.Len(t, rows, 2, "blank row dropped")

	assert.Equal(t, "6006", rows[0]["College Code"], "BOM stripped from first header")
	assert.Equal(t, "x", rows[0]["Column 3"])
	assert.Equal(t, "VJTI Mumbai", rows[1]["College Name"])
	assert.Equal(t, "98.1", rows[1]["Percentile"])
}

func TestReadAnyMaps_CSVSemicolonAndHeaderRow(t *testing.T) {
	in := "Cutoff report 2024;;\n" +
		"Branch;Category;Closing Rank\n" +
		"Computer Engineering;GOPENS;1,234\n"

	rows, err := ReadAnyMaps(strings.NewReader(in), "report.csv", 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "GOPENS", rows[0]["Category"])
	assert.Equal(t, "1,234", rows[0]["Closing Rank"])
}

func TestReadAnyMaps_Unsupported(t *testing.T) {
	_, err := ReadAnyMaps(strings.NewReader(""), "cutoffs.pdf", 1)
	require.ErrorContains(t, err, "unsupported file")
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, Table{
		Sheet:  "Predictions",
		Header: []string{"Rank", "College Name", "Match Score"},
		Rows: [][]string{
			{"1", "COEP", "100"},
			{"2", "VJTI", "85"},
		},
	})
	require.NoError(t, err)

	rows, err := ReadAnyMaps(&buf, "out.xlsx", 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "VJTI", rows[1]["College Name"])
	assert.Equal(t, "85", rows[1]["Match Score"])
}

func TestReadXLSX_SkipsEmptySheets(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Round 1")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Round 1", "A1", &[]any{"College", "Percentile"}))
	require.NoError(t, f.SetSheetRow("Round 1", "A2", &[]any{"COEP", 99.5}))
	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	rows, err := ReadAnyMaps(&buf, "book.xlsx", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "COEP", rows[0]["College"])
	assert.Equal(t, "99.5", rows[0]["Percentile"])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Table{
		Header: []string{"College Name", "Branch"},
		Rows:   [][]string{{"Pune Institute, Pune", `Electronics "E&TC"`}},
	}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\xEF\xBB\xBF"))
	assert.Contains(t, out, `"Pune Institute, Pune","Electronics ""E&TC"""`)

	rows, err := ReadAnyMaps(strings.NewReader(out), "x.csv", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Pune Institute, Pune", rows[0]["College Name"])
}

func TestNormalizeCell(t *testing.T) {
	cases := map[string]string{
		"  a\u00a0  b ": "a b",
		"6006.0":        "6006",
		"99.0":          "99",
		"99.50":         "99.50",
		"x.0":           "x.0",
		"":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeCell(in), "in=%q", in)
	}
}

func TestDecoderFor(t *testing.T) {
	raw, err := charmap.Windows1251.NewEncoder().String("Пуна")
	require.NoError(t, err)

	assert.False(t, validUTF8Prefix([]byte(raw)))
	b, err := io.ReadAll(decoderFor(strings.NewReader(raw), "windows-1251"))
	require.NoError(t, err)
	assert.Equal(t, "Пуна", string(b))

	// обрезанный на границе буфера символ всё ещё считается UTF-8
	cut := []byte("ok Пуна")
	assert.True(t, validUTF8Prefix(cut[:len(cut)-1]))
}
