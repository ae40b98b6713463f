package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/errs"
)

// RawDelimiter separates fields in raw sensor files.
const RawDelimiter = ';'

// LoadRaw reads a raw sensor file (semicolon separated, decimal comma).
// A missing file or one without data rows is reported as data-not-found.
func LoadRaw(path string) (dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dataframe.DataFrame{}, errs.Wrap(errs.KindDataNotFound, err, "raw dataset not found")
		}
		return dataframe.DataFrame{}, fmt.Errorf("data: open %s: %w", path, err)
	}
	defer file.Close()

	df, err := ReadRaw(bufio.NewReader(file))
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("data: %s: %w", path, err)
	}
	return df, nil
}

// ReadRaw parses raw sensor records from r. Columns with an empty header
// (trailing separators) and rows with no content are dropped. A column whose
// every non-empty cell parses as a number becomes a Float column with NaN
// for empty cells; everything else stays a String column.
func ReadRaw(r io.Reader) (dataframe.DataFrame, error) {
	reader := csv.NewReader(r)
	reader.Comma = RawDelimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, errs.New(errs.KindDataNotFound, "raw dataset is empty")
	}

	header := records[0]
	var keep []int
	for i, h := range header {
		if strings.TrimSpace(h) != "" {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return dataframe.DataFrame{}, errs.New(errs.KindDataNotFound, "raw dataset has no named columns")
	}

	var rows [][]string
	for _, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return dataframe.DataFrame{}, errs.New(errs.KindDataNotFound, "raw dataset has no data rows")
	}

	cols := make([]series.Series, 0, len(keep))
	for _, c := range keep {
		name := strings.TrimSpace(header[c])
		cells := make([]string, len(rows))
		for i, rec := range rows {
			if c < len(rec) {
				cells[i] = strings.TrimSpace(rec[c])
			}
		}
		if nums, ok := parseNumericColumn(cells); ok {
			cols = append(cols, series.New(nums, series.Float, name))
		} else {
			cols = append(cols, series.New(cells, series.String, name))
		}
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build frame: %w", df.Err)
	}
	return df, nil
}

// ParseDecimal parses a number written with either a decimal comma or point.
func ParseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// FormatDecimal renders v with a decimal comma, the raw-file convention.
func FormatDecimal(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

func parseNumericColumn(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	seen := false
	for i, s := range cells {
		if s == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := ParseDecimal(s)
		if err != nil {
			return nil, false
		}
		out[i] = v
		seen = true
	}
	return out, seen
}

func blankRecord(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
