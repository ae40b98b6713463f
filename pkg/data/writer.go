package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// WriteRaw writes df in the raw-file convention: semicolons and decimal commas.
func WriteRaw(w io.Writer, df dataframe.DataFrame) error {
	writer := csv.NewWriter(w)
	writer.Comma = RawDelimiter
	return writeFrame(writer, df, FormatDecimal)
}

// SaveRaw writes df to path with WriteRaw, creating parent directories.
func SaveRaw(path string, df dataframe.DataFrame) error {
	return writeFile(path, func(w io.Writer) error { return WriteRaw(w, df) })
}

// SaveFeatures writes the feature matrix as a comma separated file with a
// header row and no index column.
func SaveFeatures(path string, df dataframe.DataFrame) error {
	return writeFile(path, func(w io.Writer) error {
		return writeFrame(csv.NewWriter(w), df, formatPoint)
	})
}

// SaveLabels writes labels as a single-column file headed by name.
func SaveLabels(path, name string, labels []int) error {
	return writeFile(path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{name}); err != nil {
			return err
		}
		for _, v := range labels {
			if err := writer.Write([]string{strconv.Itoa(v)}); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
}

// LoadFeatures reads a file written by SaveFeatures. Every column is Float.
func LoadFeatures(path string) (dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("data: open %s: %w", path, err)
	}
	defer file.Close()

	df := dataframe.ReadCSV(file,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("data: read %s: %w", path, df.Err)
	}
	return df, nil
}

// LoadLabels reads a file written by SaveLabels.
func LoadLabels(path string) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: open %s: %w", path, err)
	}
	defer file.Close()

	df := dataframe.ReadCSV(file,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Int),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("data: read %s: %w", path, df.Err)
	}
	if df.Ncol() != 1 {
		return nil, fmt.Errorf("data: %s: want 1 label column, got %d", path, df.Ncol())
	}
	labels, err := df.Col(df.Names()[0]).Int()
	if err != nil {
		return nil, fmt.Errorf("data: %s: %w", path, err)
	}
	return labels, nil
}

func writeFrame(writer *csv.Writer, df dataframe.DataFrame, format func(float64) string) error {
	names := df.Names()
	if err := writer.Write(names); err != nil {
		return err
	}

	cols := make([][]string, len(names))
	for j, name := range names {
		col := df.Col(name)
		switch col.Type() {
		case series.Float, series.Int:
			vals := col.Float()
			cells := make([]string, len(vals))
			for i, v := range vals {
				cells[i] = format(v)
			}
			cols[j] = cells
		default:
			cols[j] = col.Records()
		}
	}

	record := make([]string, len(names))
	for i := 0; i < df.Nrow(); i++ {
		for j := range cols {
			record[j] = cols[j][i]
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("data: mkdir for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("data: create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("data: write %s: %w", path, err)
	}
	return file.Close()
}

func formatPoint(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
