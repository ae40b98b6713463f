package dataprep

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Calendar feature columns added by ExtractTimeFeatures, in output order.
const (
	ColHour      = "hour"
	ColDayOfWeek = "day_of_week"
	ColMonth     = "month"
	ColIsWeekend = "is_weekend"
)

// TimeFeatures lists the calendar columns appended by SelectFeatures.
var TimeFeatures = []string{ColHour, ColDayOfWeek, ColMonth, ColIsWeekend}

// Day-first date layouts, tried in order. Single-digit layout elements also
// accept zero padded input.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2006-1-2",
	"2006/1/2",
}

var timeLayouts = []string{
	"",
	" 15:04:05",
	" 15.04.05",
	" 15:04",
	" 15.04",
	"T15:04:05",
}

// ParseTimestamp parses s with the day-first convention, with or without a
// time of day. ok is false when no layout matches.
func ParseTimestamp(s string) (ts time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, d := range dateLayouts {
		for _, tl := range timeLayouts {
			if ts, err := time.Parse(d+tl, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// CombineDateTime writes "<date> <time>" for each row into column out, so a
// dataset that stores date and time apart can be treated as one timestamp.
func CombineDateTime(df dataframe.DataFrame, dateCol, timeCol, out string) (dataframe.DataFrame, error) {
	if err := requireColumns(df, dateCol, timeCol); err != nil {
		return dataframe.DataFrame{}, err
	}
	dates := df.Col(dateCol).Records()
	times := df.Col(timeCol).Records()
	joined := make([]string, len(dates))
	for i := range dates {
		joined[i] = strings.TrimSpace(dates[i] + " " + times[i])
	}
	res := df.Mutate(series.New(joined, series.String, out))
	if res.Err != nil {
		return dataframe.DataFrame{}, res.Err
	}
	return res, nil
}

// SortByTimestamp orders rows by the parsed value of col, oldest first.
// The sort is stable and rows whose timestamp does not parse go last.
func SortByTimestamp(df dataframe.DataFrame, col string) (dataframe.DataFrame, error) {
	if err := requireColumns(df, col); err != nil {
		return dataframe.DataFrame{}, err
	}
	if df.Nrow() == 0 {
		return df, nil
	}
	records := df.Col(col).Records()
	parsed := make([]time.Time, len(records))
	valid := make([]bool, len(records))
	order := make([]int, len(records))
	for i, s := range records {
		parsed[i], valid[i] = ParseTimestamp(s)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if valid[ia] != valid[ib] {
			return valid[ia]
		}
		return valid[ia] && parsed[ia].Before(parsed[ib])
	})
	res := df.Subset(order)
	if res.Err != nil {
		return dataframe.DataFrame{}, res.Err
	}
	return res, nil
}

// ExtractTimeFeatures derives hour, day_of_week (Monday = 0), month and
// is_weekend from the timestamp column. Rows whose timestamp does not parse
// get NaN in all four columns instead of failing.
func ExtractTimeFeatures(df dataframe.DataFrame, timestampCol string) (dataframe.DataFrame, error) {
	if err := requireColumns(df, timestampCol); err != nil {
		return dataframe.DataFrame{}, err
	}
	records := df.Col(timestampCol).Records()
	n := len(records)
	hour := make([]float64, n)
	dow := make([]float64, n)
	month := make([]float64, n)
	weekend := make([]float64, n)

	for i, s := range records {
		ts, ok := ParseTimestamp(s)
		if !ok {
			hour[i], dow[i], month[i], weekend[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
			continue
		}
		d := (int(ts.Weekday()) + 6) % 7
		hour[i] = float64(ts.Hour())
		dow[i] = float64(d)
		month[i] = float64(ts.Month())
		if d >= 5 {
			weekend[i] = 1
		}
	}

	out := df
	for _, s := range []series.Series{
		series.New(hour, series.Float, ColHour),
		series.New(dow, series.Float, ColDayOfWeek),
		series.New(month, series.Float, ColMonth),
		series.New(weekend, series.Float, ColIsWeekend),
	} {
		out = out.Mutate(s)
		if out.Err != nil {
			return dataframe.DataFrame{}, out.Err
		}
	}
	return out, nil
}

// SelectFeatures projects df onto the requested sensor columns, followed by
// the calendar columns when useTimeFeatures is set.
func SelectFeatures(df dataframe.DataFrame, sensorFeatures []string, useTimeFeatures bool) (dataframe.DataFrame, error) {
	features := append([]string(nil), sensorFeatures...)
	if useTimeFeatures {
		features = append(features, TimeFeatures...)
	}
	if len(features) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("select features: empty feature list")
	}
	if err := requireColumns(df, features...); err != nil {
		return dataframe.DataFrame{}, err
	}
	x := df.Select(features)
	if x.Err != nil {
		return dataframe.DataFrame{}, x.Err
	}
	return x, nil
}
