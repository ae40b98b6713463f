package data

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// SyntheticOptions parameterize GenerateSynthetic. Zero values fall back to
// the defaults noted on each field.
type SyntheticOptions struct {
	Start       time.Time     // default 2005-01-01 00:00 UTC
	Periods     int           // default 1000
	Frequency   time.Duration // default one hour
	SavePath    string        // written only when set
	FailureRate float64       // probability a sensor cell holds the sentinel; default 0.03
	Sentinel    float64       // default -200
	Seed        int64
}

// SyntheticSensors lists the sensor columns GenerateSynthetic produces, in order.
var SyntheticSensors = []string{"CO(GT)", "NMHC(GT)", "C6H6(GT)", "NOx(GT)", "NO2(GT)", "T", "RH", "AH"}

func (o *SyntheticOptions) withDefaults() {
	if o.Start.IsZero() {
		o.Start = time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if o.Periods == 0 {
		o.Periods = 1000
	}
	if o.Frequency == 0 {
		o.Frequency = time.Hour
	}
	if o.FailureRate == 0 {
		o.FailureRate = 0.03
	}
	if o.Sentinel == 0 {
		o.Sentinel = -200
	}
}

// GenerateSynthetic produces a stand-in for the UCI air-quality dataset:
// smooth seasonal signals with Gaussian noise, correlated pollutants and
// randomly injected sensor failures. Set FailureRate negative to disable
// failures entirely.
func GenerateSynthetic(opts SyntheticOptions) (dataframe.DataFrame, error) {
	opts.withDefaults()
	if opts.Periods < 0 {
		return dataframe.DataFrame{}, errors.New("synthetic: periods must be positive")
	}
	if opts.FailureRate > 1 {
		return dataframe.DataFrame{}, fmt.Errorf("synthetic: failure rate %v > 1", opts.FailureRate)
	}

	n := opts.Periods
	rnd := rand.New(rand.NewSource(opts.Seed))
	noise := func(std float64) float64 { return rnd.NormFloat64() * std }

	dates := make([]string, n)
	times := make([]string, n)
	cols := make(map[string][]float64, len(SyntheticSensors))
	for _, name := range SyntheticSensors {
		cols[name] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		ts := opts.Start.Add(time.Duration(i) * opts.Frequency)
		dates[i] = ts.Format("2006-01-02")
		times[i] = ts.Format("15:04:05")

		t := linspace(0, 10, n, i)
		temp := 15 + 10*math.Sin(t) + noise(0.5)
		rh := 60 - 15*math.Sin(t) + noise(2)

		cols["T"][i] = temp
		cols["RH"][i] = rh
		cols["AH"][i] = (rh/100)*(temp/30) + noise(0.01)
		cols["CO(GT)"][i] = 2 + 0.5*math.Sin(t) + noise(0.2)
		cols["NMHC(GT)"][i] = 150 + 30*math.Cos(t) + noise(10)
		cols["C6H6(GT)"][i] = 5 + 2*math.Sin(t) + noise(0.3)
		cols["NOx(GT)"][i] = 200 + 40*math.Sin(t) + noise(15)
		cols["NO2(GT)"][i] = 100 + 30*math.Cos(t) + noise(10)
	}

	if opts.FailureRate > 0 {
		for _, name := range SyntheticSensors {
			col := cols[name]
			for i := range col {
				if rnd.Float64() < opts.FailureRate {
					col[i] = opts.Sentinel
				}
			}
		}
	}

	out := []series.Series{
		series.New(dates, series.String, "Date"),
		series.New(times, series.String, "Time"),
	}
	for _, name := range SyntheticSensors {
		out = append(out, series.New(cols[name], series.Float, name))
	}
	df := dataframe.New(out...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("synthetic: %w", df.Err)
	}

	if opts.SavePath != "" {
		if err := SaveRaw(opts.SavePath, df); err != nil {
			return dataframe.DataFrame{}, err
		}
	}
	return df, nil
}

// linspace returns the i-th of n evenly spaced points over [start, stop].
func linspace(start, stop float64, n, i int) float64 {
	if n <= 1 {
		return start
	}
	return start + (stop-start)*float64(i)/float64(n-1)
}
