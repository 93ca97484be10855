package timeseries

import (
	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/errors"
)

// Engine aggregates the temporal analyses for a single series.
type Engine struct {
	logger *internal.Logger
}

// NewEngine creates a time-series engine.
func NewEngine(logger *internal.Logger) *Engine {
	return &Engine{logger: logger.WithScope("timeseries")}
}

// Analyze runs trend, autocorrelation, stationarity, and seasonality
// detection over one sample. Sub-analyses that cannot run on the given
// length are skipped with defaults rather than failing the report.
func (e *Engine) Analyze(sample stats.Sample, opts stats.Options) (stats.TimeSeriesReport, error) {
	values := sample.Values
	minN := opts.MinSamplesForTimeSeries
	if minN < 1 {
		minN = 20
	}
	if len(values) < minN {
		return stats.TimeSeriesReport{}, errors.DegenerateInput("time series analysis needs more observations")
	}

	report := stats.TimeSeriesReport{Name: sample.Name}

	trend, err := Trend(values, opts.SignificanceAlpha)
	if err != nil {
		return stats.TimeSeriesReport{}, err
	}
	report.Trend = trend

	lags := opts.AutocorrLags
	if lags < 1 {
		lags = 10
	}
	report.ACF = ACF(values, lags)

	lbStat, lbP, lbHas := LjungBox(values, lags, opts.LjungBoxPValue)
	report.LjungBox = stats.LjungBoxResult{
		Statistic:   lbStat,
		PValue:      lbP,
		Lags:        min(lags, len(values)-1),
		HasAutocorr: lbHas,
	}

	if adf, err := ADF(values); err == nil {
		report.Stationarity = append(report.Stationarity, adf)
	} else {
		e.logger.Debug("ADF skipped for %s: %v", sample.Name, err)
	}
	if kpss, err := KPSS(values); err == nil {
		report.Stationarity = append(report.Stationarity, kpss)
	} else {
		e.logger.Debug("KPSS skipped for %s: %v", sample.Name, err)
	}

	threshold := opts.SeasonalityPowerRatio
	if threshold <= 0 {
		threshold = 0.3
	}
	if seasonality, err := Seasonality(values, threshold); err == nil {
		report.Seasonality = seasonality
	} else {
		e.logger.Debug("seasonality skipped for %s: %v", sample.Name, err)
	}

	return report, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
