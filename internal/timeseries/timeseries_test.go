package timeseries

import (
	"math"
	"math/rand"
	"testing"

	"anastat/domain/stats"
	"anastat/internal"
)

func whiteNoise(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = r.NormFloat64()
	}
	return out
}

func randomWalk(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	level := 0.0
	for i := range out {
		level += r.NormFloat64()
		out[i] = level
	}
	return out
}

func TestTrendDetectsSlope(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 2.5*float64(i) - 4 + 0.1*math.Sin(float64(i))
	}
	result, err := Trend(values, 0.05)
	if err != nil {
		t.Fatalf("Trend failed: %v", err)
	}
	if !result.HasTrend {
		t.Error("strong linear trend not detected")
	}
	if math.Abs(result.Slope-2.5) > 0.05 {
		t.Errorf("slope estimate off: %f", result.Slope)
	}
	if math.Abs(result.Intercept+4) > 0.5 {
		t.Errorf("intercept estimate off: %f", result.Intercept)
	}
	if result.Direction != "increasing" {
		t.Errorf("wrong trend direction: %s", result.Direction)
	}
	if result.RSquared < 0.99 {
		t.Errorf("expected near-perfect fit, r2=%f", result.RSquared)
	}
}

func TestTrendAbsentInNoise(t *testing.T) {
	result, err := Trend(whiteNoise(100, 42), 0.01)
	if err != nil {
		t.Fatalf("Trend failed: %v", err)
	}
	if result.HasTrend {
		t.Errorf("false trend in white noise: slope=%f p=%f", result.Slope, result.PValue)
	}
}

func TestACFWhiteNoiseSmall(t *testing.T) {
	acf := ACF(whiteNoise(500, 7), 10)
	if len(acf) != 10 {
		t.Fatalf("expected 10 lags, got %d", len(acf))
	}
	for lag, rho := range acf {
		if math.Abs(rho) > 0.15 {
			t.Errorf("white noise ACF too large at lag %d: %f", lag+1, rho)
		}
	}
}

func TestACFPersistentSeries(t *testing.T) {
	acf := ACF(randomWalk(300, 9), 5)
	if acf[0] < 0.9 {
		t.Errorf("random walk lag-1 ACF should be near 1, got %f", acf[0])
	}
}

func TestLjungBoxDistinguishes(t *testing.T) {
	_, pNoise, hasNoise := LjungBox(whiteNoise(300, 13), 10, 0.05)
	if hasNoise {
		t.Errorf("Ljung-Box flagged white noise: p=%f", pNoise)
	}

	_, pWalk, hasWalk := LjungBox(randomWalk(300, 13), 10, 0.05)
	if !hasWalk {
		t.Errorf("Ljung-Box missed random walk autocorrelation: p=%f", pWalk)
	}
}

func TestADFStationarySeries(t *testing.T) {
	result, err := ADF(whiteNoise(200, 5))
	if err != nil {
		t.Fatalf("ADF failed: %v", err)
	}
	if !result.IsStationary {
		t.Errorf("white noise not stationary per ADF: stat=%f p=%f", result.Statistic, result.PValue)
	}
}

func TestADFRandomWalk(t *testing.T) {
	result, err := ADF(randomWalk(200, 17))
	if err != nil {
		t.Fatalf("ADF failed: %v", err)
	}
	if result.IsStationary {
		t.Errorf("random walk reported stationary: stat=%f p=%f", result.Statistic, result.PValue)
	}
}

func TestKPSSStationarySeries(t *testing.T) {
	result, err := KPSS(whiteNoise(200, 23))
	if err != nil {
		t.Fatalf("KPSS failed: %v", err)
	}
	if !result.IsStationary {
		t.Errorf("white noise rejected by KPSS: stat=%f", result.Statistic)
	}
}

func TestKPSSRandomWalk(t *testing.T) {
	result, err := KPSS(randomWalk(300, 29))
	if err != nil {
		t.Fatalf("KPSS failed: %v", err)
	}
	if result.IsStationary {
		t.Errorf("random walk passed KPSS: stat=%f", result.Statistic)
	}
}

func TestSeasonalityDetectsSine(t *testing.T) {
	n := 120
	values := make([]float64, n)
	for i := range values {
		values[i] = 10 + 5*math.Sin(2*math.Pi*float64(i)/12)
	}
	result, err := Seasonality(values, 0.3)
	if err != nil {
		t.Fatalf("Seasonality failed: %v", err)
	}
	if !result.HasSeasonality {
		t.Fatalf("missed strong 12-period cycle, ratio=%f", result.PowerRatio)
	}
	if result.Period != 12 {
		t.Errorf("wrong period: %d", result.Period)
	}
}

func TestSeasonalityConfirmsNoisySine(t *testing.T) {
	n := 240
	r := rand.New(rand.NewSource(37))
	values := make([]float64, n)
	for i := range values {
		values[i] = 10 + 4*math.Sin(2*math.Pi*float64(i)/12) + 0.5*r.NormFloat64()
	}
	result, err := Seasonality(values, 0.3)
	if err != nil {
		t.Fatalf("Seasonality failed: %v", err)
	}
	if !result.HasSeasonality || result.Period != 12 {
		t.Fatalf("missed noisy 12-period cycle: period=%d ratio=%f", result.Period, result.PowerRatio)
	}
	if result.FStatistic < 10 {
		t.Errorf("phase F statistic too small for a strong cycle: %f", result.FStatistic)
	}
	if result.FPValue >= 0.05 {
		t.Errorf("phase decomposition did not confirm: p=%f", result.FPValue)
	}
}

func TestSeasonalityAbsentInNoise(t *testing.T) {
	result, err := Seasonality(whiteNoise(240, 31), 0.3)
	if err != nil {
		t.Fatalf("Seasonality failed: %v", err)
	}
	if result.HasSeasonality {
		t.Errorf("false seasonality in noise, ratio=%f", result.PowerRatio)
	}
}

func TestEngineFullReport(t *testing.T) {
	engine := NewEngine(internal.NewLogger(internal.LogLevelError))
	n := 100
	values := make([]float64, n)
	r := rand.New(rand.NewSource(3))
	for i := range values {
		values[i] = 0.5*float64(i) + 3*math.Sin(2*math.Pi*float64(i)/10) + r.NormFloat64()
	}

	report, err := engine.Analyze(stats.Sample{Name: "series", Values: values}, stats.DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !report.Trend.HasTrend {
		t.Error("trend missed in trending seasonal series")
	}
	if len(report.ACF) == 0 {
		t.Error("missing ACF")
	}
	if len(report.Stationarity) != 2 {
		t.Errorf("expected ADF and KPSS, got %d tests", len(report.Stationarity))
	}
}

func TestEngineShortSeries(t *testing.T) {
	engine := NewEngine(internal.NewLogger(internal.LogLevelError))
	_, err := engine.Analyze(stats.Sample{Values: whiteNoise(10, 1)}, stats.DefaultOptions())
	if err == nil {
		t.Error("expected error for short series")
	}
}
