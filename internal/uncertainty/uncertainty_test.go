package uncertainty

import (
	"math"
	"math/rand"
	"testing"

	mfstats "github.com/montanaflynn/stats"

	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/rng"
)

func meanStat(v []float64) float64 {
	m, _ := mfstats.Mean(v)
	return m
}

func normalData(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = 10 + 2*r.NormFloat64()
	}
	return out
}

func TestBCaCoversEstimate(t *testing.T) {
	stream := rand.New(rand.NewSource(1))
	ci, err := BCa(normalData(100, 42), meanStat, "mean", 1000, 0.95, stream)
	if err != nil {
		t.Fatalf("BCa failed: %v", err)
	}
	if ci.Lower > ci.Estimate || ci.Upper < ci.Estimate {
		t.Errorf("interval [%f, %f] excludes estimate %f", ci.Lower, ci.Upper, ci.Estimate)
	}
	if ci.Lower >= ci.Upper {
		t.Errorf("degenerate interval [%f, %f]", ci.Lower, ci.Upper)
	}
	if math.Abs(ci.Estimate-10) > 1 {
		t.Errorf("estimate far from truth: %f", ci.Estimate)
	}
}

func TestBCaShrinksWithN(t *testing.T) {
	wide, err := BCa(normalData(30, 7), meanStat, "mean", 1000, 0.95, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("BCa failed: %v", err)
	}
	narrow, err := BCa(normalData(500, 7), meanStat, "mean", 1000, 0.95, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("BCa failed: %v", err)
	}
	if narrow.Upper-narrow.Lower >= wide.Upper-wide.Lower {
		t.Errorf("interval did not shrink with sample size: %f vs %f",
			narrow.Upper-narrow.Lower, wide.Upper-wide.Lower)
	}
}

func TestNoisyBootstrapWidensInterval(t *testing.T) {
	values := normalData(80, 13)
	plain, err := BCa(values, meanStat, "mean", 800, 0.95, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("BCa failed: %v", err)
	}
	sigmas := make([]float64, len(values))
	for i := range sigmas {
		sigmas[i] = 5
	}
	noisy, err := BCaWithNoise(values, sigmas, meanStat, "mean", 800, 0.95, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("BCaWithNoise failed: %v", err)
	}
	if noisy.Upper-noisy.Lower <= plain.Upper-plain.Lower {
		t.Errorf("measurement noise did not widen the interval: %f vs %f",
			noisy.Upper-noisy.Lower, plain.Upper-plain.Lower)
	}
}

func TestNoisyBootstrapRejectsMismatch(t *testing.T) {
	values := normalData(30, 13)
	_, err := BCaWithNoise(values, []float64{1, 2}, meanStat, "mean", 100, 0.95, rand.New(rand.NewSource(3)))
	if err == nil {
		t.Fatal("expected mismatched sigma length to fail")
	}
}

func TestBCaDeterministic(t *testing.T) {
	data := normalData(50, 9)
	c1, err := BCa(data, meanStat, "mean", 500, 0.95, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("BCa failed: %v", err)
	}
	c2, err := BCa(data, meanStat, "mean", 500, 0.95, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("BCa failed: %v", err)
	}
	if c1.Lower != c2.Lower || c1.Upper != c2.Upper {
		t.Errorf("same seed gave different intervals: [%f,%f] vs [%f,%f]",
			c1.Lower, c1.Upper, c2.Lower, c2.Upper)
	}
}

func TestPermutationPNeverZero(t *testing.T) {
	if p := PermutationP(0, 1000); p <= 0 {
		t.Errorf("p-value must stay positive, got %f", p)
	}
	if p := PermutationP(1000, 1000); p > 1 {
		t.Errorf("p-value above 1: %f", p)
	}
}

func TestCoverageFactorTable(t *testing.T) {
	cases := []struct {
		level  float64
		factor float64
	}{
		{0.999, 3.291},
		{0.99, 2.576},
		{0.95, 1.96},
		{0.90, 1.645},
		{0.80, 1.282},
		{0.68, 1.0},
	}
	for _, c := range cases {
		if got := CoverageFactor(c.level); got != c.factor {
			t.Errorf("CoverageFactor(%f)=%f, want %f", c.level, got, c.factor)
		}
	}
}

func TestCoverageFactorFallback(t *testing.T) {
	// 50% two-sided corresponds to the 0.75 normal quantile.
	if got := CoverageFactor(0.50); math.Abs(got-0.6745) > 1e-3 {
		t.Errorf("CoverageFactor(0.50)=%f, want ~0.6745", got)
	}
	if got := CoverageFactor(1.5); got != 1.0 {
		t.Errorf("out-of-range level should fall back to 1.0, got %f", got)
	}
}

func TestPropagateLinear(t *testing.T) {
	// f(x, y) = 2x + 3y with independent uncertainties 0.1 and 0.2:
	// sd = sqrt(4*0.01 + 9*0.04) = sqrt(0.4).
	fn := func(v []float64) float64 { return 2*v[0] + 3*v[1] }
	cov, err := CovarianceMatrix([]float64{0.1, 0.2}, 0)
	if err != nil {
		t.Fatalf("CovarianceMatrix failed: %v", err)
	}
	value, sd, err := Propagate(fn, []float64{1, 2}, cov)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	if math.Abs(value-8) > 1e-9 {
		t.Errorf("wrong value: %f", value)
	}
	if math.Abs(sd-math.Sqrt(0.4)) > 1e-4 {
		t.Errorf("wrong propagated sd: %f want %f", sd, math.Sqrt(0.4))
	}
}

func TestPropagateMeanIndependent(t *testing.T) {
	// Equal uncertainties u with zero correlation give u/sqrt(n).
	values := []float64{1, 2, 3, 4}
	cov, err := CovarianceMatrix([]float64{0.2, 0.2, 0.2, 0.2}, 0)
	if err != nil {
		t.Fatalf("CovarianceMatrix failed: %v", err)
	}
	mean, sd, err := PropagateMean(values, cov)
	if err != nil {
		t.Fatalf("PropagateMean failed: %v", err)
	}
	if mean != 2.5 {
		t.Errorf("wrong mean: %f", mean)
	}
	if math.Abs(sd-0.1) > 1e-12 {
		t.Errorf("wrong sd: %f want 0.1", sd)
	}
}

func TestPropagateMeanCorrelated(t *testing.T) {
	// Full correlation keeps the sd at u regardless of n.
	cov, err := CovarianceMatrix([]float64{0.2, 0.2, 0.2, 0.2}, 1)
	if err != nil {
		t.Fatalf("CovarianceMatrix failed: %v", err)
	}
	_, sd, err := PropagateMean([]float64{1, 2, 3, 4}, cov)
	if err != nil {
		t.Fatalf("PropagateMean failed: %v", err)
	}
	if math.Abs(sd-0.2) > 1e-12 {
		t.Errorf("correlated sd should equal u: %f", sd)
	}
}

func TestWeightedSummary(t *testing.T) {
	// The precise observation dominates.
	mean, stderr, err := WeightedSummary([]float64{10, 20}, []float64{0.1, 10})
	if err != nil {
		t.Fatalf("WeightedSummary failed: %v", err)
	}
	if math.Abs(mean-10) > 0.1 {
		t.Errorf("weighted mean should hug the precise point: %f", mean)
	}
	if stderr <= 0 || stderr > 0.11 {
		t.Errorf("unexpected stderr: %f", stderr)
	}
}

func TestWeightedSummaryRejectsBadUncertainty(t *testing.T) {
	if _, _, err := WeightedSummary([]float64{1, 2}, []float64{0.1, 0}); err == nil {
		t.Error("expected error for non-positive uncertainty")
	}
}

func TestEngineAnalyze(t *testing.T) {
	engine := NewEngine(rng.NewSeeded(), internal.NewLogger(internal.LogLevelError))
	values := normalData(50, 21)
	uncertainties := make([]float64, len(values))
	for i := range uncertainties {
		uncertainties[i] = 0.5
	}

	opts := stats.DefaultOptions()
	opts.BootstrapSamples = 300
	report, err := engine.Analyze(stats.Sample{Name: "m", Values: values, Uncertainties: uncertainties}, opts, 0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.CoverageFactor != 1.96 {
		t.Errorf("wrong coverage factor: %f", report.CoverageFactor)
	}
	expectedSD := 0.5 / math.Sqrt(50)
	if math.Abs(report.PropagatedStdDev-expectedSD) > 1e-9 {
		t.Errorf("propagated sd %f, want %f", report.PropagatedStdDev, expectedSD)
	}
	if math.Abs(report.ExpandedUncert-1.96*expectedSD) > 1e-9 {
		t.Errorf("expanded uncertainty %f", report.ExpandedUncert)
	}
	if len(report.BootstrapIntervals) != 5 {
		t.Errorf("expected 5 bootstrap intervals, got %d", len(report.BootstrapIntervals))
	}
	if report.BootstrapIntervals[3].Statistic != "skewness" {
		t.Errorf("unexpected statistic order: %s", report.BootstrapIntervals[3].Statistic)
	}
}
