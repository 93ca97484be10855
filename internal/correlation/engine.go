package correlation

import (
	"math/rand"
	"sort"

	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/errors"
	"anastat/internal/linalg"
	"anastat/ports"
)

// Engine computes pairwise associations with permutation p-values and
// bootstrap confidence intervals, and assembles the repaired
// correlation matrix.
type Engine struct {
	rng    ports.RNG
	logger *internal.Logger
}

// NewEngine creates a correlation engine.
func NewEngine(rng ports.RNG, logger *internal.Logger) *Engine {
	return &Engine{rng: rng, logger: logger.WithScope("correlation")}
}

// Analyze runs every method over every sample pair, then builds the
// primary method's matrix and repairs it to PSD if needed. Sample pairs
// are truncated to their common length. Resampling consumes one RNG
// sub-stream per (pair, method), derived deterministically from the
// seed, so the report does not depend on scheduling.
func (e *Engine) Analyze(samples []stats.Sample, opts stats.Options) (*stats.CorrelationReport, error) {
	if len(samples) < 2 {
		return nil, errors.DegenerateInput("correlation analysis needs at least 2 samples")
	}

	method := opts.CorrelationMethod
	if method == "" {
		method = MethodPearson
	}

	report := &stats.CorrelationReport{Method: method}
	methods := []string{MethodPearson, MethodSpearman, MethodKendall, MethodBiweight}

	streamIdx := 0
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			x, y := pairCommon(samples[i].Values, samples[j].Values)
			for _, m := range methods {
				stream := e.rng.SubStream(opts.Seed, streamIdx)
				streamIdx++

				test, err := e.testPair(x, y, m, samples[i].Name, samples[j].Name, opts, stream)
				if err != nil {
					e.logger.Debug("pair (%s, %s) method %s skipped: %v",
						samples[i].Name, samples[j].Name, m, err)
					continue
				}
				report.Tests = append(report.Tests, test)
			}
		}
	}
	if len(report.Tests) == 0 {
		return nil, errors.NumericalFailure("no sample pair produced a correlation")
	}

	matrix, names, repaired, err := e.buildMatrix(samples, method, opts)
	if err != nil {
		return nil, err
	}
	report.Matrix = matrix
	report.Names = names
	report.PSDRepaired = repaired
	return report, nil
}

func (e *Engine) testPair(x, y []float64, method, nameX, nameY string, opts stats.Options, stream *rand.Rand) (stats.CorrelationTestResult, error) {
	coef, err := compute(method, x, y, opts.BiweightTuning)
	if err != nil {
		return stats.CorrelationTestResult{}, err
	}

	perms := opts.PermutationCount
	if perms < 1 {
		perms = 1000
	}
	pValue := e.permutationP(x, y, method, coef, perms, opts.BiweightTuning, stream)

	boots := opts.BootstrapSamples
	if boots < 1 {
		boots = 1000
	}
	lower, upper := e.bootstrapCI(x, y, method, boots, opts.BiweightTuning, opts.ConfidenceLevel, stream)

	return stats.CorrelationTestResult{
		Method:       method,
		VarX:         nameX,
		VarY:         nameY,
		Coefficient:  coef,
		PValue:       pValue,
		CILower:      lower,
		CIUpper:      upper,
		N:            len(x),
		Significant:  pValue < opts.SignificanceAlpha,
		Permutations: perms,
	}, nil
}

// permutationP shuffles y and counts permuted coefficients at least as
// extreme as the observed one. The +1 correction keeps the p-value off
// exact zero.
func (e *Engine) permutationP(x, y []float64, method string, observed float64, perms int, tuning float64, stream *rand.Rand) float64 {
	shuffled := append([]float64(nil), y...)
	threshold := abs(observed)

	extreme := 0
	for p := 0; p < perms; p++ {
		stream.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		coef, err := compute(method, x, shuffled, tuning)
		if err != nil {
			continue
		}
		if abs(coef) >= threshold {
			extreme++
		}
	}
	return float64(extreme+1) / float64(perms+1)
}

// bootstrapCI resamples pairs with replacement and takes percentile
// bounds of the resampled coefficients.
func (e *Engine) bootstrapCI(x, y []float64, method string, boots int, tuning, confidence float64, stream *rand.Rand) (float64, float64) {
	n := len(x)
	bx := make([]float64, n)
	by := make([]float64, n)

	var coefs []float64
	for b := 0; b < boots; b++ {
		for i := 0; i < n; i++ {
			k := stream.Intn(n)
			bx[i] = x[k]
			by[i] = y[k]
		}
		coef, err := compute(method, bx, by, tuning)
		if err != nil {
			continue
		}
		coefs = append(coefs, coef)
	}
	if len(coefs) == 0 {
		return -1, 1
	}
	sort.Float64s(coefs)

	alpha := 1 - confidence
	lo := int(alpha / 2 * float64(len(coefs)))
	hi := int((1 - alpha/2) * float64(len(coefs)))
	if hi >= len(coefs) {
		hi = len(coefs) - 1
	}
	return coefs[lo], coefs[hi]
}

// buildMatrix assembles the primary method's pairwise matrix and
// repairs it if pairwise-complete estimation broke positive
// semi-definiteness.
func (e *Engine) buildMatrix(samples []stats.Sample, method string, opts stats.Options) ([][]float64, []string, bool, error) {
	n := len(samples)
	matrix := make([][]float64, n)
	names := make([]string, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
		names[i] = samples[i].Name
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			x, y := pairCommon(samples[i].Values, samples[j].Values)
			coef, err := compute(method, x, y, opts.BiweightTuning)
			if err != nil {
				coef = 0
			}
			matrix[i][j] = coef
			matrix[j][i] = coef
		}
	}

	repaired, changed, err := linalg.NearestPSD(matrix)
	if err != nil {
		return nil, nil, false, err
	}
	if changed {
		e.logger.Info("correlation matrix repaired to nearest PSD")
	}
	return repaired, names, changed, nil
}

func compute(method string, x, y []float64, tuning float64) (float64, error) {
	switch method {
	case MethodPearson:
		return Pearson(x, y)
	case MethodSpearman:
		return Spearman(x, y)
	case MethodKendall:
		return Kendall(x, y)
	case MethodBiweight:
		return Biweight(x, y, tuning)
	default:
		return 0, errors.InvalidInput("unknown correlation method: " + method)
	}
}

func pairCommon(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	return x[:n], y[:n]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
