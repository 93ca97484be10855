package testkit

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"anastat/domain/stats"
	"anastat/internal/errors"
	"anastat/ports"
)

// Kit provides deterministic fixtures for engine and adapter tests.
type Kit struct {
	seed int64
}

// NewKit creates a fixture kit with a fixed base seed.
func NewKit(seed int64) *Kit {
	return &Kit{seed: seed}
}

func (k *Kit) stream(offset int64) *rand.Rand {
	return rand.New(rand.NewSource(k.seed + offset))
}

// NormalSample draws n values from N(mean, sd).
func (k *Kit) NormalSample(name string, n int, mean, sd float64) stats.Sample {
	r := k.stream(int64(len(name)) * 101)
	values := make([]float64, n)
	for i := range values {
		values[i] = mean + sd*r.NormFloat64()
	}
	return stats.Sample{Name: name, Values: values}
}

// ExponentialSample draws n values from Exp(rate).
func (k *Kit) ExponentialSample(name string, n int, rate float64) stats.Sample {
	r := k.stream(int64(len(name))*101 + 1)
	values := make([]float64, n)
	for i := range values {
		values[i] = r.ExpFloat64() / rate
	}
	return stats.Sample{Name: name, Values: values}
}

// CorrelatedPair draws two samples of length n with approximate correlation rho.
func (k *Kit) CorrelatedPair(nameA, nameB string, n int, rho float64) (stats.Sample, stats.Sample) {
	r := k.stream(int64(len(nameA)+len(nameB)) * 103)
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		z1 := r.NormFloat64()
		z2 := r.NormFloat64()
		a[i] = z1
		b[i] = rho*z1 + math.Sqrt(1-rho*rho)*z2
	}
	return stats.Sample{Name: nameA, Values: a}, stats.Sample{Name: nameB, Values: b}
}

// SeasonalSeries builds a sine wave of the given period plus small noise.
func (k *Kit) SeasonalSeries(name string, n, period int, amplitude, noiseSD float64) stats.Sample {
	r := k.stream(int64(period) * 107)
	values := make([]float64, n)
	for i := range values {
		values[i] = amplitude*math.Sin(2*math.Pi*float64(i)/float64(period)) + noiseSD*r.NormFloat64()
	}
	return stats.Sample{Name: name, Values: values}
}

// TrendingSeries builds slope*i + intercept plus noise.
func (k *Kit) TrendingSeries(name string, n int, slope, intercept, noiseSD float64) stats.Sample {
	r := k.stream(int64(n) * 109)
	values := make([]float64, n)
	for i := range values {
		values[i] = intercept + slope*float64(i) + noiseSD*r.NormFloat64()
	}
	return stats.Sample{Name: name, Values: values}
}

// WithUncertainties attaches a constant per-point uncertainty to a sample.
func WithUncertainties(sample stats.Sample, u float64) stats.Sample {
	uncertainties := make([]float64, len(sample.Values))
	for i := range uncertainties {
		uncertainties[i] = u
	}
	sample.Uncertainties = uncertainties
	return sample
}

// InMemoryResultRepository implements ports.ResultRepository with map storage.
type InMemoryResultRepository struct {
	mu      sync.RWMutex
	results map[string]*stats.Result
	order   []string
}

// NewInMemoryResultRepository creates an empty in-memory repository.
func NewInMemoryResultRepository() *InMemoryResultRepository {
	return &InMemoryResultRepository{results: make(map[string]*stats.Result)}
}

var _ ports.ResultRepository = (*InMemoryResultRepository)(nil)

func (r *InMemoryResultRepository) Save(ctx context.Context, result *stats.Result) error {
	if result == nil || result.RunID == "" {
		return errors.ValidationError("result must have a run id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.results[result.RunID]; !exists {
		r.order = append(r.order, result.RunID)
	}
	copied := *result
	r.results[result.RunID] = &copied
	return nil
}

func (r *InMemoryResultRepository) Get(ctx context.Context, runID string) (*stats.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, exists := r.results[runID]
	if !exists {
		return nil, errors.NotFound("analysis result " + runID)
	}
	copied := *result
	return &copied, nil
}

func (r *InMemoryResultRepository) List(ctx context.Context, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		ids = append(ids, r.order[i])
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}
