package optimize

import (
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync/atomic"

	gopt "gonum.org/v1/gonum/optimize"
	"golang.org/x/sync/errgroup"

	"anastat/internal/errors"
	"anastat/ports"
)

// Objective is a cost function over a parameter vector.
type Objective func(params []float64) float64

// Bounds gives the box constraint for each parameter.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// Config controls the multistart search.
type Config struct {
	NumStarts        int
	MaxLocalIters    int
	Tolerance        float64
	Seed             int64
	BasinHopping     bool
	BasinHoppingStep float64
	MaxBasinIters    int
}

// DefaultConfig returns the search settings used by the distribution
// fitters.
func DefaultConfig(seed int64) Config {
	return Config{
		NumStarts:        10,
		MaxLocalIters:    100,
		Tolerance:        1e-8,
		Seed:             seed,
		BasinHopping:     false,
		BasinHoppingStep: 0.1,
		MaxBasinIters:    50,
	}
}

// Solution is one local optimum found during the search.
type Solution struct {
	Params []float64
	Cost   float64
}

// Result is the outcome of a global search. AllSolutions is sorted by
// ascending cost, best first.
type Result struct {
	BestParams     []float64
	BestCost       float64
	NumEvaluations int
	NumLocalOpts   int
	Converged      bool
	AllSolutions   []Solution
}

// Global runs multistart local optimization over a box-bounded
// objective. Start points are derived deterministically from the seed,
// one sub-stream per start, so results are reproducible.
type Global struct {
	rng ports.RNG
}

// NewGlobal creates a global optimizer drawing start points from rng.
func NewGlobal(rng ports.RNG) *Global {
	return &Global{rng: rng}
}

// Minimize searches for the minimum of fn within bounds, starting from
// initial. Each start runs a penalized Nelder-Mead descent; when basin
// hopping is enabled each start is followed by perturbation rounds that
// keep strictly better local optima. Starts execute concurrently, so
// fn must be safe to call from multiple goroutines.
func (g *Global) Minimize(fn Objective, initial []float64, bounds Bounds, cfg Config) (Result, error) {
	dim := len(initial)
	if dim == 0 {
		return Result{}, errors.InvalidInput("empty initial parameter vector")
	}
	if len(bounds.Lower) != dim || len(bounds.Upper) != dim {
		return Result{}, errors.InvalidInput("bounds dimension mismatch")
	}
	for i := range bounds.Lower {
		if bounds.Lower[i] > bounds.Upper[i] {
			return Result{}, errors.InvalidInput("lower bound exceeds upper bound")
		}
	}
	if cfg.NumStarts < 1 {
		cfg.NumStarts = 1
	}

	var evaluations atomic.Int64
	penalized := func(params []float64) float64 {
		evaluations.Add(1)
		for i, p := range params {
			if p < bounds.Lower[i] || p > bounds.Upper[i] || math.IsNaN(p) {
				return math.Inf(1)
			}
		}
		cost := fn(params)
		if math.IsNaN(cost) {
			return math.Inf(1)
		}
		return cost
	}

	result := Result{BestCost: math.Inf(1)}

	// Starts run in parallel, each on its own seeded sub-stream. The
	// merge below walks them in start order so the outcome does not
	// depend on scheduling.
	solutions := make([]Solution, cfg.NumStarts)
	convergedFlags := make([]bool, cfg.NumStarts)
	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < cfg.NumStarts; start++ {
		group.Go(func() error {
			stream := g.rng.SubStream(cfg.Seed, start)

			x0 := make([]float64, dim)
			if start == 0 {
				copy(x0, initial)
				clampInto(x0, bounds)
			} else {
				randomStart(x0, initial, bounds, stream)
			}

			sol, converged := localMinimize(penalized, x0, cfg)
			if cfg.BasinHopping {
				sol, converged = g.basinHop(penalized, sol, converged, bounds, cfg, stream)
			}
			solutions[start] = sol
			convergedFlags[start] = converged
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}

	for start := 0; start < cfg.NumStarts; start++ {
		result.NumLocalOpts++
		sol := solutions[start]
		if !math.IsInf(sol.Cost, 1) {
			result.AllSolutions = append(result.AllSolutions, sol)
			if sol.Cost < result.BestCost {
				result.BestCost = sol.Cost
				result.BestParams = sol.Params
				result.Converged = convergedFlags[start]
			}
		}
	}

	result.NumEvaluations = int(evaluations.Load())
	if len(result.AllSolutions) == 0 {
		return result, errors.NumericalFailure("no start produced a finite optimum")
	}
	sort.Slice(result.AllSolutions, func(i, j int) bool {
		return result.AllSolutions[i].Cost < result.AllSolutions[j].Cost
	})
	return result, nil
}

// basinHop perturbs the current optimum and re-descends, keeping only
// strictly better solutions.
func (g *Global) basinHop(fn Objective, current Solution, converged bool, bounds Bounds, cfg Config, stream *rand.Rand) (Solution, bool) {
	for iter := 0; iter < cfg.MaxBasinIters; iter++ {
		perturbed := make([]float64, len(current.Params))
		for i, p := range current.Params {
			span := bounds.Upper[i] - bounds.Lower[i]
			perturbed[i] = p + stream.NormFloat64()*cfg.BasinHoppingStep*span
		}
		clampInto(perturbed, bounds)

		candidate, candConverged := localMinimize(fn, perturbed, cfg)
		if candidate.Cost < current.Cost {
			current = candidate
			converged = candConverged
		}
	}
	return current, converged
}

func localMinimize(fn Objective, x0 []float64, cfg Config) (Solution, bool) {
	problem := gopt.Problem{Func: fn}
	settings := &gopt.Settings{
		MajorIterations: cfg.MaxLocalIters,
		Converger: &gopt.FunctionConverge{
			Absolute:   cfg.Tolerance,
			Iterations: 20,
		},
	}

	res, err := gopt.Minimize(problem, x0, settings, &gopt.NelderMead{})
	if err != nil || res == nil {
		return Solution{Params: append([]float64(nil), x0...), Cost: fn(x0)}, false
	}
	params := append([]float64(nil), res.X...)
	converged := res.Status == gopt.FunctionConvergence || res.Status == gopt.GradientThreshold
	return Solution{Params: params, Cost: res.F}, converged
}

func randomStart(dst, initial []float64, bounds Bounds, stream *rand.Rand) {
	for i := range dst {
		lo, hi := bounds.Lower[i], bounds.Upper[i]
		if math.IsInf(lo, -1) || math.IsInf(hi, 1) {
			// Unbounded axis: jitter around the initial guess instead.
			scale := math.Abs(initial[i])
			if scale == 0 {
				scale = 1
			}
			dst[i] = initial[i] + stream.NormFloat64()*scale
			continue
		}
		dst[i] = lo + stream.Float64()*(hi-lo)
	}
	clampInto(dst, bounds)
}

func clampInto(params []float64, bounds Bounds) {
	for i, p := range params {
		if p < bounds.Lower[i] {
			params[i] = bounds.Lower[i]
		} else if p > bounds.Upper[i] {
			params[i] = bounds.Upper[i]
		}
	}
}
