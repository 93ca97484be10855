package curvefit

import (
	"math"

	"anastat/internal/errors"
	"anastat/internal/linalg"
)

// Model is a parametric curve y = f(params, x) with a data-driven
// starting guess.
type Model struct {
	Name       string
	ParamNames []string
	Eval       func(params []float64, x float64) float64
	Guess      func(x, y []float64) []float64
}

// Models lists the built-in catalogue.
func Models() []Model {
	return []Model{
		linearModel(),
		quadraticModel(),
		cubicModel(),
		exponentialModel(),
		powerModel(),
		logarithmicModel(),
		gaussianModel(),
	}
}

// ModelByName resolves a catalogue entry.
func ModelByName(name string) (Model, error) {
	for _, m := range Models() {
		if m.Name == name {
			return m, nil
		}
	}
	return Model{}, errors.InvalidInput("unknown model: " + name)
}

func linearModel() Model {
	return Model{
		Name:       "linear",
		ParamNames: []string{"intercept", "slope"},
		Eval: func(p []float64, x float64) float64 {
			return p[0] + p[1]*x
		},
		Guess: func(x, y []float64) []float64 {
			return polyGuess(x, y, 1)
		},
	}
}

func quadraticModel() Model {
	return Model{
		Name:       "quadratic",
		ParamNames: []string{"c0", "c1", "c2"},
		Eval: func(p []float64, x float64) float64 {
			return p[0] + p[1]*x + p[2]*x*x
		},
		Guess: func(x, y []float64) []float64 {
			return polyGuess(x, y, 2)
		},
	}
}

func cubicModel() Model {
	return Model{
		Name:       "cubic",
		ParamNames: []string{"c0", "c1", "c2", "c3"},
		Eval: func(p []float64, x float64) float64 {
			return p[0] + x*(p[1]+x*(p[2]+x*p[3]))
		},
		Guess: func(x, y []float64) []float64 {
			return polyGuess(x, y, 3)
		},
	}
}

func exponentialModel() Model {
	return Model{
		Name:       "exponential",
		ParamNames: []string{"amplitude", "rate"},
		Eval: func(p []float64, x float64) float64 {
			return p[0] * math.Exp(p[1]*x)
		},
		Guess: func(x, y []float64) []float64 {
			// Log-linear fit over the strictly positive responses.
			var lx, ly []float64
			for i, v := range y {
				if v > 0 {
					lx = append(lx, x[i])
					ly = append(ly, math.Log(v))
				}
			}
			g := polyGuess(lx, ly, 1)
			return []float64{math.Exp(g[0]), g[1]}
		},
	}
}

func powerModel() Model {
	return Model{
		Name:       "power",
		ParamNames: []string{"amplitude", "exponent"},
		Eval: func(p []float64, x float64) float64 {
			return p[0] * math.Pow(x, p[1])
		},
		Guess: func(x, y []float64) []float64 {
			var lx, ly []float64
			for i := range x {
				if x[i] > 0 && y[i] > 0 {
					lx = append(lx, math.Log(x[i]))
					ly = append(ly, math.Log(y[i]))
				}
			}
			g := polyGuess(lx, ly, 1)
			return []float64{math.Exp(g[0]), g[1]}
		},
	}
}

func logarithmicModel() Model {
	return Model{
		Name:       "logarithmic",
		ParamNames: []string{"offset", "scale"},
		Eval: func(p []float64, x float64) float64 {
			return p[0] + p[1]*math.Log(x)
		},
		Guess: func(x, y []float64) []float64 {
			var lx, ly []float64
			for i := range x {
				if x[i] > 0 {
					lx = append(lx, math.Log(x[i]))
					ly = append(ly, y[i])
				}
			}
			return polyGuess(lx, ly, 1)
		},
	}
}

func gaussianModel() Model {
	return Model{
		Name:       "gaussian",
		ParamNames: []string{"amplitude", "center", "width"},
		Eval: func(p []float64, x float64) float64 {
			d := (x - p[1]) / p[2]
			return p[0] * math.Exp(-0.5*d*d)
		},
		Guess: func(x, y []float64) []float64 {
			peak, at := y[0], x[0]
			lo, hi := x[0], x[0]
			for i := range x {
				if y[i] > peak {
					peak, at = y[i], x[i]
				}
				if x[i] < lo {
					lo = x[i]
				}
				if x[i] > hi {
					hi = x[i]
				}
			}
			width := (hi - lo) / 4
			if width <= 0 {
				width = 1
			}
			return []float64{peak, at, width}
		},
	}
}

// polyGuess fits a degree-d polynomial by ordinary least squares. A
// degenerate design falls back to a flat guess so the descent still has
// a starting point.
func polyGuess(x, y []float64, degree int) []float64 {
	design := make([][]float64, len(x))
	for i, v := range x {
		row := make([]float64, degree+1)
		pow := 1.0
		for j := 0; j <= degree; j++ {
			row[j] = pow
			pow *= v
		}
		design[i] = row
	}
	beta, _, err := linalg.OLS(design, y)
	if err != nil {
		flat := make([]float64, degree+1)
		for i := range flat {
			flat[i] = 1
		}
		return flat
	}
	return beta
}
