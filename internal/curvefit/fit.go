package curvefit

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// Data is one observed dataset. XSigma and YSigma are optional
// per-point measurement uncertainties; when present they weight the
// residuals by the effective variance of each point.
type Data struct {
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	XSigma []float64 `json:"x_sigma,omitempty"`
	YSigma []float64 `json:"y_sigma,omitempty"`
}

// Options bounds the Levenberg-Marquardt descent.
type Options struct {
	MaxIterations  int
	Tolerance      float64
	InitialDamping float64
}

// DefaultOptions returns the descent settings used by the fit surface.
func DefaultOptions() Options {
	return Options{
		MaxIterations:  200,
		Tolerance:      1e-12,
		InitialDamping: 1e-3,
	}
}

const (
	minDamping   = 1e-12
	maxDamping   = 1e12
	jacobianStep = 1e-7
	minVariance  = 1e-30
)

// uncertaintiesUnavailable is the downgrade attached when the
// information matrix at the optimum cannot be inverted.
const uncertaintiesUnavailable = "fit converged, uncertainties unavailable"

// Fit is the outcome of one weighted orthogonal-distance fit.
type Fit struct {
	Model        string             `json:"model"`
	Params       []stats.ParamValue `json:"params"`
	ParamErrors  []float64          `json:"param_errors,omitempty"`
	ChiSquared   float64            `json:"chi_squared"`
	ReducedChiSq float64            `json:"reduced_chi_squared"`
	RSquared     float64            `json:"r_squared"`
	Iterations   int                `json:"iterations"`
	Converged    bool               `json:"converged"`
	Warning      string             `json:"warning,omitempty"`
}

// evalState holds everything the descent needs at one parameter vector.
type evalState struct {
	residuals []float64
	weights   []float64
	jacobian  *mat.Dense
	chi       float64
}

// FitModel runs a damped least-squares descent of the model against
// the data. Per-point y uncertainties weight the residuals directly;
// x uncertainties enter through the effective variance, scaled by the
// local slope of the model. A nil initial vector starts from the
// model's own guess.
func FitModel(model Model, data Data, initial []float64, opts Options) (Fit, error) {
	n := len(data.X)
	p := len(model.ParamNames)
	if n == 0 || n != len(data.Y) {
		return Fit{}, errors.InvalidInput("x and y lengths differ or are empty")
	}
	if len(data.XSigma) != 0 && len(data.XSigma) != n {
		return Fit{}, errors.InvalidInput("x_sigma length does not match data")
	}
	if len(data.YSigma) != 0 && len(data.YSigma) != n {
		return Fit{}, errors.InvalidInput("y_sigma length does not match data")
	}
	if n <= p {
		return Fit{}, errors.DegenerateInput("more parameters than observations")
	}
	if opts.MaxIterations < 1 {
		opts = DefaultOptions()
	}

	params := append([]float64(nil), initial...)
	if len(params) == 0 {
		params = model.Guess(data.X, data.Y)
	}
	if len(params) != p {
		return Fit{}, errors.InvalidInput("initial parameter count does not match model")
	}

	current, err := evaluate(model, data, params)
	if err != nil {
		return Fit{}, err
	}

	damping := opts.InitialDamping
	converged := false
	iterations := 0
	for iter := 0; iter < opts.MaxIterations; iter++ {
		iterations = iter + 1

		normal, gradient := normalEquations(current, p)
		if mat.Norm(gradient, 2) <= opts.Tolerance {
			converged = true
			break
		}

		delta, ok := solveDamped(normal, gradient, damping)
		if !ok {
			damping = math.Min(damping*10, maxDamping)
			continue
		}

		stepNorm := 0.0
		paramNorm := 0.0
		for i, d := range delta {
			stepNorm += d * d
			paramNorm += params[i] * params[i]
		}
		if math.Sqrt(stepNorm) <= opts.Tolerance*(math.Sqrt(paramNorm)+opts.Tolerance) {
			converged = true
			break
		}

		trialParams := make([]float64, p)
		finite := true
		for i := range params {
			trialParams[i] = params[i] + delta[i]
			if math.IsNaN(trialParams[i]) || math.IsInf(trialParams[i], 0) {
				finite = false
			}
		}
		if !finite {
			damping = math.Min(damping*10, maxDamping)
			continue
		}

		trial, evalErr := evaluate(model, data, trialParams)
		if evalErr != nil || trial.chi >= current.chi {
			damping = math.Min(damping*10, maxDamping)
			continue
		}

		improvement := current.chi - trial.chi
		params = trialParams
		current = trial
		damping = math.Max(damping*0.3, minDamping)
		if improvement <= opts.Tolerance {
			converged = true
			break
		}
	}

	fit := Fit{
		Model:      model.Name,
		ChiSquared: current.chi,
		Iterations: iterations,
		Converged:  converged,
	}
	for i, name := range model.ParamNames {
		fit.Params = append(fit.Params, stats.ParamValue{Name: name, Value: params[i]})
	}

	dof := float64(n - p)
	fit.ReducedChiSq = current.chi / dof
	fit.RSquared = rSquared(data.Y, current.residuals)

	cov, covErr := covariance(current, p, data, fit.ReducedChiSq)
	if covErr != nil {
		fit.Warning = uncertaintiesUnavailable
	} else {
		fit.ParamErrors = make([]float64, p)
		for i := 0; i < p; i++ {
			v := cov.At(i, i)
			if v < 0 {
				v = 0
			}
			fit.ParamErrors[i] = math.Sqrt(v)
		}
	}

	return fit, nil
}

// evaluate computes residuals, effective-variance weights, and the
// parameter Jacobian at one parameter vector.
func evaluate(model Model, data Data, params []float64) (evalState, error) {
	n := len(data.X)
	p := len(params)
	state := evalState{
		residuals: make([]float64, n),
		weights:   make([]float64, n),
		jacobian:  mat.NewDense(n, p, nil),
	}

	for i := 0; i < n; i++ {
		predicted := model.Eval(params, data.X[i])
		if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
			return evalState{}, errors.NumericalFailure("model not finite at data point")
		}
		state.residuals[i] = data.Y[i] - predicted

		variance := 0.0
		if len(data.YSigma) == n {
			variance += data.YSigma[i] * data.YSigma[i]
		}
		if len(data.XSigma) == n && data.XSigma[i] != 0 {
			slope := slopeAt(model, params, data.X[i])
			variance += slope * slope * data.XSigma[i] * data.XSigma[i]
		}
		if variance <= minVariance {
			state.weights[i] = 1
		} else {
			state.weights[i] = 1 / variance
		}

		for k := 0; k < p; k++ {
			state.jacobian.Set(i, k, partial(model, params, k, data.X[i]))
		}

		state.chi += state.weights[i] * state.residuals[i] * state.residuals[i]
	}
	if math.IsNaN(state.chi) || math.IsInf(state.chi, 0) {
		return evalState{}, errors.NumericalFailure("objective not finite")
	}
	return state, nil
}

// partial is the central-difference derivative of the model in one
// parameter.
func partial(model Model, params []float64, k int, x float64) float64 {
	h := jacobianStep * math.Max(1, math.Abs(params[k]))
	shifted := append([]float64(nil), params...)
	shifted[k] = params[k] + h
	up := model.Eval(shifted, x)
	shifted[k] = params[k] - h
	down := model.Eval(shifted, x)
	return (up - down) / (2 * h)
}

// slopeAt is the central-difference derivative of the model in x.
func slopeAt(model Model, params []float64, x float64) float64 {
	h := jacobianStep * math.Max(1, math.Abs(x))
	return (model.Eval(params, x+h) - model.Eval(params, x-h)) / (2 * h)
}

// normalEquations builds JtWJ and JtWr from the current state.
func normalEquations(state evalState, p int) (*mat.SymDense, *mat.VecDense) {
	n := len(state.residuals)
	normal := mat.NewSymDense(p, nil)
	gradient := mat.NewVecDense(p, nil)

	for a := 0; a < p; a++ {
		g := 0.0
		for i := 0; i < n; i++ {
			g += state.weights[i] * state.jacobian.At(i, a) * state.residuals[i]
		}
		gradient.SetVec(a, g)
		for b := a; b < p; b++ {
			s := 0.0
			for i := 0; i < n; i++ {
				s += state.weights[i] * state.jacobian.At(i, a) * state.jacobian.At(i, b)
			}
			normal.SetSym(a, b, s)
		}
	}
	return normal, gradient
}

// solveDamped solves (JtWJ + damping*diag)*delta = JtWr.
func solveDamped(normal *mat.SymDense, gradient *mat.VecDense, damping float64) ([]float64, bool) {
	p := gradient.Len()
	damped := mat.NewDense(p, p, nil)
	for a := 0; a < p; a++ {
		for b := 0; b < p; b++ {
			v := normal.At(a, b)
			if a == b {
				v += damping * (math.Abs(normal.At(a, a)) + 1)
			}
			damped.Set(a, b, v)
		}
	}

	var delta mat.VecDense
	if err := delta.SolveVec(damped, gradient); err != nil {
		return nil, false
	}
	out := make([]float64, p)
	for i := range out {
		out[i] = delta.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, false
		}
	}
	return out, true
}

// covariance inverts the information matrix at the optimum. Without
// stated uncertainties the matrix is scaled by the reduced chi-squared
// so the errors reflect the residual scatter.
func covariance(state evalState, p int, data Data, reducedChi float64) (*mat.Dense, error) {
	normal, _ := normalEquations(state, p)
	var inv mat.Dense
	if err := inv.Inverse(normal); err != nil {
		return nil, errors.NumericalFailure("information matrix not invertible")
	}
	if len(data.XSigma) == 0 && len(data.YSigma) == 0 && reducedChi > 0 {
		inv.Scale(reducedChi, &inv)
	}
	return &inv, nil
}

// rSquared is the unweighted coefficient of determination.
func rSquared(y, residuals []float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var rss, tss float64
	for i, v := range y {
		rss += residuals[i] * residuals[i]
		d := v - mean
		tss += d * d
	}
	if tss == 0 {
		return 0
	}
	return 1 - rss/tss
}
