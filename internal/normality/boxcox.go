package normality

import (
	"math"

	"anastat/internal/errors"
)

// Lambda search interval and golden-section parameters.
const (
	boxCoxLambdaMin = -3.0
	boxCoxLambdaMax = 3.0
	boxCoxTolerance = 1e-6
	boxCoxMaxIters  = 200
)

// BoxCox applies the Box-Cox transform with the given lambda. All
// values must be positive.
func BoxCox(data []float64, lambda float64) ([]float64, error) {
	out := make([]float64, len(data))
	for i, v := range data {
		if v <= 0 {
			return nil, errors.DegenerateInput("box-cox requires strictly positive values")
		}
		if lambda == 0 {
			out[i] = math.Log(v)
		} else {
			out[i] = (math.Pow(v, lambda) - 1) / lambda
		}
	}
	return out, nil
}

// BoxCoxLambda finds the lambda maximizing the Box-Cox profile
// log-likelihood by golden-section search over [-3, 3].
func BoxCoxLambda(data []float64) (float64, error) {
	if len(data) < minSamples {
		return 0, errors.DegenerateInput("box-cox lambda search needs at least 3 observations")
	}
	logSum := 0.0
	for _, v := range data {
		if v <= 0 {
			return 0, errors.DegenerateInput("box-cox requires strictly positive values")
		}
		logSum += math.Log(v)
	}

	objective := func(lambda float64) float64 {
		return -boxCoxLogLikelihood(data, lambda, logSum)
	}

	phi := (math.Sqrt(5) - 1) / 2
	a, b := boxCoxLambdaMin, boxCoxLambdaMax
	c := b - phi*(b-a)
	d := a + phi*(b-a)
	fc, fd := objective(c), objective(d)

	for i := 0; i < boxCoxMaxIters && b-a > boxCoxTolerance; i++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - phi*(b-a)
			fc = objective(c)
		} else {
			a, c, fc = c, d, fd
			d = a + phi*(b-a)
			fd = objective(d)
		}
	}

	lambda := (a + b) / 2
	if math.IsInf(objective(lambda), 0) || math.IsNaN(objective(lambda)) {
		return 0, errors.NumericalFailure("box-cox likelihood not finite at optimum")
	}
	return lambda, nil
}

// boxCoxLogLikelihood is the profile log-likelihood of lambda with the
// normal variance maximized out.
func boxCoxLogLikelihood(data []float64, lambda, logSum float64) float64 {
	n := float64(len(data))

	transformed := make([]float64, len(data))
	mean := 0.0
	for i, v := range data {
		var t float64
		if lambda == 0 {
			t = math.Log(v)
		} else {
			t = (math.Pow(v, lambda) - 1) / lambda
		}
		transformed[i] = t
		mean += t
	}
	mean /= n

	variance := 0.0
	for _, t := range transformed {
		variance += (t - mean) * (t - mean)
	}
	variance /= n
	if variance <= 0 {
		return math.Inf(-1)
	}

	return -n/2*math.Log(variance) + (lambda-1)*logSum
}
