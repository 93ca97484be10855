package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"anastat/internal/errors"
)

// OLS solves the least-squares problem X*beta = y and returns the
// coefficient vector together with the standard error of each
// coefficient. The design matrix is row-major: x[i] is observation i.
func OLS(x [][]float64, y []float64) (beta, stderr []float64, err error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil, nil, errors.InvalidInput("design matrix and response length mismatch")
	}
	p := len(x[0])
	if p == 0 || n <= p {
		return nil, nil, errors.DegenerateInput("not enough observations for regression")
	}

	data := make([]float64, 0, n*p)
	for i := range x {
		if len(x[i]) != p {
			return nil, nil, errors.InvalidInput("ragged design matrix")
		}
		data = append(data, x[i]...)
	}
	X := mat.NewDense(n, p, data)
	Y := mat.NewVecDense(n, append([]float64(nil), y...))

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var xtxInv mat.Dense
	if invErr := xtxInv.Inverse(&xtx); invErr != nil {
		return nil, nil, errors.NumericalFailure("singular design matrix")
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), Y)
	var b mat.VecDense
	b.MulVec(&xtxInv, &xty)

	// Residual variance for coefficient standard errors.
	var fitted mat.VecDense
	fitted.MulVec(X, &b)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}
	sigma2 := rss / float64(n-p)

	beta = make([]float64, p)
	stderr = make([]float64, p)
	for j := 0; j < p; j++ {
		beta[j] = b.AtVec(j)
		v := xtxInv.At(j, j) * sigma2
		if v < 0 {
			v = 0
		}
		stderr[j] = math.Sqrt(v)
	}
	return beta, stderr, nil
}
