package normality

import (
	"math"
	"math/rand"
	"testing"
)

func TestBoxCoxLambdaLognormal(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	data := make([]float64, 1000)
	for i := range data {
		data[i] = math.Exp(r.NormFloat64())
	}

	lambda, err := BoxCoxLambda(data)
	if err != nil {
		t.Fatalf("BoxCoxLambda failed: %v", err)
	}
	// The log transform normalizes lognormal data.
	if math.Abs(lambda) > 0.15 {
		t.Errorf("expected lambda near 0 for lognormal data, got %f", lambda)
	}
}

func TestBoxCoxLambdaAlreadyNormal(t *testing.T) {
	r := rand.New(rand.NewSource(19))
	data := make([]float64, 1000)
	for i := range data {
		data[i] = 50 + 2*r.NormFloat64()
	}

	lambda, err := BoxCoxLambda(data)
	if err != nil {
		t.Fatalf("BoxCoxLambda failed: %v", err)
	}
	if math.Abs(lambda-1) > 1.5 {
		t.Errorf("lambda should stay near identity for normal data, got %f", lambda)
	}
}

func TestBoxCoxZeroLambdaIsLog(t *testing.T) {
	data := []float64{1, math.E, math.E * math.E}
	out, err := BoxCox(data, 0)
	if err != nil {
		t.Fatalf("BoxCox failed: %v", err)
	}
	for i, want := range []float64{0, 1, 2} {
		if math.Abs(out[i]-want) > 1e-12 {
			t.Errorf("BoxCox log mismatch at %d: %f want %f", i, out[i], want)
		}
	}
}

func TestBoxCoxRejectsNonPositive(t *testing.T) {
	if _, err := BoxCox([]float64{1, 0, 2}, 0.5); err == nil {
		t.Error("expected error for non-positive value")
	}
	if _, err := BoxCoxLambda([]float64{1, -1, 2}); err == nil {
		t.Error("expected error for negative value")
	}
}
