package linalg

import (
	"math"
	"testing"
)

func TestIsPSDIdentity(t *testing.T) {
	m := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	ok, err := IsPSD(m)
	if err != nil {
		t.Fatalf("IsPSD failed: %v", err)
	}
	if !ok {
		t.Error("identity should be PSD")
	}
}

func TestIsPSDIndefinite(t *testing.T) {
	// Correlations of 0.9, 0.9, -0.9 cannot coexist.
	m := [][]float64{
		{1, 0.9, 0.9},
		{0.9, 1, -0.9},
		{0.9, -0.9, 1},
	}
	ok, err := IsPSD(m)
	if err != nil {
		t.Fatalf("IsPSD failed: %v", err)
	}
	if ok {
		t.Error("contradictory correlation matrix reported PSD")
	}
}

func TestNearestPSDLeavesValidAlone(t *testing.T) {
	m := [][]float64{
		{1, 0.5},
		{0.5, 1},
	}
	repaired, changed, err := NearestPSD(m)
	if err != nil {
		t.Fatalf("NearestPSD failed: %v", err)
	}
	if changed {
		t.Error("valid matrix should not be repaired")
	}
	if repaired[0][1] != 0.5 {
		t.Errorf("entry changed: %f", repaired[0][1])
	}
}

func TestNearestPSDRepairs(t *testing.T) {
	m := [][]float64{
		{1, 0.9, 0.9},
		{0.9, 1, -0.9},
		{0.9, -0.9, 1},
	}
	repaired, changed, err := NearestPSD(m)
	if err != nil {
		t.Fatalf("NearestPSD failed: %v", err)
	}
	if !changed {
		t.Error("expected repair to be applied")
	}

	ok, err := IsPSD(repaired)
	if err != nil {
		t.Fatalf("IsPSD failed: %v", err)
	}
	if !ok {
		t.Error("repaired matrix is not PSD")
	}
	for i := range repaired {
		if repaired[i][i] != 1.0 {
			t.Errorf("diagonal entry %d is %f, want 1", i, repaired[i][i])
		}
		for j := range repaired[i] {
			if repaired[i][j] > 1 || repaired[i][j] < -1 {
				t.Errorf("entry (%d,%d)=%f outside [-1,1]", i, j, repaired[i][j])
			}
			if math.Abs(repaired[i][j]-repaired[j][i]) > 1e-12 {
				t.Errorf("asymmetry at (%d,%d)", i, j)
			}
		}
	}
}

func TestOLSRecoversLine(t *testing.T) {
	// y = 2.5x - 4 with no noise.
	var x [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		xi := float64(i)
		x = append(x, []float64{1, xi})
		y = append(y, 2.5*xi-4)
	}
	beta, stderr, err := OLS(x, y)
	if err != nil {
		t.Fatalf("OLS failed: %v", err)
	}
	if math.Abs(beta[0]+4) > 1e-9 || math.Abs(beta[1]-2.5) > 1e-9 {
		t.Errorf("wrong coefficients: %v", beta)
	}
	for j, se := range stderr {
		if se > 1e-6 {
			t.Errorf("noiseless fit should have near-zero stderr, got stderr[%d]=%g", j, se)
		}
	}
}

func TestOLSSingular(t *testing.T) {
	// Two identical columns.
	x := [][]float64{
		{1, 1}, {2, 2}, {3, 3}, {4, 4},
	}
	y := []float64{1, 2, 3, 4}
	if _, _, err := OLS(x, y); err == nil {
		t.Error("expected error for singular design matrix")
	}
}
