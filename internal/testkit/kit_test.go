package testkit

import (
	"context"
	"testing"

	"anastat/domain/stats"
)

func TestGeneratorsAreDeterministic(t *testing.T) {
	a := NewKit(42).NormalSample("x", 50, 10, 2)
	b := NewKit(42).NormalSample("x", 50, 10, 2)
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("values diverge at %d: %v != %v", i, a.Values[i], b.Values[i])
		}
	}

	c := NewKit(43).NormalSample("x", 50, 10, 2)
	same := true
	for i := range a.Values {
		if a.Values[i] != c.Values[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical samples")
	}
}

func TestCorrelatedPairSign(t *testing.T) {
	a, b := NewKit(7).CorrelatedPair("x", "y", 500, 0.8)

	var sumXY, sumX, sumY float64
	for i := range a.Values {
		sumX += a.Values[i]
		sumY += b.Values[i]
	}
	n := float64(len(a.Values))
	meanX, meanY := sumX/n, sumY/n
	for i := range a.Values {
		sumXY += (a.Values[i] - meanX) * (b.Values[i] - meanY)
	}
	if sumXY <= 0 {
		t.Error("expected positive association for rho = 0.8")
	}
}

func TestInMemoryRepositoryRoundTrip(t *testing.T) {
	repo := NewInMemoryResultRepository()
	ctx := context.Background()

	if err := repo.Save(ctx, &stats.Result{RunID: "r1", Seed: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, &stats.Result{RunID: "r2", Seed: 2}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Seed != 1 {
		t.Errorf("expected seed 1, got %d", got.Seed)
	}

	if _, err := repo.Get(ctx, "missing"); err == nil {
		t.Error("expected error for unknown run id")
	}

	ids, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != "r2" {
		t.Errorf("expected newest-first ids, got %v", ids)
	}

	if err := repo.Save(ctx, &stats.Result{}); err == nil {
		t.Error("expected error for result without run id")
	}
}
