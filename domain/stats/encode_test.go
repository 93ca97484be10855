package stats

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestMarshalEmitsNullForNonFinite(t *testing.T) {
	r := Result{
		RunID: "run-1",
		Descriptive: []DescriptiveStats{{
			Name:   "a",
			N:      10,
			Mean:   math.NaN(),
			StdDev: math.Inf(1),
			Median: 0,
		}},
	}

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(raw)
	for _, want := range []string{`"mean":null`, `"std_dev":null`, `"median":0`, `"run_id":"run-1"`, `"n":10`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in %s", want, s)
		}
	}
}

func TestMarshalHonorsOmitempty(t *testing.T) {
	r := Result{RunID: "run-2"}
	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(raw)
	for _, absent := range []string{"correlation", "reliability", "descriptive", "hypothesis_tests"} {
		if strings.Contains(s, `"`+absent+`"`) {
			t.Errorf("empty %s field should be omitted: %s", absent, s)
		}
	}
}

func TestMarshalRoundTrips(t *testing.T) {
	r := Result{
		RunID: "run-3",
		Seed:  42,
		Descriptive: []DescriptiveStats{{
			Name: "a", N: 3, Mean: 2, Median: 2, StdDev: 1,
		}},
		QualityScore:    87.5,
		Recommendations: []string{"collect more data"},
	}

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var back Result
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back.RunID != r.RunID || back.Seed != r.Seed || back.QualityScore != r.QualityScore {
		t.Errorf("header fields lost: %+v", back)
	}
	if len(back.Descriptive) != 1 || back.Descriptive[0].Mean != 2 {
		t.Errorf("descriptive block lost: %+v", back.Descriptive)
	}
}
