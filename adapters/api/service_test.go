package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/curvefit"
	"anastat/internal/pipeline"
	"anastat/internal/rng"
	"anastat/internal/testkit"
)

func newTestApp(t *testing.T) (*App, *testkit.InMemoryResultRepository) {
	t.Helper()
	logger := internal.NewLogger(internal.LogLevelError)
	orchestrator := pipeline.NewOrchestrator(rng.NewSeeded(), logger, 2)
	repo := testkit.NewInMemoryResultRepository()
	return NewApp(orchestrator, repo, logger), repo
}

func analyzeBody(t *testing.T, samples []stats.Sample, opts *stats.Options) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(AnalyzeRequest{Samples: samples, Options: opts})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func fastOptions() *stats.Options {
	opts := stats.DefaultOptions()
	opts.BootstrapSamples = 50
	opts.PermutationCount = 50
	opts.OptimizerStarts = 2
	opts.MaxOptimizerIters = 50
	return &opts
}

func TestAnalyzeEndpoint(t *testing.T) {
	app, repo := newTestApp(t)
	kit := testkit.NewKit(7)
	samples := []stats.Sample{kit.NormalSample("yield", 40, 10, 2)}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", analyzeBody(t, samples, fastOptions()))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result stats.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if len(result.Descriptive) != 1 {
		t.Errorf("expected 1 descriptive block, got %d", len(result.Descriptive))
	}

	stored, err := repo.Get(req.Context(), result.RunID)
	if err != nil {
		t.Fatalf("result was not persisted: %v", err)
	}
	if stored.Seed != result.Seed {
		t.Errorf("stored seed %d != returned seed %d", stored.Seed, result.Seed)
	}
}

func TestAnalyzeRejectsBadJSON(t *testing.T) {
	app, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("{not json"))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code == "" {
		t.Error("expected an error code")
	}
}

func TestAnalyzeRejectsEmptySamples(t *testing.T) {
	app, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", analyzeBody(t, nil, nil))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetResultNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/results/does-not-exist", nil)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListResults(t *testing.T) {
	app, _ := newTestApp(t)
	kit := testkit.NewKit(11)
	samples := []stats.Sample{kit.NormalSample("batch", 30, 5, 1)}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", analyzeBody(t, samples, fastOptions()))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/results", nil)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var list ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.RunIDs) != 1 {
		t.Errorf("expected 1 run id, got %d", len(list.RunIDs))
	}
}

func TestFitEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	x := make([]float64, 10)
	y := make([]float64, 10)
	for i := range x {
		x[i] = float64(i)
		y[i] = 2.5*x[i] - 4
	}
	body, err := json.Marshal(FitRequest{Model: "linear", X: x, Y: y})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/fit", bytes.NewBuffer(body))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var fit curvefit.Fit
	if err := json.Unmarshal(rec.Body.Bytes(), &fit); err != nil {
		t.Fatalf("decode fit: %v", err)
	}
	if !fit.Converged {
		t.Error("fit did not converge")
	}
	if len(fit.Params) != 2 || fit.Params[1].Value < 2.4 || fit.Params[1].Value > 2.6 {
		t.Errorf("unexpected parameters: %+v", fit.Params)
	}
}

func TestFitEndpointUnknownModel(t *testing.T) {
	app, _ := newTestApp(t)

	body, err := json.Marshal(FitRequest{Model: "spline", X: []float64{1, 2, 3}, Y: []float64{1, 2, 3}})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/fit", bytes.NewBuffer(body))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestReportEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	kit := testkit.NewKit(13)
	a, b := kit.CorrelatedPair("dose", "response", 40, 0.8)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", analyzeBody(t, []stats.Sample{a, b}, fastOptions()))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d: %s", rec.Code, rec.Body.String())
	}
	var result stats.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/results/"+result.RunID+"/report", nil)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html content type, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Analysis Report") {
		t.Error("report missing title")
	}
	if !strings.Contains(body, "Descriptive Statistics") {
		t.Error("report missing descriptive section")
	}
}

func TestReportMarkdownSections(t *testing.T) {
	result := &stats.Result{
		RunID: "run-1",
		Seed:  42,
		Descriptive: []stats.DescriptiveStats{{Name: "x", N: 10, Mean: 1.5}},
		Hypothesis: []stats.HypothesisTest{
			{Test: "welch_t", Statistic: 2.1, PValue: 0.04, DF: 17.3, EffectSize: 0.9, Significant: true},
		},
		Recommendations: []string{"collect more data"},
	}
	md := RenderReportMarkdown(result)

	for _, want := range []string{"# Analysis Report", "run-1", "## Descriptive Statistics", "welch_t", "collect more data"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
