package api

import (
	"context"
	"encoding/json"
	"net/http"

	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/curvefit"
	"anastat/internal/errors"
	"anastat/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Executor runs a full analysis over a set of samples.
type Executor interface {
	Execute(ctx context.Context, samples []stats.Sample, opts stats.Options) (*stats.Result, error)
}

// App is the HTTP surface of the analysis engine.
type App struct {
	router   *chi.Mux
	executor Executor
	results  ports.ResultRepository
	logger   *internal.Logger
}

// NewApp wires the analysis executor and result store into a chi router.
// The repository may be nil, in which case results are returned inline
// and the retrieval endpoints respond 404.
func NewApp(executor Executor, results ports.ResultRepository, logger *internal.Logger) *App {
	app := &App{
		router:   chi.NewRouter(),
		executor: executor,
		results:  results,
		logger:   logger,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/health", a.handleHealth)
	a.router.Post("/analyze", a.handleAnalyze)
	a.router.Post("/fit", a.handleFit)
	a.router.Get("/results", a.handleListResults)
	a.router.Get("/results/{id}", a.handleGetResult)
	a.router.Get("/results/{id}/report", a.handleGetReport)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze runs the full analysis pipeline on the posted samples
func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, errors.InvalidInput("request body is not valid JSON: "+err.Error()))
		return
	}

	opts := stats.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	result, err := a.executor.Execute(r.Context(), req.Samples, opts)
	if err != nil {
		a.logger.Warn("analysis request failed: %v", err)
		a.writeError(w, err)
		return
	}

	if a.results != nil {
		if err := a.results.Save(r.Context(), result); err != nil {
			a.logger.Error("failed to persist result %s: %v", result.RunID, err)
		}
	}

	a.writeJSON(w, http.StatusOK, result)
}

// handleFit runs one parametric curve fit against the posted dataset
func (a *App) handleFit(w http.ResponseWriter, r *http.Request) {
	var req FitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, errors.InvalidInput("request body is not valid JSON: "+err.Error()))
		return
	}

	model, err := curvefit.ModelByName(req.Model)
	if err != nil {
		a.writeError(w, err)
		return
	}

	fit, err := curvefit.FitModel(model, curvefit.Data{
		X:      req.X,
		Y:      req.Y,
		XSigma: req.XSigma,
		YSigma: req.YSigma,
	}, req.InitialParams, curvefit.DefaultOptions())
	if err != nil {
		a.logger.Warn("fit request failed: %v", err)
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, fit)
}

func (a *App) handleListResults(w http.ResponseWriter, r *http.Request) {
	if a.results == nil {
		a.writeError(w, errors.NotFound("result store"))
		return
	}
	runIDs, err := a.results.List(r.Context(), 100)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if runIDs == nil {
		runIDs = []string{}
	}
	a.writeJSON(w, http.StatusOK, ListResponse{RunIDs: runIDs})
}

func (a *App) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := a.loadResult(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

// handleGetReport renders a stored result as an HTML report
func (a *App) handleGetReport(w http.ResponseWriter, r *http.Request) {
	result, err := a.loadResult(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(RenderReportHTML(result))
}

func (a *App) loadResult(r *http.Request) (*stats.Result, error) {
	if a.results == nil {
		return nil, errors.NotFound("result store")
	}
	runID := chi.URLParam(r, "id")
	if runID == "" {
		return nil, errors.InvalidInput("missing run id")
	}
	return a.results.Get(r.Context(), runID)
}

func (a *App) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode response: %v", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeInvalidInput, errors.CodeValidationError, errors.CodeDegenerateInput:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	}
	a.writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
