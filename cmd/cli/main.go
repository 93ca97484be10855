package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"anastat/adapters/api"
	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/curvefit"
	"anastat/internal/pipeline"
	"anastat/internal/rng"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "anastat",
		Short: "Deterministic statistical analysis engine CLI",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newReportCmd(),
		newFitCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var seed int64
	var nanPolicy string
	var analyses string
	var confidence float64

	cmd := &cobra.Command{
		Use:   "analyze [request-file]",
		Short: "Run the full analysis pipeline on a JSON request",
		Long: `Run automatic statistical analysis on samples read from a JSON file.

The request file holds {"samples": [...], "options": {...}}. Use "-" to
read from stdin. Flags override the corresponding option fields.

Example: anastat analyze request.json --seed 12345 --nan-policy remove`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runAnalysis(cmd.Context(), args[0], func(opts *stats.Options) {
				applyOverrides(cmd, opts, seed, nanPolicy, analyses, confidence)
			})
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic resampling")
	cmd.Flags().StringVar(&nanPolicy, "nan-policy", "", "Missing value policy: error|remove|mean|median|zero|ignore")
	cmd.Flags().StringVar(&analyses, "analyses", "", "Comma-separated analyses to force, bypassing detection")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Confidence level for intervals, e.g. 0.95")

	return cmd
}

func newReportCmd() *cobra.Command {
	var seed int64
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "report [request-file]",
		Short: "Run an analysis and print a markdown report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runAnalysis(cmd.Context(), args[0], func(opts *stats.Options) {
				if cmd.Flags().Changed("seed") {
					opts.Seed = seed
				}
			})
			if err != nil {
				return err
			}

			if asHTML {
				_, err = os.Stdout.Write(api.RenderReportHTML(result))
				return err
			}
			_, err = io.WriteString(os.Stdout, api.RenderReportMarkdown(result))
			return err
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic resampling")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Render the report as HTML instead of markdown")

	return cmd
}

func newFitCmd() *cobra.Command {
	var modelName string

	cmd := &cobra.Command{
		Use:   "fit [data-file]",
		Short: "Fit a parametric curve to an x/y dataset",
		Long: `Fit a model from the built-in catalogue to a dataset read from a
JSON file holding {"x": [...], "y": [...], "y_sigma": [...]}. Use "-"
to read from stdin.

Example: anastat fit data.json --model linear`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadFitRequest(args[0])
			if err != nil {
				return err
			}
			if modelName != "" {
				req.Model = modelName
			}

			model, err := curvefit.ModelByName(req.Model)
			if err != nil {
				return err
			}
			fit, err := curvefit.FitModel(model, curvefit.Data{
				X:      req.X,
				Y:      req.Y,
				XSigma: req.XSigma,
				YSigma: req.YSigma,
			}, req.InitialParams, curvefit.DefaultOptions())
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(fit)
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "", "Model to fit: linear|quadratic|cubic|exponential|power|logarithmic|gaussian")

	return cmd
}

func loadFitRequest(path string) (*api.FitRequest, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var req api.FitRequest
	if err := json.NewDecoder(reader).Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to parse data JSON: %w", err)
	}
	return &req, nil
}

func runAnalysis(ctx context.Context, path string, override func(*stats.Options)) (*stats.Result, error) {
	req, err := loadRequest(path)
	if err != nil {
		return nil, err
	}

	opts := stats.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	override(&opts)

	logger := internal.NewDefaultLogger()
	orchestrator := pipeline.NewOrchestrator(rng.NewSeeded(), logger, 0)
	return orchestrator.Execute(ctx, req.Samples, opts)
}

func loadRequest(path string) (*api.AnalyzeRequest, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open request file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var req api.AnalyzeRequest
	if err := json.NewDecoder(reader).Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to parse request JSON: %w", err)
	}
	return &req, nil
}

func applyOverrides(cmd *cobra.Command, opts *stats.Options, seed int64, nanPolicy, analyses string, confidence float64) {
	if cmd.Flags().Changed("seed") {
		opts.Seed = seed
	}
	if nanPolicy != "" {
		opts.NaNHandling = stats.NaNPolicy(nanPolicy)
	}
	if analyses != "" {
		opts.EnabledAnalyses = strings.Split(analyses, ",")
	}
	if confidence > 0 {
		opts.ConfidenceLevel = confidence
	}
}
