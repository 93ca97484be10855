package api

import (
	"fmt"
	"strings"

	"anastat/domain/stats"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderReportHTML renders a stored analysis result as a standalone HTML
// report. The markdown intermediate keeps the layout diffable in tests.
func RenderReportHTML(result *stats.Result) []byte {
	md := RenderReportMarkdown(result)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Analysis Report " + result.RunID,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

// RenderReportMarkdown builds the markdown body of the analysis report.
func RenderReportMarkdown(result *stats.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Analysis Report\n\n")
	fmt.Fprintf(&b, "- Run ID: `%s`\n", result.RunID)
	fmt.Fprintf(&b, "- Seed: %d\n", result.Seed)
	fmt.Fprintf(&b, "- Quality score: %.1f\n", result.QualityScore)
	if names := result.Analyses.Names(); len(names) > 0 {
		fmt.Fprintf(&b, "- Analyses: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "- Rows removed during sanitization: %d\n\n", result.Sanitization.RowsRemovedTotal)

	if len(result.Descriptive) > 0 {
		b.WriteString("## Descriptive Statistics\n\n")
		b.WriteString("| Sample | N | Mean | Median | Std Dev | Min | Max | Skewness | Kurtosis |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
		for _, d := range result.Descriptive {
			fmt.Fprintf(&b, "| %s | %d | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g |\n",
				sampleLabel(d.Name), d.N, d.Mean, d.Median, d.StdDev, d.Min, d.Max, d.Skewness, d.Kurtosis)
		}
		b.WriteString("\n")
	}

	if len(result.Normality) > 0 {
		b.WriteString("## Normality\n\n")
		for _, n := range result.Normality {
			verdict := "not normal"
			if n.IsNormal {
				verdict = "normal"
			}
			fmt.Fprintf(&b, "**%s**: %s\n\n", sampleLabel(n.Name), verdict)
			for _, t := range n.Tests {
				fmt.Fprintf(&b, "- %s: statistic %.4g, p = %.4g\n", t.Test, t.Statistic, t.PValue)
			}
			if len(n.Transformations) > 0 {
				fmt.Fprintf(&b, "- suggested transformations: %s\n", strings.Join(n.Transformations, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(result.Distribution) > 0 {
		b.WriteString("## Distribution Fits\n\n")
		for _, d := range result.Distribution {
			fmt.Fprintf(&b, "**%s**: best fit `%s`\n\n", sampleLabel(d.Name), d.BestFit)
			b.WriteString("| Family | AIC | BIC | KS p-value |\n")
			b.WriteString("|---|---|---|---|\n")
			for _, f := range d.Fits {
				fmt.Fprintf(&b, "| %s | %.4g | %.4g | %.4g |\n", f.Family, f.AIC, f.BIC, f.KSPValue)
			}
			b.WriteString("\n")
		}
	}

	if result.Correlation != nil && len(result.Correlation.Tests) > 0 {
		b.WriteString("## Correlation\n\n")
		b.WriteString("| Method | X | Y | r | p | 95% CI |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, t := range result.Correlation.Tests {
			fmt.Fprintf(&b, "| %s | %s | %s | %.4g | %.4g | [%.4g, %.4g] |\n",
				t.Method, t.VarX, t.VarY, t.Coefficient, t.PValue, t.CILower, t.CIUpper)
		}
		b.WriteString("\n")
	}

	if len(result.TimeSeries) > 0 {
		b.WriteString("## Time Series\n\n")
		for _, ts := range result.TimeSeries {
			fmt.Fprintf(&b, "**%s**: trend %s (slope %.4g, p = %.4g)\n\n",
				sampleLabel(ts.Name), ts.Trend.Direction, ts.Trend.Slope, ts.Trend.PValue)
			for _, s := range ts.Stationarity {
				fmt.Fprintf(&b, "- %s: statistic %.4g, p = %.4g, stationary = %t\n",
					s.Test, s.Statistic, s.PValue, s.IsStationary)
			}
			if ts.Seasonality.HasSeasonality {
				fmt.Fprintf(&b, "- seasonality detected, period %d\n", ts.Seasonality.Period)
			}
			b.WriteString("\n")
		}
	}

	if len(result.Stability) > 0 {
		b.WriteString("## Process Stability\n\n")
		for _, s := range result.Stability {
			fmt.Fprintf(&b, "**%s**: %s (center %.4g, limits [%.4g, %.4g])\n\n",
				sampleLabel(s.Name), s.Label, s.CenterLine, s.LCL, s.UCL)
			if s.Capability != nil {
				fmt.Fprintf(&b, "- capability: Cp %.3f, Cpk %.3f, %s\n\n",
					s.Capability.Cp, s.Capability.Cpk, s.Capability.Rating)
			}
		}
	}

	if result.Reliability != nil {
		b.WriteString("## Reliability\n\n")
		fmt.Fprintf(&b, "- Cronbach's alpha: %.3f\n", result.Reliability.CronbachAlpha)
		fmt.Fprintf(&b, "- McDonald's omega: %.3f\n", result.Reliability.McDonaldOmega)
		fmt.Fprintf(&b, "- acceptable: %t\n\n", result.Reliability.Acceptable)
	}

	if len(result.Uncertainty) > 0 {
		b.WriteString("## Uncertainty\n\n")
		for _, u := range result.Uncertainty {
			fmt.Fprintf(&b, "**%s**: propagated mean %.4g, expanded uncertainty %.4g (k = %.3f)\n\n",
				sampleLabel(u.Name), u.PropagatedMean, u.ExpandedUncert, u.CoverageFactor)
			for _, ci := range u.BootstrapIntervals {
				fmt.Fprintf(&b, "- %s: %.4g, %.0f%% CI [%.4g, %.4g]\n",
					ci.Statistic, ci.Estimate, ci.Confidence*100, ci.Lower, ci.Upper)
			}
			b.WriteString("\n")
		}
	}

	if len(result.Hypothesis) > 0 {
		b.WriteString("## Hypothesis Tests\n\n")
		b.WriteString("| Test | Statistic | df | p | Effect Size | Significant |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, h := range result.Hypothesis {
			fmt.Fprintf(&b, "| %s | %.4g | %.4g | %.4g | %.4g | %t |\n",
				h.Test, h.Statistic, h.DF, h.PValue, h.EffectSize, h.Significant)
		}
		b.WriteString("\n")
	}

	if result.Power != nil {
		b.WriteString("## Power\n\n")
		fmt.Fprintf(&b, "- achieved power: %.3f at effect size %.3f\n", result.Power.Power, result.Power.EffectSize)
		fmt.Fprintf(&b, "- required n per group: %d (current %d)\n\n", result.Power.RequiredN, result.Power.CurrentN)
	}

	if len(result.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func sampleLabel(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}
