package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/internal/profiling"
)

// Markdown renders a run as a Markdown report. pred may be nil.
func Markdown(rec *run.Record, pred *run.Prediction) string {
	var b strings.Builder
	s := rec.Settings

	fmt.Fprintf(&b, "# ABC run %s\n\n", rec.ID)
	fmt.Fprintf(&b, "Fingerprint `%s` (%s), finished %s.\n\n", rec.Fingerprint.Hash.Short(), rec.Fingerprint.CodeVersion, rec.CreatedAt)

	b.WriteString("## Settings\n\n")
	b.WriteString("| setting | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| samples | %d |\n", s.Samples)
	fmt.Fprintf(&b, "| threshold | %g |\n", s.Threshold)
	fmt.Fprintf(&b, "| steps | %d |\n", s.Steps)
	fmt.Fprintf(&b, "| seed | %d |\n", s.Seed)
	fmt.Fprintf(&b, "| distance | %s |\n", s.Distance)
	fmt.Fprintf(&b, "| statistics | %s |\n", strings.Join(s.Statistics, ", "))
	fmt.Fprintf(&b, "| prior e | `%s` |\n", s.PriorE)
	fmt.Fprintf(&b, "| prior c | `%s` |\n", s.PriorC)
	fmt.Fprintf(&b, "| prior m | `%s` |\n", s.PriorM)
	b.WriteString("\n")

	b.WriteString("## Observed record\n\n")
	fmt.Fprintf(&b, "`%s`\n\n", s.Empirical)
	for i, name := range s.Statistics {
		if i < len(rec.EmpiricalSummary) {
			fmt.Fprintf(&b, "- %s: %.4f\n", name, rec.EmpiricalSummary[i])
		}
	}
	b.WriteString("\n")

	b.WriteString("## Posterior\n\n")
	if rec.Partial {
		fmt.Fprintf(&b, "The run stopped early: %d of %d trials completed.\n\n", rec.PoolSize, s.Samples)
	}
	if rec.Outcome == run.OutcomeNoAcceptance || rec.Estimates == nil {
		fmt.Fprintf(&b, "No sample out of %d fell below the threshold of %g. Raise the threshold or the number of samples.\n", rec.PoolSize, s.Threshold)
		return b.String()
	}

	rate := 0.0
	if rec.PoolSize > 0 {
		rate = 100 * float64(len(rec.Accepted)) / float64(rec.PoolSize)
	}
	fmt.Fprintf(&b, "Accepted %d of %d samples (%.3f%%).\n\n", len(rec.Accepted), rec.PoolSize, rate)

	b.WriteString("| parameter | mean | std. dev. | median | 2.5% | 97.5% |\n|---|---|---|---|---|---|\n")
	writeEstimate(&b, "extinction (e)", rec.Estimates.Extinction)
	writeEstimate(&b, "colonization (c)", rec.Estimates.Colonization)
	writeEstimate(&b, "measurement error (m)", rec.Estimates.MeasurementError)
	b.WriteString("\n")

	if shape, err := profiling.NewDistributionAnalyzer().AnalyzePosterior(rec.Accepted); err == nil {
		b.WriteString("### Shape\n\n")
		b.WriteString("| parameter | min | max | skewness | kurtosis | outliers | normal (JB p) |\n|---|---|---|---|---|---|---|\n")
		writeShape(&b, "e", shape.Extinction)
		writeShape(&b, "c", shape.Colonization)
		writeShape(&b, "m", shape.MeasurementError)
		b.WriteString("\n")
	}

	if pred != nil {
		b.WriteString("## Noise-free occupancy\n\n")
		fmt.Fprintf(&b, "Simulating the true state over %d steps for every accepted (e, c) pair gives an occupancy of %.4f ± %.4f (95%% interval %.4f to %.4f).\n",
			pred.Steps, pred.Estimate.Mean, pred.Estimate.StdDev, pred.Estimate.Lower, pred.Estimate.Upper)
	}
	return b.String()
}

func writeEstimate(b *strings.Builder, name string, e run.Estimate) {
	fmt.Fprintf(b, "| %s | %.4f | %.4f | %.4f | %.4f | %.4f |\n", name, e.Mean, e.StdDev, e.Median, e.Lower, e.Upper)
}

func writeShape(b *strings.Builder, name string, s profiling.Shape) {
	normal := "no"
	if s.IsNormal {
		normal = "yes"
	}
	fmt.Fprintf(b, "| %s | %.4f | %.4f | %.3f | %.3f | %d | %s (%.3f) |\n", name, s.Min, s.Max, s.Skewness, s.Kurtosis, s.Outliers, normal, s.JarqueP)
}

// HTML renders a Markdown report as a standalone HTML page
func HTML(md string, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}
