package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/tpoisot/IntroScientificComputing/adapters/excel"
	"github.com/tpoisot/IntroScientificComputing/adapters/postgres"
	"github.com/tpoisot/IntroScientificComputing/adapters/report"
	"github.com/tpoisot/IntroScientificComputing/adapters/rng"
	"github.com/tpoisot/IntroScientificComputing/app"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
	"github.com/tpoisot/IntroScientificComputing/internal/config"
)

func main() {
	// .env is optional; the environment wins when both are set
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "abc",
		Short: "Approximate Bayesian computation for a single-site occupancy model",
		Long: `Fit the extinction (e), colonization (c) and measurement error (m) rates of
a presence/absence record by rejection-sampling ABC.

Defaults come from the environment (ABC_SAMPLES, ABC_THRESHOLD, ABC_SEED, ...)
and a .env file when present; flags override both.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newEstimateCmd(),
		newSummarizeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSimulateCmd() *cobra.Command {
	var e, c, m float64
	var steps int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate one true and one measured sequence",
		Long: `Simulate the occupancy model once and print the latent true state and the
measured state, one character per step (1 present, 0 absent).

Example: abc simulate --e 0.15 --c 0.3 --m 0.2 --steps 40 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rng.NewPCGAdapter().SeededStream(cmd.Context(), "cli-simulate", seed)
			if err != nil {
				return err
			}
			p := occupancy.Params{Extinction: e, Colonization: c, MeasurementError: m}
			state, measured, err := occupancy.SimulateBoth(r, p, steps)
			if err != nil {
				return err
			}

			fmt.Printf("params:   %s\n", p)
			fmt.Printf("true:     %s\n", state)
			fmt.Printf("measured: %s\n", measured)
			fmt.Printf("true occupancy %.4f, measured occupancy %.4f\n", summary.Occupancy(state), summary.Occupancy(measured))
			return nil
		},
	}

	cmd.Flags().Float64Var(&e, "e", 0.15, "Extinction rate")
	cmd.Flags().Float64Var(&c, "c", 0.3, "Colonization rate")
	cmd.Flags().Float64Var(&m, "m", 0.2, "Measurement error rate")
	cmd.Flags().IntVar(&steps, "steps", 20, "Number of steps to simulate")
	cmd.Flags().Uint64Var(&seed, "seed", app.DefaultSeed, "Random seed")

	return cmd
}

func newSummarizeCmd() *cobra.Command {
	var statistics string

	cmd := &cobra.Command{
		Use:   "summarize [sequence]",
		Short: "Print the summary statistics of a presence/absence record",
		Long: `Print the summary statistics of a record given as 0/1 characters or separated
tokens. Without an argument the built-in field record is used.

Example: abc summarize 00011111111101101111 --statistics occupancy,transition_rate,extinctions`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record := app.ObservedRecord
			if len(args) == 1 {
				record = args[0]
			}
			seq, err := occupancy.ParseSequence(record)
			if err != nil {
				return err
			}
			stats, err := summary.ParseList(statistics)
			if err != nil {
				return err
			}

			v := summary.Summarize(seq, stats)
			fmt.Printf("record: %s (%d steps, %d present)\n", seq, seq.Len(), seq.Count())
			for i, s := range stats {
				fmt.Printf("%-18s %.6f\n", s.Name, v[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statistics, "statistics", strings.Join(summary.Names(), ","), "Comma separated statistics")
	return cmd
}

type estimateFlags struct {
	samples      int
	threshold    float64
	steps        int
	seed         uint64
	workers      int
	statistics   string
	distance     string
	priorE       string
	priorC       string
	priorM       string
	empirical    string
	file         string
	sheet        string
	column       string
	xlsx         string
	report       string
	predictSteps int
	timeout      time.Duration
	save         bool
}

func newEstimateCmd() *cobra.Command {
	var f estimateFlags

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate e, c and m by rejection-sampling ABC",
		Long: `Draw parameter sets from the priors, simulate each, and keep those whose
summary statistics fall within the threshold of the observed record.

Interrupting the run (Ctrl-C) or reaching --timeout keeps the trials completed
so far and reports them as a partial result.

Example: abc estimate --samples 50000 --threshold 0.02 --xlsx run.xlsx --report run.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, f)
		},
	}

	bindEstimateFlags(cmd, &f)
	return cmd
}

func bindEstimateFlags(cmd *cobra.Command, f *estimateFlags) {
	flags := cmd.Flags()
	flags.IntVar(&f.samples, "samples", 0, "Number of parameter sets to draw")
	flags.Float64Var(&f.threshold, "threshold", 0, "Acceptance threshold on the summary distance")
	flags.IntVar(&f.steps, "steps", 0, "Steps simulated per trial")
	flags.Uint64Var(&f.seed, "seed", 0, "Base random seed")
	flags.IntVar(&f.workers, "workers", 0, "Parallel trials (0 uses every CPU)")
	flags.StringVar(&f.statistics, "statistics", "", "Comma separated statistics, e.g. occupancy,transition_rate")
	flags.StringVar(&f.distance, "distance", "", "Distance: euclidean, manhattan or chebyshev")
	flags.StringVar(&f.priorE, "prior-e", "", "Prior of e, e.g. tnorm(0.15,0.1)")
	flags.StringVar(&f.priorC, "prior-c", "", "Prior of c, e.g. uniform(0,1)")
	flags.StringVar(&f.priorM, "prior-m", "", "Prior of m, e.g. beta(2,8)")
	flags.StringVar(&f.empirical, "empirical", "", "Observed record as 0/1 characters")
	flags.StringVar(&f.file, "empirical-file", "", "Read the observed record from an xlsx or csv file")
	flags.StringVar(&f.sheet, "sheet", excel.DefaultSheet, "Worksheet of --empirical-file")
	flags.StringVar(&f.column, "column", "", "Column header of --empirical-file (default: first column)")
	flags.StringVar(&f.xlsx, "xlsx", "", "Write the posterior to this workbook")
	flags.StringVar(&f.report, "report", "", "Write a report to this .md or .html file")
	flags.IntVar(&f.predictSteps, "predict-steps", 0, "Steps of the noise-free occupancy prediction (default: --steps)")
	flags.DurationVar(&f.timeout, "timeout", 0, "Stop after this long and keep the completed trials")
	flags.BoolVar(&f.save, "save", false, "Store the run in Postgres (requires DATABASE_URL)")
}

// settingsFromFlags overlays the flags the user set on the configured settings
func settingsFromFlags(cmd *cobra.Command, base run.Settings, f estimateFlags) (run.Settings, error) {
	s := base
	changed := cmd.Flags().Changed

	if changed("samples") {
		s.Samples = f.samples
	}
	if changed("threshold") {
		s.Threshold = f.threshold
	}
	if changed("steps") {
		s.Steps = f.steps
	}
	if changed("seed") {
		s.Seed = f.seed
	}
	if changed("workers") {
		s.Workers = f.workers
	}
	if changed("statistics") {
		s.Statistics = strings.Split(f.statistics, ",")
	}
	if changed("distance") {
		s.Distance = f.distance
	}
	if changed("prior-e") {
		s.PriorE = f.priorE
	}
	if changed("prior-c") {
		s.PriorC = f.priorC
	}
	if changed("prior-m") {
		s.PriorM = f.priorM
	}
	if changed("empirical") {
		s.Empirical = f.empirical
	}
	if f.file != "" {
		if changed("empirical") {
			return run.Settings{}, fmt.Errorf("--empirical and --empirical-file are mutually exclusive")
		}
		seq, err := excel.ReadSequence(f.file, f.sheet, f.column)
		if err != nil {
			return run.Settings{}, err
		}
		s.Empirical = seq.String()
	}
	return s, nil
}

// predictionSteps returns the horizon of the noise-free prediction: the
// --predict-steps value when set, otherwise the simulated horizon
func predictionSteps(cmd *cobra.Command, f estimateFlags, steps int) (int, error) {
	if !cmd.Flags().Changed("predict-steps") {
		return steps, nil
	}
	if f.predictSteps < 1 {
		return 0, fmt.Errorf("--predict-steps must be at least 1, got %d", f.predictSteps)
	}
	return f.predictSteps, nil
}

func runEstimate(cmd *cobra.Command, f estimateFlags) error {
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	settings, err := settingsFromFlags(cmd, appConfig.Estimator, f)
	if err != nil {
		return err
	}
	cfg, err := app.EstimatorConfigFromSettings(settings)
	if err != nil {
		return err
	}
	predictSteps, err := predictionSteps(cmd, f, cfg.Steps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	estimator := app.NewEstimator(rng.NewPCGAdapter(), appConfig.Logger())
	result, err := estimator.Run(ctx, cfg)
	if err != nil && !(app.IsPartial(err) && result != nil) {
		return err
	}
	if result.Partial {
		fmt.Fprintf(os.Stderr, "warning: stopped early (%v), %d of %d trials completed\n", err, result.PoolSize(), cfg.Samples)
	}

	printResult(result)

	rec := run.NewRecord(result)
	var pred *run.Prediction
	if result.Outcome == run.OutcomeAccepted {
		// the run context may be done already; the prediction is cheap
		pred, err = estimator.PredictOccupancy(context.Background(), result, predictSteps)
		if err != nil {
			return err
		}
		fmt.Printf("\nnoise-free occupancy over %d steps: %s\n", pred.Steps, pred.Estimate)
	}

	if f.xlsx != "" {
		if err := excel.WritePosterior(f.xlsx, rec); err != nil {
			return err
		}
		fmt.Printf("posterior written to %s\n", f.xlsx)
	}
	if f.report != "" {
		if err := writeReport(f.report, rec, pred); err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", f.report)
	}
	if f.save {
		if err := saveRun(cmd.Context(), appConfig, rec); err != nil {
			return err
		}
		fmt.Printf("run %s saved\n", rec.ID)
	}
	return nil
}

func printResult(result *run.Result) {
	fmt.Printf("run %s (fingerprint %s)\n", result.ID, result.Fingerprint.Hash.Short())
	fmt.Printf("observed summary %v = %v\n", result.Settings.Statistics, result.EmpiricalSummary)
	fmt.Printf("accepted %d of %d samples (%.3f%%) at threshold %g\n",
		len(result.Accepted), result.PoolSize(), 100*result.AcceptanceRate(), result.Settings.Threshold)

	est, err := result.Estimates()
	if err != nil {
		fmt.Println("no sample was accepted: raise --threshold or --samples")
		return
	}
	fmt.Printf("\n%-20s %s\n", "e (extinction)", est.Extinction)
	fmt.Printf("%-20s %s\n", "c (colonization)", est.Colonization)
	fmt.Printf("%-20s %s\n", "m (measurement)", est.MeasurementError)
}

func writeReport(path string, rec *run.Record, pred *run.Prediction) error {
	md := report.Markdown(rec, pred)
	data := []byte(md)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		data = report.HTML(md, "ABC run "+rec.ID.String())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func saveRun(ctx context.Context, appConfig *config.Config, rec *run.Record) error {
	if !appConfig.Database.Enabled() {
		return fmt.Errorf("--save requires DATABASE_URL")
	}
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := postgres.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	return repo.Save(ctx, rec)
}
