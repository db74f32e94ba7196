package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/san-kum/fieldprop/internal/config"
	"github.com/san-kum/fieldprop/internal/experiment"
	"github.com/san-kum/fieldprop/internal/metrics"
	"github.com/san-kum/fieldprop/internal/optim"
	"github.com/san-kum/fieldprop/internal/storage"
	"github.com/san-kum/fieldprop/internal/viz"
)

var (
	dataDir     string
	logLevel    string
	configFile  string
	preset      string
	stepperName string
	driverKind  string
	tolerance   float64
	length      float64
	segment     float64
	showMetrics bool
	components  string
	halvings    int

	maxDeviation float64
	tolerances   []float64
	safeties     []float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fieldprop",
		Short:         "adaptive integration of charged particles in magnetic fields",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fieldprop", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "propagate a particle and store the trajectory",
		Args:  cobra.NoArgs,
		RunE:  runPropagation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&stepperName, "stepper", config.DefaultStepper, "stepper name")
	runCmd.Flags().StringVar(&driverKind, "driver", "mag", "driver kind (mag, bs)")
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print driver metrics in Prometheus text format")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&components, "components", "x,y", "comma separated components ("+strings.Join(viz.Components, ", ")+")")

	compareCmd := &cobra.Command{
		Use:   "compare [stepper...]",
		Short: "run several steppers on the same particle concurrently",
		RunE:  compareSteppers,
	}
	addRunFlags(compareCmd)
	compareCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print driver metrics in Prometheus text format")

	convergeCmd := &cobra.Command{
		Use:   "converge [stepper...]",
		Short: "single-step error against the exact helix for halving steps",
		RunE:  convergeSteppers,
	}
	convergeCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	convergeCmd.Flags().StringVar(&preset, "preset", "", "preset as kind/name")
	convergeCmd.Flags().IntVar(&halvings, "halvings", 6, "number of step lengths")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search for the cheapest tolerance and safety within a deviation bound",
		Args:  cobra.NoArgs,
		RunE:  tuneDriver,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&stepperName, "stepper", config.DefaultStepper, "stepper name")
	tuneCmd.Flags().Float64Var(&maxDeviation, "max-deviation", 1e-3, "allowed deviation from the exact helix (mm)")
	tuneCmd.Flags().Float64SliceVar(&tolerances, "tolerances", []float64{1e-4, 1e-5, 1e-6, 1e-7, 1e-8}, "tolerances to try")
	tuneCmd.Flags().Float64SliceVar(&safeties, "safeties", []float64{0.8, 0.9}, "safety factors to try")

	presetsCmd := &cobra.Command{
		Use:   "presets [kind]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := config.PresetKinds()
			if len(args) > 0 {
				kinds = args
			}
			for _, kind := range kinds {
				names := config.ListPresets(kind)
				if len(names) == 0 {
					fmt.Printf("no presets for field kind: %s\n", kind)
					continue
				}
				fmt.Printf("%s:\n", kind)
				for _, name := range names {
					p := config.GetPreset(kind, name)
					fmt.Printf("  %-14s %s, %g mm\n", name, p.Stepper, p.Length)
				}
			}
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).Export(os.Stdout, args[0])
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, compareCmd, convergeCmd, tuneCmd, presetsCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset as kind/name, e.g. uniform/electron")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "relative accuracy")
	cmd.Flags().Float64Var(&length, "length", config.DefaultLength, "curve length to integrate (mm)")
	cmd.Flags().Float64Var(&segment, "segment", config.DefaultSegment, "length handed to the driver per call (mm)")
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

// loadConfig resolves the run configuration. A config file overrides a
// preset, and flags set on the command line override both.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		kind, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset %q: want kind/name", preset)
		}
		cfg = config.GetPreset(kind, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(kind))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("stepper") {
		cfg.Stepper = stepperName
	}
	if flags.Changed("driver") {
		cfg.Driver.Kind = driverKind
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("length") {
		cfg.Length = length
	}
	if flags.Changed("segment") {
		cfg.Segment = segment
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runPropagation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("propagating", "stepper", cfg.Stepper, "driver", cfg.Driver.Kind, "length", cfg.Length)
	res, runErr := exp.Run(ctx)
	if res == nil {
		return runErr
	}

	meta := &storage.RunMetadata{
		Preset:      preset,
		Stepper:     cfg.Stepper,
		Driver:      cfg.Driver.Kind,
		Field:       cfg.Field.Kind,
		Charge:      cfg.Particle.Charge,
		Mass:        cfg.Particle.Mass,
		Tolerance:   cfg.Tolerance,
		Length:      cfg.Length,
		Segment:     cfg.Segment,
		Ok:          res.Ok,
		Evaluations: res.Evaluations,
		Elapsed:     res.Elapsed,
		Stats:       res.Stats,
		Metrics:     res.Metrics,
	}
	if _, err := st.Save(meta, res.Points); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	fmt.Println(viz.RunSummary(meta, res.Track.CurveLength))
	fmt.Println(viz.StatsPanel("driver", res.Stats))

	chords := make([]float64, len(res.Points)-1)
	for i, p := range res.Points[1:] {
		chords[i] = p.Chord
	}
	fmt.Println(viz.Subtle.Render("segment chords ") + viz.Sparkline(chords, 60))

	if showMetrics {
		c := metrics.NewDriverCollector()
		c.Register(cfg.Stepper, metrics.Snapshot(res.Stats))
		if err := printMetrics(c); err != nil {
			return err
		}
	}
	return runErr
}

func printMetrics(c prometheus.Collector) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return err
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	fmt.Println(viz.RunTable(runs))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	points, err := st.LoadPoints(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("stepper: %s, field: %s\n", meta.Stepper, meta.Field)
	fmt.Printf("points: %d\n\n", len(points))

	graph, err := viz.PlotTrajectory(points, strings.Split(components, ","), 80, 10)
	if err != nil {
		return err
	}
	fmt.Println(graph)
	return nil
}

func compareSteppers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	names := args
	if len(names) == 0 {
		names = reg.ListSteppers()
	}

	ctx, cancel := signalContext()
	defer cancel()

	outcomes, err := experiment.Compare(ctx, reg, cfg, names)
	if err != nil {
		return err
	}

	fmt.Printf("comparing %d steppers (%s field, %g mm, tolerance %g)\n",
		len(names), cfg.Field.Kind, cfg.Length, cfg.Tolerance)
	fmt.Println(viz.CompareTable(outcomes))

	if showMetrics {
		c := metrics.NewDriverCollector()
		for _, o := range outcomes {
			c.Register(o.Name, metrics.Snapshot(o.Stats))
		}
		return printMetrics(c)
	}
	return nil
}

func convergeSteppers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names := args
	if len(names) == 0 {
		names = []string{"euler", "runge", "rk4", "richardson", "dormand-prince"}
	}

	steps := experiment.HalvingSteps(experiment.Radius(cfg)/4, halvings)
	series, err := experiment.Converge(cfg, experiment.NewRegistry(), names, steps)
	if err != nil {
		return err
	}

	fmt.Printf("first step %.4g mm, radius %.4g mm\n\n", steps[0], experiment.Radius(cfg))
	fmt.Println(viz.PlotConvergence(series, 60, 15))
	return nil
}

func tuneDriver(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Field.Kind != "uniform" {
		return experiment.ErrNotUniform
	}

	ctx, cancel := signalContext()
	defer cancel()

	g := optim.NewGridSearch([]string{"tolerance", "safety"}, [][]float64{tolerances, safeties})
	best, score, trials, err := g.Search(ctx,
		optim.Configure(cfg, experiment.NewRegistry()), optim.CheapestWithin(maxDeviation))

	for _, t := range trials {
		status := fmt.Sprintf("%.0f evaluations", t.Score)
		if t.Err != nil {
			status = t.Err.Error()
		} else if math.IsInf(t.Score, 1) {
			status = "rejected"
		}
		fmt.Printf("  tolerance=%-8g safety=%-5g %s\n", t.Params["tolerance"], t.Params["safety"], status)
	}
	if err != nil {
		return err
	}

	fmt.Println(viz.StatusOk.Render(fmt.Sprintf("best: tolerance=%g safety=%g (%.0f evaluations)",
		best["tolerance"], best["safety"], score)))
	return nil
}
