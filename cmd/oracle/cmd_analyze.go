package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/scenario.report/internal/config"
	"github.com/banshee-data/scenario.report/internal/geometry"
	"github.com/banshee-data/scenario.report/internal/hdmap"
	"github.com/banshee-data/scenario.report/internal/monitoring"
	"github.com/banshee-data/scenario.report/internal/oracle"
	"github.com/banshee-data/scenario.report/internal/oracles"
	"github.com/banshee-data/scenario.report/internal/record"
	"github.com/banshee-data/scenario.report/internal/report"
	"github.com/banshee-data/scenario.report/internal/storage/sqlite"
)

type analyzeOptions struct {
	all        bool
	include    []string
	exclude    []string
	vehicle    string
	mapPath    string
	configPath string
	format     string
	dbPath     string
	metricsOut string
	plotDir    string

	// Values of flags declared by plugins, keyed by flag name.
	pluginFlags map[string]*string
}

func newAnalyzeCmd(reg *oracle.Registry) *cobra.Command {
	o := &analyzeOptions{pluginFlags: make(map[string]*string)}

	cmd := &cobra.Command{
		Use:   "analyze <scenario> <out>",
		Short: "Run oracles over a scenario record and write the violation report",
		Long: `Replay <scenario> through the selected oracles and write every
violation to <out>, which must not exist yet.

Without selection flags every registered oracle runs. --include limits the
run to the named oracles; --exclude removes names from the default set.

Examples:
  oracle analyze -v vehicle.yaml -m map.geojson run.jsonl report.json
  oracle analyze -v vehicle.yaml -m map.geojson -i collision -i speeding run.jsonl report.json
  oracle analyze -v vehicle.yaml -m map.geojson --optimal-refer ref.jsonl.gz run.jsonl report.pb --format pb`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, reg, o, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&o.all, "all", "a", false, "Run every registered oracle")
	f.StringSliceVarP(&o.include, "include", "i", nil, "Oracle to run (repeatable)")
	f.StringSliceVarP(&o.exclude, "exclude", "e", nil, "Oracle to skip (repeatable)")
	f.StringVarP(&o.vehicle, "vehicle", "v", "", "Vehicle geometry file (.yaml or .json)")
	f.StringVarP(&o.mapPath, "map", "m", "", "Lane map file (GeoJSON)")
	f.StringVar(&o.configPath, "config", "", "Threshold config JSON (default: built-in thresholds)")
	f.StringVar(&o.format, "format", string(report.FormatJSON), "Report format: json or pb")
	f.StringVar(&o.dbPath, "db", "", "Also persist the run to this SQLite database")
	f.StringVar(&o.metricsOut, "metrics-out", "", "Write Prometheus textfile metrics to this path")
	f.StringVar(&o.plotDir, "plot-dir", "", "Write optimal-oracle debug plots into this directory")
	addPluginFlags(f, reg, o.pluginFlags)
	_ = cmd.MarkFlagRequired("vehicle")
	_ = cmd.MarkFlagRequired("map")

	return cmd
}

func runAnalyze(cmd *cobra.Command, reg *oracle.Registry, o *analyzeOptions, scenario, out string) error {
	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()

	sel := oracle.Selection{All: o.all, Include: o.include, Exclude: o.exclude}
	if err := oracle.ValidateSelection(sel); err != nil {
		return err
	}
	format, err := report.ParseFormat(o.format)
	if err != nil {
		return err
	}
	if err := checkInputs(o.vehicle, o.mapPath, scenario, out); err != nil {
		return err
	}

	cfg := config.EmptyOracleConfig()
	if o.configPath != "" {
		if cfg, err = config.LoadOracleConfig(o.configPath); err != nil {
			return err
		}
	}

	var (
		vehicle geometry.VehicleGeometry
		lanes   *hdmap.Map
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := config.LoadVehicleGeometry(o.vehicle)
		if err != nil {
			return err
		}
		vehicle = v
		return nil
	})
	g.Go(func() error {
		m, err := hdmap.LoadGeoJSON(o.mapPath,
			hdmap.WithSearchRadius(cfg.GetLaneSearchRadius()),
			hdmap.WithHeadingTolerance(cfg.GetLaneHeadingTolerance()),
		)
		if err != nil {
			return err
		}
		lanes = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	deps := oracle.Deps{Map: lanes, Vehicle: vehicle, Config: cfg, Options: o.options()}
	active, err := reg.Select(sel, deps)
	if err != nil {
		return err
	}
	names := make([]string, len(active))
	for i, a := range active {
		names[i] = a.Name()
	}
	fmt.Fprintf(stdout, "Active oracles: %s\n", strings.Join(names, ", "))

	r, err := record.Open(scenario, oracle.Topics(active)...)
	if err != nil {
		return err
	}
	defer r.Close()

	metrics := monitoring.NewMetrics()
	began := time.Now()
	res, err := oracle.Analyze(ctx, r, active, oracle.WithMetrics(metrics))
	if err != nil {
		return err
	}
	took := time.Since(began)

	if err := report.Write(out, format, res.Violations); err != nil {
		return err
	}
	printSummary(cmd, res, out)

	if o.plotDir != "" {
		if err := writePlots(o.plotDir, active); err != nil {
			return err
		}
	}
	if o.dbPath != "" {
		id, err := persistRun(o.dbPath, sqlite.NewRun(scenario, o.mapPath, o.vehicle, names, res, took), res.Violations)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Stored run %s in %s\n", id, o.dbPath)
	}
	if o.metricsOut != "" {
		if err := metrics.WriteTextfile(o.metricsOut); err != nil {
			return err
		}
	}
	return nil
}

// addPluginFlags declares one string flag per plugin-declared option.
func addPluginFlags(flags *pflag.FlagSet, reg *oracle.Registry, into map[string]*string) {
	for _, pf := range reg.Flags() {
		into[pf.Name] = flags.String(pf.Name, pf.Default, pf.Usage)
	}
}

// options collects non-empty plugin flag values.
func (o *analyzeOptions) options() oracle.Options {
	opts := make(oracle.Options)
	for name, v := range o.pluginFlags {
		if v != nil && *v != "" {
			opts[name] = *v
		}
	}
	return opts
}

func checkInputs(vehicle, mapPath, scenario, out string) error {
	for _, in := range []struct{ what, path string }{
		{"vehicle", vehicle},
		{"map", mapPath},
		{"scenario", scenario},
	} {
		info, err := os.Stat(in.path)
		if err != nil {
			return fmt.Errorf("%s file: %w", in.what, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s file %s is a directory", in.what, in.path)
		}
	}
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("output file %s already exists", out)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("output file: %w", err)
	}
	return nil
}

func printSummary(cmd *cobra.Command, res *oracle.Result, out string) {
	w := cmd.OutOrStdout()
	triggered := res.Triggered()
	fmt.Fprintf(w, "Dispatched %d messages; %d violations, %d triggered\n",
		res.Dispatched, len(res.Violations), len(triggered))
	if res.Aborted {
		fmt.Fprintf(w, "Run stopped early by %s\n", res.AbortedBy)
	}

	counts := make(map[string]int)
	for _, v := range triggered {
		counts[v.Name()]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-14s %d\n", k, counts[k])
	}
	fmt.Fprintf(w, "Report written to %s\n", out)
}

func writePlots(dir string, active []oracle.Oracle) error {
	for _, a := range active {
		opt, ok := a.(*oracles.Optimal)
		if !ok {
			continue
		}
		c, ok := opt.Comparison()
		if !ok {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plot dir: %w", err)
		}
		if err := report.SaveTrajectoryPlot(c, filepath.Join(dir, "optimal_trajectory.png")); err != nil {
			return err
		}
		if err := report.SaveOccupancyChart(c, filepath.Join(dir, "optimal_occupancy.html")); err != nil {
			return err
		}
	}
	return nil
}

func persistRun(dbPath string, run *sqlite.Run, violations []oracle.Violation) (string, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := sqlite.NewRunStore(db.DB).Insert(run, violations); err != nil {
		return "", err
	}
	return run.RunID, nil
}
