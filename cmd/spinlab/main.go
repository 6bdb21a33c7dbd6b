package main

import (
	"fmt"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/spinlab/internal/apparatus"
	"github.com/san-kum/spinlab/internal/config"
	"github.com/san-kum/spinlab/internal/experiment"
	"github.com/san-kum/spinlab/internal/sim"
	"github.com/san-kum/spinlab/internal/spin"
	"github.com/san-kum/spinlab/internal/storage"
	"github.com/san-kum/spinlab/internal/viz"
)

var (
	dataDir     string
	arrangement string
	source      string
	beamRate    float64
	dt          float64
	duration    float64
	seed        int64
	preparation string
	upFraction  float64
	blocking    []string
	configFile  string
	preset      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "spinlab",
		Short: "interactive Stern-Gerlach spin measurement lab",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to the live view when no command given.
			return runLive(cmd, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".spinlab", "data directory")

	addRunFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&arrangement, "arrangement", config.DefaultArrangement, "apparatus arrangement (Z, X, ZXX, ...)")
		cmd.Flags().StringVar(&source, "source", config.DefaultSource, "particle source (beam or single)")
		cmd.Flags().Float64Var(&beamRate, "rate", config.DefaultBeamRate, "beam emission rate (particles/s)")
		cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
		cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (run command)")
		cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
		cmd.Flags().StringVar(&preparation, "prepare", config.DefaultPreparation, "prepared spin (z+, z-, x+, custom)")
		cmd.Flags().Float64Var(&upFraction, "up-fraction", 1.0, "up probability for custom preparation")
		cmd.Flags().StringSliceVar(&blocking, "block", nil, "per-apparatus blocking (none, up, down)")
		cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
		cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless and save outcome statistics",
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	addRunFlags(rootCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfig merges preset, config file, and changed flags, in
// that order of increasing precedence.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (see: spinlab presets)", preset)
		}
		tmp := *p
		cfg = &tmp
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("arrangement") {
		cfg.Arrangement = arrangement
	}
	if flags.Changed("source") {
		cfg.Source = source
	}
	if flags.Changed("rate") {
		cfg.BeamRate = beamRate
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("prepare") {
		cfg.Preparation = preparation
	}
	if flags.Changed("up-fraction") {
		cfg.UpFraction = upFraction
	}
	if flags.Changed("block") {
		cfg.Blocking = blocking
	}
	cfg.Seed = seed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parsePreparation(cfg *config.Config) (spin.State, error) {
	switch cfg.Preparation {
	case "z+":
		return spin.FromOrientation(spin.ZPlus), nil
	case "z-":
		return spin.FromOrientation(spin.ZMinus), nil
	case "x+":
		return spin.FromOrientation(spin.XPlus), nil
	case "custom":
		return spin.FromProbabilities(cfg.UpFraction, 1-cfg.UpFraction)
	default:
		return spin.State{}, fmt.Errorf("unknown preparation %q", cfg.Preparation)
	}
}

func parseBlocking(s string) (apparatus.BlockingMode, error) {
	switch s {
	case "", "none":
		return apparatus.BlockNone, nil
	case "up":
		return apparatus.BlockUpExit, nil
	case "down":
		return apparatus.BlockDownExit, nil
	default:
		return apparatus.BlockNone, fmt.Errorf("unknown blocking mode %q", s)
	}
}

func buildOrchestrator(cfg *config.Config) (*sim.Orchestrator, error) {
	arr, err := experiment.Parse(cfg.Arrangement)
	if err != nil {
		return nil, err
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	o, err := sim.New(arr, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, err
	}

	prep, err := parsePreparation(cfg)
	if err != nil {
		return nil, err
	}
	o.SetPreparation(prep)

	if len(cfg.Blocking) > arr.Len() {
		return nil, fmt.Errorf("blocking lists %d apparatuses, arrangement has %d", len(cfg.Blocking), arr.Len())
	}
	for i, b := range cfg.Blocking {
		mode, err := parseBlocking(b)
		if err != nil {
			return nil, err
		}
		o.SetBlockingMode(i, mode)
	}

	o.SetBeamRate(cfg.BeamRate)
	if cfg.Source == "beam" {
		o.SetBeam(true)
	}
	return o, nil
}

// outcomeTally counts change notifications during a headless run.
type outcomeTally struct {
	measured int
	absorbed int
}

func (t *outcomeTally) OnMeasured(slot sim.Slot, stage int, up bool, result spin.State) {
	t.measured++
}

func (t *outcomeTally) OnAbsorbed(slot sim.Slot) {
	t.absorbed++
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	o, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	tally := &outcomeTally{}
	o.AddObserver(tally)

	// Single-shot mode fires one particle per simulated second.
	nextShot := 0.0
	steps := int(cfg.Duration / cfg.Dt)
	for i := 0; i < steps; i++ {
		if cfg.Source == "single" && o.Time() >= nextShot {
			o.ShootSingleParticle()
			nextShot += 1.0
		}
		o.Step(cfg.Dt)
	}

	arr := o.Configuration()
	stages := make([]storage.StageCounts, arr.Len())

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "stage\torient\tup\tdown\tup%%\tup rate\tdown rate\n")
	for i := 0; i < arr.Len(); i++ {
		app := o.Apparatus(i)
		up, down := app.Counts()
		pct := 0.0
		if up+down > 0 {
			pct = 100 * float64(up) / float64(up+down)
		}
		orient := "Z"
		if !app.ZOriented() {
			orient = "X"
		}
		stages[i] = storage.StageCounts{
			Orientation: orient,
			Up:          up,
			Down:        down,
			UpRate:      app.UpRate(),
			DownRate:    app.DownRate(),
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.1f\t%.2f/s\t%.2f/s\n",
			i, orient, up, down, pct, app.UpRate(), app.DownRate())
	}
	w.Flush()
	fmt.Printf("\n%d measured, %d absorbed, %d still in flight\n",
		tally.measured, tally.absorbed, o.ActiveCount())

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(storage.RunMetadata{
		Arrangement: cfg.Arrangement,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Source:      cfg.Source,
		BeamRate:    cfg.BeamRate,
		Preparation: cfg.Preparation,
		Stages:      stages,
	})
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved run %s\n", runID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	o, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	return viz.Run(o, cfg.Dt)
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no saved runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "id\tarrangement\tsource\tduration\tseed\n")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0fs\t%d\n", r.ID, r.Arrangement, r.Source, r.Duration, r.Seed)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "name\tarrangement\tsource\tpreparation\n")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, p.Arrangement, p.Source, p.Preparation)
	}
	return w.Flush()
}
