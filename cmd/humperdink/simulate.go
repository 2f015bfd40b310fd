package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/humperdink/internal/config"
	"github.com/san-kum/humperdink/internal/environment"
	"github.com/san-kum/humperdink/internal/genome"
	"github.com/san-kum/humperdink/internal/metrics"
	"github.com/san-kum/humperdink/internal/sim"
	"github.com/san-kum/humperdink/internal/storage"
	"github.com/san-kum/humperdink/internal/viz"
)

// readGenome resolves a genome argument: a file path, a genome preset name,
// or "-" (or nothing) for JSON on stdin.
func readGenome(cmd *cobra.Command, args []string) (string, *genome.Node, error) {
	if len(args) == 0 || args[0] == "-" {
		root, err := genome.Decode(cmd.InOrStdin(), genome.FormatJSON)
		if err != nil {
			return "", nil, fmt.Errorf("decode genome from stdin: %w", err)
		}
		if err := genome.Validate(root); err != nil {
			return "", nil, fmt.Errorf("genome from stdin: %w", err)
		}
		return "stdin", root, nil
	}
	return resolveGenome(args[0])
}

func resolveGenome(arg string) (string, *genome.Node, error) {
	if _, err := os.Stat(arg); err == nil {
		root, err := genome.Load(arg)
		if err != nil {
			return "", nil, err
		}
		return strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg)), root, nil
	}
	if root := genome.GetPreset(arg); root != nil {
		return arg, root, nil
	}
	return "", nil, fmt.Errorf("no genome file or preset named %q (presets: %v)", arg, genome.ListPresets())
}

func (a *app) runCmd() *cobra.Command {
	var (
		iterations int
		quiet      bool
		noSave     bool
	)

	cmd := &cobra.Command{
		Use:   "run [genome]",
		Short: "run a creature headless and print its root position every step",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, root, err := readGenome(cmd, args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("iterations") {
				a.cfg.Steps = iterations
			}
			return a.run(cmd, name, root, quiet, !noSave)
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "i", config.DefaultSteps, "steps to simulate (0 runs until interrupted)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print positions")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

func (a *app) run(cmd *cobra.Command, name string, root *genome.Node, quiet, save bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	params, err := a.cfg.CreatureParams()
	if err != nil {
		return err
	}

	world := environment.New(a.cfg.Environment())
	defer world.Destroy()

	tree, err := world.Spawn(root, params)
	if err != nil {
		a.reportBuildError(name, err)
		return err
	}

	s := sim.New(world, tree)
	s.SetLogger(a.logger)
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}
	if !quiet {
		w := out(cmd)
		s.AddObserver(sim.ObserverFunc(func(smp sim.Sample) {
			fmt.Fprintf(w, "(%f, %f)\n", smp.Root.X, smp.Root.Y)
		}))
	}

	steps := a.cfg.Steps
	if steps == 0 {
		steps = math.MaxInt32
	}

	a.logger.Info("simulating", "genome", name, "limbs", tree.NumLimbs(), "steps", a.cfg.Steps)
	start := time.Now()

	result, err := s.Run(ctx, sim.Config{
		Steps:         steps,
		Every:         a.cfg.Record.Every,
		Limbs:         a.cfg.Record.Limbs,
		ValidateState: true,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	for _, e := range result.Errors {
		a.logger.Warn("simulation stopped", "err", e)
	}

	a.logger.Info("simulation finished",
		"steps", result.StepsTaken,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"distance", result.Metrics["distance"])

	if !save {
		return nil
	}

	st, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st, a.logger)

	run := storage.NewRun(name, root, a.cfg.Dt, result)
	// Save even after an interrupt; the signal context is already done.
	id, err := st.Save(context.WithoutCancel(ctx), run, result.Samples)
	if err != nil {
		return err
	}
	a.logger.Info("run saved", "id", id, "store", a.cfg.Store.Backend)
	return nil
}

func (a *app) liveCmd() *cobra.Command {
	var speed int

	cmd := &cobra.Command{
		Use:   "live [genome]",
		Short: "watch a creature in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, root, err := readGenome(cmd, args)
			if err != nil {
				return err
			}
			params, err := a.cfg.CreatureParams()
			if err != nil {
				return err
			}

			world := environment.New(a.cfg.Environment())
			defer world.Destroy()

			m, err := viz.NewModel(world, root, params, name, speed)
			if err != nil {
				a.reportBuildError(name, err)
				return err
			}

			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().IntVarP(&speed, "speed", "s", 1, "simulation steps per frame")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	var (
		steps int
		svg   string
	)

	cmd := &cobra.Command{
		Use:   "inspect [genome]",
		Short: "build a creature and print its debug report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, root, err := readGenome(cmd, args)
			if err != nil {
				return err
			}
			params, err := a.cfg.CreatureParams()
			if err != nil {
				return err
			}

			world := environment.New(a.cfg.Environment())
			defer world.Destroy()

			tree, err := world.Spawn(root, params)
			if err != nil {
				a.reportBuildError(name, err)
				return err
			}
			if err := world.StepN(steps); err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "Genome: %s (%d nodes, depth %d)\n", name, root.Count(), root.Depth())
			fmt.Fprintf(w, "Time: %.4fs, Ground: %.1f\n", world.Time(), world.GroundTop())
			if err := tree.Debug(w); err != nil {
				return err
			}
			frame := viz.DrawFrame(tree, world.GroundTop(), 60, 20, 1)
			fmt.Fprintln(w)
			fmt.Fprint(w, frame.String())

			if svg != "" {
				return writeFile(svg, func(f io.Writer) error {
					return frame.WriteSVG(f, 4, viz.ThemeMinimal)
				})
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "steps to simulate before reporting")
	cmd.Flags().StringVar(&svg, "svg", "", "also write the frame as SVG to this file")
	return cmd
}

func (a *app) batchCmd() *cobra.Command {
	var (
		iterations int
		random     int
		seed       int64
		metric     string
		limit      int
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "batch [genome...]",
		Short: "evaluate genomes concurrently and rank them",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := make([]sim.Job, 0, len(args)+random)
			for _, arg := range args {
				name, root, err := resolveGenome(arg)
				if err != nil {
					return err
				}
				jobs = append(jobs, sim.Job{Name: name, Genome: root})
			}

			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < random; i++ {
				jobs = append(jobs, sim.Job{
					Name:   fmt.Sprintf("random-%d", i),
					Genome: genome.Random(rng, genome.MaxNodes),
				})
			}
			if len(jobs) == 0 {
				return fmt.Errorf("no genomes to evaluate")
			}
			if _, err := metrics.ByName(metric); err != nil {
				return err
			}

			params, err := a.cfg.CreatureParams()
			if err != nil {
				return err
			}
			steps := a.cfg.Steps
			if cmd.Flags().Changed("iterations") {
				steps = iterations
			}

			b := &sim.Batch{
				World:      a.cfg.Environment(),
				Creature:   params,
				Config:     sim.Config{Steps: steps, Every: a.cfg.Record.Every, ValidateState: true},
				NewMetrics: metrics.Default,
				Limit:      limit,
			}

			a.logger.Info("evaluating", "genomes", len(jobs), "steps", steps)
			results, err := b.Run(cmd.Context(), jobs)
			if err != nil {
				return err
			}

			ranked := sim.Rank(results, metric)

			w := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "RANK\tGENOME\t%s\tSTEPS\tSTATUS\n", strings.ToUpper(metric))
			for i, r := range ranked {
				status, value, taken := "ok", "-", 0
				if r.Err != nil {
					status = r.Err.Error()
				}
				if r.Result != nil {
					taken = r.Result.StepsTaken
					if v, ok := r.Result.Metrics[metric]; ok && r.Err == nil {
						value = fmt.Sprintf("%.3f", v)
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", i+1, r.Name, value, taken, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if !save {
				return nil
			}
			return a.saveBatch(cmd, jobs, results)
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "i", config.DefaultSteps, "steps per genome")
	cmd.Flags().IntVar(&random, "random", 0, "add this many random genomes")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringVar(&metric, "metric", "distance", "metric to rank by")
	cmd.Flags().IntVar(&limit, "jobs", 0, "concurrent simulations (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&save, "save", false, "store every successful run")
	return cmd
}

func (a *app) saveBatch(cmd *cobra.Command, jobs []sim.Job, results []sim.BatchResult) error {
	st, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st, a.logger)

	for i, r := range results {
		if r.Err != nil || r.Result == nil {
			continue
		}
		run := storage.NewRun(r.Name, jobs[i].Genome, a.cfg.Dt, r.Result)
		if _, err := st.Save(cmd.Context(), run, r.Result.Samples); err != nil {
			return err
		}
		a.logger.Debug("run saved", "id", run.ID, "genome", r.Name)
	}
	return nil
}

func (a *app) randomCmd() *cobra.Command {
	var (
		seed     int64
		maxNodes int
		format   string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "random",
		Short: "print a random valid genome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxNodes < 1 || maxNodes > genome.MaxNodes {
				return fmt.Errorf("max-nodes must be between 1 and %d, got %d", genome.MaxNodes, maxNodes)
			}
			root := genome.Random(rand.New(rand.NewSource(seed)), maxNodes)

			if output != "" {
				return genome.Save(output, root)
			}
			return genome.Encode(out(cmd), root, genome.Format(format))
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", genome.MaxNodes, "maximum number of limbs")
	cmd.Flags().StringVar(&format, "format", string(genome.FormatJSON), "output format (json|yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func (a *app) presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list config and genome presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := out(cmd)
			fmt.Fprintln(w, "config presets:")
			for _, p := range config.ListPresets() {
				fmt.Fprintf(w, "  %s\n", p)
			}
			fmt.Fprintln(w, "genome presets:")
			for _, p := range genome.ListPresets() {
				fmt.Fprintf(w, "  %s (%d limbs)\n", p, genome.GetPreset(p).Count())
			}
			fmt.Fprintln(w, "metrics:")
			for _, m := range metrics.List() {
				fmt.Fprintf(w, "  %s\n", m)
			}
			return nil
		},
	}
}
