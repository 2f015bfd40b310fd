package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/humperdink/internal/analysis"
	"github.com/san-kum/humperdink/internal/sim"
	"github.com/san-kum/humperdink/internal/storage"
	"github.com/san-kum/humperdink/internal/viz"
)

// loadRun opens the store and reads one run and its samples. An empty id or
// "latest" picks the newest run.
func (a *app) loadRun(cmd *cobra.Command, args []string) (*storage.Run, []sim.Sample, error) {
	st, err := a.openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	defer closeStore(st, a.logger)

	ctx := cmd.Context()
	id := "latest"
	if len(args) > 0 {
		id = args[0]
	}
	if id == "latest" {
		if id, err = latestRun(ctx, st); err != nil {
			return nil, nil, err
		}
	}

	run, err := st.Load(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("no run with id %s", id)
		}
		return nil, nil, err
	}
	samples, err := st.LoadSamples(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, samples, nil
}

func latestRun(ctx context.Context, st storage.Store) (string, error) {
	runs, err := st.List(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no stored runs")
	}
	return runs[len(runs)-1].ID, nil
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st, a.logger)

			runs, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out(cmd), "no runs stored")
				return nil
			}

			w := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTIME\tSTEPS\tLIMBS\tDISTANCE")
			for _, r := range runs {
				dist := "-"
				if d, ok := r.Metrics["distance"]; ok {
					dist = fmt.Sprintf("%.2f", d)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.Name, r.Timestamp.Local().Format("2006-01-02 15:04:05"),
					r.Steps, r.Limbs, dist)
			}
			return w.Flush()
		},
	}
}

func (a *app) plotCmd() *cobra.Command {
	var (
		width, height int
		svg           string
	)

	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the root trajectory of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, samples, err := a.loadRun(cmd, args)
			if err != nil {
				return err
			}
			if len(samples) == 0 {
				return fmt.Errorf("run %s has no samples", run.ID)
			}
			fmt.Fprintf(out(cmd), "%s (%s), %d steps\n\n", run.Name, run.ID, run.Steps)
			fmt.Fprint(out(cmd), viz.PlotRoot(samples, width, height))

			if svg != "" {
				return writeFile(svg, func(f io.Writer) error {
					return viz.TrajectorySVG(f, samples, 800, 400, viz.ThemeOcean)
				})
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 70, "plot width")
	cmd.Flags().IntVar(&height, "height", 12, "plot height")
	cmd.Flags().StringVar(&svg, "svg", "", "also write the root path as SVG to this file")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	var (
		phase        bool
		divergence   bool
		perturbation float64
	)

	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "report gait and metrics of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, samples, err := a.loadRun(cmd, args)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "Run:    %s\n", run.ID)
			fmt.Fprintf(w, "Genome: %s (%d limbs)\n", run.Name, run.Limbs)
			fmt.Fprintf(w, "Steps:  %d (dt=%.4f)\n", run.Steps, run.Dt)

			names := make([]string, 0, len(run.Metrics))
			for k := range run.Metrics {
				names = append(names, k)
			}
			sort.Strings(names)
			fmt.Fprintln(w, "\nMetrics:")
			for _, k := range names {
				fmt.Fprintf(w, "  %-14s %.4f\n", k, run.Metrics[k])
			}
			for _, e := range run.Errors {
				fmt.Fprintf(w, "  error: %s\n", e)
			}

			g := analysis.AnalyzeGait(samples)
			fmt.Fprintln(w, "\nGait:")
			fmt.Fprintf(w, "  frequency      %.4f Hz\n", g.Frequency)
			fmt.Fprintf(w, "  strides        %d\n", g.Strides)
			if g.Strides >= 2 {
				fmt.Fprintf(w, "  stride period  %.4f s\n", g.StridePeriod)
				fmt.Fprintf(w, "  stride length  %.4f\n", g.StrideLength)
			}

			if phase {
				points := analysis.Trajectory(samples, analysis.HeightPhase)
				fmt.Fprintln(w, "\nPhase portrait (height vs vertical velocity):")
				fmt.Fprintln(w, analysis.TrajectoryToASCII(points, 60, 20))
			}

			if divergence {
				if run.Genome == nil {
					return fmt.Errorf("run %s has no stored genome", run.ID)
				}
				params, err := a.cfg.CreatureParams()
				if err != nil {
					return err
				}
				env := a.cfg.Environment()
				env.Dt = run.Dt
				lambda, err := analysis.Divergence(cmd.Context(), env, params, run.Genome, max(run.Steps, 1), perturbation)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "\nDivergence exponent: %.4f /s", lambda)
				switch {
				case math.IsNaN(lambda):
					fmt.Fprintln(w, " (undefined)")
				case lambda > 0:
					fmt.Fprintln(w, " (sensitive to initial conditions)")
				default:
					fmt.Fprintln(w, " (stable)")
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&phase, "phase", false, "draw the height phase portrait")
	cmd.Flags().BoolVar(&divergence, "divergence", false, "re-simulate and estimate the divergence exponent")
	cmd.Flags().Float64Var(&perturbation, "perturbation", 1e-3, "initial offset for --divergence")
	return cmd
}

func (a *app) exportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a stored run's samples as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, samples, err := a.loadRun(cmd, args)
			if err != nil {
				return err
			}
			return storage.ExportCSV(out(cmd), samples)
		},
	}
}

func (a *app) exportJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a stored run and its samples as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, samples, err := a.loadRun(cmd, args)
			if err != nil {
				return err
			}
			return storage.ExportJSON(out(cmd), run, samples)
		},
	}
}
