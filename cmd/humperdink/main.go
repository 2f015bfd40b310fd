package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/san-kum/humperdink/internal/config"
	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/logging"
	"github.com/san-kum/humperdink/internal/storage"
)

// app holds the global flags and what they resolve to before a command
// runs.
type app struct {
	dataDir    string
	storeKind  string
	configFile string
	preset     string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

// main is the entry point for the humperdink CLI. It exits with status 1
// when the command fails.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "humperdink",
		Short:        "evolvable jointed creatures on a 2D physics ground",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.dataDir, "data", ".humperdink", "data directory for stored runs")
	flags.StringVar(&a.storeKind, "store", "file", "run store backend (file|sqlite)")
	flags.StringVar(&a.configFile, "config", "", "config file path (yaml)")
	flags.StringVar(&a.preset, "preset", "", "use preset configuration")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format (text|json)")

	rootCmd.AddCommand(
		a.runCmd(),
		a.liveCmd(),
		a.inspectCmd(),
		a.listCmd(),
		a.plotCmd(),
		a.analyzeCmd(),
		a.exportCSVCmd(),
		a.exportJSONCmd(),
		a.batchCmd(),
		a.randomCmd(),
		a.presetsCmd(),
	)

	return rootCmd
}

// setup resolves configuration in order: defaults or --preset, then
// --config on top, then global flags that were set explicitly. A relative
// store path is taken relative to --data.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if a.preset != "" {
		cfg = config.GetPreset(a.preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", a.preset, config.ListPresets())
		}
	}

	if a.configFile != "" {
		loaded, err := config.LoadFrom(a.configFile, cfg)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(a.dataDir, cfg.Store.Path)
	}
	if flags.Changed("store") {
		cfg.Store.Backend = a.storeKind
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.FromStrings(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) openStore(cmd *cobra.Command) (storage.Store, error) {
	st, err := storage.NewStore(a.cfg.Store.Backend, a.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Init(cmd.Context()); err != nil {
		return nil, fmt.Errorf("open %s store at %s: %w", a.cfg.Store.Backend, a.cfg.Store.Path, err)
	}
	return st, nil
}

func closeStore(st storage.Store, logger *slog.Logger) {
	if err := storage.CloseIfSupported(st); err != nil {
		logger.Warn("closing store", "err", err)
	}
}

// reportBuildError logs why a genome could not be turned into a creature.
func (a *app) reportBuildError(name string, err error) {
	var se *creature.StructureError
	if errors.As(err, &se) {
		a.logger.Error("genome structure mismatch",
			"genome", name,
			"path", se.Path,
			"declared", se.Declared,
			"actual", se.Actual)
		return
	}
	a.logger.Error("could not build creature", "genome", name, "err", err)
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }

// writeFile creates path and hands it to write, keeping the first error.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
