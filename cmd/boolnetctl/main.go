package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"boolnet/internal/config"
	"boolnet/internal/errors"
	"boolnet/internal/logging"
	"boolnet/pkg/boolnet"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	root := newRootCmd(out)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

// cli carries the global flags and the configuration resolved from them.
type cli struct {
	out io.Writer

	configPath   string
	storeKind    string
	dbPath       string
	artifactsDir string
	logLevel     string
	logJSON      bool

	cfg *config.Config
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:   "boolnetctl",
		Short: "Enumerate candidate Boolean regulatory network topologies",
		Long: `boolnetctl loads a network definition (components, definite and optional
interactions, condition snippets and experiments), installs every candidate
topology and records the regulation-condition consistency map of each one.

Examples:
  boolnetctl show network.yaml
  boolnetctl enumerate network.yaml --workers 4
  boolnetctl topologies --latest --json
  boolnetctl export --latest --out exports`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logging.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to boolnet.toml (default: ./boolnet.toml when present)")
	flags.StringVar(&c.storeKind, "store", "", "store backend: memory|sqlite")
	flags.StringVar(&c.dbPath, "db-path", "", "sqlite database path")
	flags.StringVar(&c.artifactsDir, "artifacts-dir", "", "directory for session artifacts")
	flags.StringVar(&c.logLevel, "log-level", "", "debug|info|warn|error")
	flags.BoolVar(&c.logJSON, "log-json", false, "emit JSON logs")

	root.AddCommand(
		newEnumerateCmd(c),
		newSessionsCmd(c),
		newTopologiesCmd(c),
		newShowCmd(c),
		newExportCmd(c),
		newCountCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Kind = c.storeKind
	}
	if flags.Changed("db-path") {
		cfg.Store.Path = c.dbPath
	}
	if flags.Changed("artifacts-dir") {
		cfg.Artifacts.Dir = c.artifactsDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = c.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = c.logJSON
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Log.JSON, cfg.Log.Level); err != nil {
		return errors.Wrap(err, "initialize logger")
	}
	c.cfg = cfg
	return nil
}

func (c *cli) openClient(ctx context.Context) (*boolnet.Client, error) {
	client, err := boolnet.Open(ctx, boolnet.Options{
		StoreKind:    c.cfg.Store.Kind,
		DBPath:       c.cfg.Store.Path,
		ArtifactsDir: c.cfg.Artifacts.Dir,
	})
	if err != nil {
		return nil, err
	}
	logging.Logger.Debugw("client opened",
		logging.FieldStore, c.cfg.Store.Kind,
		"artifacts_dir", c.cfg.Artifacts.Dir,
	)
	return client, nil
}
