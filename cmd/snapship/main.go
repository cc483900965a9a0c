package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/snapship/internal/adapters/log"
	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/cliconfig"
)

const longHelp = `Take periodic full snapshots of a dataset and report on the snapshot corpus.

Each tick writes the complete entity collection to a timestamped JSON file.
A tick that finds the previous snapshot still running is skipped; after
too many consecutive skips the scheduler stops and snapship exits non-zero.`

var exampleUsage = strings.TrimSpace(`
  snapship seed --db students.db
  snapship run --db students.db --interval 5s --backup-dir ./backups
  snapship run --source-file students.json --once
  snapship report ./backups --format json
  snapship report --watch
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the configuration shared by all subcommands.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
}

// load applies the config file, then SNAPSHIP_* env, to every setting whose
// flag was not given, validates the result and builds the logger.
func (c *cli) load(cmd *cobra.Command) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	} else if c.cfgPath != "" {
		return fmt.Errorf("config file %s not found", c.cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	l, err := cliconfig.NewLogger(c.cfg, os.Stderr)
	if err != nil {
		return err
	}
	c.log = l
	c.log.Debug().
		Str("config_file", cfgFile).
		Interface("config", c.cfg).
		Str("os", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("configuration")
	return nil
}

func (c *cli) logger() *logAdapter.ZerologAdapter {
	return logAdapter.NewZerologAdapterWithLogger(c.log)
}

func newRootCmd() *cobra.Command {
	c := &cli{
		cfg: cliconfig.DefaultConfig(),
		log: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}

	root := &cobra.Command{
		Use:           "snapship",
		Short:         "Periodic dataset snapshots with overlap backpressure",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.snapship/config.toml)")
	pf.StringVar(&c.cfg.BackupDir, "backup-dir", c.cfg.BackupDir, "directory snapshots are written to and read from")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&c.cfg.LogFormat, "log-format", c.cfg.LogFormat, "log format (console or json)")
	pf.BoolVar(&c.cfg.Verbose, "verbose", false, "log debug details")
	pf.BoolVar(&c.cfg.Quiet, "quiet", false, "disable logging")

	root.AddCommand(newRunCmd(c), newReportCmd(c), newSeedCmd(c))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "snapship: %v\n", err)
		if app.IsBackpressure(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
