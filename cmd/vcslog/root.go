package main

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/vcslog"
	"github.com/hupe1980/vcslog/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     *vcslog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "vcslog",
		Short: "Per-path change history of VCS commits",
		Long: `vcslog records which paths every commit changed, relative to each of its
parents, and answers history and rename queries from the stored index.

Settings are read from vcslog.yaml in the storage directory (or --config),
VCSLOG_* environment variables and flags, in increasing precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: <dir>/vcslog.yaml)")
	flags.String("dir", ".vcslog", "storage directory")
	flags.StringSlice("root", nil, "repository root (repeatable)")
	flags.String("backend", "log", "rename map backend: log or sqlite")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")

	for key, name := range map[string]string{
		"dir":        "dir",
		"roots":      "root",
		"backend":    "backend",
		"log.level":  "log-level",
		"log.format": "log-format",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(
		newIngestCmd(a),
		newHistoryCmd(a),
		newRenameCmd(a),
		newKeysCmd(a),
		newStatsCmd(a),
		newCompactCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
	)
	return cmd
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	}

	a.cfg = cfg
	a.logger = vcslog.NewLogger(handler)
	return nil
}

func (a *app) options() ([]vcslog.Option, error) {
	opts, err := a.cfg.Options()
	if err != nil {
		return nil, err
	}
	return append(opts, vcslog.WithLogger(a.logger)), nil
}

// open opens the configured Log. The caller closes it.
func (a *app) open() (*vcslog.Log, error) {
	if len(a.cfg.Roots) == 0 {
		return nil, fmt.Errorf("no roots configured: pass --root or set roots in %s", config.FileName)
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	return vcslog.Open(a.cfg.Dir, a.cfg.Roots, opts...)
}

// withLog runs fn on the opened Log and closes it afterwards.
func (a *app) withLog(fn func(l *vcslog.Log) error) (err error) {
	l, err := a.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := l.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(l)
}
