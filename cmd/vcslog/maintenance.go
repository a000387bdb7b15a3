package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/vcslog"
	"github.com/hupe1980/vcslog/internal/config"
	"github.com/spf13/cobra"
)

func newCompactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the storage logs without stale records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLog(func(l *vcslog.Log) error {
				s, err := l.Compact(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "compacted %s -> %s in %s\n",
					humanize.IBytes(uint64(s.BytesBefore)), humanize.IBytes(uint64(s.BytesAfter)), s.Duration)
				return nil
			})
		},
	}
}

// addTargetFlags registers the local-path shortcut shared by backup and restore.
func addTargetFlags(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "path", "", "use a local directory as backup target")
}

func (a *app) backupConfig(cmd *cobra.Command, path string) config.BackupConfig {
	c := a.cfg.Backup
	if cmd.Flags().Changed("path") {
		c.Target = config.TargetLocal
		c.Path = path
	}
	return c
}

func newBackupCmd(a *app) *cobra.Command {
	var (
		path  string
		prune bool
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload a snapshot of the storage to the backup target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, a.backupConfig(cmd, path))
			if err != nil {
				return err
			}
			return a.withLog(func(l *vcslog.Log) error {
				m, err := l.Backup(ctx, store)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "generation %s: %d files, %s\n",
					m.Generation, len(m.Files), humanize.IBytes(uint64(m.TotalSize())))
				if !prune {
					return nil
				}
				n, err := vcslog.Prune(ctx, store)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d blobs\n", n)
				return nil
			})
		},
	}
	addTargetFlags(cmd, &path)
	cmd.Flags().BoolVar(&prune, "prune", false, "delete older generations after the upload")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Download the latest snapshot into the (empty) storage directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, a.backupConfig(cmd, path))
			if err != nil {
				return err
			}
			opts, err := a.options()
			if err != nil {
				return err
			}
			m, err := vcslog.Restore(ctx, store, a.cfg.Dir, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored generation %s: %d files into %s\n",
				m.Generation, len(m.Files), a.cfg.Dir)
			return nil
		},
	}
	addTargetFlags(cmd, &path)
	return cmd
}
