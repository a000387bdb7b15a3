package main

import (
	"fmt"
	"strings"

	"github.com/hupe1980/vcslog"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var changedOnly bool
	cmd := &cobra.Command{
		Use:   "history <root> <path>",
		Short: "List the commits that touched a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLog(func(l *vcslog.Log) error {
				entries, err := l.History(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, e := range entries {
					if changedOnly && !e.Changed() {
						continue
					}
					kinds := make([]string, len(e.Kinds))
					for i, k := range e.Kinds {
						kinds[i] = k.String()
					}
					fmt.Fprintf(out, "%s\t%s\n", e.Commit, strings.Join(kinds, ","))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&changedOnly, "changed", false, "skip commits where the path matches every parent")
	return cmd
}

func newRenameCmd(a *app) *cobra.Command {
	var childSide bool
	cmd := &cobra.Command{
		Use:   "rename <parent> <child> <root> <path>",
		Short: "Find the rename of a path between a parent and a child commit",
		Long: `Looks up the rename edge recorded for the parent/child pair that involves
path. path is matched against the rename source unless --child is given.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLog(func(l *vcslog.Log) error {
				edge, found, err := l.FindRename(cmd.Context(), args[0], args[1], args[2], args[3], childSide)
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintln(cmd.OutOrStdout(), "no rename")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", edge.From, edge.To)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&childSide, "child", false, "match path against the rename target")
	return cmd
}

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "keys [paths|commits]",
		Short:     "List the interned paths of every root or the known commits",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"paths", "commits"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "paths"
			if len(args) == 1 {
				kind = args[0]
			}
			out := cmd.OutOrStdout()
			return a.withLog(func(l *vcslog.Log) error {
				if kind == "commits" {
					return l.Commits(func(root, hash string) bool {
						fmt.Fprintf(out, "%s\t%s\n", root, hash)
						return true
					})
				}
				for _, root := range l.Roots() {
					err := l.Paths(root, func(path string) bool {
						fmt.Fprintf(out, "%s\t%s\n", root, path)
						return true
					})
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entity counts of the storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLog(func(l *vcslog.Log) error {
				s, err := l.Stats()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "commits:         %d\n", s.Commits)
				fmt.Fprintf(out, "indexed commits: %d\n", s.IndexedCommits)
				fmt.Fprintf(out, "paths:           %d\n", s.Paths)
				if s.RenameEdges >= 0 {
					fmt.Fprintf(out, "rename edges:    %d\n", s.RenameEdges)
				}
				return nil
			})
		},
	}
}
