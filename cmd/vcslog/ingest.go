package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/hupe1980/vcslog"
	"github.com/hupe1980/vcslog/pathindex"
	"github.com/spf13/cobra"
)

// commitFile is the YAML input of the ingest command:
//
//	commits:
//	  - hash: 9f2c
//	    root: /src/repo
//	    parents: [41ab]
//	    changes:
//	      - renames:
//	          - {from: old.go, to: new.go}
//	        modified:
//	          - {path: main.go, type: modified}
//
// changes holds one entry per parent, or one entry for a root commit.
type commitFile struct {
	Commits []commitDoc `yaml:"commits"`
}

type commitDoc struct {
	Hash    string       `yaml:"hash"`
	Root    string       `yaml:"root"`
	Parents []string     `yaml:"parents"`
	Changes []changesDoc `yaml:"changes"`
}

type changesDoc struct {
	Renames  []renameDoc       `yaml:"renames"`
	Modified []modificationDoc `yaml:"modified"`
}

type renameDoc struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type modificationDoc struct {
	Path string `yaml:"path"`
	// Type is created, deleted, moved or modified (the default).
	Type string `yaml:"type"`
}

func parseCommits(data []byte) ([]vcslog.CommitRecord, error) {
	var f commitFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, err
	}

	records := make([]vcslog.CommitRecord, 0, len(f.Commits))
	for i, doc := range f.Commits {
		rec, err := doc.record()
		if err != nil {
			return nil, fmt.Errorf("commit %d (%s): %w", i, doc.Hash, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (d commitDoc) record() (vcslog.CommitRecord, error) {
	rec := vcslog.CommitRecord{
		Hash:    d.Hash,
		Root:    d.Root,
		Parents: d.Parents,
		Changes: make([]pathindex.ParentChanges, len(d.Changes)),
	}
	for i, c := range d.Changes {
		pc := &rec.Changes[i]
		for _, r := range c.Renames {
			pc.Renames = append(pc.Renames, pathindex.Rename{From: r.From, To: r.To})
		}
		for _, m := range c.Modified {
			t := pathindex.ChangeModified
			if m.Type != "" {
				var err error
				if t, err = pathindex.ParseChangeType(m.Type); err != nil {
					return rec, err
				}
			}
			pc.Modified = append(pc.Modified, pathindex.Modification{Path: m.Path, Type: t})
		}
	}
	return rec, nil
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.yaml>...",
		Short: "Index the commits listed in YAML files (- reads stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []vcslog.CommitRecord
			for _, name := range args {
				data, err := readInput(cmd, name)
				if err != nil {
					return err
				}
				recs, err := parseCommits(data)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				records = append(records, recs...)
			}

			return a.withLog(func(l *vcslog.Log) error {
				indexed, skipped := 0, 0
				for _, rec := range records {
					updated, err := l.IndexCommit(cmd.Context(), rec)
					if err != nil {
						return err
					}
					if updated {
						indexed++
					} else {
						skipped++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d commits, %d already indexed\n", indexed, skipped)
				return nil
			})
		},
	}
}
