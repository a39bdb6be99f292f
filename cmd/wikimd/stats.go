package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"wikimd/internal/domain/corpus"
	"wikimd/internal/index"
	"wikimd/internal/publish"
	"wikimd/internal/stats"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		asJSON  bool
		fromDir string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print corpus statistics",
		Long: `Stats reports statistics over the indexed records, or over the rows of an
exported dataset when --dataset is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var docs []stats.Document
			var err error
			if fromDir != "" {
				docs, err = datasetDocuments(fromDir)
			} else {
				docs, err = indexDocuments(a.cfg.Build.IndexPath)
			}
			if err != nil {
				return err
			}

			s := stats.Compute(docs, stats.Info{
				Source:   a.cfg.Corpus.Source,
				Language: a.cfg.Corpus.Language,
				License:  a.cfg.Dataset.License,
			})
			if asJSON {
				return stats.WriteJSON(cmd.OutOrStdout(), s)
			}
			return stats.WriteText(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	cmd.Flags().StringVar(&fromDir, "dataset", "", "read an exported dataset directory instead of the index")
	return cmd
}

func indexDocuments(path string) ([]stats.Document, error) {
	st, err := index.Open(index.OpenOptions{Path: path})
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer st.Close()

	var docs []stats.Document
	err = st.Each(func(r corpus.Record) error {
		docs = append(docs, stats.Document{Title: r.Title, Text: r.Text, Metadata: r.Metadata})
		return nil
	})
	return docs, err
}

func datasetDocuments(dir string) ([]stats.Document, error) {
	rows, err := publish.ReadDataset(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s has no %s; run build first", dir, publish.TrainPattern)
	}
	if err != nil {
		return nil, err
	}
	docs := make([]stats.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, stats.Document{Title: r.Metadata["title"], Text: r.Text, Metadata: r.Metadata})
	}
	return docs, nil
}
