package main

import (
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"wikimd/internal/index"
)

func newRecordsCmd(a *app) *cobra.Command {
	var (
		sortBy string
		page   int
		size   int
	)
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List indexed records",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := index.ParseSortMode(sortBy)
			if err != nil {
				return err
			}
			st, err := index.Open(index.OpenOptions{Path: a.cfg.Build.IndexPath})
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.List(index.ListOptions{Sort: mode, Page: page, Size: size})
			if err != nil {
				return err
			}
			total, err := st.Count()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Slug", "Title", "Chars", "Source"})
			for _, r := range recs {
				t.AppendRow(table.Row{r.Slug, r.Title, humanize.Comma(int64(r.Chars)), r.SourcePath})
			}
			t.AppendFooter(table.Row{"", "", "Total", humanize.Comma(int64(total))})
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "slug", "order: slug or size")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 20, "records per page (max 100)")
	return cmd
}
