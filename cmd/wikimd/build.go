package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"wikimd/internal/build"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		force     bool
		chunkSize int
		outDir    string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Convert the source directory and export the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("chunk-size") {
				cfg.Build.ChunkSize = chunkSize
			}
			if outDir != "" {
				cfg.Build.OutputDir = outDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			res, err := (&build.Builder{Cfg: cfg, Log: a.log, Force: force}).Run(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendRows([]table.Row{
				{"Records", len(res.Records)},
				{"Chunks", len(res.Chunks)},
				{"Warnings", len(res.Warnings)},
				{"Characters", res.Stats.TotalCharacters},
				{"Output", cfg.Build.OutputDir},
				{"Up to date", res.Unchanged},
			})
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "export even when nothing changed")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "split records into heading chunks of at most this many characters")
	cmd.Flags().StringVar(&outDir, "out", "", "dataset output directory (overrides build.output_dir)")
	return cmd
}
