package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"wikimd/internal/ingest"
	"wikimd/internal/wikitext"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		trace  bool
		output string
		front  bool
	)
	cmd := &cobra.Command{
		Use:   "convert [file|-]",
		Short: "Convert one wikitext document to Markdown",
		Long: `Convert reads a wikitext document from a file, or from stdin when the
argument is "-" or missing, and writes the Markdown to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if front {
				if raw, err = ingest.StripFrontMatter(raw); err != nil {
					return fmt.Errorf("front matter: %w", err)
				}
			}

			conv := wikitext.NewConverter(wikitext.WithMaxInputBytes(a.cfg.Corpus.MaxInputBytes))
			var md string
			if trace {
				stderr := cmd.ErrOrStderr()
				md = conv.Trace(string(raw), func(stage, out string) {
					fmt.Fprintln(stderr, text.Bold.Sprint("== "+stage+" =="))
					fmt.Fprintln(stderr, out)
				})
			} else {
				md = conv.Convert(string(raw))
			}

			if output != "" {
				return os.WriteFile(output, []byte(md), 0o644)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), md)
			return err
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print the text after every stage to stderr")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write Markdown to this file instead of stdout")
	cmd.Flags().BoolVar(&front, "front-matter", true, "strip a leading YAML front matter block")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
