package main

import (
	"github.com/spf13/cobra"

	"wikimd/internal/serve"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the converter and the record index over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.Serve.Addr = addr
			}
			if noWatch {
				cfg.Serve.Watch = false
			}

			s, err := serve.New(cfg, a.log)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.ListenAndServe(cmd.Context(), cfg.Serve.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides serve.addr)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch the source directory")
	return cmd
}
