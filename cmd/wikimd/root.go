package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wikimd/internal/domain/config"
	"wikimd/internal/logger"
)

const version = "0.3.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	debug   bool

	cfg config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "wikimd",
		Short:         "Convert MediaWiki articles into Markdown datasets",
		Long:          "wikimd converts English and Tamil MediaWiki markup into clean Markdown and packages it as a dataset for language-model training.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "wikimd.yaml", "config file; defaults apply when it does not exist")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newConvertCmd(a),
		newBuildCmd(a),
		newStatsCmd(a),
		newRecordsCmd(a),
		newPublishCmd(a),
		newServeCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				cmd.Printf("wikimd %s\n", version)
			},
		},
	)
	return root
}

func (a *app) init() error {
	// .env is optional; it only supplies secrets such as the hub token.
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	lc := logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development}
	if a.debug {
		lc.Level = "debug"
		lc.Development = true
	}
	log, err := logger.New(lc)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}
