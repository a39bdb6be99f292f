package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"wikimd/internal/logger"
	"wikimd/internal/publish"
)

func newPublishCmd(a *app) *cobra.Command {
	var (
		dir     string
		repoID  string
		private bool
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the exported dataset to the hub",
		Long: `Publish creates the dataset repository if needed and uploads the train
split, dataset card and statistics. The access token is read from the
environment variable named by hub.token_env, which may come from a .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			hub := a.cfg.Hub
			if repoID != "" {
				hub.RepoID = repoID
			}
			if cmd.Flags().Changed("private") {
				hub.Private = private
			}
			if dir == "" {
				dir = a.cfg.Build.OutputDir
			}
			if hub.RepoID == "" {
				return fmt.Errorf("no repository: set hub.repo_id or pass --repo")
			}
			token := hub.Token()
			if token == "" {
				return fmt.Errorf("%w: export %s or add it to .env", publish.ErrMissingToken, hub.TokenEnv)
			}

			p := &publish.Publisher{
				Client: &publish.HubClient{
					Endpoint:   hub.Endpoint,
					Token:      token,
					HTTPClient: &http.Client{Timeout: 10 * time.Minute},
					MaxRetries: hub.MaxRetries,
				},
				RepoID:  hub.RepoID,
				Private: hub.Private,
				Name:    a.cfg.Dataset.PrettyName,
				Log:     a.log,
			}
			done, err := p.Publish(cmd.Context(), dir)
			if err != nil {
				return err
			}
			a.log.Info("published", logger.String("repo", hub.RepoID), logger.Strings("files", done))
			cmd.Printf("published %d files to %s/datasets/%s\n", len(done), hub.Endpoint, hub.RepoID)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "dataset directory (defaults to build.output_dir)")
	cmd.Flags().StringVar(&repoID, "repo", "", "repository id such as user/tamil-wikipedia")
	cmd.Flags().BoolVar(&private, "private", false, "create the repository as private")
	return cmd
}
