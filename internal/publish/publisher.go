package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"wikimd/internal/logger"
)

// Upload is one file pushed by Publish.
type Upload struct {
	Path     string
	Message  string
	Optional bool
}

// Uploads lists the dataset files in the order they are committed: each
// train shard, then the card and the statistics.
func Uploads(name string, shards []string) []Upload {
	if name == "" {
		name = "Wikipedia Markdown"
	}
	ups := make([]Upload, 0, len(shards)+2)
	for i, shard := range shards {
		msg := fmt.Sprintf("Upload %s dataset", name)
		if len(shards) > 1 {
			msg = fmt.Sprintf("%s (part %d of %d)", msg, i+1, len(shards))
		}
		ups = append(ups, Upload{Path: shard, Message: msg})
	}
	return append(ups,
		Upload{Path: CardFile, Message: "Add dataset card with licensing info", Optional: true},
		Upload{Path: StatsFile, Message: "Add dataset statistics", Optional: true},
	)
}

type Publisher struct {
	Client  *HubClient
	RepoID  string
	Private bool
	Name    string
	Log     logger.Logger
}

// Publish creates the dataset repository when needed and uploads the
// exported files found in dir. It returns the paths that were committed.
func (p *Publisher) Publish(ctx context.Context, dir string) ([]string, error) {
	if p.RepoID == "" {
		return nil, errors.New("publish: repo id is empty")
	}
	log := p.Log
	if log == nil {
		log = logger.NewNop()
	}

	shards, err := TrainFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("read %s: %w", TrainPattern, fs.ErrNotExist)
	}

	if err := p.Client.CreateRepo(ctx, p.RepoID, p.Private); err != nil {
		return nil, fmt.Errorf("create repo %s: %w", p.RepoID, err)
	}
	log.Info("dataset repo ready", logger.String("repo", p.RepoID), logger.Bool("private", p.Private))

	var done []string
	for _, u := range Uploads(p.Name, shards) {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(u.Path)))
		if err != nil {
			if u.Optional && errors.Is(err, fs.ErrNotExist) {
				log.Warn("skipping missing file", logger.String("path", u.Path))
				continue
			}
			return done, fmt.Errorf("read %s: %w", u.Path, err)
		}
		if err := p.Client.UploadFile(ctx, p.RepoID, u.Path, data, u.Message); err != nil {
			return done, fmt.Errorf("upload %s: %w", u.Path, err)
		}
		log.Info("uploaded",
			logger.String("path", u.Path),
			logger.Int("bytes", len(data)),
		)
		done = append(done, u.Path)
	}
	return done, nil
}
