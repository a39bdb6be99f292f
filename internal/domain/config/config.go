package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	domainerr "wikimd/internal/domain/errors"
)

// maxShardBytes is the largest file a hub takes in a plain commit.
const maxShardBytes = 10 << 20

type Config struct {
	Corpus  CorpusConfig  `yaml:"corpus"`
	Build   BuildConfig   `yaml:"build"`
	Dataset DatasetConfig `yaml:"dataset"`
	Hub     HubConfig     `yaml:"hub"`
	Serve   ServeConfig   `yaml:"serve"`
	Log     LogConfig     `yaml:"log"`
}

// CorpusConfig says where the wikitext sources live and how they are read.
type CorpusConfig struct {
	SourceDir  string   `yaml:"source_dir"`
	Extensions []string `yaml:"extensions"`

	// Workers bounds the ingest pool; 0 means GOMAXPROCS.
	Workers       int    `yaml:"workers"`
	MaxInputBytes int    `yaml:"max_input_bytes"`
	Source        string `yaml:"source"`
	Language      string `yaml:"language"`
}

type BuildConfig struct {
	IndexPath string `yaml:"index_path"`
	OutputDir string `yaml:"output_dir"`

	// ChunkSize enables chunked export when positive.
	ChunkSize int `yaml:"chunk_size"`
	// ShardBytes caps each train shard; 0 uses the exporter default.
	ShardBytes int `yaml:"shard_bytes"`
}

type DatasetConfig struct {
	Name        string `yaml:"name"`
	PrettyName  string `yaml:"pretty_name"`
	Description string `yaml:"description"`
	License     string `yaml:"license"`
	Language    string `yaml:"language"`
}

type HubConfig struct {
	Endpoint string `yaml:"endpoint"`
	RepoID   string `yaml:"repo_id"`
	Private  bool   `yaml:"private"`

	// TokenEnv names the environment variable holding the access token.
	TokenEnv   string `yaml:"token_env"`
	MaxRetries int    `yaml:"max_retries"`
}

type ServeConfig struct {
	Addr  string `yaml:"addr"`
	Watch bool   `yaml:"watch"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		Corpus: CorpusConfig{
			SourceDir:     "source",
			Extensions:    []string{".wiki", ".wikitext", ".mediawiki", ".txt"},
			MaxInputBytes: 8 << 20,
			Source:        "wikipedia",
			Language:      "ta",
		},
		Build: BuildConfig{
			IndexPath: ".wikimd/index.db",
			OutputDir: "dataset",
		},
		Dataset: DatasetConfig{
			Name:        "wikipedia-markdown",
			PrettyName:  "Wikipedia Markdown",
			Description: "Wikipedia articles converted from wikitext to Markdown for language model training.",
			License:     "cc-by-sa-4.0",
			Language:    "ta",
		},
		Hub: HubConfig{
			Endpoint:   "https://huggingface.co",
			TokenEnv:   "HF_TOKEN",
			MaxRetries: 3,
		},
		Serve: ServeConfig{
			Addr:  ":8080",
			Watch: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Corpus.SourceDir) == "" {
		ve.Add("corpus.source_dir", "must not be empty")
	}
	if len(c.Corpus.Extensions) == 0 {
		ve.Add("corpus.extensions", "must list at least one extension")
	}
	for _, ext := range c.Corpus.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ve.Addf("corpus.extensions", "%q must start with '.'", ext)
		}
	}
	if c.Corpus.Workers < 0 {
		ve.Add("corpus.workers", "must not be negative")
	}
	if c.Corpus.MaxInputBytes < 0 {
		ve.Add("corpus.max_input_bytes", "must not be negative")
	}

	if strings.TrimSpace(c.Build.IndexPath) == "" {
		ve.Add("build.index_path", "must not be empty")
	}
	if strings.TrimSpace(c.Build.OutputDir) == "" {
		ve.Add("build.output_dir", "must not be empty")
	}
	if c.Build.ChunkSize < 0 {
		ve.Add("build.chunk_size", "must not be negative")
	}
	if c.Build.ShardBytes < 0 || c.Build.ShardBytes > maxShardBytes {
		ve.Addf("build.shard_bytes", "must be between 0 and %d", maxShardBytes)
	}

	if strings.TrimSpace(c.Dataset.Name) == "" {
		ve.Add("dataset.name", "must not be empty")
	}

	if !isValidAbsURL(c.Hub.Endpoint) {
		ve.Add("hub.endpoint", "must be a valid absolute URL")
	}
	if id := strings.TrimSpace(c.Hub.RepoID); id != "" && strings.Count(id, "/") != 1 {
		ve.Add("hub.repo_id", "must look like 'owner/name'")
	}
	if c.Hub.MaxRetries < 0 {
		ve.Add("hub.max_retries", "must not be negative")
	}

	if strings.TrimSpace(c.Serve.Addr) == "" {
		ve.Add("serve.addr", "must not be empty")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("log.level", "must be one of debug, info, warn, error")
	}

	return ve.Err()
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Load reads a YAML file over Default and validates the result. Keys missing
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil && os.IsNotExist(err) {
		cfg = Default()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Token returns the hub access token from the environment.
func (h HubConfig) Token() string {
	return strings.TrimSpace(os.Getenv(h.TokenEnv))
}
