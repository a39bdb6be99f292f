// Package publish exports a converted corpus as a dataset directory and
// uploads it to a Hugging Face compatible hub.
package publish

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"

	"wikimd/internal/stats"
)

// Dataset directory layout. The train split is written as one or more
// JSON Lines shards named by ShardName.
const (
	DataDir       = "data"
	TrainPattern  = DataDir + "/train-*.jsonl"
	StatsFile     = "dataset_statistics.json"
	StatsTextFile = "dataset_statistics.txt"
	CardFile      = "README.md"
)

// DefaultShardBytes caps a train shard so that it fits a plain hub commit.
const DefaultShardBytes = 8 << 20

// ShardName returns the slash-separated path of shard i out of n.
func ShardName(i, n int) string {
	return fmt.Sprintf("%s/train-%05d-of-%05d.jsonl", DataDir, i, n)
}

// Row is one line of the train split.
type Row struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type exportOptions struct {
	shardBytes int
}

type ExportOption func(*exportOptions)

// WithShardBytes sets the size cap of each train shard. A row larger than
// the cap gets a shard of its own. Values <= 0 keep DefaultShardBytes.
func WithShardBytes(n int) ExportOption {
	return func(o *exportOptions) {
		if n > 0 {
			o.shardBytes = n
		}
	}
}

// ExportDataset writes rows, their statistics and a dataset card under dir.
// Train shards left by an earlier export are removed first.
func ExportDataset(dir string, rows []Row, s stats.Stats, card Card, opts ...ExportOption) error {
	o := exportOptions{shardBytes: DefaultShardBytes}
	for _, opt := range opts {
		opt(&o)
	}

	dataDir := filepath.Join(dir, DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("mkdir dataset: %w", err)
	}
	stale, err := filepath.Glob(filepath.Join(dataDir, "train*.jsonl"))
	if err != nil {
		return err
	}
	for _, p := range stale {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("remove stale shard: %w", err)
		}
	}

	shards, err := shardRows(rows, o.shardBytes)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	for i, data := range shards {
		name := ShardName(i, len(shards))
		if err := writeFile(filepath.Join(dir, filepath.FromSlash(name)), func(f *os.File) error {
			_, err := f.Write(data)
			return err
		}); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := writeFile(filepath.Join(dir, StatsFile), func(f *os.File) error {
		return stats.WriteJSON(f, s)
	}); err != nil {
		return fmt.Errorf("write %s: %w", StatsFile, err)
	}
	if err := writeFile(filepath.Join(dir, StatsTextFile), func(f *os.File) error {
		return stats.WriteText(f, s)
	}); err != nil {
		return fmt.Errorf("write %s: %w", StatsTextFile, err)
	}
	if err := writeFile(filepath.Join(dir, CardFile), func(f *os.File) error {
		return card.Write(f, s)
	}); err != nil {
		return fmt.Errorf("write %s: %w", CardFile, err)
	}
	return nil
}

// shardRows encodes rows as JSON Lines and cuts them into shards of at most
// limit bytes without splitting a row. There is always at least one shard.
func shardRows(rows []Row, limit int) ([][]byte, error) {
	var (
		shards  [][]byte
		current bytes.Buffer
		line    bytes.Buffer
	)
	enc := json.NewEncoder(&line)
	enc.SetEscapeHTML(false)
	for _, r := range rows {
		line.Reset()
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
		if current.Len() > 0 && current.Len()+line.Len() > limit {
			shards = append(shards, bytes.Clone(current.Bytes()))
			current.Reset()
		}
		current.Write(line.Bytes())
	}
	return append(shards, bytes.Clone(current.Bytes())), nil
}

// TrainFiles lists the train shards under dir as sorted slash-separated
// paths relative to dir.
func TrainFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filepath.FromSlash(TrainPattern)))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, DataDir+"/"+filepath.Base(m))
	}
	return files, nil
}

// ReadDataset loads every train shard under dir in shard order.
func ReadDataset(dir string) ([]Row, error) {
	files, err := TrainFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s has no %s: %w", dir, TrainPattern, fs.ErrNotExist)
	}
	var rows []Row
	for _, name := range files {
		part, err := ReadRows(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, err
		}
		rows = append(rows, part...)
	}
	return rows, nil
}

// writeFile writes through a temporary file and renames it into place.
func writeFile(path string, fill func(*os.File) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	err = fill(tmp)
	err = multierr.Append(err, tmp.Close())
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadRows loads one train shard written by ExportDataset.
func ReadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []Row
	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var r Row
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", path, len(rows)+1, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}
