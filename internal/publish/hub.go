package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
)

var (
	ErrMissingToken = errors.New("hub token is not set")
	ErrTooLarge     = errors.New("file too large for an inline commit")
)

// MaxInlineBytes is the largest file the hub accepts in a commit without
// large file storage. ExportDataset shards stay below it.
const MaxInlineBytes = 10 << 20

// HubError is a non-success response from the hub.
type HubError struct {
	Status int
	Body   string
}

func (e *HubError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("hub: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("hub: %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *HubError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// HubClient talks to the dataset endpoints of a Hugging Face compatible hub.
type HubClient struct {
	Endpoint   string
	Token      string
	HTTPClient *http.Client
	MaxRetries int
	// InitialInterval is the first retry delay. Zero uses one second.
	InitialInterval time.Duration
}

const maxErrorBody = 4 << 10

// CreateRepo creates a dataset repository. An existing repository is not an
// error.
func (c *HubClient) CreateRepo(ctx context.Context, repoID string, private bool) error {
	org, name := splitRepoID(repoID)
	payload := map[string]any{
		"type":    "dataset",
		"name":    name,
		"private": private,
	}
	if org != "" {
		payload["organization"] = org
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = c.do(ctx, http.MethodPost, "/api/repos/create", "application/json", body)
	var he *HubError
	if errors.As(err, &he) && he.Status == http.StatusConflict {
		return nil
	}
	return err
}

// UploadFile commits content to pathInRepo on the main branch. Content over
// MaxInlineBytes is rejected with ErrTooLarge before anything is sent.
func (c *HubClient) UploadFile(ctx context.Context, repoID, pathInRepo string, content []byte, message string) error {
	if len(content) > MaxInlineBytes {
		return fmt.Errorf("%s is %s: %w", pathInRepo, humanize.IBytes(uint64(len(content))), ErrTooLarge)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	lines := []any{
		map[string]any{
			"key":   "header",
			"value": map[string]string{"summary": message},
		},
		map[string]any{
			"key": "file",
			"value": map[string]string{
				"path":     pathInRepo,
				"encoding": "base64",
				"content":  base64.StdEncoding.EncodeToString(content),
			},
		},
	}
	for _, l := range lines {
		if err := enc.Encode(l); err != nil {
			return err
		}
	}

	path := "/api/datasets/" + escapeRepoID(repoID) + "/commit/main"
	return c.do(ctx, http.MethodPost, path, "application/x-ndjson", buf.Bytes())
}

func (c *HubClient) do(ctx context.Context, method, path, contentType string, body []byte) error {
	if c.Token == "" {
		return ErrMissingToken
	}
	endpoint := strings.TrimRight(c.Endpoint, "/") + path

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		he := &HubError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		if he.Temporary() {
			return he
		}
		return backoff.Permanent(he)
	}
	return backoff.Retry(op, c.backOff(ctx))
}

func (c *HubClient) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		eb.InitialInterval = c.InitialInterval
	}
	eb.MaxElapsedTime = 0
	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

func (c *HubClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func splitRepoID(id string) (org, name string) {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

func escapeRepoID(id string) string {
	org, name := splitRepoID(id)
	if org == "" {
		return url.PathEscape(name)
	}
	return url.PathEscape(org) + "/" + url.PathEscape(name)
}
