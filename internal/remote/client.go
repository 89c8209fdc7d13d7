package remote

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

	"github.com/bassista/go_gym/internal/config"
	"github.com/bassista/go_gym/internal/logger"
	"github.com/bassista/go_gym/internal/metrics"
	"github.com/bassista/go_gym/internal/repository"
	"github.com/containerd/errdefs"
	"github.com/sirupsen/logrus"
)

const maxErrorBody = 512

// Snapshot is the remote document together with the revision it was read at.
type Snapshot struct {
	Document repository.ProgressDocument
	// Revision is the blob sha; empty when the document does not exist yet.
	Revision string
}

// Client reads and writes one JSON document through a repository contents API.
type Client struct {
	cfg     config.RemoteConfig
	http    *http.Client
	metrics *metrics.Manager
	log     *logrus.Entry
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// NewClient creates a client for the configured repository file.
func NewClient(cfg config.RemoteConfig, m *metrics.Manager) (*Client, error) {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout}, m)
}

// NewClientWithHTTP is NewClient with a caller-supplied http.Client.
func NewClientWithHTTP(cfg config.RemoteConfig, httpClient *http.Client, m *metrics.Manager) (*Client, error) {
	if !cfg.IsConfigured() {
		return nil, errors.New("remote store is not configured")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("remote timeout must be positive")
	}
	if httpClient == nil {
		return nil, errors.New("http client is nil")
	}
	if m == nil {
		return nil, errors.New("metrics manager is nil")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.github.com"
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		metrics: m,
		log:     logger.WithComponent("remote"),
	}, nil
}

// Fetch reads the current document and its revision.
// When the file does not exist it returns an empty Snapshot and ErrNotFound.
// Remote content that is not valid JSON is treated as empty history.
func (c *Client) Fetch(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	snap, err := c.fetch(ctx)
	c.observe("fetch", start, err)
	return snap, err
}

func (c *Client) fetch(ctx context.Context) (Snapshot, error) {
	empty := Snapshot{Document: repository.NewProgressDocument()}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, c.contentsURL(true), nil)
	if err != nil {
		return empty, &TransportError{Op: "fetch", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return empty, &TransportError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return empty, ErrNotFound
	default:
		return empty, statusError("fetch", resp)
	}

	var body contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return empty, &TransportError{Op: "fetch", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode contents response: %w", err)}
	}

	snap := Snapshot{Document: repository.NewProgressDocument(), Revision: body.SHA}
	if body.Content == "" {
		return snap, nil
	}

	raw, err := base64.StdEncoding.DecodeString(stripNewlines(body.Content))
	if err != nil {
		c.log.Warnf("remote content is not valid base64, treating as empty: %v", err)
		return snap, nil
	}

	var doc repository.ProgressDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.log.Warnf("remote content is not valid JSON, treating as empty: %v", err)
		return snap, nil
	}
	if doc != nil {
		snap.Document = doc
	}

	c.log.Debugf("fetched remote document at revision %s (%d records)", snap.Revision, snap.Document.Count())
	return snap, nil
}

// Commit writes doc on top of revision and returns the new revision.
// An empty revision creates the file. On a conflict the current revision is
// fetched and the write is submitted exactly once more; a second conflict is
// returned as ErrConflict. Other failures are *TransportError.
func (c *Client) Commit(ctx context.Context, doc repository.ProgressDocument, revision, message string) (string, error) {
	newRevision, err := c.put(ctx, doc, revision, message)
	if !errdefs.IsConflict(err) {
		return newRevision, err
	}

	c.log.Warn("revision conflict, retrying once with a fresh revision")
	c.metrics.CounterConflictRetry.Inc()

	snap, err := c.Fetch(ctx)
	if err != nil && !errdefs.IsNotFound(err) {
		return "", err
	}
	return c.put(ctx, doc, snap.Revision, message)
}

func (c *Client) put(ctx context.Context, doc repository.ProgressDocument, revision, message string) (string, error) {
	start := time.Now()
	newRevision, err := c.putOnce(ctx, doc, revision, message)
	c.observe("commit", start, err)
	return newRevision, err
}

func (c *Client) putOnce(ctx context.Context, doc repository.ProgressDocument, revision, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	content, err := encodeDocument(doc)
	if err != nil {
		return "", &TransportError{Op: "commit", Err: err}
	}

	payload, err := json.Marshal(putRequest{
		Message: message,
		Content: content,
		Branch:  c.cfg.Branch,
		SHA:     revision,
	})
	if err != nil {
		return "", &TransportError{Op: "commit", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.contentsURL(false), bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Op: "commit", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "commit", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return "", ErrConflict
	default:
		return "", statusError("commit", resp)
	}

	var body putResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &TransportError{Op: "commit", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode commit response: %w", err)}
	}
	if body.Content.SHA == "" {
		return "", &TransportError{Op: "commit", StatusCode: resp.StatusCode, Err: errors.New("commit response has no content sha")}
	}

	c.log.Debugf("committed remote document, revision %s -> %s", revisionOrNew(revision), body.Content.SHA)
	return body.Content.SHA, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	return req, nil
}

// contentsURL builds {base}/repos/{owner}/{repo}/contents/{path}, with ?ref= for reads.
func (c *Client) contentsURL(withRef bool) string {
	segments := strings.Split(strings.Trim(c.cfg.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	target := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		strings.TrimRight(c.cfg.APIBaseURL, "/"),
		url.PathEscape(c.cfg.Owner),
		url.PathEscape(c.cfg.Repo),
		strings.Join(segments, "/"),
	)
	if withRef {
		target += "?ref=" + url.QueryEscape(c.cfg.Branch)
	}
	return target
}

func (c *Client) observe(op string, start time.Time, err error) {
	c.metrics.HistRemoteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	c.metrics.CounterRemoteRequests.WithLabelValues(op, outcomeOf(err)).Inc()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errdefs.IsNotFound(err):
		return metrics.OutcomeNotFound
	case errdefs.IsConflict(err):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeTransport
	}
}

func encodeDocument(doc repository.ProgressDocument) (string, error) {
	if doc == nil {
		doc = repository.NewProgressDocument()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func statusError(op string, resp *http.Response) *TransportError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &TransportError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

func revisionOrNew(revision string) string {
	if revision == "" {
		return "(new)"
	}
	return revision
}
