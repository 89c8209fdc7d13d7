package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bassista/go_gym/internal/config"
	"github.com/bassista/go_gym/internal/metrics"
	"github.com/bassista/go_gym/internal/repository"
	"github.com/containerd/errdefs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeContentsAPI is a minimal in-memory contents endpoint for one file.
type fakeContentsAPI struct {
	mu        sync.Mutex
	exists    bool
	content   []byte
	sha       int
	conflicts int // number of upcoming PUTs to reject with 409
	status    int // forced status for every request when non-zero
	delay     time.Duration
	gets      int
	puts      []putRequest
	lastAuth  string
	lastQuery string
	lastPath  string
}

func (f *fakeContentsAPI) currentSHA() string {
	return fmt.Sprintf("sha-%d", f.sha)
}

func (f *fakeContentsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastAuth = r.Header.Get("Authorization")
	f.lastQuery = r.URL.RawQuery
	f.lastPath = r.URL.EscapedPath()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"message":"forced"}`))
		return
	}

	switch r.Method {
	case http.MethodGet:
		f.gets++
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		// wrap base64 at 60 chars like GitHub does
		enc := base64.StdEncoding.EncodeToString(f.content)
		var wrapped strings.Builder
		for i := 0; i < len(enc); i += 60 {
			end := min(i+60, len(enc))
			wrapped.WriteString(enc[i:end])
			wrapped.WriteString("\n")
		}
		_ = json.NewEncoder(w).Encode(contentsResponse{Content: wrapped.String(), Encoding: "base64", SHA: f.currentSHA()})
	case http.MethodPut:
		var req putRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.puts = append(f.puts, req)
		if f.conflicts > 0 {
			f.conflicts--
			f.sha++ // someone else wrote
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"conflict"}`))
			return
		}
		if f.exists && req.SHA != f.currentSHA() {
			w.WriteHeader(http.StatusConflict)
			return
		}
		raw, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		status := http.StatusOK
		if !f.exists {
			status = http.StatusCreated
		}
		f.exists = true
		f.content = raw
		f.sha++
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"content":{"sha":%q},"commit":{"sha":"c-%d"}}`, f.currentSHA(), f.sha)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func testRemoteConfig(baseURL string) config.RemoteConfig {
	return config.RemoteConfig{
		Token:      "test-token",
		Owner:      "owner",
		Repo:       "gym",
		Branch:     "main",
		Path:       "data/gym_progress.json",
		APIBaseURL: baseURL,
		Timeout:    2 * time.Second,
	}
}

func newTestClient(t *testing.T, api *fakeContentsAPI) (*Client, *metrics.Manager) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	m := metrics.NewTestManager()
	c, err := NewClient(testRemoteConfig(srv.URL), m)
	require.NoError(t, err)
	return c, m
}

func TestNewClient_Validation(t *testing.T) {
	m := metrics.NewTestManager()

	_, err := NewClient(config.RemoteConfig{Timeout: time.Second}, m)
	assert.Error(t, err, "unconfigured remote must be rejected")

	cfg := testRemoteConfig("http://localhost")
	cfg.Timeout = 0
	_, err = NewClient(cfg, m)
	assert.Error(t, err)

	_, err = NewClient(testRemoteConfig("http://localhost"), nil)
	assert.Error(t, err)

	_, err = NewClientWithHTTP(testRemoteConfig("http://localhost"), nil, m)
	assert.Error(t, err)
}

func TestClient_Fetch_NotFound(t *testing.T) {
	api := &fakeContentsAPI{}
	c, m := newTestClient(t, api)

	snap, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errdefs.IsNotFound(err))
	assert.NotNil(t, snap.Document)
	assert.Empty(t, snap.Document)
	assert.Empty(t, snap.Revision)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRemoteRequests.WithLabelValues("fetch", metrics.OutcomeNotFound)))
}

func TestClient_Fetch_Success(t *testing.T) {
	api := &fakeContentsAPI{
		exists:  true,
		content: []byte(`{"Bieżnia":[{"date":"2024-03-01","weight":35},{"date":"2024-03-04","weight":30}]}`),
		sha:     7,
	}
	c, _ := newTestClient(t, api)

	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sha-7", snap.Revision)
	assert.Equal(t, []repository.ExerciseRecord{
		{Date: "2024-03-01", Weight: 35},
		{Date: "2024-03-04", Weight: 30},
	}, snap.Document.Records("Bieżnia"))

	assert.Equal(t, "Bearer test-token", api.lastAuth)
	assert.Equal(t, "ref=main", api.lastQuery)
	assert.Equal(t, "/repos/owner/gym/contents/data/gym_progress.json", api.lastPath)
}

func TestClient_Fetch_MalformedJSONIsEmpty(t *testing.T) {
	api := &fakeContentsAPI{exists: true, content: []byte(`{not json`), sha: 3}
	c, _ := newTestClient(t, api)

	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Document)
	assert.Equal(t, "sha-3", snap.Revision, "revision is kept so the next write can replace the file")
}

func TestClient_Fetch_UnexpectedStatus(t *testing.T) {
	api := &fakeContentsAPI{status: http.StatusInternalServerError}
	c, m := newTestClient(t, api)

	_, err := c.Fetch(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, "fetch", te.Op)
	assert.True(t, errdefs.IsUnavailable(err))
	assert.False(t, errdefs.IsNotFound(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRemoteRequests.WithLabelValues("fetch", metrics.OutcomeTransport)))
}

func TestClient_Fetch_Timeout(t *testing.T) {
	api := &fakeContentsAPI{exists: true, content: []byte(`{}`), delay: time.Second}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testRemoteConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	c, err := NewClient(cfg, metrics.NewTestManager())
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.IsUnavailable(err), "timeouts are transport errors, got %v", err)
}

func TestClient_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(testRemoteConfig(url), metrics.NewTestManager())
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.Error(t, err)
	var te *TransportError
	assert.True(t, errors.As(err, &te))
}

func TestClient_Commit_CreateOmitsSHA(t *testing.T) {
	api := &fakeContentsAPI{}
	c, _ := newTestClient(t, api)

	doc := repository.ProgressDocument{"Plank": {{Date: "2024-03-02", Weight: 1}}}
	rev, err := c.Commit(context.Background(), doc, "", "Add/update record: Plank 1 @ 2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, "sha-1", rev)

	require.Len(t, api.puts, 1)
	assert.Empty(t, api.puts[0].SHA)
	assert.Equal(t, "main", api.puts[0].Branch)
	assert.Equal(t, "Add/update record: Plank 1 @ 2024-03-02", api.puts[0].Message)

	// the sha key must be absent, not just empty
	raw, _ := json.Marshal(api.puts[0])
	assert.NotContains(t, string(raw), `"sha"`)
}

func TestClient_Commit_RoundTrip(t *testing.T) {
	api := &fakeContentsAPI{}
	c, _ := newTestClient(t, api)
	ctx := context.Background()

	doc := repository.ProgressDocument{"Stepper": {{Date: "2024-05-01", Weight: 20}}}
	rev, err := c.Commit(ctx, doc, "", "create")
	require.NoError(t, err)

	doc.Append("Stepper", repository.ExerciseRecord{Date: "2024-04-01", Weight: 15})
	rev2, err := c.Commit(ctx, doc, rev, "update")
	require.NoError(t, err)
	assert.NotEqual(t, rev, rev2)
	assert.Equal(t, rev, api.puts[1].SHA)

	snap, err := c.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, rev2, snap.Revision)
	assert.True(t, repository.AreDocumentsEqual(doc, snap.Document))
}

func TestClient_Commit_ConflictRetriedOnce(t *testing.T) {
	api := &fakeContentsAPI{exists: true, content: []byte(`{}`), sha: 1, conflicts: 1}
	c, m := newTestClient(t, api)

	doc := repository.ProgressDocument{"Plank": {{Date: "2024-03-02", Weight: 1}}}
	rev, err := c.Commit(context.Background(), doc, "sha-1", "msg")
	require.NoError(t, err)

	require.Len(t, api.puts, 2)
	assert.Equal(t, "sha-1", api.puts[0].SHA)
	assert.Equal(t, "sha-2", api.puts[1].SHA, "retry must use the freshly fetched revision")
	assert.Equal(t, "sha-3", rev, "returned revision is the one from the second attempt")
	assert.Equal(t, 1, api.gets)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterConflictRetry))
}

func TestClient_Commit_DoubleConflict(t *testing.T) {
	api := &fakeContentsAPI{exists: true, content: []byte(`{}`), sha: 1, conflicts: 2}
	c, _ := newTestClient(t, api)

	_, err := c.Commit(context.Background(), repository.NewProgressDocument(), "sha-1", "msg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.True(t, errdefs.IsConflict(err))
	assert.Len(t, api.puts, 2, "no more than one retry")
}

func TestClient_Commit_ConflictRefetchFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(testRemoteConfig(srv.URL), metrics.NewTestManager())
	require.NoError(t, err)

	_, err = c.Commit(context.Background(), repository.NewProgressDocument(), "sha-1", "msg")
	require.Error(t, err)
	assert.True(t, errdefs.IsUnavailable(err))
	assert.Equal(t, int32(2), calls.Load(), "put then fetch, no second put")
}

func TestClient_Commit_TransportError(t *testing.T) {
	api := &fakeContentsAPI{status: http.StatusUnprocessableEntity}
	c, _ := newTestClient(t, api)

	_, err := c.Commit(context.Background(), repository.NewProgressDocument(), "", "msg")
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnprocessableEntity, te.StatusCode)
	assert.Contains(t, te.Error(), "forced")
	assert.False(t, errdefs.IsConflict(err))
}

func TestClient_Commit_ContentIsUTF8JSON(t *testing.T) {
	api := &fakeContentsAPI{}
	c, _ := newTestClient(t, api)

	doc := repository.ProgressDocument{"Ściąganie drążka <wyciągu>": {{Date: "2024-03-02", Weight: 40}}}
	_, err := c.Commit(context.Background(), doc, "", "msg")
	require.NoError(t, err)

	assert.Contains(t, string(api.content), "Ściąganie drążka <wyciągu>")

	var decoded repository.ProgressDocument
	require.NoError(t, json.Unmarshal(api.content, &decoded))
	assert.True(t, repository.AreDocumentsEqual(doc, decoded))
}

func TestContentsURL_EscapesSegments(t *testing.T) {
	cfg := testRemoteConfig("https://api.example.com/")
	cfg.Path = "/my data/progress.json"
	cfg.Branch = "feature/x"
	c, err := NewClient(cfg, metrics.NewTestManager())
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/repos/owner/gym/contents/my%20data/progress.json?ref=feature%2Fx", c.contentsURL(true))
	assert.Equal(t, "https://api.example.com/repos/owner/gym/contents/my%20data/progress.json", c.contentsURL(false))
}
