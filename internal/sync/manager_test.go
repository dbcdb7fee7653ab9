package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocortexio/gcgit/internal/api"
	"github.com/gocortexio/gcgit/internal/config"
	"github.com/gocortexio/gcgit/internal/modules"
	"github.com/gocortexio/gcgit/internal/store"
)

// fakeModule is a minimal module with one collection content type, backed by
// whatever the test server serves.
type fakeModule struct {
	contentTypes []modules.ContentType
}

func (*fakeModule) ID() string          { return "fake" }
func (*fakeModule) Name() string        { return "Fake" }
func (*fakeModule) BaseAPIPath() string { return "/public_api/v1" }

func (m *fakeModule) ContentTypes() []modules.ContentType { return m.contentTypes }

func collectionCT(name, endpoint string) modules.ContentType {
	return modules.ContentType{
		Name:         name,
		Endpoint:     endpoint,
		IDField:      "id",
		Pull:         modules.PullSpec{Kind: modules.StrategyJSONCollection},
		RequestBody:  map[string]any{"request_data": map[string]any{}},
		ResponsePath: "reply",
	}
}

type testHarness struct {
	dir     string
	manager Manager
}

// newHarness builds an instance directory, a registry holding the fake
// module, and a manager whose API client points at the given handler.
func newHarness(t *testing.T, mod *fakeModule, handler http.Handler) *testHarness {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	configContent := `
[modules.fake]
fqdn = "unused.example.com"
api_key = "k"
api_key_id = "1"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(configContent), 0o600))

	cfg, err := config.LoadInstance(dir)
	require.NoError(t, err)

	registry := &modules.Registry{}
	require.NoError(t, registry.Register(mod))

	manager := NewDefaultManager(dir, cfg, registry,
		WithClientFactory(func(mc config.ModuleConfig, basePath string) api.Client {
			return api.NewClient(mc, basePath, api.WithBaseURL(server.URL))
		}))

	return &testHarness{dir: dir, manager: manager}
}

func serveObjects(t *testing.T, objects *[]map[string]any) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"reply": *objects}))
	})
}

func headHash(t *testing.T, dir string) string {
	t.Helper()
	repo, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	return head.Hash().String()
}

func TestPullCreatesFilesAndCommits(t *testing.T) {
	t.Parallel()

	objects := []map[string]any{
		{"id": "rule-1", "severity": "high"},
		{"id": "rule-2", "severity": "low"},
	}
	mod := &fakeModule{contentTypes: []modules.ContentType{collectionCT("rules", "rules/get")}}
	h := newHarness(t, mod, serveObjects(t, &objects))

	report, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	assert.False(t, report.UpToDate)
	assert.NotEmpty(t, report.CommitHash)
	assert.Zero(t, report.Failed())
	require.Len(t, report.ContentTypes, 1)
	assert.Equal(t, []string{"rule-1", "rule-2"}, report.ContentTypes[0].Diff.Added)

	for _, name := range []string{"rule-1.yaml", "rule-2.yaml"} {
		_, err := os.Stat(filepath.Join(h.dir, "fake", "rules", name))
		assert.NoError(t, err)
	}

	repo, err := gogit.PlainOpen(h.dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Contains(t, commit.Message, "Pull fake: 2 added, 0 updated, 0 removed")
	assert.Contains(t, commit.Message, "- rules: 2 added")
}

func TestPullIsIdempotent(t *testing.T) {
	t.Parallel()

	objects := []map[string]any{{"id": "rule-1", "severity": "high"}}
	mod := &fakeModule{contentTypes: []modules.ContentType{collectionCT("rules", "rules/get")}}
	h := newHarness(t, mod, serveObjects(t, &objects))

	_, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)
	firstHead := headHash(t, h.dir)

	report, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	assert.True(t, report.UpToDate)
	assert.Empty(t, report.CommitHash)
	assert.Equal(t, firstHead, headHash(t, h.dir))
}

func TestPullAppliesUpdatesAndRemovals(t *testing.T) {
	t.Parallel()

	objects := []map[string]any{
		{"id": "keep", "v": "1"},
		{"id": "gone", "v": "1"},
	}
	mod := &fakeModule{contentTypes: []modules.ContentType{collectionCT("rules", "rules/get")}}
	h := newHarness(t, mod, serveObjects(t, &objects))

	_, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	objects = []map[string]any{{"id": "keep", "v": "2"}}
	report, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	require.Len(t, report.ContentTypes, 1)
	dr := report.ContentTypes[0].Diff
	assert.Equal(t, []string{"keep"}, dr.Updated)
	assert.Equal(t, []string{"gone"}, dr.Removed)

	_, statErr := os.Stat(filepath.Join(h.dir, "fake", "rules", "gone.yaml"))
	assert.True(t, os.IsNotExist(statErr))

	snapshot, _ := store.NewFileStore(h.dir).Snapshot("fake", "rules", "id")
	require.Contains(t, snapshot, "keep")
}

func TestPullIdentifierCollisionSkipsContentType(t *testing.T) {
	t.Parallel()

	objects := []map[string]any{
		{"id": "Foo Bar"},
		{"id": "foo_bar"},
	}
	mod := &fakeModule{contentTypes: []modules.ContentType{collectionCT("rules", "rules/get")}}
	h := newHarness(t, mod, serveObjects(t, &objects))

	report, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	require.Len(t, report.ContentTypes, 1)
	var collision *store.IdentifierCollisionError
	require.ErrorAs(t, report.ContentTypes[0].Err, &collision)

	// Nothing was written and nothing committed.
	assert.True(t, report.UpToDate)
	entries, readErr := os.ReadDir(filepath.Join(h.dir, "fake", "rules"))
	if readErr == nil {
		assert.Empty(t, entries)
	}
}

func TestPullContentTypeFailureDoesNotAbortSiblings(t *testing.T) {
	t.Parallel()

	mod := &fakeModule{contentTypes: []modules.ContentType{
		collectionCT("broken", "broken/get"),
		collectionCT("rules", "rules/get"),
	}}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/public_api/v1/rules/get" {
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
				"reply": []map[string]any{{"id": "rule-1"}},
			}))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	h := newHarness(t, mod, handler)

	report, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	require.Len(t, report.ContentTypes, 2)
	assert.Error(t, report.ContentTypes[0].Err)
	assert.NoError(t, report.ContentTypes[1].Err)
	assert.Equal(t, 1, report.Failed())

	// The healthy sibling still landed and was committed.
	assert.NotEmpty(t, report.CommitHash)
	_, statErr := os.Stat(filepath.Join(h.dir, "fake", "rules", "rule-1.yaml"))
	assert.NoError(t, statErr)
}

func TestPullPartialFetchSuppressesRemovals(t *testing.T) {
	t.Parallel()

	ct := modules.ContentType{
		Name:     "rules",
		Endpoint: "rules",
		IDField:  "id",
		Pull: modules.PullSpec{
			Kind:          modules.StrategyOffsetPaginated,
			PageParam:     "page",
			PageSizeParam: "pageSize",
			PageSize:      1,
		},
		ResponsePath: "data",
	}
	mod := &fakeModule{contentTypes: []modules.ContentType{ct}}

	pages := map[string][]map[string]any{
		"1": {{"id": "a", "v": "1"}},
		"2": {{"id": "b", "v": "1"}},
		"3": {},
	}
	failLaterPages := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if failLaterPages && page != "1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": pages[page]}))
	})
	h := newHarness(t, mod, handler)

	_, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	// The refetch loses page 2, so "b" is absent from the listing.
	failLaterPages = true
	report, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	require.Len(t, report.ContentTypes, 1)
	ctReport := report.ContentTypes[0]
	assert.True(t, ctReport.Partial)
	assert.Empty(t, ctReport.Diff.Removed)
	assert.Contains(t, ctReport.Warnings, "rules: fetch was partial, skipping 1 removal(s)")

	// Nothing changed, so nothing was committed and the file survives.
	assert.True(t, report.UpToDate)
	_, statErr := os.Stat(filepath.Join(h.dir, "fake", "rules", "b.yaml"))
	assert.NoError(t, statErr)
}

func TestPullIncompleteRefetchKeepsStoredFile(t *testing.T) {
	t.Parallel()

	ct := modules.ContentType{
		Name:     "scripts",
		Endpoint: "scripts/get_scripts",
		IDField:  "script_uid",
		Pull: modules.PullSpec{
			Kind:             modules.StrategyScriptCode,
			ListEndpoint:     "scripts/get_scripts",
			CodeEndpoint:     "scripts/get_script_code",
			ListResponsePath: "reply.scripts",
			UIDField:         "script_uid",
		},
	}
	mod := &fakeModule{contentTypes: []modules.ContentType{ct}}

	failCode := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/public_api/v1/scripts/get_scripts":
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
				"reply": map[string]any{"scripts": []map[string]any{
					{"script_uid": "s1", "name": "first"},
				}},
			}))
		case "/public_api/v1/scripts/get_script_code":
			if failCode {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"reply": "pass"}))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	h := newHarness(t, mod, handler)

	_, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	path := filepath.Join(h.dir, "fake", "scripts", "s1.yaml")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// The refetch lists the script but cannot retrieve its code.
	failCode = true
	report, err := h.manager.Pull(context.Background(), "fake")
	require.NoError(t, err)

	require.Len(t, report.ContentTypes, 1)
	ctReport := report.ContentTypes[0]
	assert.NoError(t, ctReport.Err)
	assert.Empty(t, ctReport.Diff.Removed)
	assert.Contains(t, ctReport.Warnings, `scripts: "s1" fetched incomplete, keeping the stored file`)
	assert.True(t, report.UpToDate)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPullFailsWhenInstanceLocked(t *testing.T) {
	t.Parallel()

	objects := []map[string]any{{"id": "x"}}
	mod := &fakeModule{contentTypes: []modules.ContentType{collectionCT("rules", "rules/get")}}
	h := newHarness(t, mod, serveObjects(t, &objects))

	lock, err := store.AcquireLock(h.dir)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, lock.Release())
	}()

	_, err = h.manager.Pull(context.Background(), "fake")
	var locked *store.InstanceLockedError
	require.ErrorAs(t, err, &locked)
}

func TestDiffDoesNotWriteOrCommit(t *testing.T) {
	t.Parallel()

	objects := []map[string]any{{"id": "rule-1"}}
	mod := &fakeModule{contentTypes: []modules.ContentType{collectionCT("rules", "rules/get")}}
	h := newHarness(t, mod, serveObjects(t, &objects))

	report, err := h.manager.Diff(context.Background(), "fake")
	require.NoError(t, err)

	require.Len(t, report.ContentTypes, 1)
	assert.Equal(t, []string{"rule-1"}, report.ContentTypes[0].Diff.Added)

	_, statErr := os.Stat(filepath.Join(h.dir, "fake", "rules"))
	assert.True(t, os.IsNotExist(statErr))
	_, err = gogit.PlainOpen(h.dir)
	assert.ErrorIs(t, err, gogit.ErrRepositoryNotExists)
}

func TestPullUnknownModule(t *testing.T) {
	t.Parallel()

	mod := &fakeModule{contentTypes: []modules.ContentType{collectionCT("rules", "rules/get")}}
	h := newHarness(t, mod, serveObjects(t, &[]map[string]any{}))

	_, err := h.manager.Pull(context.Background(), "nope")
	var unknown *modules.ErrUnknownModule
	require.ErrorAs(t, err, &unknown)
}

func TestTestProbesEveryContentType(t *testing.T) {
	t.Parallel()

	mod := &fakeModule{contentTypes: []modules.ContentType{
		collectionCT("rules", "rules/get"),
		collectionCT("broken", "broken/get"),
	}}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/public_api/v1/rules/get" {
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
				"reply": []map[string]any{{"id": "a"}, {"id": "b"}},
			}))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	h := newHarness(t, mod, handler)

	report, err := h.manager.Test(context.Background(), "fake")
	require.NoError(t, err)

	require.Len(t, report.Endpoints, 2)
	assert.Equal(t, 2, report.Endpoints[0].Count)
	assert.NoError(t, report.Endpoints[0].Err)
	assert.Error(t, report.Endpoints[1].Err)
}
