package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/michael-lorenzo/pypi-dependency-graph/pkg/errors"
)

// isolate keeps config lookups away from the developer's own files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("HOME", dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var logs, out bytes.Buffer
	c := New(&logs, LogInfo)
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// fakeIndex serves a tiny PyPI: flask depends on jinja2, jinja2 on
// markupsafe, and broken is listed but its document is missing.
func fakeIndex(t *testing.T) *httptest.Server {
	t.Helper()
	docs := map[string]string{
		"flask":  `{"info":{"version":"3.0.0","summary":"web","requires_dist":["Jinja2>=3.1","pytest; extra == 'test'"]},"last_serial":10}`,
		"jinja2": `{"info":{"version":"3.1.4","requires_dist":["MarkupSafe>=2.0"]},"last_serial":5}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/simple/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.pypi.simple.v1+json")
		fmt.Fprint(w, `{"meta":{"api-version":"1.1","_last-serial":10},"projects":[
			{"name":"Flask","_last-serial":10},
			{"name":"Jinja2","_last-serial":5},
			{"name":"broken","_last-serial":3}]}`)
	})
	mux.HandleFunc("/pypi/{name}/json", func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.PathValue("name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, doc)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	for _, name := range []string{"sync", "export", "show", "serve", "cache", "config", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestConfigShowReflectsFlagsAndEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PYPIGRAPH_REGISTRY_WORKERS", "9")

	out, err := execute(t, "config", "show", "--store", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, `driver = "memory"`)
	assert.Contains(t, out, "workers = 9")
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")

	_, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	require.FileExists(t, path)

	_, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrCodeInvalidInput), "got %v", err)

	_, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)

	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `driver = "sqlite"`)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	isolate(t)
	_, err := execute(t, "config", "show", "--store", "postgres")
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrCodeInvalidConfig), "got %v", err)
}

func TestSyncExportAndShow(t *testing.T) {
	dir := isolate(t)
	srv := fakeIndex(t)
	db := filepath.Join(dir, "pypi.db")
	graphPath := filepath.Join(dir, "graph.json")

	common := []string{"--db", db, "--cache", "none"}

	out, err := execute(t, append([]string{"sync", "--index-url", srv.URL, "-o", graphPath}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Graph written")
	assert.Contains(t, out, "Most depended upon")

	raw, err := os.ReadFile(graphPath)
	require.NoError(t, err)
	var doc struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		Edges []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	var nodes, edges []string
	for _, n := range doc.Nodes {
		nodes = append(nodes, n.ID)
	}
	for _, e := range doc.Edges {
		edges = append(edges, e.From+"->"+e.To)
	}
	assert.ElementsMatch(t, []string{"flask", "jinja2", "markupsafe"}, nodes)
	assert.ElementsMatch(t, []string{"flask->jinja2", "jinja2->markupsafe"}, edges)

	out, err = execute(t, append([]string{"show", "Flask", "--json"}, common...)...)
	require.NoError(t, err)
	var rec recordJSON
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "flask", rec.Name)
	assert.Equal(t, int64(10), rec.LastSerial)
	assert.Equal(t, []string{"jinja2"}, rec.Dependencies)

	out, err = execute(t, append([]string{"show", "broken"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "missing")

	dotPath := filepath.Join(dir, "graph.dot")
	_, err = execute(t, append([]string{"export", "-o", dotPath}, common...)...)
	require.NoError(t, err)
	dot, err := os.ReadFile(dotPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dot), "digraph"), "got %q", dot)
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	dir := isolate(t)
	srv := fakeIndex(t)
	db := filepath.Join(dir, "pypi.db")

	out, err := execute(t, "sync", "--dry-run", "-v", "--index-url", srv.URL, "--db", db, "--cache", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "broken flask jinja2")
	assert.NoFileExists(t, filepath.Join(dir, "pypi.gexf"))

	_, err = execute(t, "show", "flask", "--db", db)
	assert.True(t, perrors.Is(err, perrors.ErrCodePackageNotFound), "got %v", err)
}

func TestSyncSnapshotFailure(t *testing.T) {
	dir := isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := execute(t, "sync", "--index-url", srv.URL, "--db", filepath.Join(dir, "pypi.db"), "--cache", "none")
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrCodeSnapshotFailed), "got %v", err)
}

func TestShowRejectsInvalidName(t *testing.T) {
	isolate(t)
	_, err := execute(t, "show", "../etc", "--store", "memory")
	assert.True(t, perrors.Is(err, perrors.ErrCodeInvalidPackage), "got %v", err)
}

func TestCacheCommands(t *testing.T) {
	dir := isolate(t)
	cacheDir := filepath.Join(dir, "meta-cache")
	t.Setenv("PYPIGRAPH_CACHE_DIR", cacheDir)

	out, err := execute(t, "cache", "path")
	require.NoError(t, err)
	assert.Equal(t, cacheDir, strings.TrimSpace(out))

	out, err = execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "empty")

	shard := filepath.Join(cacheDir, "ab")
	require.NoError(t, os.MkdirAll(shard, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(shard, "entry.json"), []byte("{}"), 0o644))

	out, err = execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 cached entries")
	assert.NoDirExists(t, shard)
}

func TestCompletion(t *testing.T) {
	isolate(t)
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "pypigraph")
}
