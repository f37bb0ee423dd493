package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/buildinfo"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/cache"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations"
)

// DefaultBaseURL is the public PyPI instance.
const DefaultBaseURL = "https://pypi.org"

// simpleAccept selects the PEP 691 JSON form of the simple index.
const simpleAccept = "application/vnd.pypi.simple.v1+json"

// The full project listing is tens of megabytes; it gets a longer timeout
// than per-package requests.
const indexTimeout = 5 * time.Minute

// Metadata is the part of a /pypi/{name}/json document the mirror reads.
//
// Info is kept verbatim so the store can pass it through untouched; only
// requires_dist is ever interpreted, by the requirement resolver.
type Metadata struct {
	Name       string          `json:"name"`
	LastSerial int64           `json:"last_serial"`
	Info       json.RawMessage `json:"info"`
}

// RequiresDist returns info.requires_dist. A missing or null field yields nil.
func (m *Metadata) RequiresDist() ([]string, error) {
	return RequiresDist(m.Info)
}

// RequiresDist decodes the requires_dist list from a raw info document.
//
// Only a malformed info object is an error. A requires_dist that is not a
// list yields nil, and entries that are not strings are skipped.
func RequiresDist(info json.RawMessage) ([]string, error) {
	if len(info) == 0 {
		return nil, nil
	}
	var doc struct {
		RequiresDist json.RawMessage `json:"requires_dist"`
	}
	if err := json.Unmarshal(info, &doc); err != nil {
		return nil, fmt.Errorf("decode info: %w", err)
	}

	var entries []json.RawMessage
	if json.Unmarshal(doc.RequiresDist, &entries) != nil {
		return nil, nil
	}
	reqs := make([]string, 0, len(entries))
	for _, e := range entries {
		var s string
		if json.Unmarshal(e, &s) == nil {
			reqs = append(reqs, s)
		}
	}
	return reqs, nil
}

// Client provides access to the PyPI simple index and JSON API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	index   *integrations.Client
	baseURL string
}

// NewClient creates a PyPI client with the given cache backend.
//
// Parameters:
//   - backend: cache for metadata documents (nil disables caching)
//   - cacheTTL: how long documents are kept; zero keeps them forever, which is
//     safe because entries are keyed by serial
//
// The project listing is never cached.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	headers := map[string]string{"User-Agent": buildinfo.UserAgent()}

	index := integrations.NewClient(nil, "", 0, headers)
	index.SetHTTPClient(&http.Client{Timeout: indexTimeout})

	return &Client{
		Client:  integrations.NewClient(backend, "pypi:", cacheTTL, headers),
		index:   index,
		baseURL: DefaultBaseURL,
	}
}

// SetBaseURL points the client at another PyPI-compatible index.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// BaseURL returns the index the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ListProjects returns normalized name → last serial for every project the
// index publishes, in one request.
//
// Names that normalize identically collapse to one entry carrying the larger
// serial. Any failure is returned as an error; an empty map is only returned
// when the index really lists nothing.
func (c *Client) ListProjects(ctx context.Context) (map[string]int64, error) {
	var resp simpleIndex
	err := cache.RetryWithBackoff(ctx, func() error {
		resp = simpleIndex{}
		return c.index.GetWithHeaders(ctx, c.baseURL+"/simple/", map[string]string{"Accept": simpleAccept}, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if resp.Projects == nil {
		return nil, fmt.Errorf("list projects: %w: response has no projects field", integrations.ErrNetwork)
	}

	projects := make(map[string]int64, len(resp.Projects))
	for _, p := range resp.Projects {
		name := integrations.NormalizePkgName(p.Name)
		if serial, ok := projects[name]; !ok || p.LastSerial > serial {
			projects[name] = p.LastSerial
		}
	}
	return projects, nil
}

// FetchMetadata retrieves the JSON API document of a project.
//
// The serial the caller already knows is part of the cache key: a document
// fetched for a given serial never goes stale for that serial. A serial of
// zero or less bypasses the cache.
//
// Returns:
//   - [integrations.ErrNotFound] if the project doesn't exist
//   - [integrations.ErrNetwork] for HTTP failures (timeout, 5xx, etc.)
//   - Other errors for undecodable documents
func (c *Client) FetchMetadata(ctx context.Context, name string, serial int64) (*Metadata, error) {
	name = integrations.NormalizePkgName(name)
	key := fmt.Sprintf("%s@%d", name, serial)

	var md Metadata
	err := c.Cached(ctx, key, serial <= 0, &md, func() error {
		if err := c.fetch(ctx, name, &md); err != nil {
			return err
		}
		if md.LastSerial < serial {
			return errStale
		}
		return nil
	})
	if errors.Is(err, errStale) {
		// A lagging mirror node answered. Hand the document back but keep
		// it out of the cache so the next pass asks again.
		return &md, nil
	}
	if err != nil {
		return nil, err
	}
	return &md, nil
}

var errStale = errors.New("document older than requested serial")

func (c *Client) fetch(ctx context.Context, name string, md *Metadata) error {
	var doc jsonDocument
	u := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(name))
	if err := c.Get(ctx, u, &doc); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: pypi package %s", err, name)
		}
		return err
	}
	if len(doc.Info) == 0 || string(doc.Info) == "null" {
		return fmt.Errorf("pypi package %s: document has no info", name)
	}

	*md = Metadata{
		Name:       name,
		LastSerial: doc.LastSerial,
		Info:       doc.Info,
	}
	return nil
}

type simpleIndex struct {
	Meta struct {
		APIVersion string `json:"api-version"`
		LastSerial int64  `json:"_last-serial"`
	} `json:"meta"`
	Projects []simpleProject `json:"projects"`
}

type simpleProject struct {
	Name       string `json:"name"`
	LastSerial int64  `json:"_last-serial"`
}

type jsonDocument struct {
	Info       json.RawMessage `json:"info"`
	LastSerial int64           `json:"last_serial"`
}
