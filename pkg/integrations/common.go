package integrations

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/cache"
)

const httpTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a package doesn't exist in the registry.
	ErrNotFound = cache.ErrNotFound

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = cache.ErrNetwork
)

// NewHTTPClient creates an HTTP client with a standard timeout for registry requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

var separatorRE = regexp.MustCompile(`[-_.]+`)

// NormalizePkgName converts a package name to its canonical PEP 503 form:
// every run of "-", "_" and "." becomes a single "-", and the result is
// lowercased. NormalizePkgName is idempotent.
//
//	NormalizePkgName("Foo_Bar.Baz") // "foo-bar-baz"
func NormalizePkgName(name string) string {
	return strings.ToLower(separatorRE.ReplaceAllString(name, "-"))
}
