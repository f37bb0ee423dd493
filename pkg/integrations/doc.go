// Package integrations provides the shared HTTP client for package registry
// APIs and the package name canonicalization they agree on.
//
// # Overview
//
// Registry-specific clients live in subpackages and embed [Client]:
//
//   - [pypi]: Python Package Index (simple index and JSON API)
//
// [Client] handles:
//   - HTTP requests with retry on transient failures (5xx, 429, transport errors)
//   - Response caching through any [cache.Cache] backend, namespaced by prefix
//   - HTTP and cache events reported to [observability] hooks
//
// # Names
//
// [NormalizePkgName] implements PEP 503 normalization. Every name the mirror
// stores or compares goes through it, so local and remote identities agree.
//
// [pypi]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations/pypi
// [cache.Cache]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/cache.Cache
// [observability]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/observability
package integrations
