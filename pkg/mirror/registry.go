package mirror

import (
	"context"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations/pypi"
)

//go:generate mockgen -destination=mocks/mock_registry.go -package=mocks -source=registry.go Registry

// Registry is the upstream package index. [pypi.Client] implements it.
type Registry interface {
	// ListProjects returns normalized name → last serial for every project.
	ListProjects(ctx context.Context) (map[string]int64, error)

	// FetchMetadata returns the metadata of one project. serial is the value
	// the caller expects and may be used as a cache key.
	FetchMetadata(ctx context.Context, name string, serial int64) (*pypi.Metadata, error)
}

var _ Registry = (*pypi.Client)(nil)
