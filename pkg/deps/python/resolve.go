package python

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations/pypi"
)

// Resolve returns the sorted, deduplicated normalized names of the
// requirements in requiresDist that apply in env.
//
// A requirement applies when it has no marker or its marker evaluates to
// true. Strings that do not parse and markers that cannot be evaluated are
// dropped without affecting their siblings.
func Resolve(requiresDist []string, env Environment) []string {
	seen := make(map[string]struct{}, len(requiresDist))
	for _, s := range requiresDist {
		req, err := ParseRequirement(s)
		if err != nil {
			continue
		}
		if req.Marker != nil {
			ok, err := req.Marker.Evaluate(env)
			if err != nil || !ok {
				continue
			}
		}
		seen[req.NormalizedName()] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// RequirementsFromInfo resolves the requires_dist field of a PyPI info
// document and returns the stored form: names joined by single spaces.
// A null or absent requires_dist yields "".
func RequirementsFromInfo(info json.RawMessage, env Environment) (string, error) {
	reqs, err := pypi.RequiresDist(info)
	if err != nil {
		return "", err
	}
	return JoinRequirements(Resolve(reqs, env)), nil
}

// JoinRequirements serializes resolved names for storage.
func JoinRequirements(names []string) string {
	return strings.Join(names, " ")
}
