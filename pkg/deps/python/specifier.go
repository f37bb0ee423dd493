package python

import (
	"fmt"
	"strings"
)

// Specifier operators, longest first so prefixes don't shadow them.
var specifierOps = []string{"===", "~=", "==", "!=", "<=", ">=", "<", ">"}

// Specifier is a single version clause such as ">=1.0" or "==2.*".
type Specifier struct {
	Op      string
	Version string // as written, without the operator

	parsed   Version
	wildcard bool
}

// ParseSpecifier parses one clause and validates it against the rules PEP
// 440 sets for its operator.
func ParseSpecifier(s string) (Specifier, error) {
	s = strings.TrimSpace(s)
	for _, op := range specifierOps {
		if strings.HasPrefix(s, op) {
			return newSpecifier(op, strings.TrimSpace(s[len(op):]))
		}
	}
	return Specifier{}, fmt.Errorf("invalid specifier %q: missing operator", s)
}

func newSpecifier(op, version string) (Specifier, error) {
	spec := Specifier{Op: op, Version: version}
	if version == "" || strings.ContainsAny(version, " \t") {
		return Specifier{}, fmt.Errorf("invalid specifier %q", op+version)
	}
	if op == "===" {
		return spec, nil
	}

	raw := version
	if op == "==" || op == "!=" {
		if trimmed, ok := strings.CutSuffix(version, ".*"); ok {
			spec.wildcard = true
			raw = trimmed
		}
	}

	v, err := ParseVersion(raw)
	if err != nil {
		return Specifier{}, fmt.Errorf("invalid specifier %q: %w", op+version, err)
	}
	if spec.wildcard && len(v.local) > 0 {
		return Specifier{}, fmt.Errorf("invalid specifier %q: local version with wildcard", op+version)
	}
	switch op {
	case "~=":
		if len(v.Release) < 2 {
			return Specifier{}, fmt.Errorf("invalid specifier %q: ~= needs two release segments", op+version)
		}
		fallthrough
	case "<", ">", "<=", ">=":
		if len(v.local) > 0 {
			return Specifier{}, fmt.Errorf("invalid specifier %q: local version not allowed", op+version)
		}
	}
	spec.parsed = v
	return spec, nil
}

// String returns the clause in its written form.
func (s Specifier) String() string { return s.Op + s.Version }

// Contains reports whether v satisfies the clause. Pre-releases are always
// accepted.
func (s Specifier) Contains(v Version) bool {
	spec := s.parsed
	switch s.Op {
	case "===":
		return strings.EqualFold(v.String(), s.Version)
	case "==":
		return s.equal(v)
	case "!=":
		return !s.equal(v)
	case "~=":
		prefix := finalVersion(spec.Epoch, spec.Release[:len(spec.Release)-1])
		return Compare(v.Public(), spec) >= 0 && prefixMatch(v, prefix)
	case "<=":
		return Compare(v.Public(), spec) <= 0
	case ">=":
		return Compare(v.Public(), spec) >= 0
	case "<":
		if Compare(v, spec) >= 0 {
			return false
		}
		// <3.1 excludes 3.1 pre-releases unless the clause names one.
		return spec.IsPrerelease() || !v.IsPrerelease() || !sameRelease(v, spec)
	case ">":
		if Compare(v, spec) <= 0 {
			return false
		}
		if !spec.IsPostrelease() && v.IsPostrelease() && sameRelease(v, spec) {
			return false
		}
		return len(v.local) == 0 || !sameRelease(v, spec)
	}
	return false
}

func (s Specifier) equal(v Version) bool {
	if s.wildcard {
		return prefixMatch(v, s.parsed)
	}
	if len(s.parsed.local) == 0 {
		v = v.Public()
	}
	return Compare(v, s.parsed) == 0
}

// prefixMatch implements "==prefix.*": v's release, zero padded, starts with
// the prefix release, and any suffix segments of the prefix match exactly.
func prefixMatch(v, prefix Version) bool {
	if v.Epoch != prefix.Epoch {
		return false
	}
	for i, n := range prefix.Release {
		var got int
		if i < len(v.Release) {
			got = v.Release[i]
		}
		if got != n {
			return false
		}
	}
	if prefix.preRank != rankFinal && (v.preRank != prefix.preRank || v.preN != prefix.preN) {
		return false
	}
	if prefix.post >= 0 && v.post != prefix.post {
		return false
	}
	if prefix.dev >= 0 && v.dev != prefix.dev {
		return false
	}
	return true
}

// finalVersion returns a version with only epoch and release set.
func finalVersion(epoch int, release []int) Version {
	return Version{Epoch: epoch, Release: release, preRank: rankFinal, post: -1, dev: -1}
}

func sameRelease(a, b Version) bool {
	return a.Epoch == b.Epoch && compareRelease(a.Release, b.Release) == 0
}

// SpecifierSet is a comma-separated list of clauses that must all hold.
type SpecifierSet []Specifier

// ParseSpecifierSet parses "clause, clause, ...". An empty string yields an
// empty set, which every version satisfies.
func ParseSpecifierSet(s string) (SpecifierSet, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var set SpecifierSet
	for _, part := range strings.Split(s, ",") {
		spec, err := ParseSpecifier(part)
		if err != nil {
			return nil, err
		}
		set = append(set, spec)
	}
	return set, nil
}

// Contains reports whether v satisfies every clause.
func (ss SpecifierSet) Contains(v Version) bool {
	for _, s := range ss {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

func (ss SpecifierSet) String() string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
