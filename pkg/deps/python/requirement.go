package python

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations"
)

var (
	nameRE  = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	extraRE = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
)

// Requirement is a parsed PEP 508 dependency specification.
type Requirement struct {
	Name      string       // distribution name as written
	Extras    []string     // requested extras, as written
	Specifier SpecifierSet // empty when unconstrained or URL-based
	URL       string       // direct reference after "@", if any
	Marker    Marker       // nil when the requirement is unconditional
}

// NormalizedName returns the PEP 503 form of Name.
func (r *Requirement) NormalizedName() string {
	return integrations.NormalizePkgName(r.Name)
}

func (r *Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		fmt.Fprintf(&b, "[%s]", strings.Join(r.Extras, ","))
	}
	switch {
	case r.URL != "":
		fmt.Fprintf(&b, " @ %s", r.URL)
		if r.Marker != nil {
			b.WriteByte(' ')
		}
	case len(r.Specifier) > 0:
		b.WriteString(r.Specifier.String())
	}
	if r.Marker != nil {
		fmt.Fprintf(&b, "; %s", r.Marker)
	}
	return b.String()
}

// ParseRequirement parses a PEP 508 requirement string, e.g.
//
//	requests[security,socks] (>=2.8.1, <3) ; python_version >= "3.7"
//	pip @ https://github.com/pypa/pip/archive/1.3.1.zip ; extra == "vcs"
func ParseRequirement(s string) (*Requirement, error) {
	rest := strings.TrimSpace(s)

	name := nameRE.FindString(rest)
	if name == "" {
		return nil, fmt.Errorf("requirement %q: missing distribution name", s)
	}
	req := &Requirement{Name: name}
	rest = strings.TrimLeft(rest[len(name):], " \t")

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("requirement %q: unterminated extras", s)
		}
		extras, err := parseExtras(rest[1:end])
		if err != nil {
			return nil, fmt.Errorf("requirement %q: %w", s, err)
		}
		req.Extras = extras
		rest = strings.TrimLeft(rest[end+1:], " \t")
	}

	var markerText string
	hasMarker := false

	if strings.HasPrefix(rest, "@") {
		rest = strings.TrimLeft(rest[1:], " \t")
		url, tail, _ := strings.Cut(rest, " ")
		if url == "" || strings.HasSuffix(url, ";") {
			return nil, fmt.Errorf("requirement %q: invalid URL", s)
		}
		if !strings.Contains(url, ":") {
			return nil, fmt.Errorf("requirement %q: URL %q has no scheme", s, url)
		}
		req.URL = url
		tail = strings.TrimSpace(tail)
		if tail != "" {
			if !strings.HasPrefix(tail, ";") {
				return nil, fmt.Errorf("requirement %q: unexpected %q after URL", s, tail)
			}
			markerText, hasMarker = tail[1:], true
		}
	} else {
		var specText string
		specText, markerText, hasMarker = strings.Cut(rest, ";")
		specText = strings.TrimSpace(specText)
		if strings.HasPrefix(specText, "(") {
			if !strings.HasSuffix(specText, ")") {
				return nil, fmt.Errorf("requirement %q: unbalanced parenthesis", s)
			}
			specText = specText[1 : len(specText)-1]
		}
		spec, err := ParseSpecifierSet(specText)
		if err != nil {
			return nil, fmt.Errorf("requirement %q: %w", s, err)
		}
		req.Specifier = spec
	}

	if hasMarker {
		if strings.TrimSpace(markerText) == "" {
			return nil, fmt.Errorf("requirement %q: empty marker", s)
		}
		m, err := ParseMarker(markerText)
		if err != nil {
			return nil, fmt.Errorf("requirement %q: %w", s, err)
		}
		req.Marker = m
	}
	return req, nil
}

func parseExtras(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var extras []string
	for _, e := range strings.Split(s, ",") {
		e = strings.TrimSpace(e)
		if !extraRE.MatchString(e) {
			return nil, fmt.Errorf("invalid extra %q", e)
		}
		if !slices.Contains(extras, e) {
			extras = append(extras, e)
		}
	}
	return extras, nil
}
