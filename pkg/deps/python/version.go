package python

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var versionRE = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>alpha|a|beta|b|preview|pre|c|rc)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>-(?P<post_n1>[0-9]+)|[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?)?` +
	`(?P<dev>[-_.]?dev[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?\s*$`)

// Pre-release ranks. A dev-only release sorts before any pre-release and a
// final release after all of them.
const (
	rankDevOnly = -1
	rankAlpha   = 0
	rankBeta    = 1
	rankRC      = 2
	rankFinal   = 3
)

// Version is a parsed PEP 440 version.
type Version struct {
	Epoch   int
	Release []int

	preRank int // rankFinal when there is no pre-release segment
	preN    int
	post    int // -1 when absent
	dev     int // -1 when absent
	local   []string
}

// ParseVersion parses s as a PEP 440 version, accepting the normalizations
// PEP 440 allows (case, separators, implicit numbers, "v" prefix).
func ParseVersion(s string) (Version, error) {
	m := versionRE.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	group := func(name string) string { return m[versionRE.SubexpIndex(name)] }

	v := Version{preRank: rankFinal, post: -1, dev: -1}
	var err error

	if e := group("epoch"); e != "" {
		if v.Epoch, err = strconv.Atoi(e); err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
	}
	for _, part := range strings.Split(group("release"), ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v.Release = append(v.Release, n)
	}

	if group("pre") != "" {
		switch strings.ToLower(group("pre_l")) {
		case "a", "alpha":
			v.preRank = rankAlpha
		case "b", "beta":
			v.preRank = rankBeta
		default:
			v.preRank = rankRC
		}
		if v.preN, err = atoiOrZero(group("pre_n")); err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
	}

	if group("post") != "" {
		n := group("post_n1")
		if n == "" {
			n = group("post_n2")
		}
		if v.post, err = atoiOrZero(n); err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
	}

	if group("dev") != "" {
		if v.dev, err = atoiOrZero(group("dev_n")); err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
	}

	if l := group("local"); l != "" {
		v.local = strings.FieldsFunc(strings.ToLower(l), func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		})
	}
	return v, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// IsPrerelease reports whether v has a pre-release or dev segment.
func (v Version) IsPrerelease() bool { return v.preRank != rankFinal || v.dev >= 0 }

// IsPostrelease reports whether v has a post-release segment.
func (v Version) IsPostrelease() bool { return v.post >= 0 }

// Public returns v without its local segment.
func (v Version) Public() Version {
	v.local = nil
	return v
}

// String returns the normalized form of v.
func (v Version) String() string {
	var b strings.Builder
	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	for i, n := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	switch v.preRank {
	case rankAlpha:
		fmt.Fprintf(&b, "a%d", v.preN)
	case rankBeta:
		fmt.Fprintf(&b, "b%d", v.preN)
	case rankRC:
		fmt.Fprintf(&b, "rc%d", v.preN)
	}
	if v.post >= 0 {
		fmt.Fprintf(&b, ".post%d", v.post)
	}
	if v.dev >= 0 {
		fmt.Fprintf(&b, ".dev%d", v.dev)
	}
	if len(v.local) > 0 {
		b.WriteByte('+')
		b.WriteString(strings.Join(v.local, "."))
	}
	return b.String()
}

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to
// or after b in PEP 440 order. Trailing zeros in the release are ignored.
func Compare(a, b Version) int {
	if c := cmp.Compare(a.Epoch, b.Epoch); c != 0 {
		return c
	}
	if c := compareRelease(a.Release, b.Release); c != 0 {
		return c
	}

	ar, an := a.preKey()
	br, bn := b.preKey()
	if c := cmp.Compare(ar, br); c != 0 {
		return c
	}
	if c := cmp.Compare(an, bn); c != 0 {
		return c
	}
	if c := cmp.Compare(a.post, b.post); c != 0 {
		return c
	}
	if c := cmp.Compare(a.devKey(), b.devKey()); c != 0 {
		return c
	}
	return compareLocal(a.local, b.local)
}

func (v Version) preKey() (rank, n int) {
	if v.preRank == rankFinal && v.post < 0 && v.dev >= 0 {
		return rankDevOnly, 0
	}
	return v.preRank, v.preN
}

func (v Version) devKey() int {
	if v.dev < 0 {
		return math.MaxInt
	}
	return v.dev
}

func compareRelease(a, b []int) int {
	for i := range max(len(a), len(b)) {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// compareLocal orders local segments: no local sorts first, numeric segments
// sort after alphanumeric ones, and a shorter prefix sorts first.
func compareLocal(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return cmp.Compare(len(a), len(b))
	}
	for i := range min(len(a), len(b)) {
		x, xerr := strconv.Atoi(a[i])
		y, yerr := strconv.Atoi(b[i])
		switch {
		case xerr == nil && yerr == nil:
			if c := cmp.Compare(x, y); c != 0 {
				return c
			}
		case xerr == nil:
			return 1
		case yerr == nil:
			return -1
		default:
			if c := strings.Compare(a[i], b[i]); c != 0 {
				return c
			}
		}
	}
	return cmp.Compare(len(a), len(b))
}
