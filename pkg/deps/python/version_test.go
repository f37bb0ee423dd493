package python

import (
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1.0", "1.0"},
		{"v2.0.1", "2.0.1"},
		{"1!2.0", "1!2.0"},
		{"1.0a1", "1.0a1"},
		{"1.0-alpha.2", "1.0a2"},
		{"1.0.BETA", "1.0b0"},
		{"1.0c3", "1.0rc3"},
		{"1.0pre", "1.0rc0"},
		{"1.0-1", "1.0.post1"},
		{"1.0.rev2", "1.0.post2"},
		{"1.0r", "1.0.post0"},
		{"1.0.dev", "1.0.dev0"},
		{"1.0a1.post2.dev3", "1.0a1.post2.dev3"},
		{"1.0+Ubuntu-1", "1.0+ubuntu.1"},
		{"  3.12.0  ", "3.12.0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseVersion(tt.input)
			if err != nil {
				t.Fatalf("ParseVersion(%q) error: %v", tt.input, err)
			}
			if got := v.String(); got != tt.want {
				t.Errorf("ParseVersion(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseVersionInvalid(t *testing.T) {
	for _, s := range []string{"", "linux", "1.0.x", "1..0", "1.0+", "french toast", "1.0 2.0"} {
		if _, err := ParseVersion(s); err == nil {
			t.Errorf("ParseVersion(%q) should fail", s)
		}
	}
}

func TestCompareOrdering(t *testing.T) {
	// Strictly increasing, from the PEP 440 examples.
	ordered := []string{
		"1.0.dev456",
		"1.0a1",
		"1.0a2.dev456",
		"1.0a12.dev456",
		"1.0a12",
		"1.0b1.dev456",
		"1.0b2",
		"1.0b2.post345.dev456",
		"1.0b2.post345",
		"1.0rc1.dev456",
		"1.0rc1",
		"1.0",
		"1.0+abc.5",
		"1.0+abc.7",
		"1.0+5",
		"1.0.post456.dev34",
		"1.0.post456",
		"1.1.dev1",
		"1.2",
		"1!0.1",
	}

	versions := make([]Version, len(ordered))
	for i, s := range ordered {
		v, err := ParseVersion(s)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", s, err)
		}
		versions[i] = v
	}

	for i := range versions {
		for j := range versions {
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			if got := Compare(versions[i], versions[j]); got != want {
				t.Errorf("Compare(%s, %s) = %d, want %d", ordered[i], ordered[j], got, want)
			}
		}
	}
}

func TestCompareTrailingZeros(t *testing.T) {
	a, _ := ParseVersion("3.12")
	b, _ := ParseVersion("3.12.0.0")
	if Compare(a, b) != 0 {
		t.Error("3.12 and 3.12.0.0 should compare equal")
	}
}

func TestSpecifierContains(t *testing.T) {
	tests := []struct {
		spec    string
		version string
		want    bool
	}{
		{"==3.12", "3.12.0", true},
		{"==3.12", "3.12.1", false},
		{"==3.*", "3.12", true},
		{"==3.1.*", "3.12", false},
		{"==3.12.*", "3.12", true},
		{"!=3.11.*", "3.12.0", true},
		{"!=3.12", "3.12.0", false},
		{"==1.0", "1.0+local", true},
		{"==1.0+local", "1.0", false},
		{">=3.8", "3.12", true},
		{">=3.8", "3.7.9", false},
		{"<=3.12", "3.12.0+x", true},
		{"<3.13", "3.12", true},
		{"<3.12", "3.12", false},
		{"<3.12", "3.12rc1", false},
		{"<3.12rc2", "3.12rc1", true},
		{">3.12", "3.12.post1", false},
		{">3.12.post0", "3.12.post1", true},
		{">3.12", "3.12+local", false},
		{">3.12", "3.13", true},
		{"~=3.10", "3.12", true},
		{"~=3.10", "4.0", false},
		{"~=3.10.2", "3.10.5", true},
		{"~=3.10.2", "3.11", false},
		{"~=2.2", "2.2", true},
		{"~=2.2", "2.1.9", false},
		{"~=2.2.post3", "2.3", true},
		{"~=1.4.5a4", "1.4.5", true},
		{"~=1!1.0", "1!1.5", true},
		{"~=1!1.0", "1.5", false},
		{"===3.12", "3.12", true},
		{"===3.12", "3.12.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.spec+" "+tt.version, func(t *testing.T) {
			spec, err := ParseSpecifier(tt.spec)
			if err != nil {
				t.Fatalf("ParseSpecifier(%q): %v", tt.spec, err)
			}
			v, err := ParseVersion(tt.version)
			if err != nil {
				t.Fatalf("ParseVersion(%q): %v", tt.version, err)
			}
			if got := spec.Contains(v); got != tt.want {
				t.Errorf("%s contains %s = %v, want %v", tt.spec, tt.version, got, tt.want)
			}
		})
	}
}

func TestParseSpecifierInvalid(t *testing.T) {
	for _, s := range []string{"1.0", "~=1", ">=1.*", "<1.0+local", "==", ">= ", "=>1.0", "==1.0+x.*"} {
		if _, err := ParseSpecifier(s); err == nil {
			t.Errorf("ParseSpecifier(%q) should fail", s)
		}
	}
}

func TestSpecifierSet(t *testing.T) {
	set, err := ParseSpecifierSet(">=2.8.1, <3, !=2.9.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 3 {
		t.Fatalf("len = %d, want 3", len(set))
	}
	for v, want := range map[string]bool{"2.8.1": true, "2.9.0": false, "2.31": true, "3.0": false} {
		parsed, _ := ParseVersion(v)
		if got := set.Contains(parsed); got != want {
			t.Errorf("%s contains %s = %v, want %v", set, v, got, want)
		}
	}

	empty, err := ParseSpecifierSet("  ")
	if err != nil || len(empty) != 0 {
		t.Errorf("empty set = %v, %v", empty, err)
	}
}
