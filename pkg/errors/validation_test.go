package errors

import (
	"strings"
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "requests", false},
		{"mixed separators", "Foo_Bar.Baz-2", false},
		{"single char", "x", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 257), true},
		{"control char", "foo\nbar", true},
		{"traversal", "foo..bar", true},
		{"slash", "foo/bar", true},
		{"leading dash", "-foo", true},
		{"trailing dot", "foo.", true},
		{"space", "foo bar", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPackage) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidPackage)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://pypi.org", false},
		{"http://localhost:8080", false},
		{"", true},
		{"ftp://pypi.org", true},
		{"pypi.org", true},
	}
	for _, tt := range tests {
		if err := ValidateURL(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
