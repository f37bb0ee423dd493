package io

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/graph"
)

// Format names a graph encoding.
type Format string

const (
	FormatGEXF Format = "gexf"
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
)

// DefaultPath is where the graph lands when no output is configured.
const DefaultPath = "pypi.gexf"

// ErrUnknownFormat is returned for a format name or extension with no encoder.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists every supported format, default first.
var Formats = []Format{FormatGEXF, FormatJSON, FormatDOT, FormatSVG}

// ParseFormat validates a format name. The empty string selects gexf.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatGEXF, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath infers the format from the file extension (".gv" is dot).
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "gv" {
		return FormatDOT, nil
	}
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Write encodes g to w in the given format.
func Write(w io.Writer, g *graph.Graph, format Format) error {
	switch format {
	case FormatGEXF, "":
		return WriteGEXF(w, g)
	case FormatJSON:
		return WriteJSON(w, g)
	case FormatDOT:
		_, err := io.WriteString(w, ToDOT(g))
		return err
	case FormatSVG:
		svg, err := RenderSVG(ToDOT(g))
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Export writes g to path, replacing any previous file atomically.
func Export(g *graph.Graph, path string, format Format) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, g, format); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
