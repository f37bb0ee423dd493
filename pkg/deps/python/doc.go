// Package python turns PyPI requires_dist declarations into dependency edges.
//
// # Requirements
//
// [ParseRequirement] implements the PEP 508 grammar: a distribution name,
// optional extras, either a version specifier or a direct URL reference, and
// an optional environment marker after ";".
//
//	req, err := python.ParseRequirement(`requests[socks] >=2.8.1, ==2.8.* ; python_version < "2.7"`)
//
// # Markers
//
// [ParseMarker] builds an expression tree from a marker string and
// [Marker.Evaluate] evaluates it against an [Environment]. Evaluation is a pure
// function of the expression and the environment. Comparisons use PEP 440
// version semantics whenever both sides are valid versions and fall back to
// string comparison otherwise. Values compared against "extra" are
// normalized on both sides.
//
// # Resolution
//
// [Resolve] keeps the requirements whose marker is absent or true under the
// target environment: no extras active, sys_platform "linux", and CPython
// defaults for every other variable (see [DefaultEnvironment]). Strings that
// fail to parse and markers that fail to evaluate are dropped silently.
//
//	deps := python.Resolve([]string{"y>=1", "z; extra=='test'"}, python.DefaultEnvironment())
//	// deps == []string{"y"}
package python
