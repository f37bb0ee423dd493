package python

import (
	"fmt"
	"maps"
	"strings"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations"
)

// Environment maps marker variable names to their values.
type Environment map[string]string

// DefaultPythonVersion is the interpreter version markers are evaluated for.
const DefaultPythonVersion = "3.12"

// DefaultEnvironment is the target the mirror resolves dependencies for:
// CPython 3.12 on 64-bit Linux with no extras selected.
func DefaultEnvironment() Environment {
	return NewEnvironment(DefaultPythonVersion)
}

// NewEnvironment returns the Linux CPython environment for pythonVersion,
// given as "3.12" or "3.12.4". Short forms get a ".0" patch level.
func NewEnvironment(pythonVersion string) Environment {
	full := pythonVersion
	if strings.Count(full, ".") < 2 {
		full += ".0"
	}
	short := full
	if i := strings.LastIndexByte(full, '.'); i > 0 {
		short = full[:i]
	}
	return Environment{
		"extra":                          "",
		"implementation_name":            "cpython",
		"implementation_version":         full,
		"os_name":                        "posix",
		"platform_machine":               "x86_64",
		"platform_python_implementation": "CPython",
		"platform_release":               "",
		"platform_system":                "Linux",
		"platform_version":               "",
		"python_full_version":            full,
		"python_version":                 short,
		"sys_platform":                   "linux",
	}
}

// With returns a copy of e with key set to value.
func (e Environment) With(key, value string) Environment {
	out := maps.Clone(e)
	if out == nil {
		out = Environment{}
	}
	out[key] = value
	return out
}

// legacyVariables maps the dotted names PEP 345 used to their PEP 508 form.
var legacyVariables = map[string]string{
	"os.name":                        "os_name",
	"sys.platform":                   "sys_platform",
	"platform.version":               "platform_version",
	"platform.machine":               "platform_machine",
	"platform.python_implementation": "platform_python_implementation",
	"python_implementation":          "platform_python_implementation",
}

var markerVariables = DefaultEnvironment()

func isVariable(name string) bool {
	_, ok := markerVariables[name]
	return ok
}

// Marker is a parsed environment marker expression.
type Marker interface {
	// Evaluate reports whether the marker holds in env. An error means the
	// expression cannot be decided, e.g. "~=" between non-versions or a
	// variable missing from env.
	Evaluate(env Environment) (bool, error)
	String() string
}

type boolOp struct {
	op          string // "and" or "or"
	left, right Marker
}

// Evaluate evaluates both sides before combining them, so an undecidable
// operand fails the whole expression.
func (b *boolOp) Evaluate(env Environment) (bool, error) {
	l, err := b.left.Evaluate(env)
	if err != nil {
		return false, err
	}
	r, err := b.right.Evaluate(env)
	if err != nil {
		return false, err
	}
	if b.op == "and" {
		return l && r, nil
	}
	return l || r, nil
}

func (b *boolOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.left, b.op, b.right)
}

type operand struct {
	value    string
	variable bool
}

func (o operand) String() string {
	if o.variable {
		return o.value
	}
	return fmt.Sprintf("%q", o.value)
}

type comparison struct {
	lhs, rhs operand
	op       string
}

func (c *comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.lhs, c.op, c.rhs)
}

func (c *comparison) Evaluate(env Environment) (bool, error) {
	lhs, err := resolveOperand(c.lhs, env)
	if err != nil {
		return false, err
	}
	rhs, err := resolveOperand(c.rhs, env)
	if err != nil {
		return false, err
	}
	if (c.lhs.variable && c.lhs.value == "extra") || (c.rhs.variable && c.rhs.value == "extra") {
		lhs, rhs = integrations.NormalizePkgName(lhs), integrations.NormalizePkgName(rhs)
	}
	return compareValues(lhs, c.op, rhs)
}

func resolveOperand(o operand, env Environment) (string, error) {
	if !o.variable {
		return o.value, nil
	}
	v, ok := env[o.value]
	if !ok {
		return "", fmt.Errorf("marker variable %q not in environment", o.value)
	}
	return v, nil
}

// compareValues applies op. Version semantics are used when rhs is a valid
// specifier for op and lhs a valid version; otherwise strings are compared.
func compareValues(lhs, op, rhs string) (bool, error) {
	switch op {
	case "in":
		return strings.Contains(rhs, lhs), nil
	case "not in":
		return !strings.Contains(rhs, lhs), nil
	case "===":
		return strings.EqualFold(lhs, rhs), nil
	}

	if spec, err := newSpecifier(op, rhs); err == nil {
		if v, err := ParseVersion(lhs); err == nil {
			return spec.Contains(v), nil
		}
	}

	switch op {
	case "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "<":
		return lhs < rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case ">":
		return lhs > rhs, nil
	case ">=":
		return lhs >= rhs, nil
	}
	return false, fmt.Errorf("undefined comparison %q %s %q", lhs, op, rhs)
}

// ParseMarker parses a PEP 508 marker expression such as
// `python_version >= "3.8" and (sys_platform == "linux" or extra == "test")`.
func ParseMarker(s string) (Marker, error) {
	toks, err := tokenizeMarker(s)
	if err != nil {
		return nil, err
	}
	p := &markerParser{toks: toks}
	m, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("marker %q: %w", s, err)
	}
	if !p.done() {
		return nil, fmt.Errorf("marker %q: unexpected %q", s, p.peek().text)
	}
	return m, nil
}

type tokenKind int

const (
	tokString tokenKind = iota
	tokWord
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func tokenizeMarker(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("marker %q: unterminated string", s)
			}
			toks = append(toks, token{tokString, s[i+1 : i+1+end]})
			i += end + 2
		case strings.IndexByte("=!<>~", c) >= 0:
			op := ""
			for _, candidate := range specifierOps {
				if strings.HasPrefix(s[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return nil, fmt.Errorf("marker %q: bad operator at %d", s, i)
			}
			toks = append(toks, token{tokOp, op})
			i += len(op)
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			toks = append(toks, token{tokWord, s[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("marker %q: unexpected character %q", s, c)
		}
	}
	return toks, nil
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

type markerParser struct {
	toks []token
	pos  int
}

func (p *markerParser) done() bool { return p.pos >= len(p.toks) }

func (p *markerParser) peek() token {
	if p.done() {
		return token{kind: -1}
	}
	return p.toks[p.pos]
}

func (p *markerParser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *markerParser) isWord(w string) bool {
	t := p.peek()
	return t.kind == tokWord && t.text == w
}

func (p *markerParser) parseOr() (Marker, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isWord("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolOp{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (Marker, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.isWord("and") {
		p.next()
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = &boolOp{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAtom() (Marker, error) {
	if p.peek().kind == tokLParen {
		p.next()
		m, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return m, nil
	}

	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &comparison{lhs: lhs, op: op, rhs: rhs}, nil
}

func (p *markerParser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return operand{value: t.text}, nil
	case tokWord:
		name := t.text
		if alias, ok := legacyVariables[name]; ok {
			name = alias
		}
		if !isVariable(name) {
			return operand{}, fmt.Errorf("unknown variable %q", t.text)
		}
		return operand{value: name, variable: true}, nil
	}
	if t.kind < 0 {
		return operand{}, fmt.Errorf("unexpected end of marker")
	}
	return operand{}, fmt.Errorf("expected variable or string, got %q", t.text)
}

func (p *markerParser) parseOperator() (string, error) {
	t := p.next()
	switch {
	case t.kind == tokOp:
		return t.text, nil
	case t.kind == tokWord && t.text == "in":
		return "in", nil
	case t.kind == tokWord && t.text == "not" && p.isWord("in"):
		p.next()
		return "not in", nil
	}
	return "", fmt.Errorf("expected comparison operator, got %q", t.text)
}
