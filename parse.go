package hecate

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// ============================================================
// Errors
// ============================================================

// ParseErrorKind classifies parse failures. A kind is itself an error, so
// errors.Is(err, hecate.BadInt) matches any ParseError of that kind in the
// chain.
type ParseErrorKind int

const (
	BadEquation ParseErrorKind = iota + 1
	BadInt
	BadSymbol
	BadAdd
	BadMul
	BracketMismatch
	BadFunction
	InvalidPow
	InvalidDiff
	EmptyExpr
)

var parseErrorNames = map[ParseErrorKind]string{
	BadEquation:     "bad equation",
	BadInt:          "bad number",
	BadSymbol:       "bad symbol",
	BadAdd:          "bad addition",
	BadMul:          "bad multiplication",
	BracketMismatch: "bracket mismatch",
	BadFunction:     "bad function",
	InvalidPow:      "invalid power",
	InvalidDiff:     "invalid derivative",
	EmptyExpr:       "empty expression",
}

func (k ParseErrorKind) String() string {
	if s, ok := parseErrorNames[k]; ok {
		return s
	}
	return "parse error " + strconv.Itoa(int(k))
}

func (k ParseErrorKind) Error() string { return k.String() }

// ParseError is returned by Parse.
type ParseError struct {
	Kind   ParseErrorKind
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s %q", e.Kind, e.Input)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	k, ok := target.(ParseErrorKind)
	return ok && k == e.Kind
}

func perr(kind ParseErrorKind, input, reason string, err error) *ParseError {
	return &ParseError{Kind: kind, Input: input, Reason: reason, Err: err}
}

// ============================================================
// Parser
// ============================================================

// Parser turns equation text into expressions. It is safe for concurrent use.
type Parser struct {
	function *regexp.Regexp
	dnVar    *regexp.Regexp
	subDnVar *regexp.Regexp
	dDVar    *regexp.Regexp
	diff     *regexp.Regexp
	integer  *regexp.Regexp
	rational *regexp.Regexp
	decimal  *regexp.Regexp
	symbol   *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{
		function: regexp.MustCompile(`^([\p{L}\p{N}_]+)\((.*)\)$`),
		// dx, d2t, ∂^2x
		dnVar:    regexp.MustCompile(`^[d∂]\^?(\d+)?([A-Za-z_])$`),
		subDnVar: regexp.MustCompile(`^[d∂]\^?(\d+)?([A-Za-z_])\((.*)\)$`),
		// d2_dt2, d_dx
		dDVar: regexp.MustCompile(`^[d∂]\^?(\d*)\s*[/_]\s*[d∂]\(?(\w+?)\)?\^?(\d*)$`),
		// d2u/dt^2, du_dt, ∂(u)/∂t
		diff:     regexp.MustCompile(`^[d∂]\^?(\d*)\(?(.+?)\)?\s*[/_]\s*[d∂]\(?(\w+?)\)?\^?(\d*)$`),
		integer:  regexp.MustCompile(`^-?\d+$`),
		rational: regexp.MustCompile(`^-?\d+\s*/\s*\d+$`),
		decimal:  regexp.MustCompile(`^-?(\d+\.\d*|\.\d+)$`),
		symbol:   regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_']*$`),
	}
}

var defaultParser = sync.OnceValue(NewParser)

// Parse parses s with a shared Parser.
func Parse(s string) (Expr, error) { return defaultParser().Parse(s) }

// MustParse is like Parse but panics on error.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// ParseEquation parses s and requires the result to be an equation.
func ParseEquation(s string) (*Equation, error) {
	e, err := Parse(s)
	if err != nil {
		return nil, err
	}
	eq, ok := e.(*Equation)
	if !ok {
		return nil, perr(BadEquation, s, "missing '='", nil)
	}
	return eq, nil
}

// Parse parses an expression or an equation. Sums and products are built
// literally; call Simplify for the canonical form.
func (p *Parser) Parse(s string) (Expr, error) {
	return p.parse(normalizeSuperscripts(s))
}

func (p *Parser) parse(input string) (Expr, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, perr(EmptyExpr, input, "", nil)
	}
	if !bracketsBalanced(s) {
		return nil, perr(BracketMismatch, s, "", nil)
	}

	if strings.Contains(s, "=") {
		return p.parseEquation(s)
	}
	if m := p.function.FindStringSubmatch(s); m != nil && bracketsBalanced(m[2]) {
		return p.parseFunction(s, m[1], m[2])
	}
	if s == "-" || s == "+" {
		return nil, perr(BadInt, s, "missing digits", nil)
	}
	if p.integer.MatchString(s) {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, perr(BadInt, s, "", nil)
		}
		return Int(v), nil
	}
	if p.rational.MatchString(s) || p.decimal.MatchString(s) {
		return parseRational(s)
	}

	if pieces := splitRoot(s, "+-"); len(pieces) > 1 || (len(pieces) == 1 && pieces[0].op != 0) {
		terms := make([]Expr, 0, len(pieces))
		for _, pc := range pieces {
			t, err := p.parse(pc.text)
			if err != nil {
				return nil, perr(BadAdd, s, "", err)
			}
			if pc.op == '-' {
				t = Neg(t)
			}
			terms = append(terms, t)
		}
		if len(terms) == 1 {
			return terms[0], nil
		}
		return &Add{terms: terms}, nil
	}

	if m := p.diff.FindStringSubmatch(s); m != nil {
		return p.parseDiff(s, m)
	}

	if pieces := splitRoot(s, "*/"); len(pieces) > 1 || (len(pieces) == 1 && pieces[0].op != 0) {
		if pieces[0].op != 0 {
			return nil, perr(BadMul, s, "missing left operand", nil)
		}
		var factors []Expr
		for _, pc := range pieces {
			f, err := p.parse(pc.text)
			if err != nil {
				return nil, perr(BadMul, s, "", err)
			}
			if pc.op == '/' {
				f = &Pow{base: f, exp: N(-1)}
			}
			factors = append(factors, mulFactors(f)...)
		}
		return &Mul{factors: factors}, nil
	}

	if inner, ok := stripOuterBrackets(s); ok {
		return p.parse(inner)
	}

	if pieces := splitRoot(s, "^"); len(pieces) > 1 || (len(pieces) == 1 && pieces[0].op != 0) {
		if len(pieces) != 2 || pieces[0].op != 0 {
			return nil, perr(InvalidPow, s, fmt.Sprintf("want 2 operands, got %d", len(pieces)), nil)
		}
		base, err := p.parse(pieces[0].text)
		if err != nil {
			return nil, perr(InvalidPow, s, "", err)
		}
		exp, err := p.parse(pieces[1].text)
		if err != nil {
			return nil, perr(InvalidPow, s, "", err)
		}
		return &Pow{base: base, exp: exp}, nil
	}

	if !p.symbol.MatchString(s) {
		return nil, perr(BadSymbol, s, "", nil)
	}
	return S(s), nil
}

func (p *Parser) parseEquation(s string) (Expr, error) {
	parts := strings.Split(s, "=")
	if len(parts) != 2 {
		return nil, perr(BadEquation, s, fmt.Sprintf("wrong number of operands: %d", len(parts)), nil)
	}
	if strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return nil, perr(BadEquation, s, "empty operand", nil)
	}
	lhs, err := p.parse(parts[0])
	if err != nil {
		return nil, perr(BadEquation, s, "invalid lhs", err)
	}
	rhs, err := p.parse(parts[1])
	if err != nil {
		return nil, perr(BadEquation, s, "invalid rhs", err)
	}
	return Eq(lhs, rhs), nil
}

func (p *Parser) parseFunction(s, name, rawArgs string) (Expr, error) {
	var args []string
	for _, pc := range splitRoot(rawArgs, ",") {
		args = append(args, pc.text)
	}
	wantArgs := func(n int) error {
		if len(args) != n {
			return perr(BadFunction, s, fmt.Sprintf("bad argument count: want %d, got %d", n, len(args)), nil)
		}
		return nil
	}

	if m := p.dnVar.FindStringSubmatch(name); m != nil {
		if err := wantArgs(1); err != nil {
			return nil, err
		}
		vars := []VarOrder{D(m[2], orderOf(m[1]))}
		inner := args[0]
		for {
			sub := p.subDnVar.FindStringSubmatch(strings.TrimSpace(inner))
			if sub == nil {
				break
			}
			vars = append(vars, D(sub[2], orderOf(sub[1])))
			inner = sub[3]
		}
		target, err := p.parse(inner)
		if err != nil {
			return nil, perr(BadFunction, s, "invalid argument", err)
		}
		return DiffOf(target, vars...), nil
	}

	if m := p.dDVar.FindStringSubmatch(name); m != nil {
		if err := wantArgs(1); err != nil {
			return nil, err
		}
		num, den := orderOf(m[1]), orderOf(m[3])
		if num != den {
			return nil, perr(BadFunction, s, fmt.Sprintf("order mismatch: %d != %d", num, den), nil)
		}
		target, err := p.parse(args[0])
		if err != nil {
			return nil, perr(BadFunction, s, "invalid argument", err)
		}
		return DiffOf(target, D(m[2], num)), nil
	}

	parsed := make([]Expr, len(args))
	for i, a := range args {
		e, err := p.parse(a)
		if err != nil {
			return nil, perr(BadFunction, s, "invalid argument", err)
		}
		parsed[i] = e
	}

	switch name {
	case "laplacian":
		if err := wantArgs(1); err != nil {
			return nil, err
		}
		return Times(S(LaplacianName), parsed[0]), nil
	case "diff":
		if len(args) != 2 && len(args) != 3 {
			return nil, perr(BadFunction, s, fmt.Sprintf("bad argument count: want 2 or 3, got %d", len(args)), nil)
		}
		v, ok := parsed[1].(*Symbol)
		if !ok {
			return nil, perr(BadFunction, s, "derivative variable must be a symbol", nil)
		}
		order := 1
		if len(args) == 3 {
			n, ok := parsed[2].(*Integer)
			k, fits := int64(0), false
			if ok {
				k, fits = n.Int64()
			}
			if !fits || k < 1 {
				return nil, perr(BadFunction, s, "invalid order format", nil)
			}
			order = int(k)
		}
		return DiffOf(parsed[0], VarOrder{Var: v, Order: order}), nil
	}
	return NewFunc(name, parsed...), nil
}

func (p *Parser) parseDiff(s string, m []string) (Expr, error) {
	num, den := orderOf(m[1]), orderOf(m[4])
	if num != den {
		return nil, perr(InvalidDiff, s, fmt.Sprintf("order mismatch: %d != %d", num, den), nil)
	}
	target, err := p.parse(m[2])
	if err != nil {
		return nil, perr(InvalidDiff, s, "", err)
	}
	return DiffOf(target, D(m[3], num)), nil
}

func parseRational(s string) (Expr, error) {
	r, ok := new(big.Rat).SetString(strings.ReplaceAll(s, " ", ""))
	if !ok {
		return nil, perr(BadInt, s, "invalid rational", nil)
	}
	return Rat(r), nil
}

func orderOf(digits string) int {
	if digits == "" {
		return 1
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ============================================================
// Lexical helpers
// ============================================================

type piece struct {
	op   rune // splitter preceding the piece, 0 for none
	text string
}

// splitRoot splits s at top-level occurrences of the runes in ops. A '+' or
// '-' following another operator or an opening bracket is a sign, not a
// splitter.
func splitRoot(s, ops string) []piece {
	var out []piece
	depth := 0
	var prev rune
	start := 0
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
			continue
		case ')', ']', '}':
			depth--
			continue
		}
		if depth != 0 || !strings.ContainsRune(ops, r) {
			continue
		}
		if (r == '-' || r == '+') && isSign(s[:i]) {
			continue
		}
		if part := strings.TrimSpace(s[start:i]); part != "" {
			out = append(out, piece{op: prev, text: part})
		}
		prev = r
		start = i + utf8.RuneLen(r)
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, piece{op: prev, text: part})
	}
	return out
}

func isSign(prefix string) bool {
	p := strings.TrimRightFunc(prefix, unicode.IsSpace)
	if p == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(p)
	return strings.ContainsRune("^*/([{,", last)
}

var closers = map[rune]rune{')': '(', ']': '[', '}': '{'}

func bracketsBalanced(s string) bool {
	var stack []rune
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != closers[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// stripOuterBrackets removes one bracket pair enclosing all of s.
func stripOuterBrackets(s string) (string, bool) {
	if s == "" || !strings.ContainsRune("([{", rune(s[0])) {
		return "", false
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				if i == len(s)-1 {
					return s[1:i], true
				}
				return "", false
			}
		}
	}
	return "", false
}

var superscripts = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
}

// normalizeSuperscripts rewrites superscript digit runs: x² becomes x^2.
func normalizeSuperscripts(s string) string {
	if !strings.ContainsAny(s, "⁰¹²³⁴⁵⁶⁷⁸⁹") {
		return s
	}
	var sb strings.Builder
	inRun := false
	for _, r := range s {
		d, ok := superscripts[r]
		if !ok {
			inRun = false
			sb.WriteRune(r)
			continue
		}
		if !inRun {
			sb.WriteByte('^')
			inRun = true
		}
		sb.WriteRune(d)
	}
	return sb.String()
}
