package expr

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/quad"
)

const xsdNS = "http://www.w3.org/2001/XMLSchema#"

func xsd(local string) quad.IRI { return quad.IRI(xsdNS + local) }

// Binding resolves a variable to its current term, if bound.
type Binding interface {
	Lookup(v Var) (quad.Value, bool)
}

// MapBinding is the common in-memory Binding implementation; the engine
// package's solution type satisfies Binding via this or an equivalent.
type MapBinding map[Var]quad.Value

func (m MapBinding) Lookup(v Var) (quad.Value, bool) { t, ok := m[v]; return t, ok }

// CustomFunc is a registered extension-point function (spec §4.G).
type CustomFunc func(args []quad.Value) (quad.Value, error)

// Registry holds custom-function bindings, keyed by IRI.
type Registry struct {
	funcs map[string]CustomFunc
}

func NewRegistry() *Registry { return &Registry{funcs: map[string]CustomFunc{}} }

func (r *Registry) Register(iri string, fn CustomFunc) { r.funcs[iri] = fn }

// Eval evaluates e against b, using reg (may be nil) to resolve
// CustomCall nodes. Errors participate in SPARQL three-valued logic: the
// caller (FILTER, BOUND, COALESCE) decides how to treat them.
func Eval(e Expr, b Binding, reg *Registry) (quad.Value, error) {
	switch t := e.(type) {
	case Term:
		return t.Value, nil
	case VarRef:
		v, ok := b.Lookup(t.Name)
		if !ok {
			return nil, qerrors.New(qerrors.EvaluationError, "unbound variable ?%s", t.Name)
		}
		return v, nil
	case Call:
		return evalCall(t, b, reg)
	case CustomCall:
		if reg == nil {
			return nil, qerrors.New(qerrors.EvaluationError, "no custom function registered for <%s>", t.IRI)
		}
		fn, ok := reg.funcs[t.IRI]
		if !ok {
			return nil, qerrors.New(qerrors.EvaluationError, "no custom function registered for <%s>", t.IRI)
		}
		args := make([]quad.Value, len(t.Args))
		for i, a := range t.Args {
			v, err := Eval(a, b, reg)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return fn(args)
	default:
		return nil, qerrors.New(qerrors.EvaluationError, "expr: unknown node %T", e)
	}
}

// EffectiveBooleanValue computes SPARQL's EBV coercion.
func EffectiveBooleanValue(v quad.Value) (bool, error) {
	switch t := v.(type) {
	case quad.TypedLiteral:
		switch string(t.Type) {
		case xsdNS + "boolean":
			return t.Value == "true" || t.Value == "1", nil
		case xsdNS + "integer", xsdNS + "decimal", xsdNS + "float", xsdNS + "double":
			f, err := strconv.ParseFloat(t.Value, 64)
			if err != nil {
				return false, qerrors.New(qerrors.EvaluationError, "EBV: invalid numeric %q", t.Value)
			}
			return f != 0 && !math.IsNaN(f), nil
		}
		return false, qerrors.New(qerrors.EvaluationError, "EBV: not applicable to datatype <%s>", t.Type)
	case quad.XSDString:
		return len(t) > 0, nil
	case quad.LangString:
		return len(t.Value) > 0, nil
	default:
		return false, qerrors.New(qerrors.EvaluationError, "EBV: not applicable to %T", v)
	}
}

func evalCall(c Call, b Binding, reg *Registry) (quad.Value, error) {
	arg := func(i int) (quad.Value, error) { return Eval(c.Args[i], b, reg) }
	boolArg := func(i int) (bool, error) {
		v, err := arg(i)
		if err != nil {
			return false, err
		}
		return EffectiveBooleanValue(v)
	}
	boolTerm := func(b bool) quad.Value {
		v := "false"
		if b {
			v = "true"
		}
		return quad.TypedLiteral{Value: v, Type: xsd("boolean")}
	}

	switch c.Op {
	case OpOr:
		l, lerr := boolArg(0)
		if lerr == nil && l {
			return boolTerm(true), nil
		}
		r, rerr := boolArg(1)
		if rerr == nil && r {
			return boolTerm(true), nil
		}
		if lerr != nil || rerr != nil {
			return nil, qerrors.New(qerrors.EvaluationError, "OR: operand error")
		}
		return boolTerm(false), nil
	case OpAnd:
		l, lerr := boolArg(0)
		if lerr == nil && !l {
			return boolTerm(false), nil
		}
		r, rerr := boolArg(1)
		if rerr == nil && !r {
			return boolTerm(false), nil
		}
		if lerr != nil || rerr != nil {
			return nil, qerrors.New(qerrors.EvaluationError, "AND: operand error")
		}
		return boolTerm(true), nil
	case OpNot:
		v, err := boolArg(0)
		if err != nil {
			return nil, err
		}
		return boolTerm(!v), nil
	case OpBound:
		// Args[0] must be a VarRef; BOUND never errors (spec §4.G).
		vr, ok := c.Args[0].(VarRef)
		if !ok {
			return nil, qerrors.New(qerrors.EvaluationError, "BOUND: argument must be a variable")
		}
		_, found := b.Lookup(vr.Name)
		return boolTerm(found), nil
	case OpIf:
		cond, err := boolArg(0)
		if err != nil {
			return nil, err
		}
		if cond {
			return arg(1)
		}
		return arg(2)
	case OpCoalesce:
		for _, a := range c.Args {
			v, err := Eval(a, b, reg)
			if err == nil {
				return v, nil
			}
		}
		return nil, qerrors.New(qerrors.EvaluationError, "COALESCE: all arguments errored")
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		l, err := arg(0)
		if err != nil {
			return nil, err
		}
		r, err := arg(1)
		if err != nil {
			return nil, err
		}
		cmp, err := Compare(l, r)
		if err != nil {
			return nil, err
		}
		switch c.Op {
		case OpEqual:
			return boolTerm(cmp == 0), nil
		case OpNotEqual:
			return boolTerm(cmp != 0), nil
		case OpLess:
			return boolTerm(cmp < 0), nil
		case OpLessEqual:
			return boolTerm(cmp <= 0), nil
		case OpGreater:
			return boolTerm(cmp > 0), nil
		default:
			return boolTerm(cmp >= 0), nil
		}
	case OpSameTerm:
		l, err := arg(0)
		if err != nil {
			return nil, err
		}
		r, err := arg(1)
		if err != nil {
			return nil, err
		}
		return boolTerm(sameTerm(l, r)), nil
	case OpIsIRI:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		_, ok := v.(quad.IRI)
		return boolTerm(ok), nil
	case OpIsBlank:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		_, ok := v.(quad.BNode)
		return boolTerm(ok), nil
	case OpIsLiteral:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		switch v.(type) {
		case quad.XSDString, quad.LangString, quad.TypedLiteral:
			return boolTerm(true), nil
		}
		return boolTerm(false), nil
	case OpIsNumeric:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		_, ok := numeric(v)
		return boolTerm(ok), nil
	case OpAdd, OpSub, OpMul, OpDiv:
		l, err := arg(0)
		if err != nil {
			return nil, err
		}
		r, err := arg(1)
		if err != nil {
			return nil, err
		}
		return arith(c.Op, l, r)
	case OpUnaryPlus:
		return arg(0)
	case OpUnaryMinus:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		f, ok := numeric(v)
		if !ok {
			return nil, qerrors.New(qerrors.EvaluationError, "unary minus: not numeric")
		}
		return numTerm(-f, numericType(v)), nil
	case OpStr:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return quad.XSDString(lexical(v)), nil
	case OpIRIFunc:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return quad.IRI(lexical(v)), nil
	case OpBNodeFunc:
		if len(c.Args) == 0 {
			return quad.BNode(uuid.NewString()), nil
		}
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return quad.BNode(lexical(v)), nil
	case OpUUID:
		return quad.IRI("urn:uuid:" + uuid.NewString()), nil
	case OpStrUUID:
		return quad.XSDString(uuid.NewString()), nil
	case OpLang:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		if ls, ok := v.(quad.LangString); ok {
			return quad.XSDString(ls.Lang), nil
		}
		return quad.XSDString(""), nil
	case OpLangMatches:
		l, err := arg(0)
		if err != nil {
			return nil, err
		}
		r, err := arg(1)
		if err != nil {
			return nil, err
		}
		return boolTerm(langMatches(lexical(l), lexical(r))), nil
	case OpDatatype:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return quad.IRI(datatypeOf(v)), nil
	case OpStrLen:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return numTerm(float64(len([]rune(lexical(v)))), xsd("integer")), nil
	case OpSubstr:
		s, err := substrArgs(c, b, reg)
		if err != nil {
			return nil, err
		}
		return quad.XSDString(s), nil
	case OpUCase:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return quad.XSDString(strings.ToUpper(lexical(v))), nil
	case OpLCase:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return quad.XSDString(strings.ToLower(lexical(v))), nil
	case OpStrStarts:
		l, r, err := pairLexical(c, b, reg)
		if err != nil {
			return nil, err
		}
		return boolTerm(strings.HasPrefix(l, r)), nil
	case OpStrEnds:
		l, r, err := pairLexical(c, b, reg)
		if err != nil {
			return nil, err
		}
		return boolTerm(strings.HasSuffix(l, r)), nil
	case OpContains:
		l, r, err := pairLexical(c, b, reg)
		if err != nil {
			return nil, err
		}
		return boolTerm(strings.Contains(l, r)), nil
	case OpStrBefore:
		l, r, err := pairLexical(c, b, reg)
		if err != nil {
			return nil, err
		}
		if i := strings.Index(l, r); i >= 0 {
			return quad.XSDString(l[:i]), nil
		}
		return quad.XSDString(""), nil
	case OpStrAfter:
		l, r, err := pairLexical(c, b, reg)
		if err != nil {
			return nil, err
		}
		if i := strings.Index(l, r); i >= 0 {
			return quad.XSDString(l[i+len(r):]), nil
		}
		return quad.XSDString(""), nil
	case OpEncodeForURI:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return quad.XSDString(url.QueryEscape(lexical(v))), nil
	case OpConcat:
		var sb strings.Builder
		for i := range c.Args {
			v, err := arg(i)
			if err != nil {
				return nil, err
			}
			sb.WriteString(lexical(v))
		}
		return quad.XSDString(sb.String()), nil
	case OpReplace:
		return evalReplace(c, b, reg)
	case OpRegex:
		return evalRegex(c, b, reg)
	case OpAbs, OpCeil, OpFloor, OpRound:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		f, ok := numeric(v)
		if !ok {
			return nil, qerrors.New(qerrors.EvaluationError, "%v: not numeric", c.Op)
		}
		var out float64
		switch c.Op {
		case OpAbs:
			out = math.Abs(f)
		case OpCeil:
			out = math.Ceil(f)
		case OpFloor:
			out = math.Floor(f)
		case OpRound:
			out = math.Round(f)
		}
		return numTerm(out, numericType(v)), nil
	case OpRand:
		return numTerm(pseudoRand(), xsd("double")), nil
	case OpNow:
		return quad.TypedLiteral{Value: time.Now().UTC().Format(time.RFC3339Nano), Type: xsd("dateTime")}, nil
	case OpYear, OpMonth, OpDay, OpHours, OpMinutes, OpSeconds, OpTimezone, OpTZ:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return dateTimePart(c.Op, v)
	case OpMD5, OpSHA1, OpSHA256, OpSHA384, OpSHA512:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		return quad.XSDString(hashHex(c.Op, lexical(v))), nil
	case OpIn, OpNotIn:
		v, err := arg(0)
		if err != nil {
			return nil, err
		}
		found := false
		for _, a := range c.Args[1:] {
			candidate, err := Eval(a, b, reg)
			if err != nil {
				continue
			}
			if sameTerm(v, candidate) {
				found = true
				break
			}
		}
		if c.Op == OpNotIn {
			found = !found
		}
		return boolTerm(found), nil
	default:
		return nil, qerrors.New(qerrors.EvaluationError, "expr: unimplemented operator %v", c.Op)
	}
}

func pairLexical(c Call, b Binding, reg *Registry) (string, string, error) {
	l, err := Eval(c.Args[0], b, reg)
	if err != nil {
		return "", "", err
	}
	r, err := Eval(c.Args[1], b, reg)
	if err != nil {
		return "", "", err
	}
	return lexical(l), lexical(r), nil
}

func substrArgs(c Call, b Binding, reg *Registry) (string, error) {
	v, err := Eval(c.Args[0], b, reg)
	if err != nil {
		return "", err
	}
	s := []rune(lexical(v))
	startV, err := Eval(c.Args[1], b, reg)
	if err != nil {
		return "", err
	}
	startF, ok := numeric(startV)
	if !ok {
		return "", qerrors.New(qerrors.EvaluationError, "SUBSTR: start not numeric")
	}
	start := int(startF) - 1
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		start = len(s)
	}
	end := len(s)
	if len(c.Args) > 2 {
		lenV, err := Eval(c.Args[2], b, reg)
		if err != nil {
			return "", err
		}
		lenF, ok := numeric(lenV)
		if !ok {
			return "", qerrors.New(qerrors.EvaluationError, "SUBSTR: length not numeric")
		}
		end = start + int(lenF)
		if end > len(s) {
			end = len(s)
		}
		if end < start {
			end = start
		}
	}
	return string(s[start:end]), nil
}

func evalReplace(c Call, b Binding, reg *Registry) (quad.Value, error) {
	v, err := Eval(c.Args[0], b, reg)
	if err != nil {
		return nil, err
	}
	pat, err := Eval(c.Args[1], b, reg)
	if err != nil {
		return nil, err
	}
	rep, err := Eval(c.Args[2], b, reg)
	if err != nil {
		return nil, err
	}
	flags := ""
	if len(c.Args) > 3 {
		f, err := Eval(c.Args[3], b, reg)
		if err != nil {
			return nil, err
		}
		flags = lexical(f)
	}
	re, err := compileRegex(lexical(pat), flags)
	if err != nil {
		return nil, err
	}
	out := re.ReplaceAllString(lexical(v), translateReplacement(lexical(rep)))
	return quad.XSDString(out), nil
}

// translateReplacement maps SPARQL/XPath $1-style backreferences to Go's
// regexp ${1} form.
func translateReplacement(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '$' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			sb.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func evalRegex(c Call, b Binding, reg *Registry) (quad.Value, error) {
	v, err := Eval(c.Args[0], b, reg)
	if err != nil {
		return nil, err
	}
	pat, err := Eval(c.Args[1], b, reg)
	if err != nil {
		return nil, err
	}
	flags := ""
	if len(c.Args) > 2 {
		f, err := Eval(c.Args[2], b, reg)
		if err != nil {
			return nil, err
		}
		flags = lexical(f)
	}
	re, err := compileRegex(lexical(pat), flags)
	if err != nil {
		return nil, err
	}
	match := re.MatchString(lexical(v))
	vb := "false"
	if match {
		vb = "true"
	}
	return quad.TypedLiteral{Value: vb, Type: xsd("boolean")}, nil
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	prefix := ""
	if strings.ContainsRune(flags, 'i') {
		prefix += "i"
	}
	if strings.ContainsRune(flags, 's') {
		prefix += "s"
	}
	if strings.ContainsRune(flags, 'm') {
		prefix += "m"
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, qerrors.New(qerrors.EvaluationError, "REGEX: invalid pattern: %v", err)
	}
	return re, nil
}

func hashHex(op BuiltinOp, s string) string {
	switch op {
	case OpMD5:
		sum := md5.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	case OpSHA1:
		sum := sha1.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	case OpSHA256:
		sum := sha256.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	case OpSHA384:
		sum := sha512.Sum384([]byte(s))
		return hex.EncodeToString(sum[:])
	default:
		sum := sha512.Sum512([]byte(s))
		return hex.EncodeToString(sum[:])
	}
}

func dateTimePart(op BuiltinOp, v quad.Value) (quad.Value, error) {
	t, ok := v.(quad.TypedLiteral)
	if !ok || (string(t.Type) != xsdNS+"dateTime" && string(t.Type) != xsdNS+"date") {
		return nil, qerrors.New(qerrors.EvaluationError, "date function: not a dateTime/date")
	}
	layout := time.RFC3339Nano
	if string(t.Type) == xsdNS+"date" {
		layout = "2006-01-02"
	}
	parsed, err := time.Parse(layout, t.Value)
	if err != nil {
		return nil, qerrors.New(qerrors.EvaluationError, "date function: invalid lexical form %q", t.Value)
	}
	switch op {
	case OpYear:
		return numTerm(float64(parsed.Year()), xsd("integer")), nil
	case OpMonth:
		return numTerm(float64(parsed.Month()), xsd("integer")), nil
	case OpDay:
		return numTerm(float64(parsed.Day()), xsd("integer")), nil
	case OpHours:
		return numTerm(float64(parsed.Hour()), xsd("integer")), nil
	case OpMinutes:
		return numTerm(float64(parsed.Minute()), xsd("integer")), nil
	case OpSeconds:
		return numTerm(float64(parsed.Second()), xsd("decimal")), nil
	case OpTimezone:
		_, off := parsed.Zone()
		return quad.TypedLiteral{Value: fmt.Sprintf("PT%dH", off/3600), Type: xsd("dayTimeDuration")}, nil
	default: // OpTZ
		_, off := parsed.Zone()
		if off == 0 {
			return quad.XSDString("Z"), nil
		}
		return quad.XSDString(parsed.Format("-07:00")), nil
	}
}

func lexical(v quad.Value) string {
	switch t := v.(type) {
	case quad.XSDString:
		return string(t)
	case quad.LangString:
		return string(t.Value)
	case quad.TypedLiteral:
		return t.Value
	case quad.IRI:
		return string(t)
	default:
		return quad.StringOf(v)
	}
}

func datatypeOf(v quad.Value) string {
	switch t := v.(type) {
	case quad.XSDString:
		return xsdNS + "string"
	case quad.LangString:
		return "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	case quad.TypedLiteral:
		return string(t.Type)
	default:
		return ""
	}
}

func langMatches(tag, rng string) bool {
	if rng == "*" {
		return tag != ""
	}
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	return tag == rng || strings.HasPrefix(tag, rng+"-")
}

func sameTerm(l, r quad.Value) bool {
	if eq, ok := l.(quad.Equaler); ok {
		return eq.Equal(r)
	}
	if eq, ok := r.(quad.Equaler); ok {
		return eq.Equal(l)
	}
	if fmt.Sprintf("%T", l) != fmt.Sprintf("%T", r) {
		return false
	}
	return quad.StringOf(l) == quad.StringOf(r)
}

func numeric(v quad.Value) (float64, bool) {
	t, ok := v.(quad.TypedLiteral)
	if !ok {
		return 0, false
	}
	switch string(t.Type) {
	case xsdNS + "integer", xsdNS + "decimal", xsdNS + "float", xsdNS + "double":
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func numericType(v quad.Value) quad.IRI {
	if t, ok := v.(quad.TypedLiteral); ok {
		return t.Type
	}
	return xsd("double")
}

func numTerm(f float64, typ quad.IRI) quad.Value {
	var s string
	if typ == xsd("integer") {
		s = strconv.FormatInt(int64(f), 10)
	} else {
		s = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return quad.TypedLiteral{Value: s, Type: typ}
}

func arith(op BuiltinOp, l, r quad.Value) (quad.Value, error) {
	lf, ok := numeric(l)
	if !ok {
		return nil, qerrors.New(qerrors.EvaluationError, "arithmetic: left operand not numeric")
	}
	rf, ok := numeric(r)
	if !ok {
		return nil, qerrors.New(qerrors.EvaluationError, "arithmetic: right operand not numeric")
	}
	typ := promote(numericType(l), numericType(r))
	switch op {
	case OpAdd:
		return numTerm(lf+rf, typ), nil
	case OpSub:
		return numTerm(lf-rf, typ), nil
	case OpMul:
		return numTerm(lf*rf, typ), nil
	case OpDiv:
		if rf == 0 {
			return nil, qerrors.New(qerrors.EvaluationError, "division by zero")
		}
		return numTerm(lf/rf, xsd("decimal")), nil
	default:
		return nil, qerrors.New(qerrors.EvaluationError, "arith: unreachable operator")
	}
}

// promote picks the wider of two numeric XSD types, per the
// integer < decimal < float < double promotion ladder.
func promote(a, b quad.IRI) quad.IRI {
	rank := func(t quad.IRI) int {
		switch t {
		case xsd("integer"):
			return 0
		case xsd("decimal"):
			return 1
		case xsd("float"):
			return 2
		default:
			return 3
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

// pseudoRand is a deterministic xorshift substitute for xsd:double RAND().
// Its state is the package-level randState, which every call advances;
// callers needing true randomness should register a CustomCall instead
// (spec §4.G extension point).
var randState uint64 = 0x9E3779B97F4A7C15

func pseudoRand() float64 {
	randState ^= randState << 13
	randState ^= randState >> 7
	randState ^= randState << 17
	return float64(randState%1_000_000) / 1_000_000
}
