// Package quadio is the CLI's own load/dump line format: each line is
// exactly the space-separated quad.Value.String() lexical form of a
// quad's subject, predicate, object and (optionally) graph, terminated
// with " .". It is deliberately not an RDF syntax codec (spec §1 keeps
// the core free of N-Triples/Turtle/TriG/N-Quads/RDF-XML/JSON-LD
// parsing); it exists only so `cmd/qgdb load`/`dump` have something
// concrete to read and write without pulling in a format library the
// rest of the module has no other use for.
package quadio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/quadgraph/qgdb/quad"
)

// WriteQuad appends one line for q.
func WriteQuad(w io.Writer, q quad.Quad) error {
	g := ""
	if q.Graph != nil && q.Graph != quad.DefaultGraph {
		g = " " + quad.StringOf(q.Graph)
	}
	_, err := fmt.Fprintf(w, "%s %s %s%s .\n", q.Subject.String(), q.Predicate.String(), quad.StringOf(q.Object), g)
	return err
}

// ReadQuads scans r for lines in WriteQuad's format, calling yield for
// each parsed quad until yield returns false, r is exhausted, or a line
// fails to parse.
func ReadQuads(r io.Reader, yield func(quad.Quad) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, "."))

		toks, err := tokenize(line)
		if err != nil {
			return err
		}
		if len(toks) != 3 && len(toks) != 4 {
			return fmt.Errorf("quadio: expected 3 or 4 terms, got %d: %q", len(toks), line)
		}

		s, err := parseTerm(toks[0])
		if err != nil {
			return err
		}
		p, err := parseTerm(toks[1])
		if err != nil {
			return err
		}
		pIRI, ok := p.(quad.IRI)
		if !ok {
			return fmt.Errorf("quadio: predicate must be an IRI: %q", toks[1])
		}
		o, err := parseTerm(toks[2])
		if err != nil {
			return err
		}
		g := quad.Value(quad.DefaultGraph)
		if len(toks) == 4 {
			if g, err = parseTerm(toks[3]); err != nil {
				return err
			}
		}

		q := quad.Quad{Subject: s, Predicate: pIRI, Object: o, Graph: g}
		if err := q.IsValid(); err != nil {
			return err
		}
		if !yield(q) {
			break
		}
	}
	return sc.Err()
}

// tokenize splits line into its term tokens, respecting the three term
// shapes this format understands: <iri>, _:bnode, and "literal" possibly
// followed immediately by @lang or ^^<datatype>.
func tokenize(line string) ([]string, error) {
	var toks []string
	i, n := 0, len(line)
	for i < n {
		for i < n && line[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}
		start := i
		switch line[i] {
		case '<':
			j := strings.IndexByte(line[i:], '>')
			if j < 0 {
				return nil, fmt.Errorf("quadio: unterminated IRI in %q", line)
			}
			i += j + 1
		case '"':
			i++
			for i < n {
				if line[i] == '\\' {
					i += 2
					continue
				}
				if line[i] == '"' {
					i++
					break
				}
				i++
			}
			switch {
			case i < n && line[i] == '@':
				i++
				for i < n && line[i] != ' ' {
					i++
				}
			case i+1 < n && line[i] == '^' && line[i+1] == '^':
				i += 2
				if i < n && line[i] == '<' {
					j := strings.IndexByte(line[i:], '>')
					if j < 0 {
						return nil, fmt.Errorf("quadio: unterminated datatype IRI in %q", line)
					}
					i += j + 1
				}
			}
		case '_':
			for i < n && line[i] != ' ' {
				i++
			}
		default:
			return nil, fmt.Errorf("quadio: unrecognized term starting %q in %q", string(line[i]), line)
		}
		toks = append(toks, line[start:i])
	}
	return toks, nil
}

func parseTerm(tok string) (quad.Value, error) {
	switch {
	case strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">"):
		return quad.IRI(tok[1 : len(tok)-1]), nil
	case strings.HasPrefix(tok, "_:"):
		return quad.BNode(tok[2:]), nil
	case strings.HasPrefix(tok, `"`):
		return parseLiteral(tok)
	default:
		return nil, fmt.Errorf("quadio: unrecognized term %q", tok)
	}
}

func parseLiteral(tok string) (quad.Value, error) {
	var sb strings.Builder
	i := 1
	for i < len(tok) && tok[i] != '"' {
		if tok[i] == '\\' && i+1 < len(tok) {
			switch tok[i+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(tok[i+1])
			}
			i += 2
			continue
		}
		sb.WriteByte(tok[i])
		i++
	}
	if i >= len(tok) {
		return nil, fmt.Errorf("quadio: unterminated literal %q", tok)
	}
	lex := sb.String()
	rest := tok[i+1:]
	switch {
	case rest == "":
		return quad.XSDString(lex), nil
	case strings.HasPrefix(rest, "@"):
		return quad.LangString{Value: quad.XSDString(lex), Lang: rest[1:]}, nil
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
		return quad.TypedLiteral{Value: lex, Type: quad.IRI(rest[3 : len(rest)-1])}, nil
	default:
		return nil, fmt.Errorf("quadio: unrecognized literal suffix %q", rest)
	}
}
