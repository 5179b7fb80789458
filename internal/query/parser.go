// Package query parses and evaluates Boolean and proximity queries against an
// index.Inverted.
package query

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/analysis"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/errors"
)

// Boolean operators. A query word is an operator iff its uppercase form is
// one of these.
const (
	OpAnd = "AND"
	OpOr  = "OR"
	OpNot = "NOT"
)

type NodeKind int

const (
	NodeTerm NodeKind = iota
	NodeOperator
)

func (k NodeKind) String() string {
	if k == NodeOperator {
		return "operator"
	}
	return "term"
}

// Node is one element of a parsed Boolean query. Value holds the normalized
// term or the uppercase operator.
type Node struct {
	Kind  NodeKind `json:"kind"`
	Value string   `json:"value"`
}

// BooleanQuery is the ordered node sequence of a raw Boolean query, exactly
// as split from the input. Structure is checked at evaluation, not here.
type BooleanQuery struct {
	Raw   string `json:"raw"`
	Nodes []Node `json:"nodes"`
}

// Terms returns the term nodes in order.
func (q BooleanQuery) Terms() []string {
	return q.values(NodeTerm)
}

// Operators returns the operator nodes in order.
func (q BooleanQuery) Operators() []string {
	return q.values(NodeOperator)
}

func (q BooleanQuery) values(kind NodeKind) []string {
	out := make([]string, 0, len(q.Nodes))
	for _, n := range q.Nodes {
		if n.Kind == kind {
			out = append(out, n.Value)
		}
	}
	return out
}

// String renders the normalized query, e.g. "retriev AND system".
func (q BooleanQuery) String() string {
	parts := make([]string, len(q.Nodes))
	for i, n := range q.Nodes {
		parts[i] = n.Value
	}
	return strings.Join(parts, " ")
}

// ProximityQuery asks for documents where Term1 and Term2 occur within K
// positions of each other.
type ProximityQuery struct {
	Term1 string `json:"term1"`
	Term2 string `json:"term2"`
	K     int    `json:"k"`
}

func (q ProximityQuery) String() string {
	return fmt.Sprintf("%s /%d %s", q.Term1, q.K, q.Term2)
}

// Parser turns raw query strings into parsed queries, normalizing terms with
// the same Normalizer the index was built with.
type Parser struct {
	normalizer *analysis.Normalizer
}

func NewParser(normalizer *analysis.Normalizer) *Parser {
	return &Parser{normalizer: normalizer}
}

// ParseBoolean splits raw on whitespace. Operator words become operator
// nodes; every other word is lowercased and stemmed, with no stop-word, URL
// or digit filtering. It never fails.
func (p *Parser) ParseBoolean(raw string) BooleanQuery {
	words := strings.Fields(raw)
	q := BooleanQuery{Raw: raw, Nodes: make([]Node, 0, len(words))}
	for _, w := range words {
		if op, ok := asOperator(w); ok {
			q.Nodes = append(q.Nodes, Node{Kind: NodeOperator, Value: op})
			continue
		}
		q.Nodes = append(q.Nodes, Node{Kind: NodeTerm, Value: p.normalizer.NormalizeTerm(w)})
	}
	return q
}

// ParseProximity runs raw through the full normalization pipeline and
// returns the first two surviving terms. Anything after them is ignored.
func (p *Parser) ParseProximity(raw string) (string, string, error) {
	terms := p.normalizer.Normalize(raw)
	if len(terms) < 2 {
		return "", "", fmt.Errorf("%w: %q normalizes to %d term(s)", apperrors.ErrInsufficientTerms, raw, len(terms))
	}
	return terms[0], terms[1], nil
}

// ParseProximityQuery is ParseProximity plus the distance window.
func (p *Parser) ParseProximityQuery(raw string, k int) (ProximityQuery, error) {
	if k < 0 {
		return ProximityQuery{}, fmt.Errorf("%w: k must be non-negative, got %d", apperrors.ErrInvalidDistance, k)
	}
	t1, t2, err := p.ParseProximity(raw)
	if err != nil {
		return ProximityQuery{}, err
	}
	return ProximityQuery{Term1: t1, Term2: t2, K: k}, nil
}

func asOperator(word string) (string, bool) {
	switch upper := strings.ToUpper(word); upper {
	case OpAnd, OpOr, OpNot:
		return upper, true
	default:
		return "", false
	}
}
