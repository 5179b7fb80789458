package query

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/errors"
)

// EvaluateBoolean folds terms left to right, combining the running result
// with docs(terms[i]) using operators[i-1]:
//
//	AND  result ∩ docs
//	OR   result ∪ docs
//	NOT  result \ docs
//
// NOT is binary "and not": "a NOT b" is a minus b, and there is no unary
// negation. Operators beyond len(terms)-1 are ignored. A term missing from
// the index contributes an empty set.
func EvaluateBoolean(idx *index.Inverted, terms []string, operators []string) (index.DocSet, error) {
	if len(terms) == 0 {
		return nil, apperrors.ErrEmptyQuery
	}
	if len(operators) < len(terms)-1 {
		return nil, fmt.Errorf("%w: %d terms need %d operators, got %d",
			apperrors.ErrOperatorMismatch, len(terms), len(terms)-1, len(operators))
	}
	result := idx.Docs(terms[0])
	for i := 1; i < len(terms); i++ {
		docs := idx.Docs(terms[i])
		switch op := operators[i-1]; op {
		case OpAnd:
			result = result.Intersect(docs)
		case OpOr:
			result = result.Union(docs)
		case OpNot:
			result = result.Difference(docs)
		default:
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownOperator, op)
		}
	}
	return result, nil
}

// Evaluate checks that q alternates term, operator, term, ... and evaluates
// it. Unlike EvaluateBoolean it rejects leading, trailing, doubled and
// surplus operators and adjacent terms with ErrOperatorMismatch.
func Evaluate(idx *index.Inverted, q BooleanQuery) (index.DocSet, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}
	return EvaluateBoolean(idx, q.Terms(), q.Operators())
}

// Validate reports whether q is a well-formed infix Boolean query.
func Validate(q BooleanQuery) error {
	if len(q.Terms()) == 0 {
		return apperrors.ErrEmptyQuery
	}
	for i, n := range q.Nodes {
		want := NodeTerm
		if i%2 == 1 {
			want = NodeOperator
		}
		if n.Kind != want {
			return fmt.Errorf("%w: expected %s at position %d, got %q", apperrors.ErrOperatorMismatch, want, i+1, n.Value)
		}
	}
	if q.Nodes[len(q.Nodes)-1].Kind == NodeOperator {
		return fmt.Errorf("%w: query ends with operator %q", apperrors.ErrOperatorMismatch, q.Nodes[len(q.Nodes)-1].Value)
	}
	return nil
}

// EvaluateProximity returns the documents in which some occurrence of term1
// and some occurrence of term2 are at most k positions apart. The two terms
// may be equal, in which case any occurrence matches itself.
func EvaluateProximity(idx *index.Inverted, term1, term2 string, k int) (index.DocSet, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must be non-negative, got %d", apperrors.ErrInvalidDistance, k)
	}
	result := index.NewDocSet()
	if !idx.Contains(term1) || !idx.Contains(term2) {
		return result, nil
	}
	for docID := range idx.Docs(term1).Intersect(idx.Docs(term2)) {
		if withinDistance(idx.Positions(term1, docID), idx.Positions(term2, docID), k) {
			result[docID] = struct{}{}
		}
	}
	return result, nil
}

// EvaluateProximityQuery evaluates a parsed ProximityQuery.
func EvaluateProximityQuery(idx *index.Inverted, q ProximityQuery) (index.DocSet, error) {
	return EvaluateProximity(idx, q.Term1, q.Term2, q.K)
}

// withinDistance reports whether some a in p1 and b in p2 satisfy
// |a-b| <= k. Both slices must be ascending. It walks both lists once,
// always advancing the smaller head: the closest partner of the smaller
// value among the remaining positions is the other head.
func withinDistance(p1, p2 []int, k int) bool {
	i, j := 0, 0
	for i < len(p1) && j < len(p2) {
		d := p1[i] - p2[j]
		if d < 0 {
			d = -d
		}
		if d <= k {
			return true
		}
		if p1[i] < p2[j] {
			i++
		} else {
			j++
		}
	}
	return false
}
