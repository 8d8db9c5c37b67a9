// Package complexity scores GraphQL operation documents by depth and field count so
// the middleware stack can refuse runaway queries before execution.
package complexity

import (
	"fmt"

	"github.com/wundergraph/graphql-go-tools/v2/pkg/ast"
)

// Analyzer computes depth and complexity scores for an operation. Instances are
// immutable and safe for concurrent use.
type Analyzer struct {
	maxDepth      int
	maxComplexity int
}

// Result carries the computed scores and any limit violations.
type Result struct {
	Depth      int
	Complexity int
	Violations []string
}

// Exceeded reports whether any limit was violated.
func (r Result) Exceeded() bool {
	return len(r.Violations) > 0
}

// New creates an Analyzer with the given limits. A non-positive limit disables that
// check.
func New(maxDepth, maxComplexity int) *Analyzer {
	return &Analyzer{maxDepth: maxDepth, maxComplexity: maxComplexity}
}

// Analyze walks the full operation document rooted at the given operation
// definition and scores it. Introspection meta fields count like any other field;
// a query that selects half the introspection schema is not free.
func (a *Analyzer) Analyze(doc *ast.Document, operationRef int) Result {
	result := Result{}
	if doc == nil || operationRef < 0 || operationRef >= len(doc.OperationDefinitions) {
		return result
	}

	op := doc.OperationDefinitions[operationRef]
	if op.HasSelections {
		result.Depth, result.Complexity = a.walkSelectionSet(doc, op.SelectionSet)
	}

	if a.maxDepth > 0 && result.Depth > a.maxDepth {
		result.Violations = append(result.Violations,
			fmt.Sprintf("query depth %d exceeds maximum %d", result.Depth, a.maxDepth))
	}
	if a.maxComplexity > 0 && result.Complexity > a.maxComplexity {
		result.Violations = append(result.Violations,
			fmt.Sprintf("query complexity %d exceeds maximum %d", result.Complexity, a.maxComplexity))
	}
	return result
}

// walkSelectionSet returns (maxDepth, fieldCount) for one selection set.
func (a *Analyzer) walkSelectionSet(doc *ast.Document, set int) (int, int) {
	maxDepth := 0
	complexity := 0

	for _, ref := range doc.SelectionSets[set].SelectionRefs {
		selection := doc.Selections[ref]
		if selection.Kind != ast.SelectionKindField {
			continue
		}
		field := doc.Fields[selection.Ref]
		complexity++

		depth := 1
		if field.HasSelections {
			childDepth, childComplexity := a.walkSelectionSet(doc, field.SelectionSet)
			depth += childDepth
			complexity += childComplexity
		}
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	return maxDepth, complexity
}
