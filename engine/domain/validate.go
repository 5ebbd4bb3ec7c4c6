package domain

import "strings"

// Bounds for the n_results search parameter. DefaultNResults applies when
// the caller omits the value.
const (
	MinNResults     = 1
	MaxNResults     = 10
	DefaultNResults = 4
)

// ValidateQuery checks a search query before it reaches the index.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return Errf(KindInternal, "domain.ValidateQuery", "query is empty")
	}
	return nil
}

// ClampNResults normalises a requested result count into the accepted
// range, substituting the default for zero.
func ClampNResults(n int) int {
	if n == 0 {
		return DefaultNResults
	}
	if n < MinNResults {
		return MinNResults
	}
	if n > MaxNResults {
		return MaxNResults
	}
	return n
}
