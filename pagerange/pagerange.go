// Package pagerange parses 1-based page selection expressions such as
// "1-3, 5, 9-7" into zero-based page indices.
//
// Parsing is deliberately tolerant: tokens that are empty or not numeric are
// dropped without an error, and Parse itself performs no bounds checking.
// Callers that know the page count use Clamp to discard out-of-range indices.
// Callers rely on this behaviour; do not turn it into strict validation.
package pagerange

import (
	"strconv"
	"strings"
)

// Parse converts expr into an ordered list of zero-based indices. Ranges are
// inclusive; a range whose end precedes its start yields nothing. Duplicates
// are preserved.
func Parse(expr string) []int {
	var out []int
	for _, group := range Groups(expr) {
		out = append(out, group...)
	}
	return out
}

// Groups parses each comma-delimited token of expr separately. Tokens that
// yield no indices are omitted.
func Groups(expr string) [][]int {
	var groups [][]int
	for _, tok := range strings.Split(expr, ",") {
		if idx := parseToken(strings.TrimSpace(tok)); len(idx) > 0 {
			groups = append(groups, idx)
		}
	}
	return groups
}

func parseToken(tok string) []int {
	if tok == "" {
		return nil
	}
	if start, end, ok := strings.Cut(tok, "-"); ok {
		lo, err := strconv.Atoi(strings.TrimSpace(start))
		if err != nil {
			return nil
		}
		hi, err := strconv.Atoi(strings.TrimSpace(end))
		if err != nil {
			return nil
		}
		if hi < lo {
			return nil
		}
		out := make([]int, 0, hi-lo+1)
		for p := lo; p <= hi; p++ {
			out = append(out, p-1)
		}
		return out
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return nil
	}
	return []int{n - 1}
}

// Clamp returns the indices of idx that fall inside [0, pageCount), keeping
// their order and repetitions.
func Clamp(idx []int, pageCount int) []int {
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < pageCount {
			out = append(out, i)
		}
	}
	return out
}

// Set builds a lookup set from idx, used as an exclusion set when deleting.
func Set(idx []int) map[int]struct{} {
	set := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		set[i] = struct{}{}
	}
	return set
}
