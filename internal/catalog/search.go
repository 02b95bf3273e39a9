// Package catalog implements the pure filtering and aggregation core of the
// agent catalog: the search predicate applied server-side, the in-memory
// category filter applied to fetched rows, the execution metrics rollup, and
// the tag badge projection for catalog cards.
//
// Everything in this package is a pure function of its inputs so the logic is
// independently testable; fetching lives in internal/storage and orchestration
// in internal/service/catalog.
package catalog

import "strings"

// All is the sentinel filter value meaning "no restriction".
const All = "all"

// ilikeEscaper escapes the characters ILIKE interprets specially, so a search
// for a literal "%" or "_" matches those characters instead of acting as a
// wildcard. Backslash must be first in the replacement chain.
var ilikeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchPattern converts a free-text query into an ILIKE pattern matching the
// query as a case-insensitive substring. An empty or all-whitespace query
// returns ""; callers apply no search filter in that case.
func SearchPattern(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	return "%" + ilikeEscaper.Replace(q) + "%"
}
