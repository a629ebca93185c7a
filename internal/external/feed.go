// Package external hosts the upstream feed clients and the types they
// share. Each exchange gets its own subpackage; all outbound HTTP goes
// through pkg/httputil so rate limiting and retries apply uniformly.
package external

import (
	"strings"
	"time"
)

// FetchMeta is what a feed client learned about one fetch, independent of
// whether parsing succeeded. It feeds the per-source provenance ledger.
type FetchMeta struct {
	URL           string
	FetchedUTC    time.Time
	HTTPStatus    int
	ContentSHA256 string
	RowCount      int
}

// HeaderIndex maps lowercased, trimmed CSV header names to their column
// position. Upstream files move columns around between publishes; callers
// must look fields up by name, never by position.
func HeaderIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return col
}

// Field returns the trimmed value of the named column, or "" when the
// column is absent or the record is short.
func Field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
