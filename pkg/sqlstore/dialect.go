package sqlstore

import (
	"fmt"
	"strings"
)

// rebind rewrites a query written with "?" placeholders into the dialect's
// native marker. Every repository method is written against "?" and passed
// through rebind before execution, so dialect handling lives in one place.
func (s *Store) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
