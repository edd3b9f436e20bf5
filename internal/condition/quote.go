package condition

import "strings"

// quoteLiteral renders s as a single-quoted SQL string literal,
// doubling embedded quotes, matching Postgres's quote_literal.
func quoteLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString("''")
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
