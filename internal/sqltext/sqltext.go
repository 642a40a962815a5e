// Package sqltext holds the small set of text-emission helpers shared by
// the rewrite engine and the backends: identifier quoting, dialect
// placeholder rendering, and the deterministic timestamp() helper.
package sqltext

import (
	"strings"
	"time"
)

// QuoteIdent wraps s in double quotes, doubling any internal double quote,
// per the identifier quoting rule named in spec.md section 6.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// UnquoteIdent reverses QuoteIdent. Returns s unchanged if it is not a
// quoted identifier.
func UnquoteIdent(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	inner := s[1 : len(s)-1]
	return strings.ReplaceAll(inner, `""`, `"`)
}

// Timestamp returns the current instant as RFC3339 UTC with millisecond
// precision and a literal Z suffix, produced by this single helper so
// commits stay deterministic under test harnesses that shuffle wall time.
func Timestamp() string {
	return TimestampAt(time.Now())
}

// TimestampAt formats an arbitrary instant the same way Timestamp does;
// exported so tests can pin the clock.
func TimestampAt(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Placeholder renders the Nth (1-indexed) positional placeholder for a
// dialect: "?" for Sqlite, "$n" for Postgres.
type Placeholder func(n int) string

func SqlitePlaceholder(int) string { return "?" }

func PostgresPlaceholder(n int) string {
	var b strings.Builder
	b.WriteByte('$')
	b.WriteString(itoa(n))
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
