package sqltext

import (
	"testing"
	"time"
)

func TestQuoteIdentRoundTrip(t *testing.T) {
	cases := []string{"simple", `has"quote`, `"already"`, ""}
	for _, s := range cases {
		quoted := QuoteIdent(s)
		if len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
			t.Errorf("QuoteIdent(%q) = %q, not wrapped in double quotes", s, quoted)
		}
		if got := UnquoteIdent(quoted); got != s {
			t.Errorf("UnquoteIdent(QuoteIdent(%q)) = %q, want %q", s, got, s)
		}
	}
}

func TestQuoteIdentDoublesInternalQuotes(t *testing.T) {
	if got, want := QuoteIdent(`a"b`), `"a""b"`; got != want {
		t.Errorf("QuoteIdent = %q, want %q", got, want)
	}
}

func TestTimestampAtFormat(t *testing.T) {
	ts := TimestampAt(time.Date(2024, 3, 5, 1, 2, 3, 4_000_000, time.FixedZone("EST", -5*3600)))
	want := "2024-03-05T06:02:03.004Z"
	if ts != want {
		t.Errorf("TimestampAt = %q, want %q", ts, want)
	}
}

func TestPlaceholders(t *testing.T) {
	if got := SqlitePlaceholder(5); got != "?" {
		t.Errorf("SqlitePlaceholder(5) = %q, want \"?\"", got)
	}
	for n, want := range map[int]string{1: "$1", 2: "$2", 42: "$42"} {
		if got := PostgresPlaceholder(n); got != want {
			t.Errorf("PostgresPlaceholder(%d) = %q, want %q", n, got, want)
		}
	}
}
