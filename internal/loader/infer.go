package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/frame"
)

// kindState widens a column's kind as tokens are observed:
// int -> double -> string, with boolean only while every token is boolean.
type kindState struct {
	seen bool
	kind frame.Kind
}

func (s *kindState) observe(k frame.Kind) {
	if !s.seen {
		s.seen = true
		s.kind = k
		return
	}
	s.kind = widen(s.kind, k)
}

func widen(a, b frame.Kind) frame.Kind {
	if a == b {
		return a
	}
	if a.Numeric() && b.Numeric() {
		return frame.KindDouble
	}
	return frame.KindString
}

func tokenKind(tok string, dec rune) frame.Kind {
	tok = strings.TrimSpace(tok)
	if _, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return frame.KindInt
	}
	if _, ok := parseNumeric(tok, dec); ok {
		return frame.KindDouble
	}
	if _, ok := parseBool(tok); ok {
		return frame.KindBool
	}
	return frame.KindString
}

func isNull(tok, nullToken string) bool {
	t := strings.TrimSpace(tok)
	return t == "" || (nullToken != "" && t == nullToken)
}

func parseBool(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	}
	return false, false
}

// parseNumeric parses a decimal number. A non-'.' decimal separator is
// swapped for '.' first; '.' then counts as a thousands separator.
func parseNumeric(s string, dec rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	if dec != 0 && dec != '.' {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

// columnNames trims header cells, names blanks _cN, and suffixes repeats
// with their position so the schema stays unique.
func columnNames(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		n := strings.TrimSpace(h)
		if n == "" {
			n = fmt.Sprintf("_c%d", i)
		}
		seen[n]++
		out[i] = n
	}
	for i, n := range out {
		if seen[n] > 1 {
			out[i] = fmt.Sprintf("%s%d", n, i)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
