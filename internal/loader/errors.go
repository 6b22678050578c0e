package loader

import (
	"fmt"

	"github.com/KaramelBytes/linkstat/internal/frame"
)

// SchemaMismatchError reports a row that does not fit the inferred or
// declared schema.
type SchemaMismatchError struct {
	Source string
	Line   int
	Column string // empty for row-level problems
	Value  string
	Want   frame.Kind
	Reason string
	Err    error
}

func (e *SchemaMismatchError) Error() string {
	loc := fmt.Sprintf("%s:%d", e.Source, e.Line)
	switch {
	case e.Column != "" && e.Reason != "":
		return fmt.Sprintf("schema mismatch at %s: column %q: %s", loc, e.Column, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("schema mismatch at %s: column %q: cannot parse %q as %s", loc, e.Column, e.Value, e.Want)
	default:
		return fmt.Sprintf("schema mismatch at %s: %s", loc, e.Reason)
	}
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }
