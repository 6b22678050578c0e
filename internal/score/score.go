// Package score builds the additive match score and evaluates it against
// the ground-truth label.
package score

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/samber/lo"
)

// Output column names.
const (
	ScoreColumn = "score"
	AboveColumn = "is_above"
)

// ErrNoFeatures is returned when Score is called without features.
var ErrNoFeatures = errors.New("score: no features selected")

// ErrDuplicateFeature is returned when a feature is named more than once.
var ErrDuplicateFeature = errors.New("score: duplicate feature")

// NullCoercionError reports a feature whose nulls cannot be filled with 0,
// either because it is missing or because it is not numeric.
type NullCoercionError struct {
	Column string
	Kind   frame.Kind
	Err    error
}

func (e *NullCoercionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("score: feature %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("score: feature %q is %s, cannot fill nulls with 0", e.Column, e.Kind)
}

func (e *NullCoercionError) Unwrap() error { return e.Err }

// Score fills nulls in features with 0 and sums them with equal weight.
// The result has exactly two columns: score and the label column.
func Score(t *frame.Table, label string, features ...string) (*frame.Table, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	lc, err := t.Col(label)
	if err != nil {
		return nil, fmt.Errorf("score: label: %w", err)
	}
	if lc.Kind() != frame.KindBool {
		return nil, fmt.Errorf("score: label %q is %s, want boolean", label, lc.Kind())
	}
	if dups := lo.FindDuplicates(features); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateFeature, dups)
	}
	cols := make([]frame.Col, 0, len(features))
	for _, name := range features {
		c, err := t.Col(name)
		if err != nil {
			return nil, &NullCoercionError{Column: name, Err: err}
		}
		if !c.Kind().Numeric() {
			return nil, &NullCoercionError{Column: name, Kind: c.Kind()}
		}
		cols = append(cols, c)
	}

	filled, err := t.FillNull(0, cols...)
	if err != nil {
		return nil, err
	}
	withScore, err := filled.WithColumn(frame.Field{Name: ScoreColumn, Kind: frame.KindDouble}, func(r frame.Row) frame.Value {
		sum := 0.0
		for _, c := range cols {
			f, _ := r.Get(c).Float()
			sum += f
		}
		return frame.DoubleValue(sum)
	})
	if err != nil {
		return nil, err
	}
	sc, err := withScore.Col(ScoreColumn)
	if err != nil {
		return nil, err
	}
	return withScore.Select(sc, lc)
}

// Above adds is_above = score >= threshold to a scored table.
func Above(scored *frame.Table, threshold float64) (*frame.Table, error) {
	sc, err := scored.Col(ScoreColumn)
	if err != nil {
		return nil, err
	}
	return scored.WithColumn(frame.Field{Name: AboveColumn, Kind: frame.KindBool}, func(r frame.Row) frame.Value {
		f, ok := r.Get(sc).Float()
		return frame.BoolValue(ok && f >= threshold)
	})
}

// labelOf returns the label column of a table produced by Score.
func labelOf(scored *frame.Table) (frame.Col, error) {
	for _, f := range scored.Schema().Fields {
		if f.Name != ScoreColumn && f.Name != AboveColumn && f.Kind == frame.KindBool {
			return scored.Col(f.Name)
		}
	}
	return frame.Col{}, fmt.Errorf("score: scored table has no boolean label column")
}
