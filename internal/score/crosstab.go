package score

import (
	"fmt"
	"math"
	"strconv"

	"github.com/KaramelBytes/linkstat/internal/frame"
)

// ContingencyTable counts scored rows by (score >= threshold) x label.
type ContingencyTable struct {
	Threshold float64
	Label     string

	counts [2][2]int // [above][match]
	seen   [2]bool
}

func idx(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Crosstab thresholds scored and tabulates it against the label. A null
// label is an error.
func Crosstab(scored *frame.Table, threshold float64) (*ContingencyTable, error) {
	above, err := Above(scored, threshold)
	if err != nil {
		return nil, err
	}
	lc, err := labelOf(scored)
	if err != nil {
		return nil, err
	}
	ac, err := above.Col(AboveColumn)
	if err != nil {
		return nil, err
	}
	ct := &ContingencyTable{Threshold: threshold, Label: lc.Name()}
	err = above.Each(func(i int, r frame.Row) error {
		m := r.Get(lc)
		if m.IsNull() {
			return fmt.Errorf("crosstab: row %d: null %s", i, lc.Name())
		}
		a := idx(r.Get(ac).Bool())
		ct.counts[a][idx(m.Bool())]++
		ct.seen[a] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ct, nil
}

// Sweep evaluates scored at each threshold in order.
func Sweep(scored *frame.Table, thresholds ...float64) ([]*ContingencyTable, error) {
	out := make([]*ContingencyTable, 0, len(thresholds))
	for _, th := range thresholds {
		ct, err := Crosstab(scored, th)
		if err != nil {
			return nil, fmt.Errorf("threshold %s: %w", frame.FormatFloat(th), err)
		}
		out = append(out, ct)
	}
	return out, nil
}

// Count returns the number of rows in cell (above, match). Absent
// combinations are zero.
func (c *ContingencyTable) Count(above, match bool) int {
	return c.counts[idx(above)][idx(match)]
}

// Total is the number of rows tabulated.
func (c *ContingencyTable) Total() int {
	return c.counts[0][0] + c.counts[0][1] + c.counts[1][0] + c.counts[1][1]
}

// Rows lists the observed is_above values, true first.
func (c *ContingencyTable) Rows() []bool {
	var out []bool
	for _, b := range []bool{true, false} {
		if c.seen[idx(b)] {
			out = append(out, b)
		}
	}
	return out
}

// Precision is TP / (TP + FP), NaN when nothing is above the threshold.
func (c *ContingencyTable) Precision() float64 {
	return ratio(c.Count(true, true), c.Count(true, true)+c.Count(true, false))
}

// Recall is TP / (TP + FN), NaN when there are no matches.
func (c *ContingencyTable) Recall() float64 {
	return ratio(c.Count(true, true), c.Count(true, true)+c.Count(false, true))
}

func ratio(n, d int) float64 {
	if d == 0 {
		return math.NaN()
	}
	return float64(n) / float64(d)
}

// Table renders the crosstab as {above_<label>, true, false}, one row per
// observed is_above value.
func (c *ContingencyTable) Table() (*frame.Table, error) {
	schema, err := frame.NewSchema(
		frame.Field{Name: "above_" + c.Label, Kind: frame.KindString},
		frame.Field{Name: strconv.FormatBool(true), Kind: frame.KindInt},
		frame.Field{Name: strconv.FormatBool(false), Kind: frame.KindInt},
	)
	if err != nil {
		return nil, err
	}
	var rows [][]frame.Value
	for _, a := range c.Rows() {
		rows = append(rows, []frame.Value{
			frame.StringValue(strconv.FormatBool(a)),
			frame.IntValue(int64(c.Count(a, true))),
			frame.IntValue(int64(c.Count(a, false))),
		})
	}
	return frame.New(schema, rows)
}
