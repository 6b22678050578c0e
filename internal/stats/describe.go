// Package stats computes summary statistics over frame tables and reshapes
// them between statistic-per-row and field-per-row layouts.
package stats

import (
	"fmt"
	"math"
	"strconv"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/samber/lo"
)

// Deviation selects the standard deviation estimator.
type Deviation int

const (
	// Sample divides by n-1.
	Sample Deviation = iota
	// Population divides by n.
	Population
)

// Statistic row names, in output order.
const (
	StatCount     = "count"
	StatMean      = "mean"
	StatStddev    = "stddev"
	StatStddevPop = "stddev_pop"
	StatMin       = "min"
	StatMax       = "max"
)

// DescribeOptions controls Describe.
type DescribeOptions struct {
	// Columns restricts the summary; empty means every numeric column.
	Columns   []string
	Deviation Deviation
}

// SummaryTable has one row per statistic and one column per field. Cells
// are string values as min/max keep the source type; a null cell means the
// statistic is undefined for that field.
type SummaryTable struct {
	Statistics []string
	Fields     []string
	Cells      [][]frame.Value // [statistic][field]
}

// Describe summarizes the numeric columns of t with the sample deviation.
func Describe(t *frame.Table, cols ...string) (*SummaryTable, error) {
	return DescribeWith(t, DescribeOptions{Columns: cols})
}

// DescribeWith computes count, mean, standard deviation, min and max for
// numeric columns. Boolean and string columns are skipped unless named in
// opt.Columns, which is an error.
func DescribeWith(t *frame.Table, opt DescribeOptions) (*SummaryTable, error) {
	var cols []frame.Col
	if len(opt.Columns) == 0 {
		all, err := t.Cols(t.Schema().Names()...)
		if err != nil {
			return nil, err
		}
		cols = lo.Filter(all, func(c frame.Col, _ int) bool { return c.Kind().Numeric() })
	} else {
		named, err := t.Cols(opt.Columns...)
		if err != nil {
			return nil, err
		}
		for _, c := range named {
			if !c.Kind().Numeric() {
				return nil, fmt.Errorf("describe: column %q is %s, not numeric", c.Name(), c.Kind())
			}
		}
		cols = named
	}

	accs := make([]*colAcc, len(cols))
	for i, c := range cols {
		accs[i] = newColAcc(c.Kind())
	}
	_ = t.Each(func(_ int, r frame.Row) error {
		for i, c := range cols {
			accs[i].add(r.Get(c))
		}
		return nil
	})

	devName := StatStddev
	if opt.Deviation == Population {
		devName = StatStddevPop
	}
	s := &SummaryTable{
		Statistics: []string{StatCount, StatMean, devName, StatMin, StatMax},
		Fields:     lo.Map(cols, func(c frame.Col, _ int) string { return c.Name() }),
	}
	s.Cells = make([][]frame.Value, len(s.Statistics))
	for i := range s.Cells {
		s.Cells[i] = make([]frame.Value, len(cols))
	}
	for j, a := range accs {
		s.Cells[0][j] = frame.StringValue(strconv.Itoa(a.n))
		s.Cells[1][j] = a.meanCell()
		s.Cells[2][j] = a.stddevCell(opt.Deviation)
		s.Cells[3][j] = a.boundCell(a.min, a.imin)
		s.Cells[4][j] = a.boundCell(a.max, a.imax)
	}
	return s, nil
}

// colAcc accumulates one column with Welford's online update.
type colAcc struct {
	kind frame.Kind
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
	imin int64
	imax int64
}

func newColAcc(k frame.Kind) *colAcc {
	return &colAcc{kind: k, min: math.Inf(1), max: math.Inf(-1), imin: math.MaxInt64, imax: math.MinInt64}
}

func (c *colAcc) add(v frame.Value) {
	x, ok := v.Float()
	if !ok {
		return
	}
	c.n++
	if x < c.min {
		c.min = x
	}
	if x > c.max {
		c.max = x
	}
	if c.kind == frame.KindInt {
		if i := v.Int(); i < c.imin {
			c.imin = i
		}
		if i := v.Int(); i > c.imax {
			c.imax = i
		}
	}
	delta := x - c.mean
	c.mean += delta / float64(c.n)
	c.m2 += delta * (x - c.mean)
}

func (c *colAcc) meanCell() frame.Value {
	if c.n == 0 {
		return frame.Null(frame.KindString)
	}
	return frame.StringValue(frame.FormatFloat(c.mean))
}

func (c *colAcc) stddevCell(d Deviation) frame.Value {
	denom := c.n - 1
	if d == Population {
		denom = c.n
	}
	if c.n == 0 || denom <= 0 {
		return frame.Null(frame.KindString)
	}
	return frame.StringValue(frame.FormatFloat(math.Sqrt(c.m2 / float64(denom))))
}

func (c *colAcc) boundCell(f float64, i int64) frame.Value {
	if c.n == 0 {
		return frame.Null(frame.KindString)
	}
	if c.kind == frame.KindInt {
		return frame.StringValue(strconv.FormatInt(i, 10))
	}
	return frame.StringValue(frame.FormatFloat(f))
}

// Value returns the cell for statistic stat and field.
func (s *SummaryTable) Value(stat, field string) (frame.Value, bool) {
	i := lo.IndexOf(s.Statistics, stat)
	j := lo.IndexOf(s.Fields, field)
	if i < 0 || j < 0 {
		return frame.Value{}, false
	}
	return s.Cells[i][j], true
}

// Table lays the summary out as a frame table with a leading "summary"
// column naming the statistic.
func (s *SummaryTable) Table() (*frame.Table, error) {
	fields := []frame.Field{{Name: "summary", Kind: frame.KindString}}
	for _, f := range s.Fields {
		fields = append(fields, frame.Field{Name: f, Kind: frame.KindString, Nullable: true})
	}
	schema, err := frame.NewSchema(fields...)
	if err != nil {
		return nil, err
	}
	rows := make([][]frame.Value, len(s.Statistics))
	for i, stat := range s.Statistics {
		rows[i] = append([]frame.Value{frame.StringValue(stat)}, s.Cells[i]...)
	}
	return frame.New(schema, rows)
}
