package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/samber/lo"
)

// FieldColumn heads the first column of a pivoted summary.
const FieldColumn = "field"

// PivotCastError reports a summary cell that is not a number.
type PivotCastError struct {
	Field     string
	Statistic string
	Value     string
	Err       error
}

func (e *PivotCastError) Error() string {
	return fmt.Sprintf("pivot: %s of %q is %q, not a number", e.Statistic, e.Field, e.Value)
}

func (e *PivotCastError) Unwrap() error { return e.Err }

// PivotedRow is one field's statistics in the order of
// PivotedSummaryTable.Statistics. Undefined statistics are NaN.
type PivotedRow struct {
	Field  string
	Values []float64
}

// PivotedSummaryTable has one row per field and one numeric column per
// statistic.
type PivotedSummaryTable struct {
	Statistics []string
	Rows       []PivotedRow
}

// Pivot transposes s so fields become rows, then casts every cell to float64.
// Null cells become NaN; any other non-numeric cell fails the whole pivot.
func Pivot(s *SummaryTable) (*PivotedSummaryTable, error) {
	p := &PivotedSummaryTable{
		Statistics: append([]string(nil), s.Statistics...),
		Rows:       make([]PivotedRow, len(s.Fields)),
	}
	for j, field := range s.Fields {
		row := PivotedRow{Field: field, Values: make([]float64, len(s.Statistics))}
		for i, stat := range s.Statistics {
			cell := s.Cells[i][j]
			if cell.IsNull() {
				row.Values[i] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(cell.Text()), 64)
			if err != nil {
				return nil, &PivotCastError{Field: field, Statistic: stat, Value: cell.Text(), Err: err}
			}
			row.Values[i] = f
		}
		p.Rows[j] = row
	}
	return p, nil
}

// Row returns the statistics of field.
func (p *PivotedSummaryTable) Row(field string) (PivotedRow, bool) {
	return lo.Find(p.Rows, func(r PivotedRow) bool { return r.Field == field })
}

// Get returns statistic stat of field, NaN when either is missing.
func (p *PivotedSummaryTable) Get(field, stat string) float64 {
	r, ok := p.Row(field)
	i := lo.IndexOf(p.Statistics, stat)
	if !ok || i < 0 {
		return math.NaN()
	}
	return r.Values[i]
}

// Fields lists the row labels in order.
func (p *PivotedSummaryTable) Fields() []string {
	return lo.Map(p.Rows, func(r PivotedRow, _ int) string { return r.Field })
}

// Unpivot restores the statistic-per-row layout. NaN cells become null.
func (p *PivotedSummaryTable) Unpivot() *SummaryTable {
	s := &SummaryTable{
		Statistics: append([]string(nil), p.Statistics...),
		Fields:     p.Fields(),
		Cells:      make([][]frame.Value, len(p.Statistics)),
	}
	for i := range p.Statistics {
		s.Cells[i] = make([]frame.Value, len(p.Rows))
		for j, r := range p.Rows {
			if math.IsNaN(r.Values[i]) {
				s.Cells[i][j] = frame.Null(frame.KindString)
				continue
			}
			s.Cells[i][j] = frame.StringValue(frame.FormatFloat(r.Values[i]))
		}
	}
	return s
}

// Table lays the pivot out as {field, <statistics>...} with NaN as null.
func (p *PivotedSummaryTable) Table() (*frame.Table, error) {
	fields := []frame.Field{{Name: FieldColumn, Kind: frame.KindString}}
	for _, st := range p.Statistics {
		fields = append(fields, frame.Field{Name: st, Kind: frame.KindDouble, Nullable: true})
	}
	schema, err := frame.NewSchema(fields...)
	if err != nil {
		return nil, err
	}
	rows := lo.Map(p.Rows, func(r PivotedRow, _ int) []frame.Value {
		out := []frame.Value{frame.StringValue(r.Field)}
		for _, v := range r.Values {
			if math.IsNaN(v) {
				out = append(out, frame.Null(frame.KindDouble))
			} else {
				out = append(out, frame.DoubleValue(v))
			}
		}
		return out
	})
	return frame.New(schema, rows)
}
