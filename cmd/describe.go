package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/analysis"
	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/KaramelBytes/linkstat/internal/stats"
	"github.com/spf13/cobra"
)

var (
	descWhere   string
	descColumns []string
	descPivot   bool
	descCountBy string
)

var describeCmd = &cobra.Command{
	Use:   "describe <pattern...>",
	Short: "Print count/mean/stddev/min/max for numeric columns",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRun(cmd, args)
		if err != nil {
			return err
		}
		tbl, _, err := r.load()
		if err != nil {
			return err
		}
		if descWhere != "" {
			pred, err := wherePredicate(tbl, descWhere)
			if err != nil {
				return err
			}
			tbl = tbl.Filter(pred)
		}
		if descCountBy != "" {
			counts, err := stats.CountBy(tbl, descCountBy)
			if err != nil {
				return err
			}
			c, _ := tbl.Col(descCountBy)
			out, err := stats.CountTable(descCountBy, c.Kind(), counts)
			if err != nil {
				return err
			}
			return emit(cmd, analysis.MarkdownTable(out, -1))
		}

		sum, err := stats.DescribeWith(tbl, stats.DescribeOptions{Columns: descColumns, Deviation: deviation()})
		if err != nil {
			return err
		}
		var out *frame.Table
		if descPivot {
			p, err := stats.Pivot(sum)
			if err != nil {
				return err
			}
			out, err = p.Table()
			if err != nil {
				return err
			}
		} else if out, err = sum.Table(); err != nil {
			return err
		}
		return emit(cmd, analysis.MarkdownTable(out, -1))
	},
}

// wherePredicate parses column=value, converting value to the column kind.
func wherePredicate(t *frame.Table, expr string) (frame.Predicate, error) {
	name, raw, ok := strings.Cut(expr, "=")
	if !ok {
		return nil, fmt.Errorf("--where must be column=value, got %q", expr)
	}
	c, err := t.Col(strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	var v frame.Value
	switch c.Kind() {
	case frame.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("--where %s: %w", c.Name(), err)
		}
		v = frame.BoolValue(b)
	case frame.KindInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--where %s: %w", c.Name(), err)
		}
		v = frame.IntValue(i)
	case frame.KindDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("--where %s: %w", c.Name(), err)
		}
		v = frame.DoubleValue(f)
	default:
		v = frame.StringValue(raw)
	}
	return frame.Equals(c, v), nil
}

func init() {
	rootCmd.AddCommand(describeCmd)
	addInputFlags(describeCmd)
	addOutputFlag(describeCmd)
	addDeviationFlag(describeCmd)
	describeCmd.Flags().StringVar(&descWhere, "where", "", "keep rows where column=value, e.g. is_match=true")
	describeCmd.Flags().StringSliceVar(&descColumns, "columns", nil, "numeric columns to summarize (default all)")
	describeCmd.Flags().BoolVar(&descPivot, "pivot", false, "one row per field instead of one row per statistic")
	describeCmd.Flags().StringVar(&descCountBy, "count-by", "", "print row counts per value of this column instead")
}
