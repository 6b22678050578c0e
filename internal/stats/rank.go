package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/samber/lo"
)

// FeatureDelta compares one field across the match and miss partitions.
type FeatureDelta struct {
	Field string  `json:"field"`
	Total float64 `json:"total"` // non-null count in both partitions
	Delta float64 `json:"delta"` // mean(matches) - mean(misses)
}

// RankFeatures joins two pivoted summaries on field, skipping exclude, and
// orders by delta then total, both descending. Undefined deltas sort last.
func RankFeatures(matches, misses *PivotedSummaryTable, exclude ...string) ([]FeatureDelta, error) {
	for _, p := range []*PivotedSummaryTable{matches, misses} {
		for _, st := range []string{StatCount, StatMean} {
			if !lo.Contains(p.Statistics, st) {
				return nil, fmt.Errorf("rank features: summary has no %q statistic", st)
			}
		}
	}
	var out []FeatureDelta
	for _, a := range matches.Rows {
		if lo.Contains(exclude, a.Field) {
			continue
		}
		if _, ok := misses.Row(a.Field); !ok {
			continue
		}
		out = append(out, FeatureDelta{
			Field: a.Field,
			Total: matches.Get(a.Field, StatCount) + misses.Get(a.Field, StatCount),
			Delta: matches.Get(a.Field, StatMean) - misses.Get(a.Field, StatMean),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Delta, out[j].Delta
		if math.IsNaN(di) != math.IsNaN(dj) {
			return !math.IsNaN(di)
		}
		if di != dj && !math.IsNaN(di) {
			return di > dj
		}
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Field < out[j].Field
	})
	return out, nil
}

// GroupCount is the number of rows holding one value of a column.
type GroupCount struct {
	Value frame.Value
	Count int
}

// CountBy counts rows per distinct value of column, largest group first.
// Null forms its own group.
func CountBy(t *frame.Table, column string) ([]GroupCount, error) {
	c, err := t.Col(column)
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	var out []GroupCount
	_ = t.Each(func(_ int, r frame.Row) error {
		v := r.Get(c)
		key := "v:" + v.Text()
		if v.IsNull() {
			key = "null"
		}
		if i, ok := idx[key]; ok {
			out[i].Count++
			return nil
		}
		idx[key] = len(out)
		out = append(out, GroupCount{Value: v, Count: 1})
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.Compare(out[i].Value.Text(), out[j].Value.Text()) < 0
	})
	return out, nil
}

// CountTable renders grouped counts as {column, count}.
func CountTable(column string, kind frame.Kind, counts []GroupCount) (*frame.Table, error) {
	schema, err := frame.NewSchema(
		frame.Field{Name: column, Kind: kind, Nullable: true},
		frame.Field{Name: StatCount, Kind: frame.KindInt},
	)
	if err != nil {
		return nil, err
	}
	rows := lo.Map(counts, func(g GroupCount, _ int) []frame.Value {
		return []frame.Value{g.Value, frame.IntValue(int64(g.Count))}
	})
	return frame.New(schema, rows)
}
