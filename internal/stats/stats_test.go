package stats

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/KaramelBytes/linkstat/internal/linkage"
	"github.com/KaramelBytes/linkstat/internal/loader"
	"github.com/KaramelBytes/linkstat/internal/source"
	"github.com/KaramelBytes/linkstat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *frame.Table {
	t.Helper()
	srcs := []source.Source{source.Bytes{Label: "block_1.csv", Data: []byte(testutil.LinkageCSV)}}
	tbl, _, err := loader.Load(context.Background(), srcs, loader.DefaultOptions())
	require.NoError(t, err)
	return tbl
}

func partition(t *testing.T, tbl *frame.Table, match bool) *frame.Table {
	t.Helper()
	c, err := tbl.Col(linkage.IsMatch)
	require.NoError(t, err)
	return tbl.Filter(frame.Equals(c, frame.BoolValue(match)))
}

func TestDescribeSkipsNonNumericAndBoundsHold(t *testing.T) {
	tbl := loadFixture(t)
	s, err := Describe(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{StatCount, StatMean, StatStddev, StatMin, StatMax}, s.Statistics)
	assert.NotContains(t, s.Fields, linkage.IsMatch)
	assert.Len(t, s.Fields, 11)

	p, err := Pivot(s)
	require.NoError(t, err)
	for _, r := range p.Rows {
		count := p.Get(r.Field, StatCount)
		assert.LessOrEqual(t, count, float64(tbl.Len()), r.Field)
		if count == 0 {
			continue
		}
		mean := p.Get(r.Field, StatMean)
		assert.LessOrEqual(t, p.Get(r.Field, StatMin), mean, r.Field)
		assert.LessOrEqual(t, mean, p.Get(r.Field, StatMax), r.Field)
	}
	assert.Equal(t, 9.0, p.Get(linkage.Postcode, StatCount))
}

func TestDescribeKeepsIntegerBounds(t *testing.T) {
	s, err := Describe(loadFixture(t), linkage.ID1)
	require.NoError(t, err)
	min, _ := s.Value(StatMin, linkage.ID1)
	max, _ := s.Value(StatMax, linkage.ID1)
	count, _ := s.Value(StatCount, linkage.ID1)
	assert.Equal(t, "1", min.Text())
	assert.Equal(t, "23", max.Text())
	assert.Equal(t, "12", count.Text())
}

func TestDescribeRejectsNonNumericColumn(t *testing.T) {
	_, err := Describe(loadFixture(t), linkage.IsMatch)
	assert.Error(t, err)
	_, err = Describe(loadFixture(t), "nope")
	assert.True(t, errors.Is(err, frame.ErrUnknownColumn))
}

func TestDescribeDeviation(t *testing.T) {
	schema := frame.MustSchema(frame.Field{Name: "x", Kind: frame.KindDouble, Nullable: true})
	one, err := frame.New(schema, [][]frame.Value{{frame.DoubleValue(3)}})
	require.NoError(t, err)

	s, err := Describe(one)
	require.NoError(t, err)
	sd, _ := s.Value(StatStddev, "x")
	assert.True(t, sd.IsNull(), "sample stddev of one value is undefined")

	s, err = DescribeWith(one, DescribeOptions{Deviation: Population})
	require.NoError(t, err)
	sd, ok := s.Value(StatStddevPop, "x")
	require.True(t, ok)
	assert.Equal(t, "0.0", sd.Text())

	four, err := frame.New(schema, [][]frame.Value{
		{frame.DoubleValue(2)}, {frame.DoubleValue(4)}, {frame.DoubleValue(4)}, {frame.DoubleValue(6)},
	})
	require.NoError(t, err)
	s, err = Describe(four)
	require.NoError(t, err)
	p, err := Pivot(s)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(8.0/3.0), p.Get("x", StatStddev), 1e-12)
	assert.InDelta(t, 4.0, p.Get("x", StatMean), 1e-12)
}

func TestPivotAllNullPartitionYieldsNaN(t *testing.T) {
	misses := partition(t, loadFixture(t), false)
	s, err := Describe(misses)
	require.NoError(t, err)
	count, _ := s.Value(StatCount, linkage.FnameC2)
	assert.Equal(t, "0", count.Text())

	p, err := Pivot(s)
	require.NoError(t, err)
	r, ok := p.Row(linkage.FnameC2)
	require.True(t, ok)
	assert.Equal(t, 0.0, r.Values[0])
	for _, v := range r.Values[1:] {
		assert.True(t, math.IsNaN(v))
	}
}

func TestPivotShapeAndRoundTrip(t *testing.T) {
	s, err := Describe(loadFixture(t))
	require.NoError(t, err)
	p, err := Pivot(s)
	require.NoError(t, err)

	tbl, err := p.Table()
	require.NoError(t, err)
	assert.Equal(t, len(s.Fields), tbl.Len())
	assert.Equal(t, len(s.Statistics)+1, tbl.Schema().Len())
	assert.Equal(t, FieldColumn, tbl.Schema().Fields[0].Name)

	back, err := Pivot(p.Unpivot())
	require.NoError(t, err)
	require.Equal(t, p.Fields(), back.Fields())
	for i, r := range p.Rows {
		for j, v := range r.Values {
			w := back.Rows[i].Values[j]
			if math.IsNaN(v) {
				assert.True(t, math.IsNaN(w))
				continue
			}
			assert.Equal(t, v, w, "%s/%s", r.Field, p.Statistics[j])
		}
	}
}

func TestPivotCastError(t *testing.T) {
	s := &SummaryTable{
		Statistics: []string{StatCount, StatMean},
		Fields:     []string{"a"},
		Cells:      [][]frame.Value{{frame.StringValue("3")}, {frame.StringValue("abc")}},
	}
	_, err := Pivot(s)
	var pe *PivotCastError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "a", pe.Field)
	assert.Equal(t, StatMean, pe.Statistic)
	assert.Equal(t, "abc", pe.Value)
}

func TestRankFeatures(t *testing.T) {
	tbl := loadFixture(t)
	describe := func(match bool) *PivotedSummaryTable {
		s, err := Describe(partition(t, tbl, match))
		require.NoError(t, err)
		p, err := Pivot(s)
		require.NoError(t, err)
		return p
	}
	ranked, err := RankFeatures(describe(true), describe(false), linkage.Identifiers...)
	require.NoError(t, err)
	require.Len(t, ranked, 9)

	fields := make([]string, len(ranked))
	for i, d := range ranked {
		fields[i] = d.Field
	}
	assert.NotContains(t, fields, linkage.ID1)
	assert.Equal(t, linkage.LnameC1, fields[0])
	assert.ElementsMatch(t, []string{linkage.BirthYear, linkage.Postcode}, fields[1:3])
	assert.Equal(t, linkage.FnameC1, fields[3])
	assert.ElementsMatch(t, []string{linkage.BirthDay, linkage.BirthMon}, fields[4:6])
	assert.Equal(t, linkage.Sex, fields[6])
	assert.Equal(t, []string{linkage.FnameC2, linkage.LnameC2}, fields[7:])
	assert.True(t, math.IsNaN(ranked[8].Delta))
	assert.Equal(t, 12.0, ranked[0].Total)
}

func TestCountBy(t *testing.T) {
	counts, err := CountBy(loadFixture(t), linkage.Postcode)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, 5, counts[0].Count)
	assert.Equal(t, "0", counts[0].Value.Text())
	assert.Equal(t, 4, counts[1].Count)
	assert.Equal(t, 3, counts[2].Count)
	assert.True(t, counts[2].Value.IsNull())

	tbl, err := CountTable(linkage.Postcode, frame.KindInt, counts)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
}
