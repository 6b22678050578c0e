package score

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

func scoredFixture(t *testing.T) *frame.Table {
	t.Helper()
	scored, err := Score(loadFixture(t), linkage.IsMatch, linkage.DefaultFeatures...)
	require.NoError(t, err)
	return scored
}

func TestScoreProjectsScoreAndLabel(t *testing.T) {
	scored := scoredFixture(t)
	assert.Equal(t, []string{ScoreColumn, linkage.IsMatch}, scored.Schema().Names())
	require.Equal(t, testutil.FixtureRows, scored.Len())

	want := []float64{5, 5, 4, 4, 5, 5, 0, 1.125, 1, 2, 0.5, 1}
	sc, err := scored.Col(ScoreColumn)
	require.NoError(t, err)
	vals, err := scored.Column(sc)
	require.NoError(t, err)
	for i, v := range vals {
		f, ok := v.Float()
		require.True(t, ok)
		assert.InDelta(t, want[i], f, 1e-9, "row %d", i)
	}
}

func TestScoreLeavesInputUntouched(t *testing.T) {
	tbl := loadFixture(t)
	_, err := Score(tbl, linkage.IsMatch, linkage.DefaultFeatures...)
	require.NoError(t, err)

	for _, name := range []string{linkage.Postcode, linkage.FnameC2} {
		c, err := tbl.Col(name)
		require.NoError(t, err)
		vals, err := tbl.Column(c)
		require.NoError(t, err)
		nulls := 0
		for _, v := range vals {
			if v.IsNull() {
				nulls++
			}
		}
		assert.NotZero(t, nulls, name)
	}
}

func TestScoreErrors(t *testing.T) {
	tbl := loadFixture(t)

	_, err := Score(tbl, linkage.IsMatch)
	assert.True(t, errors.Is(err, ErrNoFeatures))

	_, err = Score(tbl, linkage.IsMatch, linkage.Postcode, linkage.IsMatch)
	var nc *NullCoercionError
	require.True(t, errors.As(err, &nc))
	assert.Equal(t, linkage.IsMatch, nc.Column)
	assert.Equal(t, frame.KindBool, nc.Kind)

	_, err = Score(tbl, linkage.IsMatch, "cmp_missing")
	require.True(t, errors.As(err, &nc))
	assert.True(t, errors.Is(err, frame.ErrUnknownColumn))

	_, err = Score(tbl, linkage.Postcode, linkage.BirthDay)
	assert.Error(t, err)

	_, err = Score(tbl, linkage.IsMatch, linkage.Postcode, linkage.BirthDay, linkage.Postcode)
	assert.True(t, errors.Is(err, ErrDuplicateFeature))
	assert.ErrorContains(t, err, linkage.Postcode)
}

func TestCrosstabFixture(t *testing.T) {
	ct, err := Crosstab(scoredFixture(t), linkage.DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, 6, ct.Count(true, true))
	assert.Equal(t, 0, ct.Count(true, false))
	assert.Equal(t, 0, ct.Count(false, true))
	assert.Equal(t, 6, ct.Count(false, false))
	assert.Equal(t, testutil.FixtureRows, ct.Total())
	assert.Equal(t, 1.0, ct.Precision())
	assert.Equal(t, 1.0, ct.Recall())

	tbl, err := ct.Table()
	require.NoError(t, err)
	assert.Equal(t, []string{"above_is_match", "true", "false"}, tbl.Schema().Names())
	assert.Equal(t, 2, tbl.Len())
}

func TestCrosstabThresholdIsInclusive(t *testing.T) {
	ct, err := Crosstab(scoredFixture(t), 5)
	require.NoError(t, err)
	assert.Equal(t, 4, ct.Count(true, true))
	assert.Equal(t, 2, ct.Count(false, true))
}

func TestCrosstabOnlyObservedRows(t *testing.T) {
	ct, err := Crosstab(scoredFixture(t), 100)
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, ct.Rows())
	assert.True(t, math.IsNaN(ct.Precision()))

	tbl, err := ct.Table()
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, int64(6), tbl.Row(0).At(1).Int())
	assert.Equal(t, int64(6), tbl.Row(0).At(2).Int())
}

func TestSweepMonotonic(t *testing.T) {
	thresholds := []float64{0, 0.5, 1, 2, 3, 4, 4.5, 5, 6}
	cts, err := Sweep(scoredFixture(t), thresholds...)
	require.NoError(t, err)
	require.Len(t, cts, len(thresholds))

	prev := math.MaxInt
	for _, ct := range cts {
		assert.Equal(t, testutil.FixtureRows, ct.Total())
		above := ct.Count(true, true) + ct.Count(true, false)
		assert.LessOrEqual(t, above, prev, "threshold %v", ct.Threshold)
		prev = above
	}
	assert.InDelta(t, 6.0/7.0, cts[3].Precision(), 1e-12)
}

func TestCrosstabNullLabel(t *testing.T) {
	schema := frame.MustSchema(
		frame.Field{Name: "x", Kind: frame.KindInt, Nullable: true},
		frame.Field{Name: "is_match", Kind: frame.KindBool, Nullable: true},
	)
	tbl, err := frame.New(schema, [][]frame.Value{
		{frame.IntValue(1), frame.BoolValue(true)},
		{frame.Null(frame.KindInt), frame.Null(frame.KindBool)},
	})
	require.NoError(t, err)
	scored, err := Score(tbl, "is_match", "x")
	require.NoError(t, err)
	_, err = Crosstab(scored, 1)
	assert.Error(t, err)
}
