package session

import (
	"context"
	"errors"
	"testing"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/KaramelBytes/linkstat/internal/linkage"
	"github.com/KaramelBytes/linkstat/internal/loader"
	"github.com/KaramelBytes/linkstat/internal/source"
	"github.com/KaramelBytes/linkstat/internal/stats"
	"github.com/KaramelBytes/linkstat/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureSession(t *testing.T) *Session {
	t.Helper()
	srcs := []source.Source{source.Bytes{Label: "block_1.csv", Data: []byte(testutil.LinkageCSV)}}
	tbl, _, err := loader.Load(context.Background(), srcs, loader.DefaultOptions())
	require.NoError(t, err)

	s := New()
	require.NoError(t, s.Register("linkage", tbl))
	label, err := tbl.Col(linkage.IsMatch)
	require.NoError(t, err)
	for name, match := range map[string]bool{"match_desc": true, "miss_desc": false} {
		sum, err := stats.Describe(tbl.Filter(frame.Equals(label, frame.BoolValue(match))))
		require.NoError(t, err)
		p, err := stats.Pivot(sum)
		require.NoError(t, err)
		view, err := p.Table()
		require.NoError(t, err)
		require.NoError(t, s.Register(name, view))
	}
	return s
}

func TestRegisterAndView(t *testing.T) {
	id := uuid.New()
	s := New(WithID(id))
	assert.Equal(t, id, s.ID)

	_, err := s.View("linkage")
	assert.True(t, errors.Is(err, ErrUnknownView))

	empty := frame.Empty(linkage.Schema())
	assert.Error(t, s.Register("bad name", empty))
	assert.Error(t, s.Register("x", nil))
	require.NoError(t, s.Register("b", empty))
	require.NoError(t, s.Register("a", empty))
	assert.Equal(t, []string{"a", "b"}, s.Views())
}

func TestSQLGroupByKeepsBooleans(t *testing.T) {
	s := fixtureSession(t)
	out, err := s.SQL(context.Background(),
		`SELECT is_match, COUNT(*) AS n FROM linkage GROUP BY is_match ORDER BY is_match`)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"is_match", "n"}, out.Schema().Names())
	assert.Equal(t, frame.KindInt, out.Schema().Fields[1].Kind)
	assert.Equal(t, int64(6), out.Row(0).At(1).Int())
	assert.Equal(t, "false", out.Row(0).At(0).Text())
}

func TestSQLJoinsSummaryViews(t *testing.T) {
	s := fixtureSession(t)
	out, err := s.SQL(context.Background(), `
		SELECT a.field, a."count" + b."count" AS total, a.mean - b.mean AS delta
		FROM match_desc a INNER JOIN miss_desc b ON a.field = b.field
		WHERE a.field NOT IN ('id_1', 'id_2')
		ORDER BY delta DESC, total DESC`)
	require.NoError(t, err)
	require.Equal(t, 9, out.Len())
	assert.Equal(t, linkage.LnameC1, out.Row(0).At(0).Text())
	assert.Equal(t, frame.KindDouble, out.Schema().Fields[2].Kind)
	assert.True(t, out.Row(8).At(2).IsNull(), "undefined deltas sort last")
}

func TestSQLNullsAndDuplicateNames(t *testing.T) {
	s := fixtureSession(t)
	out, err := s.SQL(context.Background(),
		`SELECT cmp_plz, cmp_plz FROM linkage WHERE id_1 = 7`)
	require.NoError(t, err)
	assert.Equal(t, []string{"cmp_plz", "cmp_plz_1"}, out.Schema().Names())
	require.Equal(t, 1, out.Len())
	assert.True(t, out.Row(0).At(0).IsNull())
}

func TestUniqueNamesAvoidsTakenSuffixes(t *testing.T) {
	assert.Equal(t, []string{"a", "a_2", "a_1"}, uniqueNames([]string{"a", "a", "a_1"}))
	assert.Equal(t, []string{"a", "a_1", "a_2", "_c3"}, uniqueNames([]string{"a", "a", "a", ""}))

	s := fixtureSession(t)
	out, err := s.SQL(context.Background(),
		`SELECT cmp_plz, cmp_plz, cmp_bd AS cmp_plz_1 FROM linkage WHERE id_1 = 1`)
	require.NoError(t, err)
	assert.Equal(t, []string{"cmp_plz", "cmp_plz_2", "cmp_plz_1"}, out.Schema().Names())
}

func TestSQLErrors(t *testing.T) {
	s := fixtureSession(t)
	_, err := s.SQL(context.Background(), `SELECT * FROM nope`)
	assert.Error(t, err)
}
