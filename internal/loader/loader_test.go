package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/KaramelBytes/linkstat/internal/linkage"
	"github.com/KaramelBytes/linkstat/internal/source"
	"github.com/KaramelBytes/linkstat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureSources() []source.Source {
	return []source.Source{source.Bytes{Label: "block_1.csv", Data: []byte(testutil.LinkageCSV)}}
}

func TestLoadInfersKindsAndNulls(t *testing.T) {
	tbl, st, err := Load(context.Background(), fixtureSources(), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, st.Inferred)
	assert.Equal(t, testutil.FixtureRows, st.Rows)
	assert.Equal(t, testutil.FixtureRows, tbl.Len())

	want := map[string]frame.Kind{
		linkage.ID1:      frame.KindInt,
		linkage.FnameC1:  frame.KindDouble,
		linkage.LnameC1:  frame.KindDouble,
		linkage.Postcode: frame.KindInt,
		linkage.IsMatch:  frame.KindBool,
	}
	for name, kind := range want {
		f, ok := tbl.Schema().Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, kind, f.Kind, name)
		assert.True(t, f.Nullable, name)
	}

	plz, err := tbl.Col(linkage.Postcode)
	require.NoError(t, err)
	vals, err := tbl.Column(plz)
	require.NoError(t, err)
	assert.True(t, vals[3].IsNull(), "? must load as null")
	assert.Equal(t, int64(0), vals[2].Int())
}

func TestLoadWithDeclaredSchemaSkipsInference(t *testing.T) {
	schema := linkage.Schema()
	opt := DefaultOptions()
	opt.Schema = &schema
	tbl, st, err := Load(context.Background(), fixtureSources(), opt)
	require.NoError(t, err)
	assert.False(t, st.Inferred)
	f, _ := tbl.Schema().Lookup(linkage.FnameC2)
	assert.Equal(t, frame.KindDouble, f.Kind)
}

func TestLoadAllNullColumnInfersString(t *testing.T) {
	srcs := []source.Source{source.Bytes{Label: "a.csv", Data: []byte("a,b\n1,?\n2,?\n")}}
	tbl, _, err := Load(context.Background(), srcs, DefaultOptions())
	require.NoError(t, err)
	f, _ := tbl.Schema().Lookup("b")
	assert.Equal(t, frame.KindString, f.Kind)
}

func TestLoadWideningAndNoHeader(t *testing.T) {
	srcs := []source.Source{source.Bytes{Label: "x.tsv", Data: []byte("1\ttrue\tx\n2.5\tFALSE\t3\n")}}
	opt := DefaultOptions()
	opt.Header = false
	tbl, _, err := Load(context.Background(), srcs, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"_c0", "_c1", "_c2"}, tbl.Schema().Names())
	kinds := []frame.Kind{frame.KindDouble, frame.KindBool, frame.KindString}
	for i, k := range kinds {
		assert.Equal(t, k, tbl.Schema().Fields[i].Kind)
	}
	assert.Equal(t, 2, tbl.Len())
}

func TestLoadErrorPolicy(t *testing.T) {
	schema := frame.MustSchema(
		frame.Field{Name: "id", Kind: frame.KindInt},
		frame.Field{Name: "score", Kind: frame.KindDouble, Nullable: true},
	)
	data := "id,score\n1,0.5\nx,0.1\n3\n?,1\n4,?\n"
	srcs := []source.Source{source.Bytes{Label: "bad.csv", Data: []byte(data)}}

	opt := DefaultOptions()
	opt.Schema = &schema
	_, _, err := Load(context.Background(), srcs, opt)
	var mm *SchemaMismatchError
	require.True(t, errors.As(err, &mm), "got %v", err)
	assert.Equal(t, "bad.csv", mm.Source)
	assert.Equal(t, 3, mm.Line)
	assert.Equal(t, "id", mm.Column)
	assert.Equal(t, frame.KindInt, mm.Want)

	opt.OnError = OnErrorSkip
	tbl, st, err := Load(context.Background(), srcs, opt)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 3, st.Skipped)
	assert.Equal(t, 2, st.Rows)
}

func TestLoadErrorPolicyWithInference(t *testing.T) {
	// first data row is short; inference must still follow the header width
	data := "id,sim,is_match\n1,2\n2,0.5,true\n3,0.75,false\n4,1,true\n"
	srcs := []source.Source{source.Bytes{Label: "short.csv", Data: []byte(data)}}

	schema, err := Infer(context.Background(), srcs, DefaultOptions())
	require.NoError(t, err)
	kinds := []frame.Kind{frame.KindInt, frame.KindDouble, frame.KindBool}
	require.Equal(t, 3, schema.Len())
	for i, k := range kinds {
		assert.Equal(t, k, schema.Fields[i].Kind, schema.Fields[i].Name)
	}

	_, _, err = Load(context.Background(), srcs, DefaultOptions())
	var mm *SchemaMismatchError
	require.True(t, errors.As(err, &mm), "got %v", err)
	assert.Equal(t, 2, mm.Line)

	opt := DefaultOptions()
	opt.OnError = OnErrorSkip
	tbl, st, err := Load(context.Background(), srcs, opt)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, 1, st.Skipped)
	label, err := tbl.Col("is_match")
	require.NoError(t, err)
	assert.Equal(t, frame.KindBool, label.Kind())
}

func TestInferWithoutHeaderUsesCommonWidth(t *testing.T) {
	srcs := []source.Source{source.Bytes{Label: "raw.csv", Data: []byte("1\n2,x,true\n3,y,false\n")}}
	opt := DefaultOptions()
	opt.Header = false
	schema, err := Infer(context.Background(), srcs, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"_c0", "_c1", "_c2"}, schema.Names())
	assert.Equal(t, frame.KindBool, schema.Fields[2].Kind)

	opt.OnError = OnErrorSkip
	tbl, st, err := Load(context.Background(), srcs, opt)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 1, st.Skipped)
}

func TestLoadHeaderMismatchAcrossSources(t *testing.T) {
	srcs := []source.Source{
		source.Bytes{Label: "a.csv", Data: []byte("a,b\n1,2\n")},
		source.Bytes{Label: "b.csv", Data: []byte("a,c\n1,2\n")},
	}
	_, _, err := Load(context.Background(), srcs, DefaultOptions())
	var mm *SchemaMismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "b.csv", mm.Source)
}

func TestLoadMultipleSourcesConcatenates(t *testing.T) {
	srcs := []source.Source{
		source.Bytes{Label: "a.csv", Data: []byte("a,b\n1,2\n")},
		source.Bytes{Label: "b.csv", Data: []byte("a,b\n3,4.5\n")},
	}
	tbl, st, err := Load(context.Background(), srcs, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Sources)
	assert.Equal(t, 2, tbl.Len())
	f, _ := tbl.Schema().Lookup("b")
	assert.Equal(t, frame.KindDouble, f.Kind)
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Load(ctx, fixtureSources(), DefaultOptions())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParseErrorPolicy(t *testing.T) {
	p, err := ParseErrorPolicy("SKIP")
	require.NoError(t, err)
	assert.Equal(t, OnErrorSkip, p)
	_, err = ParseErrorPolicy("retry")
	assert.Error(t, err)
}
