package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "?", c.NullToken)
	assert.Equal(t, ",", c.Delimiter)
	assert.Equal(t, "fail", c.OnError)
	assert.Equal(t, "is_match", c.Label)
	assert.Equal(t, []string{"id_1", "id_2"}, c.Exclude)
	assert.Empty(t, c.Features)
	assert.Equal(t, 4.0, c.Threshold)
	assert.Equal(t, 10, c.PreviewRows)
}

func TestLoadMatchesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	d := Defaults()
	assert.Equal(t, d.NullToken, c.NullToken)
	assert.Equal(t, d.Delimiter, c.Delimiter)
	assert.Equal(t, d.OnError, c.OnError)
	assert.Equal(t, d.Label, c.Label)
	assert.Equal(t, d.Exclude, c.Exclude)
	assert.Equal(t, d.Threshold, c.Threshold)
	assert.Equal(t, d.PreviewRows, c.PreviewRows)
	assert.Equal(t, d.S3PathStyle, c.S3PathStyle)
	assert.Empty(t, d.Features)
	assert.Empty(t, c.Features)

	// callers get their own copy
	d.Exclude[0] = "changed"
	assert.Equal(t, "id_1", Defaults().Exclude[0])
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: 3.5\nnull_token: NA\nfeatures: [cmp_plz, cmp_by]\n"), 0o644))
	t.Setenv("LINKSTAT_NULL_TOKEN", "-")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3.5, c.Threshold)
	assert.Equal(t, "-", c.NullToken, "env beats file")
	assert.Equal(t, []string{"cmp_plz", "cmp_by"}, c.Features)
}

func TestLoadEnvList(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LINKSTAT_FEATURES", "cmp_plz, cmp_bd")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"cmp_plz", "cmp_bd"}, c.Features)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: [\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := &Global{NullToken: "?", Delimiter: ";", Label: "is_match", Threshold: 4.5, PreviewRows: 3}
	require.NoError(t, c.Set("features", "cmp_plz,cmp_by"))
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ";", got.Delimiter)
	assert.Equal(t, 4.5, got.Threshold)
	assert.Equal(t, []string{"cmp_plz", "cmp_by"}, got.Features)
}

func TestSet(t *testing.T) {
	c := &Global{}
	require.NoError(t, c.Set("threshold", "2.5"))
	assert.Equal(t, 2.5, c.Threshold)
	require.NoError(t, c.Set("s3_path_style", "true"))
	assert.True(t, c.S3PathStyle)
	assert.Error(t, c.Set("threshold", "high"))
	assert.Error(t, c.Set("delimiter", "ab"))
	assert.Error(t, c.Set("bogus", "1"))
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": ',', "tab": '\t', ";": ';', "pipe": '|'} {
		got, err := ParseDelimiter(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
