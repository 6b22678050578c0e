// Package testutil provides the shared linkage fixture used by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// LinkageCSV is a 12-row sample of the linkage data. With features
// cmp_lname_c1, cmp_plz, cmp_by, cmp_bd, cmp_bm the six matches score 5 or 4
// and the six misses score at most 2. cmp_fname_c2 is null for every miss.
const LinkageCSV = `"id_1","id_2","cmp_fname_c1","cmp_fname_c2","cmp_lname_c1","cmp_lname_c2","cmp_sex","cmp_bd","cmp_bm","cmp_by","cmp_plz","is_match"
1,2,1,?,1,?,1,1,1,1,1,TRUE
3,4,1,?,1,?,1,1,1,1,1,TRUE
5,6,1,?,1,?,1,1,1,1,0,TRUE
7,8,0.833333333333333,?,1,?,1,1,1,1,?,TRUE
9,10,1,1,1,?,1,1,1,1,1,TRUE
11,12,1,?,1,1,0,1,1,1,1,TRUE
13,14,0,?,0,?,1,0,0,0,0,FALSE
15,16,0.285714285714286,?,0.125,?,1,0,1,0,0,FALSE
17,18,0.2,?,0,?,0,1,0,0,0,FALSE
19,20,1,?,0,?,1,1,1,0,0,FALSE
21,22,0,?,0.5,?,1,?,?,?,?,FALSE
23,24,0,?,0,?,0,0,0,1,?,FALSE
`

// FixtureRows is the number of data rows in LinkageCSV.
const FixtureRows = 12

// WriteFile writes content to name inside a fresh temp dir and returns the path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// WriteLinkage writes LinkageCSV as block_1.csv and returns its path.
func WriteLinkage(t testing.TB) string {
	t.Helper()
	return WriteFile(t, "block_1.csv", LinkageCSV)
}
