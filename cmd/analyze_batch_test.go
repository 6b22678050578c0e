package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/linkstat/internal/testutil"
)

func TestAnalyzeBatch_OutDirAndCollisions(t *testing.T) {
	home := isolateHome(t)

	// Two blocks with the same basename in different directories
	for _, d := range []string{"d1", "d2"} {
		dir := filepath.Join(home, d)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "block_1.csv"), []byte(testutil.LinkageCSV), 0o644); err != nil {
			t.Fatalf("write %s: %v", d, err)
		}
	}
	outDir := filepath.Join(home, "reports")

	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "block_1.csv"), "--out-dir", outDir, "--preview-rows", "0")
	if !strings.Contains(out, "[1/2] Processing block_1.csv...") || !strings.Contains(out, "[2/2] Processing block_1.csv...") {
		t.Fatalf("expected progress lines, got:\n%s", out)
	}
	if got := strings.Count(out, "| block_1.csv | 12 | 6 | 0 | 0 | 6 | 1 | 1 |"); got != 2 {
		t.Fatalf("expected two summary rows, got %d:\n%s", got, out)
	}

	b1 := filepath.Join(outDir, "block_1.report.md")
	b2 := filepath.Join(outDir, "block_1__2.report.md")
	if _, err := os.Stat(b1); err != nil {
		t.Fatalf("missing first report: %v", err)
	}
	if _, err := os.Stat(b2); err != nil {
		t.Fatalf("missing second report: %v", err)
	}
	body, err := os.ReadFile(b1)
	if err != nil {
		t.Fatalf("read b1: %v", err)
	}
	if !strings.Contains(string(body), "[SCORING]") {
		t.Fatalf("report missing scoring section:\n%s", body)
	}
	if strings.Contains(string(body), "[HEAD AND SAMPLE ROWS]") {
		t.Fatalf("sample rows should be suppressed")
	}
}

func TestAnalyzeBatch_QuietJSON(t *testing.T) {
	home := isolateHome(t)
	csv := testutil.WriteLinkage(t)
	outDir := filepath.Join(home, "reports")

	out := runCmd(t, "analyze-batch", csv, "--out-dir", outDir, "--format", "json", "-q")
	if strings.Contains(out, "Processing") || strings.Contains(out, "✓ Wrote") {
		t.Fatalf("quiet mode should suppress progress:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "block_1.report.json")); err != nil {
		t.Fatalf("missing json report: %v", err)
	}
}

func TestReportPath(t *testing.T) {
	dir := t.TempDir()
	first := reportPath(dir, "s3://bucket/linkage/block_3.csv", ".report.md")
	if filepath.Base(first) != "block_3.report.md" {
		t.Fatalf("unexpected name: %s", first)
	}
	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := reportPath(dir, "block_3.csv", ".report.md")
	if filepath.Base(second) != "block_3__2.report.md" {
		t.Fatalf("expected collision suffix, got %s", second)
	}
}
