package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/analysis"
	"github.com/KaramelBytes/linkstat/internal/loader"
	"github.com/KaramelBytes/linkstat/internal/source"
	"github.com/KaramelBytes/linkstat/internal/utils"
	"github.com/spf13/cobra"
)

var (
	abOutDir string
	abQuiet  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <pattern...>",
	Short: "Analyze each matched file on its own, with progress and one report per file",
	Long: `Run the analyze pipeline separately for every file matching the patterns
(for example each block_N.csv of a linkage export) and print a per-file
evaluation table. With --out-dir each report is also written as
<name>.report.md (or .json), adding a __N suffix instead of overwriting.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRun(cmd, args)
		if err != nil {
			return err
		}
		opt, err := analysisOptions(cmd)
		if err != nil {
			return err
		}
		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return err
			}
		}
		out := cmd.OutOrStdout()
		var summary strings.Builder
		summary.WriteString("| source | rows | tp | fp | fn | tn | precision | recall |\n")
		summary.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- |\n")

		total := len(r.srcs)
		for i, src := range r.srcs {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, path.Base(src.Name()))
			}
			tbl, st, err := loader.Load(r.ctx, []source.Source{src}, r.opt)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			rep, err := analysis.Run(r.ctx, r.sess, tbl, opt)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			rep.Name = src.Name()
			rep.Skipped = st.Skipped
			ct := rep.Crosstab
			summary.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %s | %s |\n",
				path.Base(src.Name()), rep.Rows,
				ct.Count(true, true), ct.Count(true, false), ct.Count(false, true), ct.Count(false, false),
				analysis.FormatNum(ct.Precision()), analysis.FormatNum(ct.Recall())))

			if abOutDir == "" {
				continue
			}
			ext := ".report.md"
			body := []byte(rep.Markdown())
			if strings.EqualFold(anaFormat, "json") {
				ext = ".report.json"
				if body, err = rep.JSON(); err != nil {
					return err
				}
			}
			outFile := reportPath(abOutDir, src.Name(), ext)
			if err := utils.SafeWriteFile(outFile, body); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", filepath.Base(outFile))
			}
		}
		_, err = fmt.Fprint(out, summary.String())
		return err
	},
}

// reportPath names the report after the source file and appends __N when
// a report with that name already exists.
func reportPath(dir, srcName, ext string) string {
	base := path.Base(srcName)
	base = strings.TrimSuffix(base, path.Ext(base))
	outFile := filepath.Join(dir, base+ext)
	if _, err := os.Stat(outFile); err != nil {
		return outFile
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	addInputFlags(analyzeBatchCmd)
	addDeviationFlag(analyzeBatchCmd)
	addScoringFlags(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory to write one report per file")
	analyzeBatchCmd.Flags().BoolVarP(&abQuiet, "quiet", "q", false, "suppress progress output")
	analyzeBatchCmd.Flags().StringSliceVar(&anaExclude, "exclude", nil, "columns left out of the feature ranking (default id_1,id_2)")
	analyzeBatchCmd.Flags().IntVar(&anaPreviewRows, "preview-rows", 10, "number of sample rows per report (0 disables)")
	analyzeBatchCmd.Flags().StringVar(&anaFormat, "format", "md", "report format: md|json")
}
