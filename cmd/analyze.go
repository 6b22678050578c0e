package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	anaFeatures    []string
	anaExclude     []string
	anaLabel       string
	anaThreshold   float64
	anaSweep       []float64
	anaPreviewRows int
	anaFormat      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <pattern...>",
	Short: "Run the full analysis: summaries, feature ranking and score crosstab",
	Long: `Load every file matching the patterns (local globs or s3://bucket/prefix*),
summarize the numeric columns overall and per match label, rank the features
by how well they separate matches from misses, then score the selected
features and cross-tabulate the score against the label.`,
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
		tbl, st, err := r.load()
		if err != nil {
			return err
		}
		rep, err := analysis.Run(r.ctx, r.sess, tbl, opt)
		if err != nil {
			return err
		}
		rep.Name = r.names()
		rep.Skipped = st.Skipped
		return writeReport(cmd, rep)
	},
}

// analysisOptions merges analyze flags over configuration.
func analysisOptions(cmd *cobra.Command) (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	if cfg != nil {
		if cfg.Label != "" {
			opt.Label = cfg.Label
		}
		if len(cfg.Features) > 0 {
			opt.Features = cfg.Features
		}
		if cfg.Exclude != nil {
			opt.Exclude = cfg.Exclude
		}
		opt.Threshold = cfg.Threshold
		opt.PreviewRows = cfg.PreviewRows
	}
	f := cmd.Flags()
	if f.Changed("label") {
		opt.Label = anaLabel
	}
	if f.Changed("features") {
		opt.Features = anaFeatures
	}
	if f.Changed("exclude") {
		opt.Exclude = anaExclude
	}
	if f.Changed("threshold") {
		opt.Threshold = anaThreshold
	}
	if f.Changed("preview-rows") {
		opt.PreviewRows = anaPreviewRows
	}
	opt.Sweep = anaSweep
	opt.Deviation = deviation()
	switch strings.ToLower(anaFormat) {
	case "", "md", "markdown", "json":
	default:
		return opt, fmt.Errorf("unsupported --format: %s (use md|json)", anaFormat)
	}
	return opt, nil
}

func writeReport(cmd *cobra.Command, rep *analysis.Report) error {
	if strings.EqualFold(anaFormat, "json") {
		b, err := rep.JSON()
		if err != nil {
			return err
		}
		return emit(cmd, string(b)+"\n")
	}
	return emit(cmd, rep.Markdown())
}

func addScoringFlags(c *cobra.Command) {
	c.Flags().StringSliceVar(&anaFeatures, "features", nil, "comma-separated score features (default from config, else cmp_lname_c1,cmp_plz,cmp_by,cmp_bd,cmp_bm)")
	c.Flags().StringVar(&anaLabel, "label", "", "boolean ground-truth column (default is_match)")
	c.Flags().Float64Var(&anaThreshold, "threshold", 4.0, "inclusive score threshold")
	c.Flags().Float64SliceVar(&anaSweep, "sweep", nil, "extra thresholds to evaluate, e.g. 2,3,4,5")
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addInputFlags(analyzeCmd)
	addOutputFlag(analyzeCmd)
	addDeviationFlag(analyzeCmd)
	addScoringFlags(analyzeCmd)
	analyzeCmd.Flags().StringSliceVar(&anaExclude, "exclude", nil, "columns left out of the feature ranking (default id_1,id_2)")
	analyzeCmd.Flags().IntVar(&anaPreviewRows, "preview-rows", 10, "number of sample rows to include (0 disables)")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "md", "report format: md|json")
}
