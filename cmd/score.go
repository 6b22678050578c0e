package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/analysis"
	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/KaramelBytes/linkstat/internal/score"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score <pattern...>",
	Short: "Score records and cross-tabulate score >= threshold against the label",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRun(cmd, args)
		if err != nil {
			return err
		}
		opt, err := analysisOptions(cmd)
		if err != nil {
			return err
		}
		tbl, _, err := r.load()
		if err != nil {
			return err
		}
		scored, err := score.Score(tbl, opt.Label, opt.Features...)
		if err != nil {
			return err
		}
		var b strings.Builder
		if len(opt.Sweep) > 0 {
			ths := lo.Uniq(opt.Sweep)
			sort.Float64s(ths)
			cts, err := score.Sweep(scored, ths...)
			if err != nil {
				return err
			}
			b.WriteString(analysis.SweepMarkdown(cts))
			return emit(cmd, b.String())
		}
		ct, err := score.Crosstab(scored, opt.Threshold)
		if err != nil {
			return err
		}
		t, err := ct.Table()
		if err != nil {
			return err
		}
		b.WriteString(fmt.Sprintf("Features: %s\n", strings.Join(opt.Features, ", ")))
		b.WriteString(fmt.Sprintf("Threshold: %s\n", frame.FormatFloat(opt.Threshold)))
		b.WriteString(analysis.MarkdownTable(t, -1))
		b.WriteString(fmt.Sprintf("Precision: %s, recall: %s\n", analysis.FormatNum(ct.Precision()), analysis.FormatNum(ct.Recall())))
		r.sess.Logger().Debug("scored", "rows", ct.Total(), "threshold", opt.Threshold)
		return emit(cmd, b.String())
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	addInputFlags(scoreCmd)
	addOutputFlag(scoreCmd)
	addScoringFlags(scoreCmd)
}
