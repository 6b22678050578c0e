package cmd

import (
	"github.com/KaramelBytes/linkstat/internal/analysis"
	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:   "rank <pattern...>",
	Short: "Rank features by mean(matches) - mean(misses)",
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
		ranked, err := analysis.Rank(tbl, opt.Label, opt.Exclude, opt.Deviation)
		if err != nil {
			return err
		}
		out, err := analysis.RankingTable(ranked)
		if err != nil {
			return err
		}
		return emit(cmd, analysis.MarkdownTable(out, -1))
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
	addInputFlags(rankCmd)
	addOutputFlag(rankCmd)
	addDeviationFlag(rankCmd)
	rankCmd.Flags().StringVar(&anaLabel, "label", "", "boolean ground-truth column (default is_match)")
	rankCmd.Flags().StringSliceVar(&anaExclude, "exclude", nil, "columns left out of the ranking (default id_1,id_2)")
}
