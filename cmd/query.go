package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	querySQL   string
	queryFile  string
	queryLimit int
)

var queryCmd = &cobra.Command{
	Use:   "query <pattern...>",
	Short: "Run SQL over the linkage, match_desc and miss_desc views",
	Long: `Load the data, register it as the view "linkage" and the per-field summaries
of matches and misses as "match_desc" and "miss_desc", then run a SQL query.

Example:
  linkstat query 'data/block_*.csv' --sql "
    SELECT a.field, a.count + b.count AS total, a.mean - b.mean AS delta
    FROM match_desc a INNER JOIN miss_desc b ON a.field = b.field
    WHERE a.field NOT IN ('id_1', 'id_2')
    ORDER BY delta DESC, total DESC"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := querySQL
		if queryFile != "" {
			b, err := os.ReadFile(queryFile)
			if err != nil {
				return fmt.Errorf("read sql file: %w", err)
			}
			query = string(b)
		}
		if strings.TrimSpace(query) == "" {
			return errors.New("a query is required (--sql or --sql-file)")
		}
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
		if _, _, err := analysis.RegisterViews(r.sess, tbl, opt.Label, opt.Deviation); err != nil {
			return err
		}
		out, err := r.sess.SQL(r.ctx, query)
		if err != nil {
			return err
		}
		return emit(cmd, analysis.MarkdownTable(out, queryLimit))
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addInputFlags(queryCmd)
	addOutputFlag(queryCmd)
	addDeviationFlag(queryCmd)
	queryCmd.Flags().StringVar(&querySQL, "sql", "", "SQL query text")
	queryCmd.Flags().StringVar(&queryFile, "sql-file", "", "read the SQL query from a file")
	queryCmd.Flags().IntVar(&queryLimit, "limit", -1, "maximum rows to print (-1 = all)")
	queryCmd.Flags().StringVar(&anaLabel, "label", "", "boolean ground-truth column used to split the summaries")
}
