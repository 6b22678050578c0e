package cmd

import (
	"strings"

	"github.com/KaramelBytes/linkstat/internal/loader"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <pattern...>",
	Short: "Infer column types and print them as YAML usable with --schema",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRun(cmd, args)
		if err != nil {
			return err
		}
		s, err := loader.Infer(r.ctx, r.srcs, r.opt)
		if err != nil {
			return err
		}
		var b strings.Builder
		if err := s.WriteYAML(&b); err != nil {
			return err
		}
		return emit(cmd, b.String())
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	addInputFlags(schemaCmd)
	addOutputFlag(schemaCmd)
}
