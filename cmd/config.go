package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/linkstat/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set linkstat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "null_token: %s\n", c.NullToken)
		fmt.Fprintf(out, "delimiter: %q\n", c.Delimiter)
		fmt.Fprintf(out, "on_error: %s\n", c.OnError)
		if c.SchemaFile != "" {
			fmt.Fprintf(out, "schema_file: %s\n", c.SchemaFile)
		}
		fmt.Fprintf(out, "label: %s\n", c.Label)
		if len(c.Features) > 0 {
			fmt.Fprintf(out, "features: %s\n", strings.Join(c.Features, ","))
		}
		fmt.Fprintf(out, "exclude: %s\n", strings.Join(c.Exclude, ","))
		fmt.Fprintf(out, "threshold: %g\n", c.Threshold)
		fmt.Fprintf(out, "preview_rows: %d\n", c.PreviewRows)
		if c.LogLevel != "" {
			fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		}
		if c.LogFormat != "" {
			fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		}
		if c.S3Region != "" {
			fmt.Fprintf(out, "s3_region: %s\n", c.S3Region)
		}
		if c.S3Endpoint != "" {
			fmt.Fprintf(out, "s3_endpoint: %s\n", c.S3Endpoint)
		}
		if c.S3PathStyle {
			fmt.Fprintln(out, "s3_path_style: true")
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
