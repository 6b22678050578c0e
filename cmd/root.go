package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	cfgpkg "github.com/KaramelBytes/linkstat/internal/config"
	"github.com/KaramelBytes/linkstat/internal/logging"
	"github.com/KaramelBytes/linkstat/internal/source"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "linkstat",
	Short: "linkstat: summary statistics and match scoring for record-linkage data",
	Long: `linkstat loads record-linkage comparison CSVs (local globs or s3:// patterns),
summarizes them per match label, ranks the comparison features and evaluates an
additive match score against the ground-truth label.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.linkstat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")

	source.Register(&lazyS3{})
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so config set can repair the file
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	format := cfg.LogFormat
	if f := rootCmd.PersistentFlags(); f.Changed("log-format") {
		format = logFormat
	}
	logging.Setup(level, format, rootCmd.ErrOrStderr())
}

// lazyS3 builds the S3 client on the first s3:// pattern so commands over
// local files never touch AWS configuration.
type lazyS3 struct {
	once     sync.Once
	resolver source.S3
	err      error
}

func (l *lazyS3) CanResolve(pattern string) bool { return strings.HasPrefix(pattern, "s3://") }

func (l *lazyS3) Resolve(ctx context.Context, pattern string) ([]source.Source, error) {
	l.once.Do(func() {
		var sc source.S3Config
		if cfg != nil {
			sc = source.S3Config{Region: cfg.S3Region, Endpoint: cfg.S3Endpoint, PathStyle: cfg.S3PathStyle}
		}
		client, err := source.NewS3Client(ctx, sc)
		if err != nil {
			l.err = fmt.Errorf("s3 client: %w", err)
			return
		}
		l.resolver = source.S3{Client: client}
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.resolver.Resolve(ctx, pattern)
}
