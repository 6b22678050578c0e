package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/config"
	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/KaramelBytes/linkstat/internal/loader"
	"github.com/KaramelBytes/linkstat/internal/logging"
	"github.com/KaramelBytes/linkstat/internal/session"
	"github.com/KaramelBytes/linkstat/internal/source"
	"github.com/KaramelBytes/linkstat/internal/stats"
	"github.com/KaramelBytes/linkstat/internal/utils"
	"github.com/spf13/cobra"
)

// Input flags shared by every command that loads data. Empty values defer
// to the configuration.
var (
	inDelimiter string
	inNullToken string
	inOnError   string
	inSchema    string
	inNoHeader  bool
	inDecimal   string
	outPath     string
	population  bool
)

func addInputFlags(c *cobra.Command) {
	c.Flags().StringVar(&inDelimiter, "delimiter", "", "field delimiter: ',' | ';' | 'tab' (default from config)")
	c.Flags().StringVar(&inNullToken, "null", "", "token read as null in addition to empty cells (default '?')")
	c.Flags().StringVar(&inOnError, "on-error", "", "malformed rows: fail|skip")
	c.Flags().StringVar(&inSchema, "schema", "", "YAML schema file; skips type inference")
	c.Flags().BoolVar(&inNoHeader, "no-header", false, "input has no header row (columns are named _c0.._cN)")
	c.Flags().StringVar(&inDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
}

func addOutputFlag(c *cobra.Command) {
	c.Flags().StringVarP(&outPath, "output", "o", "", "optional path to write output")
}

func addDeviationFlag(c *cobra.Command) {
	c.Flags().BoolVar(&population, "population", false, "use the population standard deviation (divide by n)")
}

func deviation() stats.Deviation {
	if population {
		return stats.Population
	}
	return stats.Sample
}

// currentConfig returns the loaded config, loading it when the command ran
// without OnInitialize (e.g. from tests).
func currentConfig() (*config.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// loaderOptions merges flags over configuration.
func loaderOptions(c *config.Global) (loader.Options, error) {
	opt := loader.DefaultOptions()
	delim := c.Delimiter
	if inDelimiter != "" {
		delim = inDelimiter
	}
	d, err := config.ParseDelimiter(delim)
	if err != nil {
		return opt, fmt.Errorf("unsupported --delimiter: %w", err)
	}
	opt.Delimiter = d
	if inDelimiter == "" && d == ',' {
		// default delimiter: let .tsv names pick tab
		opt.Delimiter = 0
	}
	opt.NullToken = c.NullToken
	if inNullToken != "" {
		opt.NullToken = inNullToken
	}
	policy := c.OnError
	if inOnError != "" {
		policy = inOnError
	}
	if opt.OnError, err = loader.ParseErrorPolicy(policy); err != nil {
		return opt, err
	}
	opt.Header = !inNoHeader
	switch strings.ToLower(strings.TrimSpace(inDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot", "":
		opt.DecimalSeparator = '.'
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", inDecimal)
	}
	schemaFile := c.SchemaFile
	if inSchema != "" {
		schemaFile = inSchema
	}
	if schemaFile != "" {
		f, err := os.Open(schemaFile)
		if err != nil {
			return opt, fmt.Errorf("open schema: %w", err)
		}
		defer f.Close()
		s, err := frame.ReadSchema(f)
		if err != nil {
			return opt, fmt.Errorf("schema %s: %w", schemaFile, err)
		}
		opt.Schema = &s
	}
	return opt, nil
}

// run bundles what a data command needs: the session, a context tagged
// with its id, the resolved sources and the loader options.
type run struct {
	ctx  context.Context
	sess *session.Session
	cfg  *config.Global
	srcs []source.Source
	opt  loader.Options
}

func newRun(cmd *cobra.Command, patterns []string) (*run, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	opt, err := loaderOptions(c)
	if err != nil {
		return nil, err
	}
	sess := session.New()
	ctx := logging.WithSession(cmd.Context(), sess.ID.String())
	srcs, err := source.Resolve(ctx, patterns...)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", strings.Join(patterns, " "), err)
	}
	opt.Logger = sess.Logger()
	return &run{ctx: ctx, sess: sess, cfg: c, srcs: srcs, opt: opt}, nil
}

func (r *run) load() (*frame.Table, loader.Stats, error) {
	logging.FromContext(r.ctx).Debug("loading", "sources", len(r.srcs))
	return loader.Load(r.ctx, r.srcs, r.opt)
}

func (r *run) names() string {
	names := make([]string, len(r.srcs))
	for i, s := range r.srcs {
		names[i] = s.Name()
	}
	if len(names) > 3 {
		return fmt.Sprintf("%s, ... (%d sources)", strings.Join(names[:3], ", "), len(names))
	}
	return strings.Join(names, ", ")
}

// emit writes out to --output when set, otherwise to the command's stdout.
func emit(cmd *cobra.Command, out string) error {
	if outPath != "" {
		if err := utils.SafeWriteFile(outPath, []byte(out)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", outPath)
		return nil
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
