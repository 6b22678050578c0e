// Package analysis runs the full linkage analysis over a loaded table:
// summaries, label partitions, feature ranking and score evaluation.
package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/KaramelBytes/linkstat/internal/linkage"
	"github.com/KaramelBytes/linkstat/internal/score"
	"github.com/KaramelBytes/linkstat/internal/session"
	"github.com/KaramelBytes/linkstat/internal/stats"
	"github.com/samber/lo"
)

// View names registered on the session by Run.
const (
	ViewLinkage   = "linkage"
	ViewMatchDesc = "match_desc"
	ViewMissDesc  = "miss_desc"
)

// Options controls the analysis.
type Options struct {
	// Label is the boolean ground-truth column.
	Label string
	// Features feed the score; empty means linkage.DefaultFeatures.
	Features []string
	// Exclude is left out of the feature ranking.
	Exclude []string
	// Threshold is the inclusive cut for is_above.
	Threshold float64
	// Sweep lists extra thresholds to evaluate.
	Sweep []float64
	// PreviewRows limits the sample rows in the report.
	PreviewRows int
	Deviation   stats.Deviation
}

// DefaultOptions returns the options used by the notebook analysis.
func DefaultOptions() Options {
	return Options{
		Label:       linkage.IsMatch,
		Features:    append([]string(nil), linkage.DefaultFeatures...),
		Exclude:     append([]string(nil), linkage.Identifiers...),
		Threshold:   linkage.DefaultThreshold,
		PreviewRows: 10,
	}
}

// Report is the result of Run.
type Report struct {
	Name      string
	SessionID string
	Rows      int
	Skipped   int
	Schema    frame.Schema
	Preview   *frame.Table

	LabelCounts []stats.GroupCount
	Summary     *stats.PivotedSummaryTable
	Matches     *stats.PivotedSummaryTable
	Misses      *stats.PivotedSummaryTable
	Ranking     []stats.FeatureDelta

	Features []string
	Crosstab *score.ContingencyTable
	Sweep    []*score.ContingencyTable
	Warnings []string
}

// Run analyzes t and registers the linkage table and both partition
// summaries as views on sess so they can be queried afterwards.
func Run(ctx context.Context, sess *session.Session, t *frame.Table, opt Options) (*Report, error) {
	if opt.Label == "" {
		opt.Label = linkage.IsMatch
	}
	features := opt.Features
	if len(features) == 0 {
		features = linkage.DefaultFeatures
	}
	log := sess.Logger()
	rep := &Report{
		SessionID: sess.ID.String(),
		Rows:      t.Len(),
		Schema:    t.Schema(),
		Preview:   t.Head(opt.PreviewRows),
		Features:  append([]string(nil), features...),
	}
	if opt.PreviewRows <= 0 {
		rep.Preview = nil
	}
	var err error
	if rep.LabelCounts, err = stats.CountBy(t, opt.Label); err != nil {
		return nil, err
	}
	if rep.Summary, err = describe(t, opt.Deviation); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	if rep.Matches, rep.Misses, err = RegisterViews(sess, t, opt.Label, opt.Deviation); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exclude := append(append([]string(nil), opt.Exclude...), opt.Label)
	if rep.Ranking, err = stats.RankFeatures(rep.Matches, rep.Misses, exclude...); err != nil {
		return nil, err
	}
	rep.Warnings = append(rep.Warnings, emptyPartitionNotes(rep, features)...)

	scored, err := score.Score(t, opt.Label, features...)
	if err != nil {
		return nil, err
	}
	if rep.Crosstab, err = score.Crosstab(scored, opt.Threshold); err != nil {
		return nil, err
	}
	if len(opt.Sweep) > 0 {
		if rep.Sweep, err = score.Sweep(scored, opt.Sweep...); err != nil {
			return nil, err
		}
	}
	log.Info("analysis complete",
		"rows", rep.Rows,
		"features", len(features),
		"threshold", opt.Threshold,
		"precision", rep.Crosstab.Precision(),
		"recall", rep.Crosstab.Recall(),
	)
	return rep, nil
}

// Partition splits t on the boolean label column. Rows with a null label
// fall in neither partition.
func Partition(t *frame.Table, label string) (matches, misses *frame.Table, err error) {
	c, err := t.Col(label)
	if err != nil {
		return nil, nil, fmt.Errorf("label: %w", err)
	}
	if c.Kind() != frame.KindBool {
		return nil, nil, fmt.Errorf("label %q is %s, want boolean", label, c.Kind())
	}
	return t.Filter(frame.Equals(c, frame.BoolValue(true))), t.Filter(frame.Equals(c, frame.BoolValue(false))), nil
}

// RegisterViews binds t as the linkage view and the pivoted summaries of
// its two label partitions as match_desc and miss_desc.
func RegisterViews(sess *session.Session, t *frame.Table, label string, dev stats.Deviation) (matches, misses *stats.PivotedSummaryTable, err error) {
	if err := sess.Register(ViewLinkage, t); err != nil {
		return nil, nil, err
	}
	m, x, err := Partition(t, label)
	if err != nil {
		return nil, nil, err
	}
	if matches, err = describe(m, dev); err != nil {
		return nil, nil, fmt.Errorf("match summary: %w", err)
	}
	if misses, err = describe(x, dev); err != nil {
		return nil, nil, fmt.Errorf("miss summary: %w", err)
	}
	for _, v := range []struct {
		name string
		p    *stats.PivotedSummaryTable
	}{{ViewMatchDesc, matches}, {ViewMissDesc, misses}} {
		view, err := v.p.Table()
		if err != nil {
			return nil, nil, err
		}
		if err := sess.Register(v.name, view); err != nil {
			return nil, nil, err
		}
	}
	return matches, misses, nil
}

// Rank describes both label partitions of t and ranks the features that
// separate them, leaving out exclude and the label itself.
func Rank(t *frame.Table, label string, exclude []string, dev stats.Deviation) ([]stats.FeatureDelta, error) {
	m, x, err := Partition(t, label)
	if err != nil {
		return nil, err
	}
	matches, err := describe(m, dev)
	if err != nil {
		return nil, err
	}
	misses, err := describe(x, dev)
	if err != nil {
		return nil, err
	}
	return stats.RankFeatures(matches, misses, append(append([]string(nil), exclude...), label)...)
}

func describe(t *frame.Table, dev stats.Deviation) (*stats.PivotedSummaryTable, error) {
	s, err := stats.DescribeWith(t, stats.DescribeOptions{Deviation: dev})
	if err != nil {
		return nil, err
	}
	return stats.Pivot(s)
}

// emptyPartitionNotes flags selected features with no values in a
// partition; their nulls all score 0 there.
func emptyPartitionNotes(rep *Report, features []string) []string {
	var notes []string
	for _, f := range lo.Uniq(features) {
		if c := rep.Matches.Get(f, stats.StatCount); c == 0 || math.IsNaN(c) {
			notes = append(notes, fmt.Sprintf("feature %s has no values among matches", f))
		}
		if c := rep.Misses.Get(f, stats.StatCount); c == 0 || math.IsNaN(c) {
			notes = append(notes, fmt.Sprintf("feature %s has no values among misses", f))
		}
	}
	return notes
}
