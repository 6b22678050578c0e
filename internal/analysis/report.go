package analysis

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/KaramelBytes/linkstat/internal/score"
	"github.com/KaramelBytes/linkstat/internal/stats"
	"github.com/KaramelBytes/linkstat/internal/utils"
	"github.com/samber/lo"
)

// maxCell truncates long cells in rendered tables.
const maxCell = 80

// Markdown renders the report as sectioned plain text with pipe tables.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", r.Name))
	}
	if r.SessionID != "" {
		b.WriteString(fmt.Sprintf("Session: %s\n", r.SessionID))
	}
	if r.Skipped > 0 {
		b.WriteString(fmt.Sprintf("Rows: %d (skipped %d malformed)\n", r.Rows, r.Skipped))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", r.Schema.Len()))

	b.WriteString("[SCHEMA]\n")
	for _, f := range r.Schema.Fields {
		null := ""
		if f.Nullable {
			null = ", nullable"
		}
		b.WriteString(fmt.Sprintf("- %s: %s%s\n", safeName(f.Name), f.Kind, null))
	}

	if len(r.LabelCounts) > 0 {
		b.WriteString("\n[LABEL COUNTS]\n")
		for _, g := range r.LabelCounts {
			b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(g.Value.Text()), g.Count))
		}
	}
	if r.Summary != nil {
		b.WriteString("\n[SUMMARY STATISTICS]\n")
		writePivot(&b, r.Summary)
	}
	if len(r.Ranking) > 0 {
		b.WriteString("\n[FEATURE RANKING]\n")
		b.WriteString("| field | total | delta |\n| --- | --- | --- |\n")
		for _, d := range r.Ranking {
			b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", safeName(d.Field), FormatNum(d.Total), FormatNum(d.Delta)))
		}
	}
	if r.Crosstab != nil {
		b.WriteString("\n[SCORING]\n")
		b.WriteString(fmt.Sprintf("Features: %s\n", strings.Join(r.Features, ", ")))
		b.WriteString(fmt.Sprintf("Threshold: %s (score >= threshold)\n", frame.FormatFloat(r.Crosstab.Threshold)))
		if t, err := r.Crosstab.Table(); err == nil {
			writeTable(&b, t, -1)
		}
		b.WriteString(fmt.Sprintf("Precision: %s, recall: %s\n", FormatNum(r.Crosstab.Precision()), FormatNum(r.Crosstab.Recall())))
	}
	if len(r.Sweep) > 0 {
		b.WriteString("\n[THRESHOLD SWEEP]\n")
		writeSweep(&b, r.Sweep)
	}
	if r.Preview != nil && r.Preview.Len() > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		writeTable(&b, r.Preview, -1)
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// MarkdownTable renders at most limit rows of t as a pipe table; a negative
// limit renders every row.
func MarkdownTable(t *frame.Table, limit int) string {
	var b strings.Builder
	writeTable(&b, t, limit)
	return b.String()
}

// SweepMarkdown renders one row per threshold.
func SweepMarkdown(cts []*score.ContingencyTable) string {
	var b strings.Builder
	writeSweep(&b, cts)
	return b.String()
}

// RankingTable lays feature deltas out as {field, total, delta}.
func RankingTable(ds []stats.FeatureDelta) (*frame.Table, error) {
	schema, err := frame.NewSchema(
		frame.Field{Name: stats.FieldColumn, Kind: frame.KindString},
		frame.Field{Name: "total", Kind: frame.KindDouble, Nullable: true},
		frame.Field{Name: "delta", Kind: frame.KindDouble, Nullable: true},
	)
	if err != nil {
		return nil, err
	}
	rows := lo.Map(ds, func(d stats.FeatureDelta, _ int) []frame.Value {
		return []frame.Value{frame.StringValue(d.Field), nullable(d.Total), nullable(d.Delta)}
	})
	return frame.New(schema, rows)
}

func nullable(f float64) frame.Value {
	if math.IsNaN(f) {
		return frame.Null(frame.KindDouble)
	}
	return frame.DoubleValue(f)
}

func writeSweep(b *strings.Builder, cts []*score.ContingencyTable) {
	b.WriteString("| threshold | tp | fp | fn | tn | precision | recall |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for _, ct := range cts {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %s | %s |\n",
			frame.FormatFloat(ct.Threshold),
			ct.Count(true, true), ct.Count(true, false), ct.Count(false, true), ct.Count(false, false),
			FormatNum(ct.Precision()), FormatNum(ct.Recall())))
	}
}

func writePivot(b *strings.Builder, p *stats.PivotedSummaryTable) {
	t, err := p.Table()
	if err != nil {
		b.WriteString(fmt.Sprintf("(unavailable: %v)\n", err))
		return
	}
	writeTable(b, t, -1)
}

func writeTable(b *strings.Builder, t *frame.Table, limit int) {
	names := t.Schema().Names()
	b.WriteString("| ")
	b.WriteString(strings.Join(lo.Map(names, func(n string, _ int) string { return safeName(n) }), " | "))
	b.WriteString(" |\n| ")
	b.WriteString(strings.Join(lo.Map(names, func(string, int) string { return "---" }), " | "))
	b.WriteString(" |\n")
	_ = t.Head(limit).Each(func(_ int, r frame.Row) error {
		cells := lo.Map(r.Values(), func(v frame.Value, _ int) string {
			val := v.Text()
			if utf8.RuneCountInString(val) > maxCell {
				val = string([]rune(val)[:maxCell-3]) + "..."
			}
			return safeVal(val)
		})
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
		return nil
	})
	if limit >= 0 && t.Len() > limit {
		b.WriteString(fmt.Sprintf("(showing %d of %d rows)\n", limit, t.Len()))
	}
}

// FormatNum renders a statistic with four significant digits; NaN, an
// undefined ratio or mean, renders as null.
func FormatNum(f float64) string {
	if math.IsNaN(f) {
		return "null"
	}
	return fmt.Sprintf("%.4g", f)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

type jsonField struct {
	Name     string     `json:"name"`
	Kind     frame.Kind `json:"type"`
	Nullable bool       `json:"nullable"`
}

type jsonStat struct {
	Field  string              `json:"field"`
	Values map[string]*float64 `json:"values"`
}

type jsonDelta struct {
	Field string   `json:"field"`
	Total float64  `json:"total"`
	Delta *float64 `json:"delta"`
}

type jsonCrosstab struct {
	Threshold float64  `json:"threshold"`
	TP        int      `json:"tp"`
	FP        int      `json:"fp"`
	FN        int      `json:"fn"`
	TN        int      `json:"tn"`
	Precision *float64 `json:"precision"`
	Recall    *float64 `json:"recall"`
}

type jsonReport struct {
	Name        string         `json:"name,omitempty"`
	SessionID   string         `json:"session_id"`
	Rows        int            `json:"rows"`
	Skipped     int            `json:"skipped"`
	Schema      []jsonField    `json:"schema"`
	LabelCounts map[string]int `json:"label_counts"`
	Summary     []jsonStat     `json:"summary"`
	Matches     []jsonStat     `json:"matches"`
	Misses      []jsonStat     `json:"misses"`
	Ranking     []jsonDelta    `json:"ranking"`
	Features    []string       `json:"features"`
	Crosstab    *jsonCrosstab  `json:"crosstab,omitempty"`
	Sweep       []jsonCrosstab `json:"sweep,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// JSON renders the report as indented JSON. Undefined statistics are null.
func (r *Report) JSON() ([]byte, error) {
	out := jsonReport{
		Name:      r.Name,
		SessionID: r.SessionID,
		Rows:      r.Rows,
		Skipped:   r.Skipped,
		Schema: lo.Map(r.Schema.Fields, func(f frame.Field, _ int) jsonField {
			return jsonField{Name: f.Name, Kind: f.Kind, Nullable: f.Nullable}
		}),
		LabelCounts: map[string]int{},
		Summary:     jsonStats(r.Summary),
		Matches:     jsonStats(r.Matches),
		Misses:      jsonStats(r.Misses),
		Ranking: lo.Map(r.Ranking, func(d stats.FeatureDelta, _ int) jsonDelta {
			return jsonDelta{Field: d.Field, Total: d.Total, Delta: num(d.Delta)}
		}),
		Features: r.Features,
		Sweep:    lo.Map(r.Sweep, func(ct *score.ContingencyTable, _ int) jsonCrosstab { return *jsonCT(ct) }),
		Warnings: r.Warnings,
	}
	for _, g := range r.LabelCounts {
		out.LabelCounts[g.Value.Text()] = g.Count
	}
	if r.Crosstab != nil {
		out.Crosstab = jsonCT(r.Crosstab)
	}
	return utils.PrettyJSON(out)
}

func jsonStats(p *stats.PivotedSummaryTable) []jsonStat {
	if p == nil {
		return nil
	}
	return lo.Map(p.Rows, func(row stats.PivotedRow, _ int) jsonStat {
		vals := map[string]*float64{}
		for i, st := range p.Statistics {
			vals[st] = num(row.Values[i])
		}
		return jsonStat{Field: row.Field, Values: vals}
	})
}

func jsonCT(ct *score.ContingencyTable) *jsonCrosstab {
	return &jsonCrosstab{
		Threshold: ct.Threshold,
		TP:        ct.Count(true, true),
		FP:        ct.Count(true, false),
		FN:        ct.Count(false, true),
		TN:        ct.Count(false, false),
		Precision: num(ct.Precision()),
		Recall:    num(ct.Recall()),
	}
}

func num(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
