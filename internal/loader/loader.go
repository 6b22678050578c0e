// Package loader reads delimited records into typed frame tables, either
// inferring column types with a first pass over the data or trusting a
// caller-supplied schema.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/KaramelBytes/linkstat/internal/source"
)

// ErrorPolicy selects what happens to rows that do not fit the schema.
type ErrorPolicy string

const (
	// OnErrorFail aborts the load at the first bad row.
	OnErrorFail ErrorPolicy = "fail"
	// OnErrorSkip drops bad rows and counts them in Stats.Skipped.
	OnErrorSkip ErrorPolicy = "skip"
)

// ParseErrorPolicy accepts "fail" or "skip".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail", "failfast":
		return OnErrorFail, nil
	case "skip", "dropmalformed", "drop":
		return OnErrorSkip, nil
	default:
		return "", fmt.Errorf("unsupported error policy %q (use fail|skip)", s)
	}
}

// contextCheckInterval is how often (in rows) cancellation is polled.
const contextCheckInterval = 1024

// Options controls parsing.
type Options struct {
	// Delimiter for fields. If 0, '\t' for .tsv names and ',' otherwise.
	Delimiter rune
	// Header treats the first record of every source as column names.
	Header bool
	// NullToken is read as null in addition to the empty string.
	NullToken string
	// Schema skips inference when set. Values are parsed as declared.
	Schema *frame.Schema
	// OnError decides between aborting and dropping bad rows.
	OnError ErrorPolicy
	// DecimalSeparator for doubles; 0 means '.'.
	DecimalSeparator rune
	Logger           *slog.Logger
}

// DefaultOptions returns header-first, '?'-as-null, fail-fast options.
func DefaultOptions() Options {
	return Options{Header: true, NullToken: "?", OnError: OnErrorFail}
}

// Stats describes a finished load.
type Stats struct {
	Sources  int
	Rows     int
	Skipped  int
	Inferred bool
}

// Load reads every source into one table. Without opt.Schema the sources
// are read twice: once to infer column kinds and once to parse values.
func Load(ctx context.Context, srcs []source.Source, opt Options) (*frame.Table, Stats, error) {
	st := Stats{Sources: len(srcs)}
	if len(srcs) == 0 {
		return nil, st, source.ErrNoMatch
	}
	if opt.OnError == "" {
		opt.OnError = OnErrorFail
	}
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}

	var schema frame.Schema
	if opt.Schema != nil {
		schema = *opt.Schema
	} else {
		inferred, err := Infer(ctx, srcs, opt)
		if err != nil {
			return nil, st, err
		}
		schema = inferred
		st.Inferred = true
	}

	var rows [][]frame.Value
	for _, src := range srcs {
		bad := func(rerr *SchemaMismatchError) error {
			if opt.OnError == OnErrorSkip {
				st.Skipped++
				log.Debug("skipping malformed row", "source", src.Name(), "line", rerr.Line, "error", rerr)
				return nil
			}
			return rerr
		}
		header, err := scan(ctx, src, opt, func(line int, rec []string) error {
			row, rerr := parseRow(src.Name(), line, rec, schema, opt)
			if rerr != nil {
				return bad(rerr)
			}
			rows = append(rows, row)
			return nil
		}, bad)
		if err != nil {
			return nil, st, err
		}
		if opt.Header && header != nil && len(header) != schema.Len() {
			return nil, st, &SchemaMismatchError{
				Source: src.Name(), Line: 1,
				Reason: fmt.Sprintf("header has %d columns, schema has %d", len(header), schema.Len()),
			}
		}
	}
	st.Rows = len(rows)
	t, err := frame.New(schema, rows)
	if err != nil {
		return nil, st, fmt.Errorf("build table: %w", err)
	}
	log.Info("loaded table", "sources", st.Sources, "rows", st.Rows, "skipped", st.Skipped, "inferred", st.Inferred)
	return t, st, nil
}

// Infer scans every source and returns the narrowest kind per column that
// fits all non-null tokens. Every inferred field is nullable. The width comes
// from the header, or without one from the most common record length; rows
// of any other width are ignored here and reported by Load.
func Infer(ctx context.Context, srcs []source.Source, opt Options) (frame.Schema, error) {
	var names []string
	byWidth := map[int]*widthState{}
	for _, src := range srcs {
		header, err := scan(ctx, src, opt, func(_ int, rec []string) error {
			ws := byWidth[len(rec)]
			if ws == nil {
				ws = &widthState{kinds: make([]kindState, len(rec))}
				byWidth[len(rec)] = ws
			}
			ws.rows++
			for i, tok := range rec {
				if isNull(tok, opt.NullToken) {
					continue
				}
				ws.kinds[i].observe(tokenKind(tok, opt.DecimalSeparator))
			}
			return nil
		}, ignoreMalformed)
		if err != nil {
			return frame.Schema{}, err
		}
		if !opt.Header || header == nil {
			continue
		}
		clean := columnNames(header)
		if names == nil {
			names = clean
			continue
		}
		if !equalStrings(names, clean) {
			return frame.Schema{}, &SchemaMismatchError{
				Source: src.Name(), Line: 1,
				Reason: fmt.Sprintf("header %v differs from %v", clean, names),
			}
		}
	}
	width := len(names)
	if names == nil {
		width = dominantWidth(byWidth)
	}
	if width == 0 {
		return frame.Schema{}, errors.New("infer schema: no columns found")
	}
	if names == nil {
		names = columnNames(make([]string, width))
	}
	var kinds []kindState
	if ws := byWidth[width]; ws != nil {
		kinds = ws.kinds
	}
	fields := make([]frame.Field, len(names))
	for i, n := range names {
		k := frame.KindString
		if i < len(kinds) && kinds[i].seen {
			k = kinds[i].kind
		}
		fields[i] = frame.Field{Name: n, Kind: k, Nullable: true}
	}
	return frame.NewSchema(fields...)
}

// widthState accumulates kinds over the records of one field count.
type widthState struct {
	rows  int
	kinds []kindState
}

// dominantWidth returns the field count shared by the most records; ties go
// to the wider layout.
func dominantWidth(byWidth map[int]*widthState) int {
	best, bestRows := 0, 0
	for w, ws := range byWidth {
		if w == 0 {
			continue
		}
		if ws.rows > bestRows || (ws.rows == bestRows && w > best) {
			best, bestRows = w, ws.rows
		}
	}
	return best
}

func ignoreMalformed(*SchemaMismatchError) error { return nil }

// scan opens src and calls fn for each data record with its 1-based line
// number; records the csv reader rejects go to bad. It returns the header
// record when opt.Header is set.
func scan(ctx context.Context, src source.Source, opt Options, fn func(line int, rec []string) error, bad func(*SchemaMismatchError) error) ([]string, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = opt.Delimiter
	if r.Comma == 0 {
		r.Comma = sniffDelimiter(src.Name())
	}

	var header []string
	if opt.Header {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("read header of %s: %w", src.Name(), err)
		}
		header = append([]string(nil), rec...)
	}
	for n := 0; ; n++ {
		if n%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return header, err
			}
		}
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return header, nil
			}
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				if berr := bad(&SchemaMismatchError{Source: src.Name(), Line: pe.Line, Reason: "malformed record", Err: err}); berr != nil {
					return header, berr
				}
				continue
			}
			return header, fmt.Errorf("read %s: %w", src.Name(), err)
		}
		line, _ := r.FieldPos(0)
		if err := fn(line, rec); err != nil {
			return header, err
		}
	}
}

func parseRow(src string, line int, rec []string, schema frame.Schema, opt Options) ([]frame.Value, *SchemaMismatchError) {
	if len(rec) != schema.Len() {
		return nil, &SchemaMismatchError{
			Source: src, Line: line,
			Reason: fmt.Sprintf("%d fields, schema has %d", len(rec), schema.Len()),
		}
	}
	row := make([]frame.Value, len(rec))
	for i, tok := range rec {
		f := schema.Fields[i]
		v, err := parseValue(tok, f, opt)
		if err != nil {
			mm := &SchemaMismatchError{Source: src, Line: line, Column: f.Name, Value: tok, Want: f.Kind, Err: err}
			if errors.Is(err, errNullNotAllowed) {
				mm.Reason = "null in non-nullable column"
			}
			return nil, mm
		}
		row[i] = v
	}
	return row, nil
}

var errNullNotAllowed = errors.New("null not allowed")

func parseValue(tok string, f frame.Field, opt Options) (frame.Value, error) {
	if isNull(tok, opt.NullToken) {
		if !f.Nullable {
			return frame.Value{}, errNullNotAllowed
		}
		return frame.Null(f.Kind), nil
	}
	tok = strings.TrimSpace(tok)
	switch f.Kind {
	case frame.KindInt:
		i, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return frame.Value{}, err
		}
		return frame.IntValue(i), nil
	case frame.KindDouble:
		d, ok := parseNumeric(tok, opt.DecimalSeparator)
		if !ok {
			return frame.Value{}, fmt.Errorf("not a number: %q", tok)
		}
		return frame.DoubleValue(d), nil
	case frame.KindBool:
		b, ok := parseBool(tok)
		if !ok {
			return frame.Value{}, fmt.Errorf("not a boolean: %q", tok)
		}
		return frame.BoolValue(b), nil
	default:
		return frame.StringValue(tok), nil
	}
}
