package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/samber/lo"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQL runs query against every registered view. Each call copies the views
// into a private in-memory SQLite database that is closed before returning.
func (s *Session) SQL(ctx context.Context, query string) (*frame.Table, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	for _, name := range s.Views() {
		if err := loadView(ctx, db, name, s.views[name]); err != nil {
			return nil, fmt.Errorf("load view %q: %w", name, err)
		}
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out, err := readRows(rows)
	if err != nil {
		return nil, err
	}
	s.log.Debug("sql query", "views", len(s.views), "rows", out.Len())
	return out, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func declType(k frame.Kind) string {
	switch k {
	case frame.KindInt:
		return "INTEGER"
	case frame.KindDouble:
		return "REAL"
	case frame.KindBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func loadView(ctx context.Context, db *sql.DB, name string, t *frame.Table) error {
	fields := t.Schema().Fields
	defs := lo.Map(fields, func(f frame.Field, _ int) string {
		return quoteIdent(f.Name) + " " + declType(f.Kind)
	})
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if t.Len() == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), marks))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	err = t.Each(func(_ int, r frame.Row) error {
		args := lo.Map(r.Values(), func(v frame.Value, _ int) any { return sqlArg(v) })
		_, err := stmt.ExecContext(ctx, args...)
		return err
	})
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert: %w", err)
	}
	return tx.Commit()
}

func sqlArg(v frame.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case frame.KindInt:
		return v.Int()
	case frame.KindDouble:
		f, _ := v.Float()
		return f
	case frame.KindBool:
		if v.Bool() {
			return int64(1)
		}
		return int64(0)
	default:
		return v.Str()
	}
}

// readRows materializes a result set. Column kinds come from the values:
// all integers stay int, integers mixed with reals become double, anything
// else is string. BOOLEAN columns holding only 0/1 come back as bool.
func readRows(rows *sql.Rows) (*frame.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	var raw [][]any
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		raw = append(raw, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fields := make([]frame.Field, len(names))
	for j, n := range uniqueNames(names) {
		fields[j] = frame.Field{Name: n, Kind: resultKind(raw, j, types[j].DatabaseTypeName()), Nullable: true}
	}
	schema, err := frame.NewSchema(fields...)
	if err != nil {
		return nil, err
	}
	out := make([][]frame.Value, len(raw))
	for i, r := range raw {
		out[i] = make([]frame.Value, len(r))
		for j, v := range r {
			out[i][j] = toValue(v, fields[j].Kind)
		}
	}
	return frame.New(schema, out)
}

func resultKind(raw [][]any, j int, decl string) frame.Kind {
	var ints, reals, bools, other, seen int
	for _, r := range raw {
		switch v := r[j].(type) {
		case nil:
			continue
		case int64:
			ints++
			if v == 0 || v == 1 {
				bools++
			}
		case bool:
			bools++
			ints++
		case float64:
			reals++
		default:
			other++
		}
		seen++
	}
	switch {
	case seen == 0 && strings.EqualFold(decl, "BOOLEAN"):
		return frame.KindBool
	case seen == 0:
		return frame.KindString
	case other > 0:
		return frame.KindString
	case strings.EqualFold(decl, "BOOLEAN") && bools == seen:
		return frame.KindBool
	case reals > 0:
		return frame.KindDouble
	default:
		return frame.KindInt
	}
}

func toValue(v any, k frame.Kind) frame.Value {
	if v == nil {
		return frame.Null(k)
	}
	switch k {
	case frame.KindBool:
		switch b := v.(type) {
		case bool:
			return frame.BoolValue(b)
		case int64:
			return frame.BoolValue(b != 0)
		}
	case frame.KindInt:
		switch i := v.(type) {
		case int64:
			return frame.IntValue(i)
		case bool:
			return frame.IntValue(lo.Ternary[int64](i, 1, 0))
		}
	case frame.KindDouble:
		switch f := v.(type) {
		case float64:
			return frame.DoubleValue(f)
		case int64:
			return frame.DoubleValue(float64(f))
		case bool:
			return frame.DoubleValue(lo.Ternary(f, 1.0, 0.0))
		}
	}
	switch s := v.(type) {
	case []byte:
		return frame.StringValue(string(s))
	case string:
		return frame.StringValue(s)
	case float64:
		return frame.StringValue(frame.FormatFloat(s))
	default:
		return frame.StringValue(fmt.Sprint(s))
	}
}

// uniqueNames suffixes repeated result column names with _N, skipping
// suffixes that collide with names already taken.
func uniqueNames(names []string) []string {
	base := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for i, n := range names {
		if n == "" {
			n = fmt.Sprintf("_c%d", i)
		}
		base[i] = n
		taken[n] = true
	}
	out := make([]string, len(names))
	used := map[string]bool{}
	next := map[string]int{}
	for i, n := range base {
		if !used[n] {
			out[i] = n
			used[n] = true
			continue
		}
		for {
			next[n]++
			cand := fmt.Sprintf("%s_%d", n, next[n])
			if !taken[cand] && !used[cand] {
				out[i] = cand
				used[cand] = true
				break
			}
		}
	}
	return out
}
