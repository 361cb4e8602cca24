package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

// fakeDB is a database.DBTX answering statements from canned rows. It is
// its own transaction; methods it does not override panic.
type fakeDB struct {
	pgx.Tx

	mu      sync.Mutex
	answers []*answer
	calls   []sqlCall
}

type sqlCall struct {
	SQL  string
	Args []any
}

// answer serves every statement containing all of match. The first
// registered match wins.
type answer struct {
	match []string
	rows  [][]any
	tag   string
	err   error
	hook  func()
}

func newFakeDB() *fakeDB { return &fakeDB{} }

func (f *fakeDB) on(match ...string) *answer {
	a := &answer{match: match}
	f.mu.Lock()
	f.answers = append(f.answers, a)
	f.mu.Unlock()
	return a
}

func (a *answer) returns(rows ...[]any) *answer { a.rows = rows; return a }
func (a *answer) affects(tag string) *answer   { a.tag = tag; return a }
func (a *answer) fails(err error) *answer      { a.err = err; return a }

// then runs fn each time the answer is used, before the result is read.
func (a *answer) then(fn func()) *answer { a.hook = fn; return a }

func (a *answer) matches(sql string) bool {
	for _, m := range a.match {
		if !strings.Contains(sql, m) {
			return false
		}
	}
	return true
}

func (f *fakeDB) record(sql string, args []any) *answer {
	f.mu.Lock()
	f.calls = append(f.calls, sqlCall{SQL: sql, Args: args})
	var found *answer
	for _, a := range f.answers {
		if a.matches(sql) {
			found = a
			break
		}
	}
	f.mu.Unlock()
	if found != nil && found.hook != nil {
		found.hook()
	}
	return found
}

// last returns the latest statement containing fragment, or nil.
func (f *fakeDB) last(fragment string) *sqlCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if strings.Contains(f.calls[i].SQL, fragment) {
			c := f.calls[i]
			return &c
		}
	}
	return nil
}

// count returns how many statements contained fragment.
func (f *fakeDB) count(fragment string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c.SQL, fragment) {
			n++
		}
	}
	return n
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	a := f.record(sql, args)
	switch {
	case a == nil:
		return pgconn.NewCommandTag("UPDATE 1"), nil
	case a.err != nil:
		return pgconn.CommandTag{}, a.err
	case a.tag != "":
		return pgconn.NewCommandTag(a.tag), nil
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	a := f.record(sql, args)
	if a == nil {
		return &fakeRows{}, nil
	}
	if a.err != nil {
		return nil, a.err
	}
	return &fakeRows{rows: a.rows}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	a := f.record(sql, args)
	switch {
	case a == nil || (a.err == nil && len(a.rows) == 0):
		return fakeRow{err: pgx.ErrNoRows}
	case a.err != nil:
		return fakeRow{err: a.err}
	}
	return fakeRow{values: a.rows[0]}
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) { return f, nil }
func (f *fakeDB) Commit(context.Context) error          { return nil }
func (f *fakeDB) Rollback(context.Context) error        { return nil }

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.values, dest)
}

type fakeRows struct {
	pgx.Rows
	rows [][]any
	pos  int
}

func (r *fakeRows) Next() bool             { r.pos++; return r.pos <= len(r.rows) }
func (r *fakeRows) Scan(dest ...any) error { return scanInto(r.rows[r.pos-1], dest) }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close()                 {}

// scanInto assigns values to dest pointers; nil zeroes the target.
func scanInto(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("row has %d values, scan wants %d", len(values), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("column %d: cannot scan %T into %s", i, values[i], target.Type())
		}
		target.Set(v)
	}
	return nil
}

// articleRow lays a out in articleSelect column order, without joins.
func articleRow(a models.Article) []any {
	return []any{a.ID, a.Title, a.Slug, a.Excerpt, a.Content, a.FeaturedImageID,
		a.CategoryID, a.UserID, string(a.Status), a.PublishedAt, a.CreatedAt, a.UpdatedAt,
		nil, nil, nil, nil, nil}
}

func mediaRow(m models.Media) []any {
	return []any{m.ID, m.Filename, m.OriginalName, m.Path, m.MimeType, m.Size, m.Alt, m.UserID, m.CreatedAt}
}

func settingRow(st models.Setting) []any {
	return []any{st.ID, st.Key, st.Value, st.Type, st.Group, st.Label, st.UpdatedAt}
}
