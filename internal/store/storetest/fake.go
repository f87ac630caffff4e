// Package storetest provides an in-memory stand-in for the Postgres
// connections used by package store.
//
// It recognises the gateway's statements by their leading keywords and
// keeps rows in a map keyed by (job id, search parameters), so conflict
// skipping behaves like the real unique constraint.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jobmate/report-service/internal/model"
	"jobmate/report-service/internal/report"
	"jobmate/report-service/internal/store"
)

// DB is a fake database shared by every connection it hands out.
type DB struct {
	mu sync.Mutex

	// Now is the clock the report view filters against.
	Now func() time.Time
	// FailInsert makes inserts of these job ids fail.
	FailInsert map[int64]error
	// FailConnect makes Connect fail.
	FailConnect error
	// FailQuery makes statements starting with the key fail.
	FailQuery map[string]error

	tableExists bool
	viewExists  bool
	rows        map[model.Key]model.JobRecord
	order       []model.Key

	Opened int
	Closed int
}

// New returns an empty fake database without the table.
func New() *DB {
	return &DB{rows: make(map[model.Key]model.JobRecord)}
}

// Connect satisfies store.Connector.
func (db *DB) Connect(ctx context.Context) (store.Conn, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.FailConnect != nil {
		return nil, db.FailConnect
	}
	db.Opened++
	return &conn{db: db}, nil
}

// Seed stores records directly and marks the schema as present.
func (db *DB) Seed(records ...model.JobRecord) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tableExists = true
	db.viewExists = true
	for _, r := range records {
		db.put(r)
	}
}

// Records returns the stored rows in insertion order.
func (db *DB) Records() []model.JobRecord {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.JobRecord, 0, len(db.order))
	for _, k := range db.order {
		out = append(out, db.rows[k])
	}
	return out
}

// SchemaCreated reports whether the table and view were created.
func (db *DB) SchemaCreated() (table, view bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.tableExists, db.viewExists
}

// OpenConns is the number of connections not yet closed.
func (db *DB) OpenConns() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.Opened - db.Closed
}

func (db *DB) put(r model.JobRecord) bool {
	k := r.Key()
	if _, dup := db.rows[k]; dup {
		return false
	}
	db.rows[k] = r
	db.order = append(db.order, k)
	return true
}

func (db *DB) failure(sql string) error {
	for prefix, err := range db.FailQuery {
		if strings.HasPrefix(sql, prefix) {
			return err
		}
	}
	return nil
}

func (db *DB) reportRows() []model.ReportRow {
	now := time.Now()
	if db.Now != nil {
		now = db.Now()
	}
	var recs []model.JobRecord
	for _, k := range db.order {
		if r := db.rows[k]; report.InScope(r, now) {
			recs = append(recs, r)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].PublishDate.After(recs[j].PublishDate)
	})
	if len(recs) > model.ReportLimit {
		recs = recs[:model.ReportLimit]
	}
	out := make([]model.ReportRow, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.ReportRowOf(r))
	}
	return out
}

type conn struct {
	db     *DB
	closed bool
}

func normalise(sql string) string {
	return strings.ToUpper(strings.Join(strings.Fields(sql), " "))
}

func (c *conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if c.closed {
		return pgconn.CommandTag{}, errors.New("conn closed")
	}

	q := normalise(sql)
	if err := c.db.failure(q); err != nil {
		return pgconn.CommandTag{}, err
	}

	switch {
	case strings.HasPrefix(q, "CREATE TABLE"):
		c.db.tableExists = true
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	case strings.HasPrefix(q, "CREATE OR REPLACE VIEW"):
		c.db.viewExists = true
		return pgconn.NewCommandTag("CREATE VIEW"), nil
	case strings.HasPrefix(q, "INSERT INTO"):
		if !c.db.tableExists {
			return pgconn.CommandTag{}, errors.New("relation does not exist")
		}
		r, err := recordFromArgs(args)
		if err != nil {
			return pgconn.CommandTag{}, err
		}
		if err := c.db.FailInsert[r.ID]; err != nil {
			return pgconn.CommandTag{}, err
		}
		if c.db.put(r) {
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		}
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("storetest: unsupported exec %q", q)
}

func (c *conn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	q := normalise(sql)
	if err := c.db.failure(q); err != nil {
		return row{err: err}
	}

	switch {
	case strings.HasPrefix(q, "SELECT EXISTS"):
		return row{vals: []any{c.db.tableExists}}
	case strings.HasPrefix(q, "SELECT COUNT(*)"):
		if !c.db.tableExists {
			return row{err: errors.New("relation does not exist")}
		}
		return row{vals: []any{int64(len(c.db.rows))}}
	}
	return row{err: fmt.Errorf("storetest: unsupported query row %q", q)}
}

func (c *conn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	q := normalise(sql)
	if err := c.db.failure(q); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(q, "SELECT POSITION_TITLE") {
		return nil, fmt.Errorf("storetest: unsupported query %q", q)
	}
	if !c.db.viewExists {
		return nil, errors.New("relation does not exist")
	}

	var vals [][]any
	for _, r := range c.db.reportRows() {
		vals = append(vals, []any{
			r.Title, r.PublishDate, r.Organization, r.LocationDisplay,
			r.InMultipleLocations, r.URL, r.MinSalary, r.MaxSalary,
		})
	}
	return &rows{vals: vals, idx: -1}, nil
}

func (c *conn) Close(ctx context.Context) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.db.Closed++
	}
	return nil
}

func recordFromArgs(args []any) (model.JobRecord, error) {
	if len(args) != 13 {
		return model.JobRecord{}, fmt.Errorf("storetest: insert wants 13 args, got %d", len(args))
	}
	r := model.JobRecord{}
	ok := true
	set := func(dst any, v any) {
		if err := assign(dst, v); err != nil {
			ok = false
		}
	}
	set(&r.ID, args[0])
	set(&r.Title, args[1])
	set(&r.PublishDate, args[2])
	set(&r.Organization, args[3])
	set(&r.LocationDisplay, args[4])
	set(&r.City, args[5])
	set(&r.InMultipleLocations, args[6])
	set(&r.URL, args[7])
	set(&r.MinSalary, args[8])
	set(&r.MaxSalary, args[9])
	set(&r.CreatedAt, args[10])
	set(&r.SearchParams, args[11])
	set(&r.CreatedBy, args[12])
	if !ok {
		return model.JobRecord{}, errors.New("storetest: insert argument type mismatch")
	}
	return r, nil
}

func assign(dst, v any) error {
	switch d := dst.(type) {
	case *int64:
		x, ok := v.(int64)
		if !ok {
			return fmt.Errorf("want int64, got %T", v)
		}
		*d = x
	case *string:
		x, ok := v.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		*d = x
	case *bool:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
		*d = x
	case *time.Time:
		x, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("want time.Time, got %T", v)
		}
		*d = x
	case **float64:
		if v == nil {
			*d = nil
			return nil
		}
		x, ok := v.(*float64)
		if !ok {
			return fmt.Errorf("want *float64, got %T", v)
		}
		*d = x
	default:
		return fmt.Errorf("unsupported destination %T", dst)
	}
	return nil
}

type row struct {
	vals []any
	err  error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("storetest: scan wants %d dest, got %d", len(r.vals), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, r.vals[i]); err != nil {
			return err
		}
	}
	return nil
}

type rows struct {
	vals [][]any
	idx  int
	err  error
}

func (r *rows) Close()                                       {}
func (r *rows) Err() error                                   { return r.err }
func (r *rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rows) RawValues() [][]byte                          { return nil }
func (r *rows) Conn() *pgx.Conn                              { return nil }

func (r *rows) Next() bool {
	r.idx++
	return r.idx < len(r.vals)
}

func (r *rows) Scan(dest ...any) error {
	return row{vals: r.vals[r.idx]}.Scan(dest...)
}

func (r *rows) Values() ([]any, error) {
	return r.vals[r.idx], nil
}
