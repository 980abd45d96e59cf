// Package discoverytest provides an in-memory database that implements the
// pool, connection and driver contracts used by discovery. Like a real
// session, a fake connection refuses a new statement while a previous
// result set is still open.
package discoverytest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

// Statements understood by the fake connection.
const (
	SchemasSQL   = "fake:schemas"
	TablesSQL    = "fake:tables"
	ProbeSQL     = "fake:probe"
	IsolationSQL = "fake:isolation"
)

var (
	ErrBusy             = errors.New("connection busy: previous result set still open")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoSuchTable      = errors.New("relation does not exist")
	ErrIsolation        = errors.New("isolation level not supported")
)

// Database is the state behind a fake pool. Fields may be set before the
// first scan; counters are read through the accessor methods.
type Database struct {
	// Schemas is returned by the schema listing, in this order.
	Schemas []string

	// Tables is returned by the table listing, in this order, filtered by
	// the request's patterns and kinds. Duplicates are kept.
	Tables []discovery.TableCandidate

	// Denied tables fail their probe with ErrPermissionDenied.
	Denied map[discovery.TableKey]bool

	// Missing tables are listed but fail their probe with ErrNoSuchTable.
	Missing map[discovery.TableKey]bool

	AcquireErr    error
	SchemaErr     error // returned by every schema page
	TableErr      error // returned by table pages once TableErrAfter pages were served
	TableErrAfter int
	FailIsolation bool

	mu          sync.Mutex
	acquired    int
	released    int
	schemaPages int
	tablePages  int
	probes      int
	isolation   int
	openRows    int
	busyErrors  int
	positions   map[string]int
}

// T returns a TABLE candidate without remarks.
func T(schema, name string) discovery.TableCandidate {
	return discovery.TableCandidate{Schema: schema, Name: name, Kind: discovery.KindTable}
}

// Remarks returns a pointer to s.
func Remarks(s string) *string {
	return &s
}

func (db *Database) Acquired() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.acquired
}

func (db *Database) Released() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.released
}

func (db *Database) SchemaPages() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.schemaPages
}

func (db *Database) TablePages() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.tablePages
}

func (db *Database) Probes() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.probes
}

func (db *Database) IsolationCalls() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.isolation
}

// OpenRows returns the number of result sets not yet closed.
func (db *Database) OpenRows() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.openRows
}

// BusyErrors counts statements rejected because a result set was open.
func (db *Database) BusyErrors() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.busyErrors
}

// --- Pool ---

// Pool hands out connections to a Database.
type Pool struct {
	DB *Database
}

// NewPool returns a pool over db.
func NewPool(db *Database) *Pool {
	return &Pool{DB: db}
}

func (p *Pool) Acquire(ctx context.Context) (database.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.DB.mu.Lock()
	defer p.DB.mu.Unlock()
	if p.DB.AcquireErr != nil {
		return nil, p.DB.AcquireErr
	}
	p.DB.acquired++
	return &Conn{db: p.DB}, nil
}

func (p *Pool) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (p *Pool) Close() {}

// --- Conn ---

// Conn is a fake single-session connection.
type Conn struct {
	db       *Database
	released bool
	open     int
}

func (c *Conn) Release() {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if !c.released {
		c.released = true
		c.db.released++
	}
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.ready(ctx); err != nil {
		return err
	}
	if sql != IsolationSQL {
		return fmt.Errorf("unexpected statement %q", sql)
	}
	c.db.isolation++
	if c.db.FailIsolation {
		return ErrIsolation
	}
	return nil
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	switch sql {
	case SchemasSQL:
		return c.schemas(args[0].(string), args[1].(int))
	case TablesSQL:
		return c.tables(args[0].(*string), args[1].(string), args[2].([]discovery.TableKind),
			args[3].(discovery.TableKey), args[4].(int))
	case ProbeSQL:
		return c.probe(discovery.TableKey{Schema: args[0].(string), Name: args[1].(string)})
	default:
		return nil, fmt.Errorf("unexpected statement %q", sql)
	}
}

// ready must be called with db.mu held.
func (c *Conn) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.released {
		return errors.New("connection already released")
	}
	if c.open > 0 {
		c.db.busyErrors++
		return ErrBusy
	}
	return nil
}

func (c *Conn) schemas(after string, limit int) (database.Rows, error) {
	c.db.schemaPages++
	if c.db.SchemaErr != nil {
		return nil, c.db.SchemaErr
	}
	start := 0
	if after != "" {
		start = slices.Index(c.db.Schemas, after) + 1
	}
	end := min(start+limit, len(c.db.Schemas))

	data := make([][]any, 0, end-start)
	for _, s := range c.db.Schemas[start:end] {
		data = append(data, []any{s})
	}
	return c.newRows(data, nil), nil
}

func (c *Conn) tables(schemaPattern *string, namePattern string, kinds []discovery.TableKind, after discovery.TableKey, limit int) (database.Rows, error) {
	if c.db.TableErr != nil && c.db.tablePages >= c.db.TableErrAfter {
		c.db.tablePages++
		return nil, c.db.TableErr
	}
	c.db.tablePages++

	// Listings keep duplicates, so a page resumes from the position where
	// the previous page of the same listing ended rather than by key.
	listing := fmt.Sprintf("%v|%s|%v", deref(schemaPattern), namePattern, kinds)
	if c.db.positions == nil {
		c.db.positions = make(map[string]int)
	}
	start := 0
	if after != (discovery.TableKey{}) {
		start = c.db.positions[listing+"|"+after.String()]
	}

	var data [][]any
	next := start
	for i := start; i < len(c.db.Tables) && len(data) < limit; i++ {
		next = i + 1
		t := c.db.Tables[i]
		if schemaPattern != nil && !like(*schemaPattern, t.Schema) {
			continue
		}
		if !like(namePattern, t.Name) {
			continue
		}
		if len(kinds) > 0 && !slices.Contains(kinds, t.Kind) {
			continue
		}
		data = append(data, []any{t.Schema, t.Name, string(t.Kind), t.Remarks})
	}
	if len(data) > 0 {
		last := discovery.TableKey{Schema: data[len(data)-1][0].(string), Name: data[len(data)-1][1].(string)}
		c.db.positions[listing+"|"+last.String()] = next
	}
	return c.newRows(data, nil), nil
}

func (c *Conn) probe(key discovery.TableKey) (database.Rows, error) {
	c.db.probes++
	if c.db.Missing[key] {
		return nil, ErrNoSuchTable
	}
	found := slices.ContainsFunc(c.db.Tables, func(t discovery.TableCandidate) bool {
		return t.Key() == key
	})
	if !found {
		return nil, ErrNoSuchTable
	}
	if c.db.Denied[key] {
		// Reported on read, the way pgx surfaces server errors.
		return c.newRows(nil, ErrPermissionDenied), nil
	}
	return c.newRows(nil, nil), nil
}

// newRows must be called with db.mu held.
func (c *Conn) newRows(data [][]any, err error) *Rows {
	c.open++
	c.db.openRows++
	return &Rows{conn: c, data: data, pos: -1, err: err}
}

// --- Rows ---

// Rows is a materialized result set.
type Rows struct {
	conn   *Conn
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (r *Rows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	r.pos++
	return r.pos < len(r.data)
}

func (r *Rows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.data) {
		return errors.New("scan called without a current row")
	}
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case **string:
			*p = row[i].(*string)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func (r *Rows) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.conn.db.mu.Lock()
	r.conn.open--
	r.conn.db.openRows--
	r.conn.db.mu.Unlock()
}

func (r *Rows) Err() error {
	return r.err
}

// --- Catalog and Driver ---

// Catalog reads pages from a fake connection.
type Catalog struct{}

func (Catalog) SchemaPage(ctx context.Context, conn database.Conn, after string, limit int) ([]string, error) {
	rows, err := conn.Query(ctx, SchemasSQL, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (Catalog) TablePage(ctx context.Context, conn database.Conn, q discovery.TableQuery, after discovery.TableKey, limit int) ([]discovery.TableCandidate, error) {
	rows, err := conn.Query(ctx, TablesSQL, q.SchemaPattern, q.NamePattern, q.Kinds, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []discovery.TableCandidate
	for rows.Next() {
		var (
			c    discovery.TableCandidate
			kind string
		)
		if err := rows.Scan(&c.Schema, &c.Name, &kind, &c.Remarks); err != nil {
			return nil, err
		}
		c.Kind = discovery.TableKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Driver is a discovery.Driver for the fake database.
type Driver struct {
	discovery.Base
}

// NewDriver returns a driver with the given strategy and system schemas.
func NewDriver(strategy discovery.Strategy, excluded ...string) *Driver {
	return &Driver{Base: discovery.Base{
		Engine:       "fake",
		Excluded:     discovery.NewSchemaSet(excluded...),
		ScanStrategy: strategy,
		Isolation:    IsolationSQL,
	}}
}

func (d *Driver) SimpleSelectProbeQuery(schema, table string) (string, []any) {
	return ProbeSQL, []any{schema, table}
}

func (d *Driver) Catalog() discovery.Catalog {
	return Catalog{}
}

// --- helpers ---

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

// like matches s against a LIKE pattern escaped with a backslash.
func like(pattern, s string) bool {
	var sb strings.Builder
	sb.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile("(?s)" + sb.String()).MatchString(s)
}
