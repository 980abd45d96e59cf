package database

import (
	"fmt"
	"strings"
)

// Dialect controls identifier quoting, placeholder style and row limiting.
type Dialect int

const (
	// DialectPostgres uses "ident", $1 placeholders and LIMIT.
	DialectPostgres Dialect = iota

	// DialectMySQL uses `ident`, ? placeholders and an inline LIMIT.
	DialectMySQL

	// DialectSQLServer uses [ident], @p1 placeholders and TOP.
	DialectSQLServer

	// DialectSQLite uses "ident", ? placeholders and LIMIT.
	DialectSQLite
)

// SelectBuilder constructs a parameterized SELECT over a single relation.
// Values are passed as args. The one exception is the MySQL row limit: it
// is an int written inline, so the statement can run without a
// server-side prepare.
//
// Usage (Postgres):
//
//	sql, args := Select(DialectPostgres).
//	    Expr("TRUE", "_").
//	    From("public", "orders").
//	    Never().
//	    Limit(0).
//	    Build()
//	// SELECT TRUE AS "_" FROM "public"."orders" WHERE 1 <> 1 LIMIT $1
type SelectBuilder struct {
	dialect Dialect
	exprs   []string
	schema  string
	table   string
	never   bool
	limit   *int
}

// Select starts a new SelectBuilder for the given dialect.
func Select(d Dialect) *SelectBuilder {
	return &SelectBuilder{dialect: d}
}

// Expr adds a constant select-list expression with an alias. expr is
// emitted verbatim and must not carry user input.
func (b *SelectBuilder) Expr(expr, alias string) *SelectBuilder {
	b.exprs = append(b.exprs, expr+" AS "+b.dialect.QuoteIdent(alias))
	return b
}

// Columns adds quoted column references to the select list.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	for _, c := range cols {
		b.exprs = append(b.exprs, b.dialect.QuoteIdent(c))
	}
	return b
}

// From sets the relation. An empty schema leaves the name unqualified.
func (b *SelectBuilder) From(schema, table string) *SelectBuilder {
	b.schema, b.table = schema, table
	return b
}

// Never adds a predicate that matches no row, so the statement only checks
// that the relation can be resolved and read.
func (b *SelectBuilder) Never() *SelectBuilder {
	b.never = true
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Build produces the final SQL string and argument slice.
func (b *SelectBuilder) Build() (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString("SELECT ")

	// --- TOP ---
	if b.limit != nil && b.dialect == DialectSQLServer {
		args = append(args, *b.limit)
		fmt.Fprintf(&sb, "TOP (%s) ", b.placeholder(len(args)))
	}

	// --- select list ---
	if len(b.exprs) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.exprs, ", "))
	}

	// --- FROM ---
	sb.WriteString(" FROM ")
	sb.WriteString(b.dialect.QualifiedName(b.schema, b.table))

	// --- WHERE ---
	if b.never {
		sb.WriteString(" WHERE 1 <> 1")
	}

	// --- LIMIT ---
	if b.limit != nil && b.dialect == DialectMySQL {
		fmt.Fprintf(&sb, " LIMIT %d", *b.limit)
	} else if b.limit != nil && b.dialect != DialectSQLServer {
		args = append(args, *b.limit)
		fmt.Fprintf(&sb, " LIMIT %s", b.placeholder(len(args)))
	}

	return sb.String(), args
}

// placeholder returns the parameter placeholder for the 1-based index.
func (b *SelectBuilder) placeholder(idx int) string {
	switch b.dialect {
	case DialectMySQL, DialectSQLite:
		return "?"
	case DialectSQLServer:
		return fmt.Sprintf("@p%d", idx)
	default:
		return fmt.Sprintf("$%d", idx)
	}
}

// QuoteIdent wraps a SQL identifier in the dialect's quote characters,
// doubling any embedded closing quote.
func (d Dialect) QuoteIdent(name string) string {
	switch d {
	case DialectMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case DialectSQLServer:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// QualifiedName quotes schema and table and joins them with a dot.
func (d Dialect) QualifiedName(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}
