package sqlrepo

import (
	"strconv"
	"strings"

	"github.com/phrazzld/modelapi/internal/domain"
)

// Dialect describes the SQL differences between backends.
type Dialect interface {
	// Name identifies the backend in logs.
	Name() string
	// Placeholder returns the bind parameter for the n-th (1-based) argument.
	Placeholder(n int) string
	// MapError classifies a driver error into the store error causes.
	MapError(err error) error
}

// quote returns name as a double-quoted identifier, which both PostgreSQL
// and SQLite accept.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// builder accumulates SQL text and bind arguments.
type builder struct {
	dialect Dialect
	sb      strings.Builder
	args    []any
}

func newBuilder(d Dialect) *builder {
	return &builder{dialect: d}
}

func (b *builder) write(parts ...string) *builder {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
	return b
}

// bind appends a parameter and writes its placeholder.
func (b *builder) bind(v any) *builder {
	b.args = append(b.args, v)
	b.sb.WriteString(b.dialect.Placeholder(len(b.args)))
	return b
}

// where writes an AND-joined equality clause over attrs in sorted key order.
// An empty set writes nothing.
func (b *builder) where(attrs domain.Attributes) *builder {
	for i, name := range attrs.Keys() {
		if i == 0 {
			b.write(" WHERE ")
		} else {
			b.write(" AND ")
		}
		b.write(quote(name), " = ").bind(attrs[name])
	}
	return b
}

func (b *builder) limitOffset(limit, offset int) *builder {
	return b.write(" LIMIT ", strconv.Itoa(limit), " OFFSET ", strconv.Itoa(offset))
}

func (b *builder) String() string {
	return b.sb.String()
}

func selectAll(d Dialect, table string) *builder {
	return newBuilder(d).write("SELECT * FROM ", quote(table))
}

func countAll(d Dialect, table string) *builder {
	return newBuilder(d).write("SELECT COUNT(*) FROM ", quote(table))
}

func insertInto(d Dialect, table string, values domain.Attributes) *builder {
	b := newBuilder(d)
	keys := values.Keys()

	cols := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = quote(k)
	}
	b.write("INSERT INTO ", quote(table), " (", strings.Join(cols, ", "), ") VALUES (")
	for i, k := range keys {
		if i > 0 {
			b.write(", ")
		}
		b.bind(values[k])
	}
	return b.write(") RETURNING *")
}

func update(d Dialect, table string, values, match domain.Attributes) *builder {
	b := newBuilder(d).write("UPDATE ", quote(table), " SET ")
	for i, k := range values.Keys() {
		if i > 0 {
			b.write(", ")
		}
		b.write(quote(k), " = ").bind(values[k])
	}
	return b.where(match).write(" RETURNING *")
}

func deleteFrom(d Dialect, table string, match domain.Attributes) *builder {
	return newBuilder(d).write("DELETE FROM ", quote(table)).where(match)
}

// orderBy writes a stable ordering on column when it exists.
func (b *builder) orderBy(columns domain.Attributes, column string) *builder {
	if columns.Has(column) {
		b.write(" ORDER BY ", quote(column))
	}
	return b
}
