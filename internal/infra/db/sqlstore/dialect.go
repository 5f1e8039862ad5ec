package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour for placeholders, upserts and DDL.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(s)); d {
	case MySQL, Postgres, SQLite:
		return d, nil
	}
	return "", fmt.Errorf("unsupported database driver: %q", s)
}

// Rebind rewrites ? placeholders into $1..$n for postgres.
func (d Dialect) Rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// Upsert builds an insert that overwrites update columns when key already exists.
func (d Dialect) Upsert(table string, cols []string, key string, update []string) string {
	q := insertInto(table, cols)
	sets := make([]string, len(update))
	switch d {
	case MySQL:
		for i, c := range update {
			sets[i] = fmt.Sprintf("%s=VALUES(%s)", c, c)
		}
		return q + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	default:
		for i, c := range update {
			sets[i] = fmt.Sprintf("%s=excluded.%s", c, c)
		}
		return q + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET ", key) + strings.Join(sets, ", ")
	}
}

// InsertIgnore builds an insert that is a no-op when the row already exists.
func (d Dialect) InsertIgnore(table string, cols []string) string {
	q := insertInto(table, cols)
	if d == MySQL {
		return strings.Replace(q, "INSERT INTO", "INSERT IGNORE INTO", 1)
	}
	return q + " ON CONFLICT DO NOTHING"
}

func insertInto(table string, cols []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), marks)
}
