package sqlstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
)

type columnTypes struct {
	text, longText, timestamp, float, boolean string
}

func (d Dialect) types() columnTypes {
	switch d {
	case MySQL:
		return columnTypes{"VARCHAR(255)", "LONGTEXT", "DATETIME(6)", "DOUBLE", "BOOLEAN"}
	case Postgres:
		return columnTypes{"VARCHAR(255)", "TEXT", "TIMESTAMPTZ", "DOUBLE PRECISION", "BOOLEAN"}
	default:
		return columnTypes{"TEXT", "TEXT", "DATETIME", "REAL", "BOOLEAN"}
	}
}

type table struct {
	name    string
	columns []string
	indexes map[string]string
}

func (d Dialect) tables() []table {
	t := d.types()
	return []table{
		{
			name: "users",
			columns: []string{
				"id VARCHAR(36) PRIMARY KEY",
				"email " + t.text + " NOT NULL UNIQUE",
				"password_hash " + t.text + " NOT NULL",
				"full_name " + t.text + " NOT NULL",
				"role VARCHAR(16) NOT NULL",
				"is_active " + t.boolean + " NOT NULL",
				"created_at " + t.timestamp + " NOT NULL",
			},
		},
		{
			name: "reviews",
			columns: []string{
				"id VARCHAR(36) PRIMARY KEY",
				"user_id VARCHAR(36) NOT NULL",
				"content_type VARCHAR(32) NOT NULL",
				"original_content " + t.longText + " NOT NULL",
				"source VARCHAR(16) NOT NULL",
				"source_reference " + t.text + " NULL",
				"brand_score INTEGER NULL",
				"brand_feedback " + t.longText + " NULL",
				"compliance_flags " + t.longText + " NULL",
				"sentiment VARCHAR(32) NULL",
				"sentiment_score " + t.float + " NULL",
				"sentiment_feedback " + t.longText + " NULL",
				"suggested_rewrite " + t.longText + " NULL",
				"overall_rating VARCHAR(8) NULL",
				"summary " + t.longText + " NULL",
				"status VARCHAR(16) NOT NULL",
				"error_message " + t.longText + " NULL",
				"created_at " + t.timestamp + " NOT NULL",
			},
			indexes: map[string]string{
				"idx_reviews_user_created":   "user_id, created_at",
				"idx_reviews_status_created": "status, created_at",
			},
		},
		{
			name: "brand_guidelines",
			columns: []string{
				"id VARCHAR(32) PRIMARY KEY",
				"content " + t.longText + " NOT NULL",
				"updated_at " + t.timestamp + " NOT NULL",
				"updated_by VARCHAR(36) NULL",
			},
		},
		{
			name: "integrations",
			columns: []string{
				"platform VARCHAR(16) PRIMARY KEY",
				"config " + t.longText + " NOT NULL",
				"is_active " + t.boolean + " NOT NULL",
				"updated_at " + t.timestamp + " NOT NULL",
			},
		},
	}
}

// Statements returns the idempotent DDL for the dialect. MySQL has no
// CREATE INDEX IF NOT EXISTS so its indexes go inline.
func (d Dialect) Statements() []string {
	var out []string
	for _, tb := range d.tables() {
		cols := append([]string(nil), tb.columns...)
		if d == MySQL {
			for _, name := range slices.Sorted(maps.Keys(tb.indexes)) {
				cols = append(cols, fmt.Sprintf("INDEX %s (%s)", name, tb.indexes[name]))
			}
		}
		out = append(out, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", tb.name, strings.Join(cols, ",\n  ")))
		if d != MySQL {
			for _, name := range slices.Sorted(maps.Keys(tb.indexes)) {
				out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, tb.name, tb.indexes[name]))
			}
		}
	}
	return out
}

// Migrate creates every table and index that does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Statements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}
