package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bryanwahyu/copyguard/internal/domain/guidelines"
)

type GuidelineRepository struct {
	q querier
	d Dialect
}

var _ guidelines.Repository = (*GuidelineRepository)(nil)

// Get is find-or-create: concurrent first reads race on the insert, and the
// primary key makes only one of them land.
func (r *GuidelineRepository) Get(ctx context.Context) (*guidelines.BrandGuidelines, error) {
	ins := r.d.InsertIgnore("brand_guidelines", []string{"id", "content", "updated_at"})
	if _, err := r.q.ExecContext(ctx, r.d.Rebind(ins), guidelines.SingletonKey, "", time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("creating default guidelines: %w", err)
	}

	const q = `SELECT content, updated_at, updated_by FROM brand_guidelines WHERE id=?`
	var g guidelines.BrandGuidelines
	var by sql.NullString
	if err := r.q.QueryRowContext(ctx, r.d.Rebind(q), guidelines.SingletonKey).Scan(&g.Content, &g.UpdatedAt, &by); err != nil {
		return nil, fmt.Errorf("loading guidelines: %w", err)
	}
	g.UpdatedAt = g.UpdatedAt.UTC()
	g.UpdatedBy = stringPtr(by)
	return &g, nil
}

func (r *GuidelineRepository) Save(ctx context.Context, g *guidelines.BrandGuidelines) error {
	cols := []string{"id", "content", "updated_at", "updated_by"}
	q := r.d.Upsert("brand_guidelines", cols, "id", cols[1:])
	updated := g.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	if _, err := r.q.ExecContext(ctx, r.d.Rebind(q), guidelines.SingletonKey, g.Content, updated.UTC(), nullString(g.UpdatedBy)); err != nil {
		return fmt.Errorf("saving guidelines: %w", err)
	}
	return nil
}
