package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/copyguard/internal/domain/integrations"
)

type IntegrationRepository struct {
	q querier
	d Dialect
}

var _ integrations.Repository = (*IntegrationRepository)(nil)

func (r *IntegrationRepository) Upsert(ctx context.Context, c *integrations.Config) error {
	cols := []string{"platform", "config", "is_active", "updated_at"}
	q := r.d.Upsert("integrations", cols, "platform", cols[1:])
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	if _, err := r.q.ExecContext(ctx, r.d.Rebind(q), string(c.Platform), string(c.Settings), c.Active, updated.UTC()); err != nil {
		return fmt.Errorf("saving %s integration: %w", c.Platform, err)
	}
	return nil
}

func (r *IntegrationRepository) Active(ctx context.Context, p integrations.Platform) (*integrations.Config, error) {
	const q = `SELECT platform, config, is_active, updated_at FROM integrations WHERE platform=? AND is_active=?`
	c, err := scanIntegration(r.q.QueryRowContext(ctx, r.d.Rebind(q), string(p), true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, integrations.ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s integration: %w", p, err)
	}
	return c, nil
}

func (r *IntegrationRepository) ListActive(ctx context.Context) ([]*integrations.Config, error) {
	const q = `SELECT platform, config, is_active, updated_at FROM integrations WHERE is_active=? ORDER BY platform`
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(q), true)
	if err != nil {
		return nil, fmt.Errorf("querying integrations: %w", err)
	}
	defer rows.Close()

	var out []*integrations.Config
	for rows.Next() {
		c, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanIntegration(row rowScanner) (*integrations.Config, error) {
	var c integrations.Config
	var platform, settings string
	if err := row.Scan(&platform, &settings, &c.Active, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Platform = integrations.Platform(platform)
	c.Settings = []byte(settings)
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
