package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/copyguard/internal/application"
	"github.com/bryanwahyu/copyguard/internal/domain/users"
	"github.com/bryanwahyu/copyguard/internal/infra/db/sqlstore/sqlstoretest"
)

func TestGuidelinesLifecycle(t *testing.T) {
	at := time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC)
	svc := &Service{Repo: sqlstoretest.Open(t).Guidelines(), Clock: application.FixedClock{T: at}}
	ctx := context.Background()

	g, err := svc.Guidelines(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", g.Content)

	member := &users.User{ID: "m", Role: users.RoleMember}
	_, err = svc.UpdateGuidelines(ctx, member, "Be loud.")
	assert.ErrorIs(t, err, users.ErrForbidden)

	admin := &users.User{ID: "a", Role: users.RoleAdmin}
	_, err = svc.UpdateGuidelines(ctx, admin, "Friendly, never pushy.")
	require.NoError(t, err)

	g, err = svc.Guidelines(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Friendly, never pushy.", g.Content)
	assert.Equal(t, "a", *g.UpdatedBy)
	assert.True(t, at.Equal(g.UpdatedAt))
}
