package settings

import (
	"context"
	"time"

	"github.com/bryanwahyu/copyguard/internal/application"
	"github.com/bryanwahyu/copyguard/internal/domain/guidelines"
	"github.com/bryanwahyu/copyguard/internal/domain/users"
)

// Service is the guideline store. Reads may be slightly stale relative to a
// concurrent update; analyses only ever see a whole document.
type Service struct {
	Repo  guidelines.Repository
	Clock application.Clock
}

// Guidelines returns the current document, creating an empty one on first use.
func (s *Service) Guidelines(ctx context.Context) (*guidelines.BrandGuidelines, error) {
	return s.Repo.Get(ctx)
}

// UpdateGuidelines replaces the document. Admin only.
func (s *Service) UpdateGuidelines(ctx context.Context, editor *users.User, content string) (*guidelines.BrandGuidelines, error) {
	if !editor.IsAdmin() {
		return nil, users.ErrForbidden
	}
	by := editor.ID
	g := &guidelines.BrandGuidelines{
		Content:   content,
		UpdatedAt: s.now(),
		UpdatedBy: &by,
	}
	if err := s.Repo.Save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}
