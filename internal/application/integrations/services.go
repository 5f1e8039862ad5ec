package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/copyguard/internal/application"
	appreviews "github.com/bryanwahyu/copyguard/internal/application/reviews"
	domain "github.com/bryanwahyu/copyguard/internal/domain/integrations"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/domain/sources"
	"github.com/bryanwahyu/copyguard/internal/domain/users"
)

const (
	DefaultFetchLimit = 20
	MaxFetchLimit     = 100
)

// Submitter queues reviews for analysis.
type Submitter interface {
	SubmitBatch(ctx context.Context, u *users.User, items []appreviews.NewReview) ([]*reviews.Review, error)
}

// History answers whether an item was already ingested.
type History interface {
	ExistsBySourceReference(ctx context.Context, userID string, source reviews.Source, ref string) (bool, error)
}

// Service manages platform credentials and turns fetched items into reviews.
type Service struct {
	Repo    domain.Repository
	Reviews Submitter
	Slack   sources.Adapter
	Notion  sources.Adapter
	Clock   application.Clock

	// SkipDuplicates drops items whose source reference the user already has.
	// History is required when set.
	SkipDuplicates bool
	History        History
}

// FetchResult is what a fetch queued.
type FetchResult struct {
	Queued    int          `json:"queued"`
	ReviewIDs []reviews.ID `json:"review_ids"`
	Skipped   int          `json:"skipped"`
}

// Status reports which platforms have an active config.
func (s *Service) Status(ctx context.Context) (map[domain.Platform]bool, error) {
	active, err := s.Repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := map[domain.Platform]bool{
		domain.PlatformSlack:  false,
		domain.PlatformNotion: false,
	}
	for _, c := range active {
		if _, ok := out[c.Platform]; ok {
			out[c.Platform] = true
		}
	}
	return out, nil
}

// SaveSlack replaces the Slack config. An empty token keeps the stored one.
func (s *Service) SaveSlack(ctx context.Context, editor *users.User, in domain.SlackSettings) error {
	if !editor.IsAdmin() {
		return users.ErrForbidden
	}
	if in.BotToken == "" {
		var prev domain.SlackSettings
		if err := s.previous(ctx, domain.PlatformSlack, &prev); err != nil {
			return err
		}
		in.BotToken = prev.BotToken
	}
	if in.BotToken == "" {
		return fmt.Errorf("%w: bot_token is required", domain.ErrInvalidInput)
	}
	if in.ChannelIDs == nil {
		in.ChannelIDs = []string{}
	}
	return s.save(ctx, domain.PlatformSlack, in)
}

// SaveNotion replaces the Notion config. An empty key keeps the stored one.
func (s *Service) SaveNotion(ctx context.Context, editor *users.User, in domain.NotionSettings) error {
	if !editor.IsAdmin() {
		return users.ErrForbidden
	}
	if in.APIKey == "" {
		var prev domain.NotionSettings
		if err := s.previous(ctx, domain.PlatformNotion, &prev); err != nil {
			return err
		}
		in.APIKey = prev.APIKey
	}
	if in.APIKey == "" {
		return fmt.Errorf("%w: api_key is required", domain.ErrInvalidInput)
	}
	if in.DatabaseIDs == nil {
		in.DatabaseIDs = []string{}
	}
	return s.save(ctx, domain.PlatformNotion, in)
}

func (s *Service) previous(ctx context.Context, p domain.Platform, dst any) error {
	c, err := s.Repo.Active(ctx, p)
	if errors.Is(err, domain.ErrNotConfigured) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.Decode(dst)
}

func (s *Service) save(ctx context.Context, p domain.Platform, settings any) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.Repo.Upsert(ctx, &domain.Config{
		Platform:  p,
		Settings:  raw,
		Active:    true,
		UpdatedAt: s.now(),
	})
}

// ListChannels lists Slack channels visible to the bot.
func (s *Service) ListChannels(ctx context.Context) ([]sources.Location, error) {
	token, err := s.slackToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.Slack.ListLocations(ctx, token)
}

// ListDatabases lists Notion databases shared with the integration.
func (s *Service) ListDatabases(ctx context.Context) ([]sources.Location, error) {
	key, err := s.notionKey(ctx)
	if err != nil {
		return nil, err
	}
	return s.Notion.ListLocations(ctx, key)
}

// FetchSlack pulls recent channel messages and queues them as social media reviews.
func (s *Service) FetchSlack(ctx context.Context, u *users.User, channelID string, limit int) (FetchResult, error) {
	if strings.TrimSpace(channelID) == "" {
		return FetchResult{}, fmt.Errorf("%w: channel_id is required", domain.ErrInvalidInput)
	}
	token, err := s.slackToken(ctx)
	if err != nil {
		return FetchResult{}, err
	}
	items, err := s.Slack.FetchRecent(ctx, token, channelID, clampLimit(limit))
	if err != nil {
		return FetchResult{}, err
	}
	return s.queue(ctx, u, domain.PlatformSlack, reviews.ContentSocialMedia, items)
}

// FetchNotion pulls database pages and queues them with the given content
// type, blog when empty.
func (s *Service) FetchNotion(ctx context.Context, u *users.User, databaseID string, contentType reviews.ContentType, limit int) (FetchResult, error) {
	if strings.TrimSpace(databaseID) == "" {
		return FetchResult{}, fmt.Errorf("%w: database_id is required", domain.ErrInvalidInput)
	}
	if contentType == "" {
		contentType = reviews.ContentBlog
	}
	if !contentType.Valid() {
		return FetchResult{}, fmt.Errorf("%w: unknown content type %q", domain.ErrInvalidInput, contentType)
	}
	key, err := s.notionKey(ctx)
	if err != nil {
		return FetchResult{}, err
	}
	items, err := s.Notion.FetchRecent(ctx, key, databaseID, clampLimit(limit))
	if err != nil {
		return FetchResult{}, err
	}
	return s.queue(ctx, u, domain.PlatformNotion, contentType, items)
}

func (s *Service) queue(ctx context.Context, u *users.User, p domain.Platform, ct reviews.ContentType, items []sources.Item) (FetchResult, error) {
	source := reviews.Source(p)
	res := FetchResult{ReviewIDs: []reviews.ID{}}

	batch := make([]appreviews.NewReview, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Text) == "" {
			continue
		}
		ref := sources.Reference(p, it)
		if s.SkipDuplicates && s.History != nil {
			seen, err := s.History.ExistsBySourceReference(ctx, u.ID, source, ref)
			if err != nil {
				return res, err
			}
			if seen {
				res.Skipped++
				continue
			}
		}
		batch = append(batch, appreviews.NewReview{
			Content:         it.Text,
			ContentType:     ct,
			Source:          source,
			SourceReference: ref,
		})
	}
	if len(batch) == 0 {
		return res, nil
	}

	created, err := s.Reviews.SubmitBatch(ctx, u, batch)
	for _, rv := range created {
		res.ReviewIDs = append(res.ReviewIDs, rv.ID)
	}
	res.Queued = len(res.ReviewIDs)
	return res, err
}

func (s *Service) slackToken(ctx context.Context) (string, error) {
	var cfg domain.SlackSettings
	if err := s.active(ctx, domain.PlatformSlack, &cfg); err != nil {
		return "", err
	}
	return cfg.BotToken, nil
}

func (s *Service) notionKey(ctx context.Context) (string, error) {
	var cfg domain.NotionSettings
	if err := s.active(ctx, domain.PlatformNotion, &cfg); err != nil {
		return "", err
	}
	return cfg.APIKey, nil
}

func (s *Service) active(ctx context.Context, p domain.Platform, dst any) error {
	c, err := s.Repo.Active(ctx, p)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return fmt.Errorf("%s %w", displayName(p), err)
		}
		return err
	}
	if err := c.Decode(dst); err != nil {
		return fmt.Errorf("decoding %s config: %w", p, err)
	}
	return nil
}

func displayName(p domain.Platform) string {
	switch p {
	case domain.PlatformSlack:
		return "Slack"
	case domain.PlatformNotion:
		return "Notion"
	}
	return string(p)
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultFetchLimit
	}
	return min(n, MaxFetchLimit)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}
