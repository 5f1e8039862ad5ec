package integrations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appreviews "github.com/bryanwahyu/copyguard/internal/application/reviews"
	domain "github.com/bryanwahyu/copyguard/internal/domain/integrations"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/domain/sources"
	"github.com/bryanwahyu/copyguard/internal/domain/users"
	"github.com/bryanwahyu/copyguard/internal/infra/db/sqlstore/sqlstoretest"
)

var (
	admin  = &users.User{ID: "u-admin", Role: users.RoleAdmin, Active: true}
	member = &users.User{ID: "u-member", Role: users.RoleMember, Active: true}
)

type fakeAdapter struct {
	platform  domain.Platform
	items     []sources.Item
	locations []sources.Location
	err       error

	gotCreds string
	gotLoc   string
	gotLimit int
}

func (f *fakeAdapter) Platform() domain.Platform { return f.platform }

func (f *fakeAdapter) FetchRecent(ctx context.Context, creds, loc string, limit int) ([]sources.Item, error) {
	f.gotCreds, f.gotLoc, f.gotLimit = creds, loc, limit
	if f.err != nil {
		return nil, &sources.AdapterError{Platform: f.platform, Err: f.err}
	}
	return f.items, nil
}

func (f *fakeAdapter) ListLocations(ctx context.Context, creds string) ([]sources.Location, error) {
	f.gotCreds = creds
	if f.err != nil {
		return nil, &sources.AdapterError{Platform: f.platform, Err: f.err}
	}
	return f.locations, nil
}

type recordingSubmitter struct {
	batches [][]appreviews.NewReview
}

func (r *recordingSubmitter) SubmitBatch(ctx context.Context, u *users.User, items []appreviews.NewReview) ([]*reviews.Review, error) {
	r.batches = append(r.batches, items)
	out := make([]*reviews.Review, len(items))
	for i, it := range items {
		ref := it.SourceReference
		out[i] = &reviews.Review{
			ID:              reviews.ID(it.SourceReference),
			UserID:          u.ID,
			Source:          it.Source,
			SourceReference: &ref,
			Status:          reviews.StatusPending,
		}
	}
	return out, nil
}

type fixture struct {
	svc    *Service
	slack  *fakeAdapter
	notion *fakeAdapter
	sub    *recordingSubmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := sqlstoretest.Open(t)
	f := &fixture{
		slack:  &fakeAdapter{platform: domain.PlatformSlack},
		notion: &fakeAdapter{platform: domain.PlatformNotion},
		sub:    &recordingSubmitter{},
	}
	f.svc = &Service{
		Repo:    store.Integrations(),
		Reviews: f.sub,
		Slack:   f.slack,
		Notion:  f.notion,
		History: store.Reviews(),
	}
	return f
}

func TestStatusReflectsSavedConfigs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.Platform]bool{domain.PlatformSlack: false, domain.PlatformNotion: false}, st)

	require.NoError(t, f.svc.SaveSlack(ctx, admin, domain.SlackSettings{BotToken: "xoxb-1"}))
	st, err = f.svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st[domain.PlatformSlack])
	assert.False(t, st[domain.PlatformNotion])
}

func TestSaveRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	err := f.svc.SaveNotion(context.Background(), member, domain.NotionSettings{APIKey: "secret"})
	assert.ErrorIs(t, err, users.ErrForbidden)
}

func TestSaveKeepsStoredCredentialWhenOmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SaveSlack(ctx, admin, domain.SlackSettings{BotToken: "xoxb-1", ChannelIDs: []string{"C1"}}))
	require.NoError(t, f.svc.SaveSlack(ctx, admin, domain.SlackSettings{ChannelIDs: []string{"C2"}}))

	_, err := f.svc.ListChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-1", f.slack.gotCreds)

	err = f.svc.SaveNotion(ctx, admin, domain.NotionSettings{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetchWithoutConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FetchSlack(ctx, member, "C1", 0)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Contains(t, err.Error(), "Slack not configured")

	_, err = f.svc.ListDatabases(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestFetchSlackQueuesSocialMediaReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SaveSlack(ctx, admin, domain.SlackSettings{BotToken: "xoxb-1"}))

	f.slack.items = []sources.Item{
		{ExternalID: "1700000000.000100", Text: "Launch day!", SourceLabel: "marketing"},
		{ExternalID: "1700000000.000200", Text: "  ", SourceLabel: "marketing"},
		{ExternalID: "1700000000.000300", Text: "50% off", SourceLabel: "marketing"},
	}

	res, err := f.svc.FetchSlack(ctx, member, "C1", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultFetchLimit, f.slack.gotLimit)
	assert.Equal(t, "C1", f.slack.gotLoc)
	assert.Equal(t, 2, res.Queued)
	assert.Equal(t, []reviews.ID{"marketing/1700000000.000100", "marketing/1700000000.000300"}, res.ReviewIDs)

	require.Len(t, f.sub.batches, 1)
	for _, nr := range f.sub.batches[0] {
		assert.Equal(t, reviews.ContentSocialMedia, nr.ContentType)
		assert.Equal(t, reviews.SourceSlack, nr.Source)
	}
}

func TestFetchNotionDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SaveNotion(ctx, admin, domain.NotionSettings{APIKey: "secret"}))

	f.notion.items = []sources.Item{{ExternalID: "page-1", Text: "Body", SourceLabel: "Post"}}

	res, err := f.svc.FetchNotion(ctx, member, "db-1", "", 500)
	require.NoError(t, err)
	assert.Equal(t, MaxFetchLimit, f.notion.gotLimit)
	assert.Equal(t, "secret", f.notion.gotCreds)
	assert.Equal(t, 1, res.Queued)
	assert.Equal(t, reviews.ContentBlog, f.sub.batches[0][0].ContentType)
	assert.Equal(t, "page-1", f.sub.batches[0][0].SourceReference)

	_, err = f.svc.FetchNotion(ctx, member, "db-1", "poster", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.FetchNotion(ctx, member, "", reviews.ContentEmail, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetchAdapterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SaveSlack(ctx, admin, domain.SlackSettings{BotToken: "xoxb-1"}))
	f.slack.err = errors.New("channel_not_found")

	_, err := f.svc.FetchSlack(ctx, member, "C404", 10)
	var ae *sources.AdapterError
	require.True(t, errors.As(err, &ae))
	assert.Empty(t, f.sub.batches)
}

func TestFetchEmptyQueuesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SaveSlack(ctx, admin, domain.SlackSettings{BotToken: "xoxb-1"}))

	res, err := f.svc.FetchSlack(ctx, member, "C1", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Queued)
	assert.NotNil(t, res.ReviewIDs)
	assert.Empty(t, f.sub.batches)
}

func TestFetchSkipsDuplicatesWhenEnabled(t *testing.T) {
	store := sqlstoretest.Open(t)
	ctx := context.Background()

	ref := "page-1"
	require.NoError(t, store.Reviews().Create(ctx, &reviews.Review{
		ID:              "r-existing",
		UserID:          member.ID,
		ContentType:     reviews.ContentBlog,
		OriginalContent: "Body",
		Source:          reviews.SourceNotion,
		SourceReference: &ref,
		Status:          reviews.StatusCompleted,
	}))

	notion := &fakeAdapter{platform: domain.PlatformNotion, items: []sources.Item{
		{ExternalID: "page-1", Text: "Body"},
		{ExternalID: "page-2", Text: "Other"},
	}}
	sub := &recordingSubmitter{}
	svc := &Service{
		Repo:           store.Integrations(),
		Reviews:        sub,
		Notion:         notion,
		SkipDuplicates: true,
		History:        store.Reviews(),
	}
	require.NoError(t, svc.SaveNotion(ctx, admin, domain.NotionSettings{APIKey: "secret"}))

	res, err := svc.FetchNotion(ctx, member, "db-1", reviews.ContentBlog, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Queued)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []reviews.ID{"page-2"}, res.ReviewIDs)

	// another user has not seen page-1
	res, err = svc.FetchNotion(ctx, admin, "db-1", reviews.ContentBlog, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Queued)
}
