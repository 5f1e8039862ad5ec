package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/infra/db/sqlstore/sqlstoretest"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newReview(id, user string, at time.Time) *reviews.Review {
	return &reviews.Review{
		ID:              reviews.ID(id),
		UserID:          user,
		ContentType:     reviews.ContentBlog,
		OriginalContent: "Our new blend is here.",
		Source:          reviews.SourceManual,
		Status:          reviews.StatusPending,
		CreatedAt:       at,
	}
}

func sampleAnalysis() reviews.Analysis {
	return reviews.Analysis{
		BrandScore:    77,
		BrandFeedback: "On voice.",
		ComplianceFlags: []reviews.ComplianceFlag{
			{Text: "best", Issue: "Superlative", Severity: "low", Suggestion: "great"},
		},
		Sentiment:         "positive",
		SentimentScore:    0.9,
		SentimentFeedback: "Upbeat.",
		SuggestedRewrite:  "Our new blend has arrived.",
		OverallRating:     "B",
		Summary:           "Solid.",
	}
}

func TestReviewCreateGet(t *testing.T) {
	repo := sqlstoretest.Open(t).Reviews()
	ctx := context.Background()

	ref := "general/1700000000.000100"
	rv := newReview("r1", "u1", t0.Add(123456*time.Microsecond))
	rv.Source = reviews.SourceSlack
	rv.SourceReference = &ref
	require.NoError(t, repo.Create(ctx, rv))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, reviews.StatusPending, got.Status)
	assert.Equal(t, reviews.SourceSlack, got.Source)
	require.NotNil(t, got.SourceReference)
	assert.Equal(t, ref, *got.SourceReference)
	assert.Nil(t, got.BrandScore)
	assert.Nil(t, got.ComplianceFlags)
	assert.Nil(t, got.ErrorMessage)
	assert.True(t, rv.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, reviews.ErrNotFound)
}

func TestReviewCompleteWritesAllFields(t *testing.T) {
	repo := sqlstoretest.Open(t).Reviews()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReview("r1", "u1", t0)))

	require.NoError(t, repo.Complete(ctx, "r1", sampleAnalysis()))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, reviews.StatusCompleted, got.Status)
	require.NotNil(t, got.BrandScore)
	assert.Equal(t, 77, *got.BrandScore)
	assert.Equal(t, "B", *got.OverallRating)
	assert.InDelta(t, 0.9, *got.SentimentScore, 1e-9)
	assert.Equal(t, sampleAnalysis().ComplianceFlags, got.ComplianceFlags)
	assert.Nil(t, got.ErrorMessage)
}

func TestReviewCompleteEmptyFlagsStayEmpty(t *testing.T) {
	repo := sqlstoretest.Open(t).Reviews()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReview("r1", "u1", t0)))

	a := sampleAnalysis()
	a.ComplianceFlags = nil
	require.NoError(t, repo.Complete(ctx, "r1", a))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.NotNil(t, got.ComplianceFlags)
	assert.Empty(t, got.ComplianceFlags)
}

func TestReviewTransitionsOnlyFromPending(t *testing.T) {
	repo := sqlstoretest.Open(t).Reviews()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReview("r1", "u1", t0)))

	require.NoError(t, repo.Fail(ctx, "r1", "model call failed"))
	assert.ErrorIs(t, repo.Complete(ctx, "r1", sampleAnalysis()), reviews.ErrNotPending)
	assert.ErrorIs(t, repo.Fail(ctx, "r1", "again"), reviews.ErrNotPending)
	assert.ErrorIs(t, repo.Fail(ctx, "nope", "x"), reviews.ErrNotFound)

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, reviews.StatusError, got.Status)
	assert.Equal(t, "model call failed", *got.ErrorMessage)
	assert.Nil(t, got.BrandScore)
	assert.Nil(t, got.Summary)
}

func TestReviewPaginateScopedNewestFirst(t *testing.T) {
	repo := sqlstoretest.Open(t).Reviews()
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		user := "u1"
		if i%2 == 1 {
			user = "u2"
		}
		require.NoError(t, repo.Create(ctx, newReview(id, user, t0.Add(time.Duration(i)*time.Minute))))
	}

	page, err := repo.Paginate(ctx, reviews.Scope{All: true}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, reviews.ID("e"), page.Data[0].ID)
	assert.Equal(t, reviews.ID("d"), page.Data[1].ID)

	mine, err := repo.Paginate(ctx, reviews.Scope{UserID: "u1"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.Total)
	ids := []reviews.ID{}
	for _, r := range mine.Data {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []reviews.ID{"e", "c", "a"}, ids)

	empty, err := repo.Paginate(ctx, reviews.Scope{UserID: "u1"}, 9, 20)
	require.NoError(t, err)
	assert.NotNil(t, empty.Data)
	assert.Empty(t, empty.Data)
}

func TestReviewListScoped(t *testing.T) {
	repo := sqlstoretest.Open(t).Reviews()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReview("a", "u1", t0)))
	require.NoError(t, repo.Create(ctx, newReview("b", "u2", t0.Add(time.Second))))

	all, err := repo.ListScoped(ctx, reviews.Scope{All: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := repo.ListScoped(ctx, reviews.Scope{UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, reviews.ID("b"), mine[0].ID)
}

func TestReviewDelete(t *testing.T) {
	repo := sqlstoretest.Open(t).Reviews()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReview("a", "u1", t0)))

	require.NoError(t, repo.Delete(ctx, "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "a"), reviews.ErrNotFound)
	assert.ErrorIs(t, repo.Complete(ctx, "a", sampleAnalysis()), reviews.ErrNotFound)
}

func TestReviewExistsBySourceReference(t *testing.T) {
	repo := sqlstoretest.Open(t).Reviews()
	ctx := context.Background()
	ref := "page-1"
	rv := newReview("a", "u1", t0)
	rv.Source = reviews.SourceNotion
	rv.SourceReference = &ref
	require.NoError(t, repo.Create(ctx, rv))

	ok, err := repo.ExistsBySourceReference(ctx, "u1", reviews.SourceNotion, "page-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsBySourceReference(ctx, "u2", reviews.SourceNotion, "page-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReviewFailPendingBefore(t *testing.T) {
	repo := sqlstoretest.Open(t).Reviews()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReview("old", "u1", t0)))
	require.NoError(t, repo.Create(ctx, newReview("old-done", "u1", t0.Add(time.Second))))
	require.NoError(t, repo.Create(ctx, newReview("new", "u1", t0.Add(2*time.Hour))))
	require.NoError(t, repo.Complete(ctx, "old-done", sampleAnalysis()))

	n, err := repo.FailPendingBefore(ctx, t0.Add(time.Hour), "analysis orphaned")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, _ := repo.Get(ctx, "old")
	assert.Equal(t, reviews.StatusError, old.Status)
	assert.Equal(t, "analysis orphaned", *old.ErrorMessage)
	done, _ := repo.Get(ctx, "old-done")
	assert.Equal(t, reviews.StatusCompleted, done.Status)
	fresh, _ := repo.Get(ctx, "new")
	assert.Equal(t, reviews.StatusPending, fresh.Status)
}

func TestSessionIsIndependent(t *testing.T) {
	store := sqlstoretest.Open(t)
	ctx := context.Background()
	require.NoError(t, store.Reviews().Create(ctx, newReview("a", "u1", t0)))

	sess, err := store.Session(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Reviews().Fail(ctx, "a", "boom"))
	require.NoError(t, sess.Close())

	got, err := store.Reviews().Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, reviews.StatusError, got.Status)
}

func TestMigrateIdempotent(t *testing.T) {
	store := sqlstoretest.Open(t)
	require.NoError(t, store.Migrate(context.Background()))
}
