package dashboard

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/bryanwahyu/copyguard/internal/application"
	appreviews "github.com/bryanwahyu/copyguard/internal/application/reviews"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/domain/users"
)

const (
	topIssuesLimit = 5
	issueMaxRunes  = 80
	recentLimit    = 5
	week           = 7 * 24 * time.Hour
)

var (
	ratings    = []string{"A", "B", "C", "D", "F"}
	sentiments = []string{"positive", "neutral", "negative"}
)

// Stats is the dashboard payload, computed fresh on every request.
type Stats struct {
	TotalReviews            int            `json:"total_reviews"`
	AvgBrandScore           *float64       `json:"avg_brand_score"`
	ReviewsThisWeek         int            `json:"reviews_this_week"`
	TopIssues               []string       `json:"top_issues"`
	RatingDistribution      map[string]int `json:"rating_distribution"`
	SentimentDistribution   map[string]int `json:"sentiment_distribution"`
	ContentTypeDistribution map[string]int `json:"content_type_distribution"`
	RecentReviews           []RecentReview `json:"recent_reviews"`
}

// RecentReview is the list view of a review.
type RecentReview struct {
	ID              reviews.ID          `json:"id"`
	ContentType     reviews.ContentType `json:"content_type"`
	OriginalContent string              `json:"original_content"`
	Source          reviews.Source      `json:"source"`
	BrandScore      *int                `json:"brand_score"`
	OverallRating   *string             `json:"overall_rating"`
	Sentiment       *string             `json:"sentiment"`
	Status          reviews.Status      `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
}

type Service struct {
	Repo  reviews.Repository
	Clock application.Clock
}

// Stats aggregates the reviews visible to u.
func (s *Service) Stats(ctx context.Context, u *users.User) (Stats, error) {
	list, err := s.Repo.ListScoped(ctx, appreviews.Scope(u))
	if err != nil {
		return Stats{}, err
	}
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	return Compute(list, now), nil
}

// Compute is the pure aggregation. list must be newest first.
func Compute(list []*reviews.Review, now time.Time) Stats {
	st := Stats{
		TotalReviews:            len(list),
		TopIssues:               []string{},
		RatingDistribution:      zeroFilled(ratings),
		SentimentDistribution:   zeroFilled(sentiments),
		ContentTypeDistribution: map[string]int{},
		RecentReviews:           []RecentReview{},
	}

	weekAgo := now.Add(-week)
	var scoreSum, scored int
	issues := newIssueCounter()

	for i, r := range list {
		if !r.CreatedAt.Before(weekAgo) {
			st.ReviewsThisWeek++
		}
		if i < recentLimit {
			st.RecentReviews = append(st.RecentReviews, recent(r))
		}
		if r.Status != reviews.StatusCompleted {
			continue
		}

		if r.BrandScore != nil {
			scoreSum += *r.BrandScore
			scored++
		}
		if r.OverallRating != nil {
			if _, ok := st.RatingDistribution[*r.OverallRating]; ok {
				st.RatingDistribution[*r.OverallRating]++
			}
		}
		if r.Sentiment != nil {
			if _, ok := st.SentimentDistribution[*r.Sentiment]; ok {
				st.SentimentDistribution[*r.Sentiment]++
			}
		}
		st.ContentTypeDistribution[string(r.ContentType)]++
		for _, f := range r.ComplianceFlags {
			issues.add(truncate(f.Issue, issueMaxRunes))
		}
	}

	if scored > 0 {
		avg := math.Round(float64(scoreSum)/float64(scored)*10) / 10
		st.AvgBrandScore = &avg
	}
	st.TopIssues = issues.top(topIssuesLimit)
	return st
}

func recent(r *reviews.Review) RecentReview {
	return RecentReview{
		ID:              r.ID,
		ContentType:     r.ContentType,
		OriginalContent: r.OriginalContent,
		Source:          r.Source,
		BrandScore:      r.BrandScore,
		OverallRating:   r.OverallRating,
		Sentiment:       r.Sentiment,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
	}
}

func zeroFilled(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for _, k := range keys {
		m[k] = 0
	}
	return m
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// issueCounter counts issues and remembers first-seen order for ties.
type issueCounter struct {
	order  []string
	counts map[string]int
}

func newIssueCounter() *issueCounter {
	return &issueCounter{counts: map[string]int{}}
}

func (c *issueCounter) add(issue string) {
	if _, seen := c.counts[issue]; !seen {
		c.order = append(c.order, issue)
	}
	c.counts[issue]++
}

func (c *issueCounter) top(n int) []string {
	out := append([]string{}, c.order...)
	// stable keeps first-seen order among equal counts
	slices.SortStableFunc(out, func(a, b string) int { return c.counts[b] - c.counts[a] })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
