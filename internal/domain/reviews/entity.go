package reviews

import (
	"time"
)

// ID tipe untuk Review
type ID string

// ContentType enum
type ContentType string

const (
	ContentSocialMedia ContentType = "social_media"
	ContentBlog        ContentType = "blog"
	ContentEmail       ContentType = "email"
	ContentAdCopy      ContentType = "ad_copy"
)

func (c ContentType) Valid() bool {
	switch c {
	case ContentSocialMedia, ContentBlog, ContentEmail, ContentAdCopy:
		return true
	}
	return false
}

// Source enum
type Source string

const (
	SourceManual Source = "manual"
	SourceSlack  Source = "slack"
	SourceNotion Source = "notion"
)

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceSlack, SourceNotion:
		return true
	}
	return false
}

// Status enum
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ComplianceFlag is one risky phrase found by the analysis.
type ComplianceFlag struct {
	Text       string `json:"text"`
	Issue      string `json:"issue"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
}

// Analysis is the nine-field result of a completed review. It is written
// as a unit and never partially.
type Analysis struct {
	BrandScore        int              `json:"brand_score"`
	BrandFeedback     string           `json:"brand_feedback"`
	ComplianceFlags   []ComplianceFlag `json:"compliance_flags"`
	Sentiment         string           `json:"sentiment"`
	SentimentScore    float64          `json:"sentiment_score"`
	SentimentFeedback string           `json:"sentiment_feedback"`
	SuggestedRewrite  string           `json:"suggested_rewrite"`
	OverallRating     string           `json:"overall_rating"`
	Summary           string           `json:"summary"`
}

// Aggregate Root: Review
type Review struct {
	ID              ID          `json:"id"`
	UserID          string      `json:"user_id"`
	ContentType     ContentType `json:"content_type"`
	OriginalContent string      `json:"original_content"`
	Source          Source      `json:"source"`
	SourceReference *string     `json:"source_reference"`

	BrandScore        *int             `json:"brand_score"`
	BrandFeedback     *string          `json:"brand_feedback"`
	ComplianceFlags   []ComplianceFlag `json:"compliance_flags"`
	Sentiment         *string          `json:"sentiment"`
	SentimentScore    *float64         `json:"sentiment_score"`
	SentimentFeedback *string          `json:"sentiment_feedback"`
	SuggestedRewrite  *string          `json:"suggested_rewrite"`
	OverallRating     *string          `json:"overall_rating"`
	Summary           *string          `json:"summary"`

	Status       Status    `json:"status"`
	ErrorMessage *string   `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// Apply copies a completed analysis onto the review and flips it to completed.
func (r *Review) Apply(a Analysis) {
	score := a.BrandScore
	sentScore := a.SentimentScore
	flags := a.ComplianceFlags
	if flags == nil {
		flags = []ComplianceFlag{}
	}
	r.BrandScore = &score
	r.BrandFeedback = strPtr(a.BrandFeedback)
	r.ComplianceFlags = flags
	r.Sentiment = strPtr(a.Sentiment)
	r.SentimentScore = &sentScore
	r.SentimentFeedback = strPtr(a.SentimentFeedback)
	r.SuggestedRewrite = strPtr(a.SuggestedRewrite)
	r.OverallRating = strPtr(a.OverallRating)
	r.Summary = strPtr(a.Summary)
	r.Status = StatusCompleted
	r.ErrorMessage = nil
}

func strPtr(s string) *string { return &s }

// Scope restricts queries to one owner unless All is set (admin view).
type Scope struct {
	UserID string
	All    bool
}

// Includes reports whether a review owned by userID is visible in the scope.
func (s Scope) Includes(userID string) bool {
	return s.All || s.UserID == userID
}
