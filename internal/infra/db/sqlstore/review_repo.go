package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
)

const reviewColumns = `id, user_id, content_type, original_content, source, source_reference,
       brand_score, brand_feedback, compliance_flags, sentiment, sentiment_score,
       sentiment_feedback, suggested_rewrite, overall_rating, summary,
       status, error_message, created_at`

type ReviewRepository struct {
	q querier
	d Dialect
}

var _ reviews.Repository = (*ReviewRepository)(nil)

// Create inserts a new review row.
func (r *ReviewRepository) Create(ctx context.Context, rv *reviews.Review) error {
	flags, err := encodeFlags(rv.ComplianceFlags)
	if err != nil {
		return fmt.Errorf("encoding compliance flags: %w", err)
	}
	created := rv.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	q := `
INSERT INTO reviews (` + reviewColumns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err = r.q.ExecContext(ctx, r.d.Rebind(q),
		string(rv.ID), rv.UserID, string(rv.ContentType), rv.OriginalContent, string(rv.Source), nullString(rv.SourceReference),
		nullInt(rv.BrandScore), nullString(rv.BrandFeedback), flags, nullString(rv.Sentiment), nullFloat(rv.SentimentScore),
		nullString(rv.SentimentFeedback), nullString(rv.SuggestedRewrite), nullString(rv.OverallRating), nullString(rv.Summary),
		string(rv.Status), nullString(rv.ErrorMessage), created.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting review: %w", err)
	}
	return nil
}

// Get by ID
func (r *ReviewRepository) Get(ctx context.Context, id reviews.ID) (*reviews.Review, error) {
	q := `SELECT ` + reviewColumns + ` FROM reviews WHERE id=?`
	rv, err := scanReview(r.q.QueryRowContext(ctx, r.d.Rebind(q), string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reviews.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading review %s: %w", id, err)
	}
	return rv, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id reviews.ID) error {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`DELETE FROM reviews WHERE id=?`), string(id))
	if err != nil {
		return fmt.Errorf("deleting review: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return reviews.ErrNotFound
	}
	return nil
}

// Paginate with offset + limit, newest first
func (r *ReviewRepository) Paginate(ctx context.Context, scope reviews.Scope, page, pageSize int) (reviews.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	where, args := scopeClause(scope)
	q := `SELECT ` + reviewColumns + ` FROM reviews` + where + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(q), append(args, pageSize, offset)...)
	if err != nil {
		return reviews.PaginatedResult{}, fmt.Errorf("querying reviews: %w", err)
	}
	data, err := collectReviews(rows)
	if err != nil {
		return reviews.PaginatedResult{}, err
	}

	var total int64
	if err := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM reviews`+where), args...).Scan(&total); err != nil {
		return reviews.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return reviews.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (r *ReviewRepository) ListScoped(ctx context.Context, scope reviews.Scope) ([]*reviews.Review, error) {
	where, args := scopeClause(scope)
	q := `SELECT ` + reviewColumns + ` FROM reviews` + where + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	return collectReviews(rows)
}

func (r *ReviewRepository) ExistsBySourceReference(ctx context.Context, userID string, source reviews.Source, ref string) (bool, error) {
	const q = `SELECT 1 FROM reviews WHERE user_id=? AND source=? AND source_reference=? LIMIT 1`
	var one int
	err := r.q.QueryRowContext(ctx, r.d.Rebind(q), userID, string(source), ref).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking source reference: %w", err)
	}
	return true, nil
}

// Complete writes all nine analysis fields and the status in one statement,
// and only while the review is still pending.
func (r *ReviewRepository) Complete(ctx context.Context, id reviews.ID, a reviews.Analysis) error {
	flags := a.ComplianceFlags
	if flags == nil {
		flags = []reviews.ComplianceFlag{}
	}
	enc, err := encodeFlags(flags)
	if err != nil {
		return fmt.Errorf("encoding compliance flags: %w", err)
	}
	const q = `
UPDATE reviews
SET brand_score = ?,
    brand_feedback = ?,
    compliance_flags = ?,
    sentiment = ?,
    sentiment_score = ?,
    sentiment_feedback = ?,
    suggested_rewrite = ?,
    overall_rating = ?,
    summary = ?,
    status = ?,
    error_message = NULL
WHERE id = ? AND status = ?`
	res, err := r.q.ExecContext(ctx, r.d.Rebind(q),
		a.BrandScore, a.BrandFeedback, enc, a.Sentiment, a.SentimentScore,
		a.SentimentFeedback, a.SuggestedRewrite, a.OverallRating, a.Summary,
		string(reviews.StatusCompleted),
		string(id), string(reviews.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("completing review: %w", err)
	}
	return r.checkTransition(ctx, res, id)
}

// Fail marks a pending review as errored with a readable message.
func (r *ReviewRepository) Fail(ctx context.Context, id reviews.ID, message string) error {
	const q = `UPDATE reviews SET status = ?, error_message = ? WHERE id = ? AND status = ?`
	res, err := r.q.ExecContext(ctx, r.d.Rebind(q),
		string(reviews.StatusError), message, string(id), string(reviews.StatusPending))
	if err != nil {
		return fmt.Errorf("failing review: %w", err)
	}
	return r.checkTransition(ctx, res, id)
}

func (r *ReviewRepository) FailPendingBefore(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	const q = `UPDATE reviews SET status = ?, error_message = ? WHERE status = ? AND created_at < ?`
	res, err := r.q.ExecContext(ctx, r.d.Rebind(q),
		string(reviews.StatusError), message, string(reviews.StatusPending), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sweeping pending reviews: %w", err)
	}
	return res.RowsAffected()
}

// checkTransition turns a zero-row conditional update into ErrNotFound or
// ErrNotPending.
func (r *ReviewRepository) checkTransition(ctx context.Context, res sql.Result, id reviews.ID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return reviews.ErrNotPending
}

func scopeClause(scope reviews.Scope) (string, []any) {
	if scope.All {
		return "", nil
	}
	return " WHERE user_id=?", []any{scope.UserID}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*reviews.Review, error) {
	var rv reviews.Review
	var id, contentType, source, status string
	var ref, feedback, flags, sentiment, sentFeedback, rewrite, rating, summ, errMsg sql.NullString
	var score sql.NullInt64
	var sentScore sql.NullFloat64
	var created time.Time
	if err := row.Scan(
		&id, &rv.UserID, &contentType, &rv.OriginalContent, &source, &ref,
		&score, &feedback, &flags, &sentiment, &sentScore,
		&sentFeedback, &rewrite, &rating, &summ,
		&status, &errMsg, &created,
	); err != nil {
		return nil, err
	}
	decoded, err := decodeFlags(flags)
	if err != nil {
		return nil, fmt.Errorf("decoding compliance flags: %w", err)
	}

	rv.ID = reviews.ID(id)
	rv.ContentType = reviews.ContentType(contentType)
	rv.Source = reviews.Source(source)
	rv.SourceReference = stringPtr(ref)
	rv.BrandScore = intPtr(score)
	rv.BrandFeedback = stringPtr(feedback)
	rv.ComplianceFlags = decoded
	rv.Sentiment = stringPtr(sentiment)
	rv.SentimentScore = floatPtr(sentScore)
	rv.SentimentFeedback = stringPtr(sentFeedback)
	rv.SuggestedRewrite = stringPtr(rewrite)
	rv.OverallRating = stringPtr(rating)
	rv.Summary = stringPtr(summ)
	rv.Status = reviews.Status(status)
	rv.ErrorMessage = stringPtr(errMsg)
	rv.CreatedAt = created.UTC()
	return &rv, nil
}

func collectReviews(rows *sql.Rows) ([]*reviews.Review, error) {
	defer rows.Close()
	out := []*reviews.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}
