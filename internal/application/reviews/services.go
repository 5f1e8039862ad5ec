package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/copyguard/internal/application"
	appai "github.com/bryanwahyu/copyguard/internal/application/ai"
	domai "github.com/bryanwahyu/copyguard/internal/domain/ai"
	domain "github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/domain/users"
)

const (
	maxPageSize     = 100
	orphanedMessage = "analysis orphaned"
	failureTimeout  = 10 * time.Second
)

// Analyzer is the analysis engine as seen by the lifecycle.
type Analyzer interface {
	Analyze(ctx context.Context, content string, contentType domain.ContentType, guidelines string) (appai.Result, error)
}

// Service implements use-cases untuk Review: submission, background analysis
// and scoped reads. Safe for concurrent use.
type Service struct {
	Repo     domain.Repository
	Sessions domain.Sessions
	Engine   Analyzer
	Executor domain.Executor
	Locker   domain.Locker
	Clock    application.Clock
	Log      *zap.Logger

	// optional
	Archive  domain.Archive
	Recorder domain.Recorder
}

// NewReview is one piece of content to submit.
type NewReview struct {
	Content         string
	ContentType     domain.ContentType
	Source          domain.Source
	SourceReference string
}

func (n NewReview) validate() error {
	if strings.TrimSpace(n.Content) == "" {
		return fmt.Errorf("%w: content must not be empty", domain.ErrInvalidInput)
	}
	if !n.ContentType.Valid() {
		return fmt.Errorf("%w: unknown content type %q", domain.ErrInvalidInput, n.ContentType)
	}
	if n.Source != "" && !n.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", domain.ErrInvalidInput, n.Source)
	}
	return nil
}

// Scope returns what the user may see: everything for admins, own reviews otherwise.
func Scope(u *users.User) domain.Scope {
	return domain.Scope{UserID: u.ID, All: u.IsAdmin()}
}

// Submit creates a pending review and queues its analysis. The returned
// review is still pending.
func (s *Service) Submit(ctx context.Context, u *users.User, in NewReview) (*domain.Review, error) {
	out, err := s.SubmitBatch(ctx, u, []NewReview{in})
	if len(out) == 0 {
		return nil, err
	}
	return out[0], err
}

// SubmitBatch creates every review synchronously, then analyzes them one
// after another in creation order inside a single background job.
func (s *Service) SubmitBatch(ctx context.Context, u *users.User, items []NewReview) ([]*domain.Review, error) {
	for _, in := range items {
		if err := in.validate(); err != nil {
			return nil, err
		}
	}

	created := make([]*domain.Review, 0, len(items))
	ids := make([]domain.ID, 0, len(items))
	for _, in := range items {
		rv := s.newPending(u, in)
		if err := s.Repo.Create(ctx, rv); err != nil {
			// rows already written still get analyzed
			if qerr := s.enqueue(ctx, ids); qerr != nil {
				return created, errors.Join(err, qerr)
			}
			return created, err
		}
		created = append(created, rv)
		ids = append(ids, rv.ID)
	}
	if err := s.enqueue(ctx, ids); err != nil {
		return created, err
	}
	return created, nil
}

func (s *Service) newPending(u *users.User, in NewReview) *domain.Review {
	src := in.Source
	if src == "" {
		src = domain.SourceManual
	}
	rv := &domain.Review{
		ID:              domain.ID(uuid.New().String()),
		UserID:          u.ID,
		ContentType:     in.ContentType,
		OriginalContent: in.Content,
		Source:          src,
		Status:          domain.StatusPending,
		CreatedAt:       s.now(),
	}
	if in.SourceReference != "" {
		ref := in.SourceReference
		rv.SourceReference = &ref
	}
	return rv
}

// enqueue hands the ids to the executor as one unit of work. When the
// executor refuses, the reviews are failed right away instead of being left
// pending with nobody to finish them.
func (s *Service) enqueue(ctx context.Context, ids []domain.ID) error {
	if len(ids) == 0 {
		return nil
	}
	batch := append([]domain.ID(nil), ids...)
	err := s.Executor.Submit(func(jobCtx context.Context) {
		for _, id := range batch {
			s.RunAnalysis(jobCtx, id)
		}
	})
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf("analysis could not be scheduled: %v", err)
	for _, id := range batch {
		s.recordFailure(ctx, id, msg)
	}
	return fmt.Errorf("scheduling analysis: %w", err)
}

// RunAnalysis drives one review to a terminal state. It never returns an
// error: every failure is written onto the review.
func (s *Service) RunAnalysis(ctx context.Context, id domain.ID) {
	log := s.logger().With(zap.String("review_id", string(id)))

	if s.Locker != nil {
		release, ok, err := s.Locker.Acquire(ctx, id)
		switch {
		case err != nil:
			log.Warn("review lock unavailable, running unlocked", zap.Error(err))
		case !ok:
			log.Info("analysis already in flight, skipping")
			return
		default:
			defer release()
		}
	}

	start := time.Now()
	status := s.analyze(ctx, id, log)
	if status == "" {
		return
	}
	log.Info("analysis finished",
		zap.String("status", string(status)),
		zap.Duration("duration", time.Since(start)),
	)
}

// analyze returns the terminal status it wrote, or "" when the review was
// skipped.
func (s *Service) analyze(ctx context.Context, id domain.ID, log *zap.Logger) (status domain.Status) {
	started := false
	defer func() {
		if r := recover(); r != nil {
			log.Error("analysis panicked", zap.Any("panic", r), zap.Stack("stack"))
			s.recordFailure(ctx, id, fmt.Sprintf("unexpected error: %v", r))
			status = domain.StatusError
		}
		if started && status != "" {
			s.finished(status)
		}
	}()

	sess, err := s.Sessions.Session(ctx)
	if err != nil {
		log.Error("opening session", zap.Error(err))
		s.recordFailure(ctx, id, err.Error())
		return domain.StatusError
	}
	defer sess.Close()

	rv, err := sess.Reviews().Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		log.Info("review deleted before analysis ran")
		return ""
	}
	if err != nil {
		return s.fail(ctx, id, log, err)
	}
	if rv.Status != domain.StatusPending {
		return ""
	}
	started = true
	if s.Recorder != nil {
		s.Recorder.AnalysisStarted()
	}

	g, err := sess.Guidelines().Get(ctx)
	if err != nil {
		return s.fail(ctx, id, log, fmt.Errorf("loading guidelines: %w", err))
	}

	res, err := s.Engine.Analyze(ctx, rv.OriginalContent, rv.ContentType, g.Content)
	if err != nil {
		var ae *domai.AnalysisError
		if errors.As(err, &ae) && ae.Raw != "" {
			s.archive(ctx, id, ae.Raw, log)
		}
		return s.fail(ctx, id, log, err)
	}
	s.archive(ctx, id, res.Raw, log)

	err = sess.Reviews().Complete(ctx, id, res.Analysis)
	if errors.Is(err, domain.ErrNotPending) || errors.Is(err, domain.ErrNotFound) {
		log.Info("review left pending state during analysis", zap.Error(err))
		return ""
	}
	if err != nil {
		return s.fail(ctx, id, log, fmt.Errorf("saving analysis: %w", err))
	}
	return domain.StatusCompleted
}

func (s *Service) fail(ctx context.Context, id domain.ID, log *zap.Logger, err error) domain.Status {
	log.Warn("analysis failed", zap.Error(err))
	s.recordFailure(ctx, id, err.Error())
	return domain.StatusError
}

// recordFailure writes the error on a session of its own, so a handle that
// broke mid-analysis cannot stop the review from reaching a terminal state.
func (s *Service) recordFailure(ctx context.Context, id domain.ID, message string) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureTimeout)
	defer cancel()

	log := s.logger().With(zap.String("review_id", string(id)))
	sess, err := s.Sessions.Session(fctx)
	if err != nil {
		log.Error("could not record analysis failure", zap.Error(err))
		return
	}
	defer sess.Close()

	err = sess.Reviews().Fail(fctx, id, message)
	switch {
	case err == nil, errors.Is(err, domain.ErrNotPending), errors.Is(err, domain.ErrNotFound):
	default:
		log.Error("could not record analysis failure", zap.Error(err))
	}
}

func (s *Service) archive(ctx context.Context, id domain.ID, raw string, log *zap.Logger) {
	if s.Archive == nil || raw == "" {
		return
	}
	if err := s.Archive.Put(ctx, id, raw); err != nil {
		log.Warn("archiving model response", zap.Error(err))
	}
}

func (s *Service) finished(status domain.Status) {
	if s.Recorder != nil {
		s.Recorder.AnalysisFinished(status)
	}
}

// List paginated, newest first, scoped to the user
func (s *Service) List(ctx context.Context, u *users.User, page, pageSize int) (domain.PaginatedResult, error) {
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.Repo.Paginate(ctx, Scope(u), page, pageSize)
}

// Get ambil 1 review by id
func (s *Service) Get(ctx context.Context, u *users.User, id domain.ID) (*domain.Review, error) {
	rv, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Scope(u).Includes(rv.UserID) {
		return nil, domain.ErrForbidden
	}
	return rv, nil
}

func (s *Service) Delete(ctx context.Context, u *users.User, id domain.ID) error {
	if _, err := s.Get(ctx, u, id); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, id)
}

// SweepStale fails reviews that have been pending longer than olderThan.
func (s *Service) SweepStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: older-than must be positive", domain.ErrInvalidInput)
	}
	n, err := s.Repo.FailPendingBefore(ctx, s.now().Add(-olderThan), orphanedMessage)
	if err != nil {
		return 0, err
	}
	s.logger().Info("swept orphaned reviews", zap.Int64("count", n), zap.Duration("older_than", olderThan))
	return n, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
