package reviews

import (
	"context"
	"errors"
	"time"

	"github.com/bryanwahyu/copyguard/internal/domain/guidelines"
)

var (
	ErrNotFound     = errors.New("review not found")
	ErrNotPending   = errors.New("review is no longer pending")
	ErrForbidden    = errors.New("access denied")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, r *Review) error
	// Get returns ErrNotFound when the id does not exist.
	Get(ctx context.Context, id ID) (*Review, error)
	Delete(ctx context.Context, id ID) error

	Paginate(ctx context.Context, scope Scope, page, pageSize int) (PaginatedResult, error)
	// ListScoped returns every review in scope, newest first.
	ListScoped(ctx context.Context, scope Scope) ([]*Review, error)
	ExistsBySourceReference(ctx context.Context, userID string, source Source, ref string) (bool, error)

	// Complete and Fail only move a pending review; anything else yields ErrNotPending.
	Complete(ctx context.Context, id ID, a Analysis) error
	Fail(ctx context.Context, id ID, message string) error
	// FailPendingBefore marks reviews still pending at cutoff as errored.
	FailPendingBefore(ctx context.Context, cutoff time.Time, message string) (int64, error)
}

// Session is a storage handle of its own, never shared with the request that
// enqueued the work.
type Session interface {
	Reviews() Repository
	Guidelines() guidelines.Repository
	Close() error
}

// Sessions opens independent sessions.
type Sessions interface {
	Session(ctx context.Context) (Session, error)
}

// Locker allows one in-flight analysis per review id. ok is false when another
// holder has the id.
type Locker interface {
	Acquire(ctx context.Context, id ID) (release func(), ok bool, err error)
}

// Executor runs a unit of work in the background.
type Executor interface {
	Submit(job func(ctx context.Context)) error
}

// Archive keeps raw model output for auditing.
type Archive interface {
	Put(ctx context.Context, id ID, raw string) error
}

// Recorder receives lifecycle counters.
type Recorder interface {
	AnalysisStarted()
	AnalysisFinished(status Status)
}
