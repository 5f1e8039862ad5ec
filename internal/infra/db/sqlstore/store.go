package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/copyguard/internal/domain/guidelines"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
)

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store hands out repositories over one connection pool.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Reviews() *ReviewRepository {
	return &ReviewRepository{q: s.db, d: s.dialect}
}

func (s *Store) Guidelines() *GuidelineRepository {
	return &GuidelineRepository{q: s.db, d: s.dialect}
}

func (s *Store) Integrations() *IntegrationRepository {
	return &IntegrationRepository{q: s.db, d: s.dialect}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{q: s.db, d: s.dialect}
}

// Session pins one pooled connection for the caller. Work done through it
// shares nothing with other sessions.
func (s *Store) Session(ctx context.Context) (reviews.Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	return &session{conn: conn, d: s.dialect}, nil
}

type session struct {
	conn *sql.Conn
	d    Dialect
}

func (s *session) Reviews() reviews.Repository {
	return &ReviewRepository{q: s.conn, d: s.d}
}

func (s *session) Guidelines() guidelines.Repository {
	return &GuidelineRepository{q: s.conn, d: s.d}
}

func (s *session) Close() error { return s.conn.Close() }
