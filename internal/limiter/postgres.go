package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is the slice of a pgx pool the limiter needs.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG is a PostgreSQL-backed limiter with a sliding failure window and a fixed
// lockout duration. State lives in the login_lockouts table.
type PG struct {
	q        pgxQuerier
	window   time.Duration
	maxFails int
	lockFor  time.Duration
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(q pgxQuerier, window time.Duration, maxFails int, lockFor time.Duration) *PG {
	return &PG{q: q, window: window, maxFails: maxFails, lockFor: lockFor}
}

// Allow reports whether a login attempt is currently permitted.
func (l *PG) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT locked_until FROM login_lockouts WHERE username=$1 AND ip_hash=$2`
	var lockedUntil time.Time
	err := l.q.QueryRow(ctx, q, username, ipHash).Scan(&lockedUntil)
	switch {
	case err == nil:
		if now := time.Now(); lockedUntil.After(now) {
			return false, time.Until(lockedUntil), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (username, ip).
func (l *PG) Success(ctx context.Context, username string, ipHash []byte) error {
	const q = `DELETE FROM login_lockouts WHERE username=$1 AND ip_hash=$2`
	_, err := l.q.Exec(ctx, q, username, ipHash)
	return err
}

// Failure records a failed attempt. Failures older than the window reset the
// counter; reaching maxFails locks the (username, ip) pair for lockFor.
func (l *PG) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO login_lockouts (username, ip_hash, fail_count, locked_until, last_failure_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (username, ip_hash) DO UPDATE
SET
  fail_count = CASE
    WHEN now() - login_lockouts.last_failure_at > $3::interval THEN 1
    ELSE login_lockouts.fail_count + 1
  END,
  last_failure_at = now()
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, username, ipHash, l.window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}
	const lock = `UPDATE login_lockouts SET locked_until=$3 WHERE username=$1 AND ip_hash=$2`
	if _, err := l.q.Exec(ctx, lock, username, ipHash, time.Now().Add(l.lockFor)); err != nil {
		return false, 0, err
	}
	return true, l.lockFor, nil
}
