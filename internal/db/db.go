// Package db owns the Postgres connection pool and the serializable
// transaction runner that the write paths go through.
package db

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	maxTxAttempts = 5
	backoffBase   = 20 * time.Millisecond
	maxPoolConns  = 30
	idlePoolConns = 5
	connMaxIdle   = 5 * time.Minute
	connMaxLife   = 30 * time.Minute
)

var errTxRetriesExhausted = errors.New("serializable transaction retries exhausted")

type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func Connect(databaseURL string) (*sqlx.DB, error) {
	pool, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxPoolConns)
	pool.SetMaxIdleConns(idlePoolConns)
	pool.SetConnMaxIdleTime(connMaxIdle)
	pool.SetConnMaxLifetime(connMaxLife)
	return pool, nil
}

type SQLXTxRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) SQLXTxRunner {
	return SQLXTxRunner{db: db}
}

// WithTx runs fn inside a serializable transaction, retrying serialization
// failures and deadlocks with jittered quadratic backoff.
func (r SQLXTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		if attempt >= maxTxAttempts {
			return errTxRetriesExhausted
		}
		if err := sleepBackoff(ctx, attempt); err != nil {
			return err
		}
	}
}

func (r SQLXTxRunner) attempt(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	// 40001 serialization_failure, 40P01 deadlock_detected
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func sleepBackoff(ctx context.Context, attempt int) error {
	wait := time.Duration(attempt*attempt)*backoffBase + time.Duration(rand.Int63n(int64(10*time.Millisecond)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
