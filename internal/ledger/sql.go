package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pollbook/pkg/platform/sentinel"
	"pollbook/pkg/requestcontext"
)

// dialect carries the statements that differ between SQL engines. Every
// statement takes its arguments in the order documented beside the field.
type dialect struct {
	name   string
	schema string
	get    string // key
	getTx  string // key; locks the row where the engine supports it
	// lock, when set, serializes transactions on key even while it is absent.
	lock   string // key
	has    string // key
	put    string // key, value
	create string // key, value
	extend string // deadline millis, key
	expiry string // key
	// classify maps driver errors onto sentinel errors.
	classify func(error) error
}

// SQL is the database/sql backend shared by postgres and sqlite. All entries
// live in one table keyed by the encoded Key.
type SQL struct {
	db         *sql.DB
	d          dialect
	timeout    time.Duration
	maxRetries int
}

type SQLOption func(*SQL)

func WithSQLTxTimeout(d time.Duration) SQLOption {
	return func(s *SQL) {
		s.timeout = d
	}
}

// WithSQLMaxRetries bounds how often a transaction aborted by a serialization
// failure or deadlock is re-run.
func WithSQLMaxRetries(n int) SQLOption {
	return func(s *SQL) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func newSQL(db *sql.DB, d dialect, opts ...SQLOption) *SQL {
	s := &SQL{db: db, d: d, timeout: DefaultTxTimeout, maxRetries: 3}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the entries table when missing.
func (s *SQL) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, key Key) ([]byte, error) {
	return sqlGet(ctx, s.db, s.d.get, key, s.d.classify)
}

func (s *SQL) Has(ctx context.Context, key Key) (bool, error) {
	return sqlHas(ctx, s.db, s.d.has, key, s.d.classify)
}

func (s *SQL) ExpiresAt(ctx context.Context, key Key) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, s.d.expiry, string(key)).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read expiry %s: %w", key, s.d.classify(err))
	}
	if ms == 0 {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// View runs fn inside a read-only transaction so multi-key reads see one snapshot.
func (s *SQL) View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: s.d.name == backendPostgres, Isolation: s.viewIsolation()})
	if err != nil {
		return fmt.Errorf("begin view: %w", s.d.classify(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()
	return fn(ctx, &sqlReader{q: tx, d: s.d})
}

func (s *SQL) viewIsolation() sql.IsolationLevel {
	if s.d.name == backendPostgres {
		return sql.LevelRepeatableRead
	}
	return sql.LevelDefault
}

// RunInTx re-runs fn when the engine aborts the transaction with a
// serialization failure or deadlock, so fn must not keep state across calls.
func (s *SQL) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	start := time.Now()
	defer func() { observeTx(s.d.name, start, err) }()

	ctx, cancel, err := withTxDeadline(ctx, s.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err = s.runOnce(ctx, fn)
		if !errors.Is(err, sentinel.ErrConflict) {
			return err
		}
		txConflicts.WithLabelValues(s.d.name).Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}

func (s *SQL) runOnce(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", s.d.classify(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &sqlTx{sqlReader: sqlReader{q: tx, d: s.d, locking: true}, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", s.d.classify(err))
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqlReader struct {
	q       queryer
	d       dialect
	locking bool
}

func (r *sqlReader) Get(ctx context.Context, key Key) ([]byte, error) {
	query := r.d.get
	if r.locking {
		if err := r.lockKey(ctx, key); err != nil {
			return nil, err
		}
		query = r.d.getTx
	}
	return sqlGet(ctx, r.q, query, key, r.d.classify)
}

func (r *sqlReader) Has(ctx context.Context, key Key) (bool, error) {
	if r.locking {
		if err := r.lockKey(ctx, key); err != nil {
			return false, err
		}
	}
	return sqlHas(ctx, r.q, r.d.has, key, r.d.classify)
}

func (r *sqlReader) lockKey(ctx context.Context, key Key) error {
	if r.d.lock == "" {
		return nil
	}
	if _, err := r.q.ExecContext(ctx, r.d.lock, string(key)); err != nil {
		return fmt.Errorf("lock %s: %w", key, r.d.classify(err))
	}
	return nil
}

type sqlTx struct {
	sqlReader
	tx *sql.Tx
}

func (t *sqlTx) Put(ctx context.Context, key Key, value []byte) error {
	if _, err := t.tx.ExecContext(ctx, t.d.put, string(key), value); err != nil {
		return fmt.Errorf("put %s: %w", key, t.d.classify(err))
	}
	return nil
}

func (t *sqlTx) Create(ctx context.Context, key Key, value []byte) error {
	res, err := t.tx.ExecContext(ctx, t.d.create, string(key), value)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, t.d.classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (t *sqlTx) Extend(ctx context.Context, key Key, ttl time.Duration) error {
	deadline := requestcontext.Now(ctx).Add(ttl).UnixMilli()
	res, err := t.tx.ExecContext(ctx, t.d.extend, deadline, string(key))
	if err != nil {
		return fmt.Errorf("extend %s: %w", key, t.d.classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("extend %s: %w", key, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func sqlGet(ctx context.Context, q queryer, query string, key Key, classify func(error) error) ([]byte, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, query, string(key)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, classify(err))
	}
	return raw, nil
}

func sqlHas(ctx context.Context, q queryer, query string, key Key, classify func(error) error) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, query, string(key)).Scan(&exists); err != nil {
		return false, fmt.Errorf("has %s: %w", key, classify(err))
	}
	return exists, nil
}
