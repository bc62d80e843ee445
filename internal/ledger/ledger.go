// Package ledger is the persistent keyed store behind pollbook.
//
// Values are opaque bytes addressed by a flat Key namespace. Every mutation runs
// inside Transactor.RunInTx: either all staged writes become visible together or,
// when fn returns an error, none do. Write-once keys use Create, whose
// sentinel.ErrAlreadyUsed result is the uniqueness guard callers rely on.
//
// Lifetimes are metadata only. Extend moves a key's expiry forward and ExpiresAt
// reports it; no backend deletes or hides a key because its lifetime passed.
package ledger

import (
	"context"
	"strings"
	"time"

	dErrors "pollbook/pkg/domain-errors"
)

// DefaultTxTimeout bounds a transaction whose context carries no deadline.
const DefaultTxTimeout = 5 * time.Second

// Key addresses one entry. Build keys with NewKey so segments stay delimited.
type Key string

const keySeparator = ":"

// NewKey joins a namespace and its segments, e.g. NewKey("vote", "7", "GABC")
// yields "vote:7:GABC". The last segment may itself contain the separator
// because namespaces have a fixed arity.
func NewKey(namespace string, parts ...string) Key {
	if len(parts) == 0 {
		return Key(namespace)
	}
	return Key(namespace + keySeparator + strings.Join(parts, keySeparator))
}

// Namespace returns the leading segment.
func (k Key) Namespace() string {
	ns, _, _ := strings.Cut(string(k), keySeparator)
	return ns
}

func (k Key) String() string {
	return string(k)
}

// Reader is the read side of the store.
type Reader interface {
	// Get returns sentinel.ErrNotFound when key is absent.
	Get(ctx context.Context, key Key) ([]byte, error)
	Has(ctx context.Context, key Key) (bool, error)
}

// Tx is the view handed to a transaction callback. Reads observe the
// transaction's own staged writes.
type Tx interface {
	Reader
	// Put stores value, replacing any previous one.
	Put(ctx context.Context, key Key, value []byte) error
	// Create stores value only when key is absent; otherwise sentinel.ErrAlreadyUsed.
	Create(ctx context.Context, key Key, value []byte) error
	// Extend moves the key's expiry to now+ttl unless it is already later.
	// Returns sentinel.ErrNotFound for absent keys.
	Extend(ctx context.Context, key Key, ttl time.Duration) error
}

// Transactor provides the all-or-nothing boundary.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Store is a complete ledger backend.
type Store interface {
	Reader
	Transactor
	// View runs fn against a consistent read view where the backend supports one.
	View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
	// ExpiresAt reports the recorded lifetime of key; ok is false when none was recorded.
	ExpiresAt(ctx context.Context, key Key) (at time.Time, ok bool, err error)
	Close() error
}

// withTxDeadline aborts early on cancelled contexts and applies the default
// timeout when the caller set none.
func withTxDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout == 0 {
		timeout = DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}
