package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"pollbook/pkg/platform/sentinel"
)

// GetJSON decodes the value at key into T. ok is false when the key is absent.
func GetJSON[T any](ctx context.Context, r Reader, key Key) (T, bool, error) {
	var out T
	raw, err := r.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode %s: %w", key, sentinel.ErrInvalidState)
	}
	return out, true, nil
}

// PutJSON encodes v and stores it with Put.
func PutJSON(ctx context.Context, tx Tx, key Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return tx.Put(ctx, key, raw)
}

// CreateJSON encodes v and stores it with Create.
func CreateJSON(ctx context.Context, tx Tx, key Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return tx.Create(ctx, key, raw)
}

// Uint64Or reads a decimal counter, returning def when the key is absent.
func Uint64Or(ctx context.Context, r Reader, key Key, def uint64) (uint64, error) {
	raw, err := r.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode counter %s: %w", key, sentinel.ErrInvalidState)
	}
	return n, nil
}

// PutUint64 stores a decimal counter.
func PutUint64(ctx context.Context, tx Tx, key Key, n uint64) error {
	return tx.Put(ctx, key, []byte(strconv.FormatUint(n, 10)))
}
