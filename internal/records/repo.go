package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-review/internal/shared/storage/kv"
	"resume-review/internal/shared/telemetry"
)

// Repo reads and writes records through the key-value store.
type Repo struct {
	KV kv.Store
}

// NewRepo constructs a Repo.
func NewRepo(store kv.Store) *Repo {
	return &Repo{KV: store}
}

// Save writes rec whole under Key(rec.ID).
func (r *Repo) Save(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	text, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := r.KV.Set(ctx, Key(rec.ID), text); err != nil {
		return fmt.Errorf("save %s: %w", Key(rec.ID), err)
	}
	return nil
}

// Get reads and decodes the record for id.
func (r *Repo) Get(ctx context.Context, id string) (Record, error) {
	text, err := r.KV.Get(ctx, Key(id))
	if errors.Is(err, kv.ErrNotFound) || (err == nil && strings.TrimSpace(text) == "") {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", Key(id), err)
	}
	return Decode(text)
}

// Exists re-reads the raw value for id and reports whether it is non-empty.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	text, err := r.KV.Get(ctx, Key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(text) != "", nil
}

// List returns the caller's records ordered by key. Entries that fail to
// decode are logged and skipped.
func (r *Repo) List(ctx context.Context) ([]Record, error) {
	keys, err := r.KV.List(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		id, ok := IDFromKey(key)
		if !ok {
			continue
		}
		rec, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			telemetry.Error("records.list_skip", map[string]any{"key": key, "error": err})
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Pending returns the caller's records whose feedback was never stored.
func (r *Repo) Pending(ctx context.Context) ([]Record, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0)
	for _, rec := range all {
		if rec.Pending() {
			out = append(out, rec)
		}
	}
	return out, nil
}
