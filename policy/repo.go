package policy

import (
	"context"
	"errors"
)

// ErrNoRecord is returned by a Repo when the singleton record has
// never been written.
var ErrNoRecord = errors.New("no policy record")

// Repo persists the singleton MFA-roles record. Upsert must be atomic
// (insert-or-update under the fixed key); concurrent writers race on
// last-write-wins, which is acceptable for a coarse singleton blob.
type Repo interface {
	Get(ctx context.Context) (MFARoles, error)
	Upsert(ctx context.Context, roles MFARoles) error
}
