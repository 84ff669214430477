// Package store defines the remote submission collection consumed by the
// console engine, with in-memory and Postgres-backed implementations.
package store

import (
	"context"
	"errors"

	"veridesk/internal/console/models"
)

// ErrNotFound is returned when a targeted record does not exist in the collection.
var ErrNotFound = errors.New("not found")

// SnapshotFunc receives the complete current set of documents in the
// collection, in creation order, every time the collection changes. Hidden
// records are included; visibility filtering is the subscriber's concern.
// Callbacks must not call back into the collection.
type SnapshotFunc func(records []models.Submission)

// Unsubscribe releases a standing subscription. It is synchronous and
// idempotent; calling it twice is a no-op.
type Unsubscribe func()

// Patch is a partial update to a single record. Nil fields are left untouched.
type Patch struct {
	Disposition *models.Disposition
	Code        *string
	Hidden      *bool
}

// Update pairs a record identity with the patch to apply to it.
type Update struct {
	ID    string
	Patch Patch
}

// Collection is the remote, multi-writer submission collection.
//
// Subscribe registers a callback invoked with the full current document set
// on registration and after every subsequent change. Write applies a partial
// update to one record. BatchWrite applies a set of updates atomically:
// either every update lands or none does.
type Collection interface {
	Subscribe(ctx context.Context, fn SnapshotFunc) (Unsubscribe, error)
	Write(ctx context.Context, id string, patch Patch) error
	BatchWrite(ctx context.Context, updates []Update) error
}

// PatchDisposition builds a patch updating only the disposition field.
func PatchDisposition(d models.Disposition) Patch {
	return Patch{Disposition: &d}
}

// PatchCode builds a patch updating only the verification code field.
func PatchCode(code string) Patch {
	return Patch{Code: &code}
}

// PatchHidden builds a patch updating only the visibility flag.
func PatchHidden(hidden bool) Patch {
	return Patch{Hidden: &hidden}
}
