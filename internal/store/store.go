package store

import (
	"context"
	"time"

	"github.com/ballotbeat/backend/internal/model"
)

// Store is the repository interface for versioned snapshot persistence. It is
// the only surface the pipeline and the HTTP layer may touch; snapshots are
// append-only and immutable once written.
type Store interface {
	// Migrate creates the schema. Safe to call repeatedly.
	Migrate(ctx context.Context) error
	// WriteSnapshot persists one snapshot and all of its districts, contests
	// and candidates as a single transaction. On error nothing is visible to
	// readers.
	WriteSnapshot(ctx context.Context, contests []model.Contest, totalVotes int64) (int64, error)
	// Latest returns the most recent snapshot with its full contest trees, or
	// nil if no snapshot has ever been written.
	Latest(ctx context.Context) (*model.SnapshotView, error)
	// LatestTotalVotes returns the most recent snapshot's vote fingerprint
	// without materializing the tree. ok is false when the store is empty.
	LatestTotalVotes(ctx context.Context) (total int64, ok bool, err error)
	// At returns the snapshot whose timestamp exactly equals ts, or nil if
	// none matches. Exact match is deliberate; whether nearest-preceding
	// semantics were intended is an open product question.
	At(ctx context.Context, ts time.Time) (*model.SnapshotView, error)
}
