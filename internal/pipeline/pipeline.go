package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ballotbeat/backend/internal/model"
	"github.com/ballotbeat/backend/internal/store"
	"github.com/ballotbeat/backend/internal/tabulate"
)

// Source yields the already-parsed flat records for one ingestion cycle.
type Source interface {
	Fetch(ctx context.Context) ([]model.ResultRow, error)
}

// Pipeline runs one ingestion cycle: fetch -> normalize -> detect change ->
// conditionally persist a new snapshot.
type Pipeline struct {
	store  store.Store
	source Source
}

func New(s store.Store, src Source) *Pipeline {
	return &Pipeline{store: s, source: src}
}

// Run executes a single cycle. Any failure aborts the cycle with no snapshot
// written; the caller (the scheduler) just waits for the next tick.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("ingestion cycle starting")

	rows, err := p.source.Fetch(ctx)
	if err != nil {
		slog.Error("source fetch failed", "error", err)
		return fmt.Errorf("fetch results: %w", err)
	}

	contests := tabulate.Normalize(rows)
	total := tabulate.TotalVotes(contests)

	// Compare against the last stored fingerprint. Equal totals mean no new
	// snapshot this cycle.
	prev, ok, err := p.store.LatestTotalVotes(ctx)
	if err != nil {
		slog.Error("fingerprint lookup failed", "error", err)
		return fmt.Errorf("latest total votes: %w", err)
	}
	if ok && prev == total {
		slog.Info("totals unchanged, skipping snapshot", "total_votes", total)
		return nil
	}

	id, err := p.store.WriteSnapshot(ctx, contests, total)
	if err != nil {
		slog.Error("snapshot write failed", "error", err)
		return fmt.Errorf("write snapshot: %w", err)
	}

	slog.Info("snapshot written",
		"snapshot_id", id,
		"contests", len(contests),
		"total_votes", total,
	)
	return nil
}
