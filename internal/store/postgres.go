package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ballotbeat/backend/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id           BIGSERIAL PRIMARY KEY,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			total_votes  BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots (created_at DESC);

		CREATE TABLE IF NOT EXISTS districts (
			id                        BIGSERIAL PRIMARY KEY,
			name                      TEXT NOT NULL,
			percent_turnout           DOUBLE PRECISION NOT NULL,
			registered_voters         BIGINT NOT NULL,
			ballots_counted           BIGINT NOT NULL,
			district_type             TEXT NOT NULL,
			district_type_subheading  TEXT NOT NULL,
			snapshot_id               BIGINT NOT NULL REFERENCES snapshots(id)
		);

		CREATE TABLE IF NOT EXISTS contests (
			id            BIGSERIAL PRIMARY KEY,
			natural_id    BIGINT NOT NULL,
			ballot_title  TEXT NOT NULL,
			district_id   BIGINT NOT NULL REFERENCES districts(id),
			snapshot_id   BIGINT NOT NULL REFERENCES snapshots(id),
			UNIQUE (snapshot_id, natural_id)
		);
		CREATE INDEX IF NOT EXISTS idx_contests_snapshot ON contests (snapshot_id);

		CREATE TABLE IF NOT EXISTS candidates (
			id                BIGSERIAL PRIMARY KEY,
			name              TEXT NOT NULL,
			percentage        DOUBLE PRECISION NOT NULL,
			votes             BIGINT NOT NULL,
			party_preference  TEXT NOT NULL,
			contest_id        BIGINT NOT NULL REFERENCES contests(id),
			snapshot_id       BIGINT NOT NULL REFERENCES snapshots(id)
		);
		CREATE INDEX IF NOT EXISTS idx_candidates_snapshot ON candidates (snapshot_id);
	`
	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *Postgres) WriteSnapshot(ctx context.Context, contests []model.Contest, totalVotes int64) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	var snapshotID int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO snapshots (total_votes) VALUES ($1) RETURNING id",
		totalVotes,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	for _, contest := range contests {
		var districtID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO districts
				(name, percent_turnout, registered_voters, ballots_counted,
				 district_type, district_type_subheading, snapshot_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			contest.District.Name, contest.District.PercentTurnout,
			contest.District.RegisteredVoters, contest.District.BallotsCounted,
			contest.District.DistrictType, contest.District.DistrictTypeSubheading,
			snapshotID,
		).Scan(&districtID)
		if err != nil {
			return 0, fmt.Errorf("insert district for contest %d: %w", contest.ID, err)
		}

		var contestRowID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO contests (natural_id, ballot_title, district_id, snapshot_id)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			contest.ID, contest.BallotTitle, districtID, snapshotID,
		).Scan(&contestRowID)
		if err != nil {
			return 0, fmt.Errorf("insert contest %d: %w", contest.ID, err)
		}

		for _, cand := range contest.Candidates {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO candidates
					(name, percentage, votes, party_preference, contest_id, snapshot_id)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				cand.Name, cand.Percentage, cand.Votes,
				string(cand.PartyPreference), contestRowID, snapshotID,
			)
			if err != nil {
				return 0, fmt.Errorf("insert candidate %q in contest %d: %w", cand.Name, contest.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return snapshotID, nil
}

func (p *Postgres) Latest(ctx context.Context) (*model.SnapshotView, error) {
	view := &model.SnapshotView{}
	err := p.db.QueryRowContext(ctx,
		"SELECT id, created_at, total_votes FROM snapshots ORDER BY created_at DESC, id DESC LIMIT 1",
	).Scan(&view.ID, &view.Timestamp, &view.TotalVotes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	if err := p.loadContests(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (p *Postgres) LatestTotalVotes(ctx context.Context) (int64, bool, error) {
	var total int64
	err := p.db.QueryRowContext(ctx,
		"SELECT total_votes FROM snapshots ORDER BY created_at DESC, id DESC LIMIT 1",
	).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query latest total votes: %w", err)
	}
	return total, true, nil
}

func (p *Postgres) At(ctx context.Context, ts time.Time) (*model.SnapshotView, error) {
	view := &model.SnapshotView{}
	err := p.db.QueryRowContext(ctx,
		"SELECT id, created_at, total_votes FROM snapshots WHERE created_at = $1",
		ts,
	).Scan(&view.ID, &view.Timestamp, &view.TotalVotes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot at %s: %w", ts, err)
	}

	if err := p.loadContests(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

// loadContests materializes the contest trees for one snapshot. Contests (with
// their districts) and candidates are loaded with two independent queries run
// concurrently, then joined in memory on the contest's natural id. Insertion
// order of the serial keys preserves the order contests and candidates were
// written in.
func (p *Postgres) loadContests(ctx context.Context, view *model.SnapshotView) error {
	type candidateRow struct {
		naturalID int64
		cand      model.Candidate
	}

	var (
		contests   []model.Contest
		candidates []candidateRow
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := p.db.QueryContext(gctx,
			`SELECT c.natural_id, c.ballot_title,
			        d.name, d.percent_turnout, d.registered_voters,
			        d.ballots_counted, d.district_type, d.district_type_subheading
			 FROM contests c
			 JOIN districts d ON c.district_id = d.id
			 WHERE c.snapshot_id = $1
			 ORDER BY c.id`,
			view.ID,
		)
		if err != nil {
			return fmt.Errorf("query contests: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c model.Contest
			if err := rows.Scan(
				&c.ID, &c.BallotTitle,
				&c.District.Name, &c.District.PercentTurnout,
				&c.District.RegisteredVoters, &c.District.BallotsCounted,
				&c.District.DistrictType, &c.District.DistrictTypeSubheading,
			); err != nil {
				return fmt.Errorf("scan contest: %w", err)
			}
			contests = append(contests, c)
		}
		return rows.Err()
	})

	g.Go(func() error {
		rows, err := p.db.QueryContext(gctx,
			`SELECT ct.natural_id, cd.name, cd.percentage, cd.votes, cd.party_preference
			 FROM candidates cd
			 JOIN contests ct ON cd.contest_id = ct.id
			 WHERE cd.snapshot_id = $1
			 ORDER BY cd.id`,
			view.ID,
		)
		if err != nil {
			return fmt.Errorf("query candidates: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var cr candidateRow
			var party string
			if err := rows.Scan(&cr.naturalID, &cr.cand.Name, &cr.cand.Percentage, &cr.cand.Votes, &party); err != nil {
				return fmt.Errorf("scan candidate: %w", err)
			}
			cr.cand.PartyPreference = model.PartyPreference(party)
			candidates = append(candidates, cr)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return err
	}

	byID := make(map[int64]int, len(contests))
	for i, c := range contests {
		byID[c.ID] = i
	}
	for _, cr := range candidates {
		if i, ok := byID[cr.naturalID]; ok {
			contests[i].Candidates = append(contests[i].Candidates, cr.cand)
		}
	}

	view.Contests = contests
	return nil
}
