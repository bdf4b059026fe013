package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PartyPreference is the normalized party affiliation of a candidate.
type PartyPreference string

const (
	Democrat      PartyPreference = "Democrat"
	Republican    PartyPreference = "Republican"
	NotAffiliated PartyPreference = "NotAffiliated"
)

// ParseParty maps free-text party preference from the source feed onto one of
// the three known variants. The match is a case-insensitive substring check,
// so "Prefers Democratic Party" and "DEMOCRAT" both classify as Democrat.
// Anything unrecognized, including empty input, is NotAffiliated; this is a
// lossy normalization and never an error.
func ParseParty(s string) PartyPreference {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "democrat"):
		return Democrat
	case strings.Contains(lower, "republican"):
		return Republican
	default:
		return NotAffiliated
	}
}

// Candidate is one ballot response within a contest.
type Candidate struct {
	Name            string          `json:"name"`
	Percentage      float64         `json:"percentage"`
	Votes           int64           `json:"votes"`
	PartyPreference PartyPreference `json:"party_preference"`
}

// District carries the turnout attributes of the district a contest is held
// in. Districts are stored per snapshot, not deduplicated across snapshots.
type District struct {
	Name                   string  `json:"name"`
	PercentTurnout         float64 `json:"percent_turnout"`
	RegisteredVoters       int64   `json:"registered_voters"`
	BallotsCounted         int64   `json:"ballots_counted"`
	DistrictType           string  `json:"district_type"`
	DistrictTypeSubheading string  `json:"district_type_subheading"`
}

// Contest is one race: a district, a ballot title, and its candidates.
// ID is the externally assigned contest identifier; it is stable across
// snapshots and is the key external consumers correlate by.
type Contest struct {
	ID          int64       `json:"id"`
	BallotTitle string      `json:"ballot_title"`
	District    District    `json:"district"`
	Candidates  []Candidate `json:"candidates"`
}

// TotalVotes sums the votes across this contest's candidates.
func (c Contest) TotalVotes() int64 {
	var total int64
	for _, cand := range c.Candidates {
		total += cand.Votes
	}
	return total
}

// VoteShare computes a candidate's percentage of the contest total from raw
// vote counts, independent of the source-reported percentage. Returns 0 when
// no votes have been counted.
func (c Contest) VoteShare(cand Candidate) float64 {
	total := c.TotalVotes()
	if total == 0 {
		return 0
	}
	return float64(cand.Votes) / float64(total) * 100
}

// SnapshotView is one fully materialized snapshot: the version row plus every
// contest tree that was persisted with it.
type SnapshotView struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	TotalVotes int64     `json:"total_votes"`
	Contests   []Contest `json:"contests"`
}

// ResultRow is one flat record from the tabular source: district and contest
// attributes plus exactly one candidate's result.
type ResultRow struct {
	ContestID              int64
	ContestSortSeq         int64
	DistrictType           string
	DistrictTypeSubheading string
	DistrictName           string
	BallotTitle            string
	BallotsCounted         int64
	RegisteredVoters       int64
	PercentTurnout         float64
	CandidateSortSeq       int64
	BallotResponse         string
	PartyPreference        string
	Votes                  int64
	PercentOfVotes         float64
}

// ParseQuotedFloat coerces a numeric field that may arrive quoted or padded
// (`"42.5"`, `42.5`, ` 42.5 `) into its float value.
func ParseQuotedFloat(s string) (float64, error) {
	trimmed := strings.Trim(s, "\" ")
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return f, nil
}

// QuotedFloat is a float64 that also accepts a quoted string when decoding
// JSON payloads.
type QuotedFloat float64

func (q *QuotedFloat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := ParseQuotedFloat(s)
		if err != nil {
			return err
		}
		*q = QuotedFloat(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse numeric %s: %w", data, err)
	}
	*q = QuotedFloat(f)
	return nil
}

func (q QuotedFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(q))
}
