package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ballotbeat/backend/internal/model"
)

// Column headers as published in the results CSV.
const (
	colContestID              = "GEMS Contest ID"
	colContestSortSeq         = "Contest Sort Seq"
	colDistrictType           = "District Type"
	colDistrictTypeSubheading = "District Type Subheading"
	colDistrictName           = "District Name"
	colBallotTitle            = "Ballot Title"
	colBallotsCounted         = "Ballots Counted for District"
	colRegisteredVoters       = "Registered Voters for District"
	colPercentTurnout         = "Percent Turnout for District"
	colCandidateSortSeq       = "Candidate Sort Seq"
	colBallotResponse         = "Ballot Response"
	colPartyPreference        = "Party Preference"
	colVotes                  = "Votes"
	colPercentOfVotes         = "Percent of Votes"
)

// Fetcher downloads and decodes the published results CSV.
type Fetcher struct {
	client *http.Client
	url    string
	// skipBadRows switches from whole-batch failure on a malformed row to
	// skip-and-continue.
	skipBadRows bool
}

func New(url string, skipBadRows bool) *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		url:         url,
		skipBadRows: skipBadRows,
	}
}

// Fetch downloads the CSV and decodes every row into a flat result record,
// preserving source order. By default one malformed row fails the whole batch;
// with skipBadRows the row is logged and dropped instead.
func (f *Fetcher) Fetch(ctx context.Context) ([]model.ResultRow, error) {
	slog.Info("fetching results CSV", "url", f.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("results request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("results request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results source error: %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("results header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var rows []model.ResultRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("results line %d: %w", line, err)
		}

		row, err := decodeRow(cols, record)
		if err != nil {
			if f.skipBadRows {
				slog.Warn("skipping malformed row", "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("results line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	slog.Info("results CSV fetched", "rows", len(rows))
	return rows, nil
}

func decodeRow(cols map[string]int, record []string) (model.ResultRow, error) {
	get := func(name string) (string, error) {
		i, ok := cols[name]
		if !ok {
			return "", fmt.Errorf("missing column %q", name)
		}
		if i >= len(record) {
			return "", fmt.Errorf("short row, no value for %q", name)
		}
		return record[i], nil
	}
	getInt := func(name string) (int64, error) {
		s, err := get(name)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", name, err)
		}
		return n, nil
	}
	getFloat := func(name string) (float64, error) {
		s, err := get(name)
		if err != nil {
			return 0, err
		}
		f, err := model.ParseQuotedFloat(s)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", name, err)
		}
		return f, nil
	}

	var row model.ResultRow
	var err error

	if row.ContestID, err = getInt(colContestID); err != nil {
		return row, err
	}
	if row.ContestSortSeq, err = getInt(colContestSortSeq); err != nil {
		return row, err
	}
	if row.DistrictType, err = get(colDistrictType); err != nil {
		return row, err
	}
	if row.DistrictTypeSubheading, err = get(colDistrictTypeSubheading); err != nil {
		return row, err
	}
	if row.DistrictName, err = get(colDistrictName); err != nil {
		return row, err
	}
	if row.BallotTitle, err = get(colBallotTitle); err != nil {
		return row, err
	}
	if row.BallotsCounted, err = getInt(colBallotsCounted); err != nil {
		return row, err
	}
	if row.RegisteredVoters, err = getInt(colRegisteredVoters); err != nil {
		return row, err
	}
	if row.PercentTurnout, err = getFloat(colPercentTurnout); err != nil {
		return row, err
	}
	if row.CandidateSortSeq, err = getInt(colCandidateSortSeq); err != nil {
		return row, err
	}
	if row.BallotResponse, err = get(colBallotResponse); err != nil {
		return row, err
	}
	// Party preference is optional in the source; absent text normalizes to
	// NotAffiliated downstream.
	if i, ok := cols[colPartyPreference]; ok && i < len(record) {
		row.PartyPreference = record[i]
	}
	if row.Votes, err = getInt(colVotes); err != nil {
		return row, err
	}
	if row.PercentOfVotes, err = getFloat(colPercentOfVotes); err != nil {
		return row, err
	}

	return row, nil
}
