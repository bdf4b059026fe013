package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballotbeat/backend/internal/cache"
	"github.com/ballotbeat/backend/internal/config"
	"github.com/ballotbeat/backend/internal/model"
)

var snapshotTime = time.Date(2024, 11, 5, 20, 0, 0, 0, time.UTC)

// fakeStore serves a single canned snapshot.
type fakeStore struct {
	view *model.SnapshotView
	err  error
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }

func (f *fakeStore) WriteSnapshot(ctx context.Context, contests []model.Contest, totalVotes int64) (int64, error) {
	return 0, errors.New("read-only test store")
}

func (f *fakeStore) Latest(ctx context.Context) (*model.SnapshotView, error) {
	return f.view, f.err
}

func (f *fakeStore) LatestTotalVotes(ctx context.Context) (int64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	if f.view == nil {
		return 0, false, nil
	}
	return f.view.TotalVotes, true, nil
}

func (f *fakeStore) At(ctx context.Context, ts time.Time) (*model.SnapshotView, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.view != nil && f.view.Timestamp.Equal(ts) {
		return f.view, nil
	}
	return nil, nil
}

func testSnapshot() *model.SnapshotView {
	return &model.SnapshotView{
		ID:         1,
		Timestamp:  snapshotTime,
		TotalVotes: 1000,
		Contests: []model.Contest{
			{
				ID:          100,
				BallotTitle: "City Council",
				District:    model.District{Name: "Seattle", DistrictType: "City"},
				Candidates: []model.Candidate{
					{Name: "Bob", Percentage: 40, Votes: 400, PartyPreference: model.Republican},
					{Name: "Alice", Percentage: 60, Votes: 600, PartyPreference: model.Democrat},
				},
			},
		},
	}
}

func newTestServer(st *fakeStore) *Server {
	cfg := &config.Config{CacheTTL: time.Minute}
	return New(cfg, cache.New(st, cfg.CacheTTL), st)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestResultsLatest(t *testing.T) {
	s := newTestServer(&fakeStore{view: testSnapshot()})

	rec := get(t, s, "/api/results")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var view model.SnapshotView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, int64(1000), view.TotalVotes)
	require.Len(t, view.Contests, 1)
	assert.Equal(t, int64(100), view.Contests[0].ID)
}

func TestResultsNoData(t *testing.T) {
	s := newTestServer(&fakeStore{})

	rec := get(t, s, "/api/results")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data available")
}

func TestResultsStoreUnavailable(t *testing.T) {
	s := newTestServer(&fakeStore{err: errors.New("connection refused")})

	rec := get(t, s, "/api/results")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestResultsAtTimestamp(t *testing.T) {
	s := newTestServer(&fakeStore{view: testSnapshot()})

	rec := get(t, s, "/api/results?at="+snapshotTime.Format(time.RFC3339))
	require.Equal(t, http.StatusOK, rec.Code)

	var view model.SnapshotView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, int64(1), view.ID)
}

func TestResultsAtTimestampMiss(t *testing.T) {
	s := newTestServer(&fakeStore{view: testSnapshot()})

	rec := get(t, s, "/api/results?at="+snapshotTime.Add(time.Minute).Format(time.RFC3339))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data available")
}

func TestResultsAtInvalidTimestamp(t *testing.T) {
	s := newTestServer(&fakeStore{view: testSnapshot()})

	rec := get(t, s, "/api/results?at=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContestDetail(t *testing.T) {
	s := newTestServer(&fakeStore{view: testSnapshot()})

	rec := get(t, s, "/api/contests/100")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		model.Contest
		SnapshotID int64     `json:"snapshot_id"`
		VoteShares []float64 `json:"vote_shares"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, int64(1), resp.SnapshotID)
	require.Len(t, resp.Candidates, 2)
	// Sorted by percentage descending, shares computed from raw counts.
	assert.Equal(t, "Alice", resp.Candidates[0].Name)
	assert.Equal(t, "Bob", resp.Candidates[1].Name)
	require.Len(t, resp.VoteShares, 2)
	assert.InDelta(t, 60.00, resp.VoteShares[0], 0.001)
	assert.InDelta(t, 40.00, resp.VoteShares[1], 0.001)
}

func TestContestDetailUnknownID(t *testing.T) {
	s := newTestServer(&fakeStore{view: testSnapshot()})

	rec := get(t, s, "/api/contests/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContestDetailBadID(t *testing.T) {
	s := newTestServer(&fakeStore{view: testSnapshot()})

	rec := get(t, s, "/api/contests/not-a-number")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeStore{view: testSnapshot()})

	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCORSWildcardWhenUnconfigured(t *testing.T) {
	s := newTestServer(&fakeStore{view: testSnapshot()})

	rec := get(t, s, "/api/results")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfiguredOrigin(t *testing.T) {
	st := &fakeStore{view: testSnapshot()}
	cfg := &config.Config{CacheTTL: time.Minute, AllowedOrigins: []string{"https://ballotbeat.example"}}
	s := New(cfg, cache.New(st, cfg.CacheTTL), st)

	req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	req.Header.Set("Origin", "https://ballotbeat.example")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, "https://ballotbeat.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
