package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/ballotbeat/backend/internal/model"
)

// handleResults serves the latest snapshot through the cache. With ?at= it
// serves the snapshot whose timestamp exactly matches the given RFC 3339
// value, read straight from the store (historical reads are rare and are not
// cached).
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if at := r.URL.Query().Get("at"); at != "" {
		s.handleResultsAt(w, r, at)
		return
	}

	data, err := s.cache.Latest(r.Context())
	if err != nil {
		slog.Error("failed to load latest snapshot", "error", err)
		http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	if data == nil {
		http.Error(w, `{"error":"no data available"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleResultsAt(w http.ResponseWriter, r *http.Request, at string) {
	ts, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		http.Error(w, `{"error":"invalid timestamp, want RFC 3339"}`, http.StatusBadRequest)
		return
	}

	view, err := s.store.At(r.Context(), ts)
	if err != nil {
		slog.Error("failed to load snapshot at timestamp", "at", at, "error", err)
		http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	if view == nil {
		http.Error(w, `{"error":"no data available"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// contestResponse is a contest joined with per-candidate vote shares computed
// from the raw counts, candidates sorted by source percentage descending.
type contestResponse struct {
	model.Contest
	SnapshotID        int64     `json:"snapshot_id"`
	SnapshotTimestamp time.Time `json:"snapshot_timestamp"`
	VoteShares        []float64 `json:"vote_shares"`
}

func (s *Server) handleContest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid contest id"}`, http.StatusBadRequest)
		return
	}

	data, err := s.cache.Latest(r.Context())
	if err != nil {
		slog.Error("failed to load latest snapshot", "error", err)
		http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	if data == nil {
		http.Error(w, `{"error":"no data available"}`, http.StatusNotFound)
		return
	}

	var view model.SnapshotView
	if err := json.Unmarshal(data, &view); err != nil {
		slog.Error("failed to decode cached snapshot", "error", err)
		http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	for _, contest := range view.Contests {
		if contest.ID != id {
			continue
		}

		sort.SliceStable(contest.Candidates, func(i, j int) bool {
			return contest.Candidates[i].Percentage > contest.Candidates[j].Percentage
		})

		resp := contestResponse{
			Contest:           contest,
			SnapshotID:        view.ID,
			SnapshotTimestamp: view.Timestamp,
			VoteShares:        make([]float64, len(contest.Candidates)),
		}
		for i, cand := range contest.Candidates {
			resp.VoteShares[i] = contest.VoteShare(cand)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
		return
	}

	http.Error(w, `{"error":"no data available for this contest"}`, http.StatusNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
	}
	if updatedAt := s.cache.UpdatedAt(); !updatedAt.IsZero() {
		resp["cache_refreshed_at"] = updatedAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
