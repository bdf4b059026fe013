package tabulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballotbeat/backend/internal/model"
)

func row(contestID int64, name string, votes int64) model.ResultRow {
	return model.ResultRow{
		ContestID:      contestID,
		DistrictName:   "King County",
		DistrictType:   "County",
		BallotTitle:    "City Council",
		BallotResponse: name,
		Votes:          votes,
	}
}

func TestNormalizeGroupsByContestID(t *testing.T) {
	rows := []model.ResultRow{
		row(100, "Alice", 600),
		row(200, "Carol", 50),
		row(100, "Bob", 400),
	}

	contests := Normalize(rows)
	require.Len(t, contests, 2)

	// First-seen order.
	assert.Equal(t, int64(100), contests[0].ID)
	assert.Equal(t, int64(200), contests[1].ID)

	require.Len(t, contests[0].Candidates, 2)
	assert.Equal(t, "Alice", contests[0].Candidates[0].Name)
	assert.Equal(t, "Bob", contests[0].Candidates[1].Name)

	require.Len(t, contests[1].Candidates, 1)
	assert.Equal(t, "Carol", contests[1].Candidates[0].Name)
}

func TestNormalizeKeepsFirstDistrict(t *testing.T) {
	first := row(100, "Alice", 600)
	first.RegisteredVoters = 5000
	first.PercentTurnout = 20.0

	second := row(100, "Bob", 400)
	second.RegisteredVoters = 9999
	second.PercentTurnout = 99.9
	second.DistrictName = "Somewhere Else"

	contests := Normalize([]model.ResultRow{first, second})
	require.Len(t, contests, 1)

	// Later rows for the same contest never overwrite district fields.
	assert.Equal(t, "King County", contests[0].District.Name)
	assert.Equal(t, int64(5000), contests[0].District.RegisteredVoters)
	assert.Equal(t, 20.0, contests[0].District.PercentTurnout)
}

func TestNormalizeSingleRowContest(t *testing.T) {
	contests := Normalize([]model.ResultRow{row(300, "Unopposed", 1234)})
	require.Len(t, contests, 1)
	require.Len(t, contests[0].Candidates, 1)
	assert.Equal(t, int64(1234), contests[0].Candidates[0].Votes)
}

func TestNormalizeDeterministic(t *testing.T) {
	rows := []model.ResultRow{
		row(3, "C1", 1), row(1, "A1", 2), row(2, "B1", 3),
		row(1, "A2", 4), row(3, "C2", 5),
	}

	first := Normalize(rows)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Normalize(rows))
	}
}

func TestTotalVotes(t *testing.T) {
	contests := Normalize([]model.ResultRow{
		row(100, "Alice", 600),
		row(100, "Bob", 400),
		row(200, "Carol", 50),
	})

	assert.Equal(t, int64(1050), TotalVotes(contests))
	assert.Equal(t, int64(0), TotalVotes(nil))
}

func TestTotalVotesSensitiveToSingleCandidate(t *testing.T) {
	base := []model.ResultRow{row(100, "Alice", 600), row(100, "Bob", 400)}
	bumped := []model.ResultRow{row(100, "Alice", 601), row(100, "Bob", 400)}

	assert.NotEqual(t, TotalVotes(Normalize(base)), TotalVotes(Normalize(bumped)))
}
