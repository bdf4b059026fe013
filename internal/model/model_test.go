package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParty(t *testing.T) {
	cases := []struct {
		in   string
		want PartyPreference
	}{
		{"Prefers Democratic Party", Democrat},
		{"Prefers Republican Party", Republican},
		{"democrat", Democrat},
		{"REPUBLICAN", Republican},
		{"", NotAffiliated},
		{"Prefers Approval Voting Party", NotAffiliated},
		{"States No Party Preference", NotAffiliated},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseParty(tc.in), "input %q", tc.in)
	}
}

func TestParseQuotedFloat(t *testing.T) {
	for _, in := range []string{`"42.5"`, `42.5`, ` 42.5 `, `" 42.5 "`} {
		got, err := ParseQuotedFloat(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, 42.5, got, "input %q", in)
	}

	_, err := ParseQuotedFloat("n/a")
	assert.Error(t, err)
}

func TestQuotedFloatUnmarshal(t *testing.T) {
	var payload struct {
		Turnout QuotedFloat `json:"turnout"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"turnout":"42.5"}`), &payload))
	assert.Equal(t, QuotedFloat(42.5), payload.Turnout)

	require.NoError(t, json.Unmarshal([]byte(`{"turnout":42.5}`), &payload))
	assert.Equal(t, QuotedFloat(42.5), payload.Turnout)

	assert.Error(t, json.Unmarshal([]byte(`{"turnout":"abc"}`), &payload))
}

func TestVoteShare(t *testing.T) {
	contest := Contest{
		ID:          100,
		BallotTitle: "City Council",
		Candidates: []Candidate{
			{Name: "Alice", Votes: 600},
			{Name: "Bob", Votes: 400},
		},
	}

	assert.Equal(t, int64(1000), contest.TotalVotes())
	assert.InDelta(t, 60.0, contest.VoteShare(contest.Candidates[0]), 0.001)
	assert.InDelta(t, 40.0, contest.VoteShare(contest.Candidates[1]), 0.001)

	empty := Contest{Candidates: []Candidate{{Name: "Solo", Votes: 0}}}
	assert.Equal(t, 0.0, empty.VoteShare(empty.Candidates[0]))
}
