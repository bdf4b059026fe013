package tabulate

import (
	"github.com/ballotbeat/backend/internal/model"
)

// Normalize groups flat result rows into contest trees keyed by the contest's
// externally assigned id. District attributes are taken from the first row
// seen for a contest and never overwritten by later rows, even if they differ;
// candidates accumulate in first-seen order. Output order is the first-seen
// order of contest ids, so a fixed input ordering always produces the same
// output.
func Normalize(rows []model.ResultRow) []model.Contest {
	byID := make(map[int64]*model.Contest, len(rows))
	order := make([]int64, 0, len(rows))

	for _, row := range rows {
		contest, ok := byID[row.ContestID]
		if !ok {
			contest = &model.Contest{
				ID:          row.ContestID,
				BallotTitle: row.BallotTitle,
				District: model.District{
					Name:                   row.DistrictName,
					PercentTurnout:         row.PercentTurnout,
					RegisteredVoters:       row.RegisteredVoters,
					BallotsCounted:         row.BallotsCounted,
					DistrictType:           row.DistrictType,
					DistrictTypeSubheading: row.DistrictTypeSubheading,
				},
			}
			byID[row.ContestID] = contest
			order = append(order, row.ContestID)
		}

		contest.Candidates = append(contest.Candidates, model.Candidate{
			Name:            row.BallotResponse,
			Percentage:      row.PercentOfVotes,
			Votes:           row.Votes,
			PartyPreference: model.ParseParty(row.PartyPreference),
		})
	}

	contests := make([]model.Contest, 0, len(order))
	for _, id := range order {
		contests = append(contests, *byID[id])
	}
	return contests
}

// TotalVotes computes the change-detection fingerprint: the sum of every
// candidate's votes across every contest. Two different result sets can in
// principle share a sum and would then be treated as unchanged; that is an
// accepted trade-off of using a cheap aggregate instead of a full diff.
func TotalVotes(contests []model.Contest) int64 {
	var total int64
	for _, c := range contests {
		total += c.TotalVotes()
	}
	return total
}
