package votes

import "github.com/sejmwatch/bills-tracker/internal/entity"

// GroupByClub aggregates deputy records into per-caucus tallies, in
// first-seen caucus order. Voted counts only decisive votes (for plus
// against); abstentions and absences are tracked separately.
func GroupByClub(deputies []DeputyVote) []entity.ClubResult {
	index := make(map[string]int)
	var out []entity.ClubResult

	for _, d := range deputies {
		pos, ok := index[d.Club]
		if !ok {
			pos = len(out)
			index[d.Club] = pos
			out = append(out, entity.ClubResult{Club: d.Club})
		}

		c := &out[pos]
		c.Members++
		switch d.Vote {
		case VoteFor:
			c.For++
			c.Voted++
		case VoteAgainst:
			c.Against++
			c.Voted++
		case VoteAbstained:
			c.Abstained++
		case VoteDidNotVote:
			c.DidNotVote++
		case VotePresent:
			c.Present++
		}
	}
	return out
}
