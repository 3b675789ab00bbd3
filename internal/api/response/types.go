package response

import (
	"time"

	"github.com/mcoot/portfolio-leaderboard/internal/services/leaderboard"
	"github.com/mcoot/portfolio-leaderboard/internal/services/submission"
)

// Change represents a percent change in API responses
type Change struct {
	Percent   string `json:"percent"`
	Direction string `json:"direction"`
	Label     string `json:"label"`
}

// Player represents a leaderboard entry in API responses
type Player struct {
	Rank          int       `json:"rank,omitempty"`
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CurrentValue  float64   `json:"current_value"`
	PreviousValue *float64  `json:"previous_value"`
	LastUpdated   time.Time `json:"last_updated"`
	Change        *Change   `json:"change"`
}

// PlayerFromEntry converts a leaderboard entry to a response Player
func PlayerFromEntry(e leaderboard.Entry) Player {
	p := Player{
		Rank:          e.Rank,
		ID:            string(e.Player.ID),
		Name:          e.Player.Name,
		CurrentValue:  e.Player.CurrentValue,
		PreviousValue: e.Player.PreviousValue,
		LastUpdated:   e.Player.LastUpdated,
	}
	if e.Change != nil {
		p.Change = &Change{
			Percent:   e.Change.Percent.StringFixed(2),
			Direction: string(e.Change.Direction),
			Label:     e.Change.Label(),
		}
	}
	return p
}

// PlayersResponse is the response for listing the leaderboard
type PlayersResponse struct {
	Players []Player `json:"players"`
}

// PlayersResponseFromEntries converts a ranked list
func PlayersResponseFromEntries(entries []leaderboard.Entry) PlayersResponse {
	players := make([]Player, len(entries))
	for i, e := range entries {
		players[i] = PlayerFromEntry(e)
	}
	return PlayersResponse{Players: players}
}

// SubmitResponse is the response for a successful submission
type SubmitResponse struct {
	Outcome string `json:"outcome"`
	Player  Player `json:"player"`
}

// SubmitResponseFromResult converts a submission result
func SubmitResponseFromResult(r *submission.Result) SubmitResponse {
	return SubmitResponse{
		Outcome: string(r.Outcome),
		Player:  PlayerFromEntry(leaderboard.NewEntry(0, r.Player)),
	}
}

// HealthResponse is the response for the health check
type HealthResponse struct {
	Status string `json:"status"`
}
