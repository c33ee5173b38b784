package httpapi

import (
	"github.com/riskibarqy/fpl-livescore/internal/domain/scoring"
	"github.com/riskibarqy/fpl-livescore/internal/usecase"
)

type gameweekDTO struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Deadline    string `json:"deadline_time"`
	Finished    bool   `json:"finished"`
	DataChecked bool   `json:"data_checked"`
}

type managerMatchDTO struct {
	EntryID    int64   `json:"entry_id"`
	PlayerName string  `json:"player_name"`
	EntryName  string  `json:"entry_name"`
	Rank       int     `json:"rank"`
	Total      int     `json:"total"`
	Score      float64 `json:"score"`
}

type leagueScoresDTO struct {
	LeagueID int64                    `json:"league_id"`
	Name     string                   `json:"name"`
	Gameweek int                      `json:"gameweek"`
	Finished bool                     `json:"finished"`
	Table    []usecase.LeagueTableRow `json:"table"`
	Results  []scoring.Result         `json:"results"`
	Skipped  []int64                  `json:"skipped,omitempty"`
}

func leagueScoresToDTO(scores usecase.LeagueScores) leagueScoresDTO {
	table := scores.Table()
	results := make([]scoring.Result, 0, len(table))
	for _, row := range table {
		results = append(results, scores.Results[row.EntryID])
	}
	return leagueScoresDTO{
		LeagueID: scores.LeagueID,
		Name:     scores.Name,
		Gameweek: scores.Gameweek,
		Finished: scores.Finished,
		Table:    table,
		Results:  results,
		Skipped:  scores.Skipped,
	}
}
