package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
)

const managerMatchThreshold = 0.7

type LeagueService struct {
	client FPLClient
}

func NewLeagueService(client FPLClient) *LeagueService {
	return &LeagueService{client: client}
}

type ManagerMatch struct {
	Entry fpl.LeagueEntry `json:"entry"`
	Score float64         `json:"score"`
}

// FindManagers matches query against member and team names of a league.
// A case-insensitive subsequence match scores 1, anything else is scored
// by Levenshtein similarity and kept above managerMatchThreshold.
func (s *LeagueService) FindManagers(ctx context.Context, leagueID int64, query string) ([]ManagerMatch, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.FindManagers")
	defer span.End()

	query = strings.TrimSpace(query)
	if err := requirePositiveID("league id", leagueID); err != nil {
		return nil, err
	}

	_, members, err := s.client.LeagueStandings(ctx, leagueID, snapshot.PolicyCached)
	if err != nil {
		return nil, fmt.Errorf("load league %d: %w", leagueID, err)
	}

	out := make([]ManagerMatch, 0, len(members))
	for _, member := range members {
		if query == "" {
			out = append(out, ManagerMatch{Entry: member, Score: 1})
			continue
		}
		score := max(nameSimilarity(query, member.PlayerName), nameSimilarity(query, member.EntryName))
		if score > managerMatchThreshold {
			out = append(out, ManagerMatch{Entry: member, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entry.Entry < out[j].Entry.Entry
	})
	return out, nil
}

func nameSimilarity(query, name string) float64 {
	if name == "" {
		return 0
	}
	if fuzzy.MatchFold(query, name) {
		return 1
	}
	q := strings.ToLower(query)
	n := strings.ToLower(name)
	distance := fuzzy.LevenshteinDistance(q, n)
	maxLen := float64(max(len(q), len(n)))
	return 1 - float64(distance)/maxLen
}
