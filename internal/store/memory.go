package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Memory is the ranking store used when no database is configured.
type Memory struct {
	mu       sync.Mutex
	matches  map[string]MatchRecord
	rankings map[string]Ranking
}

func NewMemory() *Memory {
	return &Memory{
		matches:  make(map[string]MatchRecord),
		rankings: make(map[string]Ranking),
	}
}

func (m *Memory) RecordMatch(_ context.Context, res MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.matches[res.GameID]; ok {
		return nil
	}
	m.matches[res.GameID] = toRecord(res)

	for _, delta := range rankingDeltas(res) {
		row := m.rankings[delta.UserID]
		row.UserID = delta.UserID
		row.Points += delta.Points
		row.Wins += delta.Wins
		row.Losses += delta.Losses
		row.UpdatedAt = res.FinishedAt
		m.rankings[delta.UserID] = row
	}
	return nil
}

func (m *Memory) Top(_ context.Context, limit int) ([]Ranking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]Ranking, 0, len(m.rankings))
	for _, row := range m.rankings {
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b Ranking) int {
		return cmp.Or(
			cmp.Compare(b.Points, a.Points),
			cmp.Compare(b.Wins, a.Wins),
			cmp.Compare(a.UserID, b.UserID),
		)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *Memory) RankingOf(_ context.Context, userID string) (Ranking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rankings[userID]
	if !ok {
		return Ranking{}, ErrNotFound
	}
	return row, nil
}

func (m *Memory) Matches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matches)
}
