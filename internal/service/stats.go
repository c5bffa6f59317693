package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
	DefaultSearchLimit      = 20
)

// StatsStore is what StatsService needs from storage.
type StatsStore interface {
	repository.StatsRepository
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error)
	ListSnippetsByOwner(ctx context.Context, ownerID string, includePrivate bool) ([]model.Snippet, error)
}

// StatsService serves profiles, leaderboards and other read-only aggregates.
type StatsService struct {
	repo   StatsStore
	logger *slog.Logger
}

// NewStatsService creates a StatsService. It only reads.
func NewStatsService(repo StatsStore, logger *slog.Logger) *StatsService {
	return &StatsService{repo: repo, logger: logger}
}

// ProfileStats counts the user's snippets visible to the caller and the +1
// votes those snippets received.
func (s *StatsService) ProfileStats(ctx context.Context, caller model.Identity, username string) (model.ProfileStats, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return model.ProfileStats{}, err
	}
	return s.statsFor(ctx, caller, user)
}

func (s *StatsService) statsFor(ctx context.Context, caller model.Identity, user *model.User) (model.ProfileStats, error) {
	includePrivate := AuthorizeUser(caller, user) == AccessOwner
	stats, err := s.repo.ProfileStats(ctx, user.ID, includePrivate)
	if err != nil {
		return model.ProfileStats{}, fmt.Errorf("profile stats: %w", err)
	}
	return stats, nil
}

// Profile gathers everything the profile page shows.
func (s *StatsService) Profile(ctx context.Context, caller model.Identity, username string) (*model.Profile, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}

	includePrivate := AuthorizeUser(caller, user) == AccessOwner
	snippets, err := s.repo.ListSnippetsByOwner(ctx, user.ID, includePrivate)
	if err != nil {
		return nil, fmt.Errorf("listing profile snippets: %w", err)
	}
	stats, err := s.statsFor(ctx, caller, user)
	if err != nil {
		return nil, err
	}
	return &model.Profile{User: user, Snippets: snippets, Stats: stats}, nil
}

// LeaderboardBySnippetCount ranks users by how many snippets they own,
// private ones included.
func (s *StatsService) LeaderboardBySnippetCount(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	limit, _ = clampPage(limit, 0, DefaultLeaderboardLimit, MaxLeaderboardLimit)
	entries, err := s.repo.LeaderboardBySnippetCount(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("snippet leaderboard: %w", err)
	}
	return entries, nil
}

// LeaderboardByReputation ranks users by the sum of all votes on their
// snippets, downvotes included.
func (s *StatsService) LeaderboardByReputation(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	limit, _ = clampPage(limit, 0, DefaultLeaderboardLimit, MaxLeaderboardLimit)
	entries, err := s.repo.LeaderboardByReputation(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reputation leaderboard: %w", err)
	}
	return entries, nil
}

// CountByCountry returns user counts per country, largest first.
func (s *StatsService) CountByCountry(ctx context.Context) ([]model.CountryCount, error) {
	counts, err := s.repo.CountByCountry(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting countries: %w", err)
	}
	return counts, nil
}

// SearchUsers matches usernames containing query, ignoring case. A blank
// query returns nothing rather than every user.
func (s *StatsService) SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.User{}, nil
	}
	limit, _ = clampPage(limit, 0, DefaultSearchLimit, MaxListLimit)

	users, err := s.repo.SearchUsers(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return users, nil
}
