package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

var _ repository.StatsRepository = (*DB)(nil)

// ProfileStats counts the owner's snippets and sums the +1 votes on them.
// With includePrivate unset only public snippets contribute to either number.
func (db *DB) ProfileStats(ctx context.Context, ownerID string, includePrivate bool) (model.ProfileStats, error) {
	visibility := ""
	args := []any{ownerID}
	if !includePrivate {
		visibility = ` AND s.is_public = ?`
		args = append(args, true)
	}
	args = append(args, args...)

	var st model.ProfileStats
	err := db.queryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM snippets s WHERE s.user_id = ?`+visibility+`),
		   (SELECT COALESCE(SUM(v.value), 0)
		      FROM votes v JOIN snippets s ON s.id = v.snippet_id
		     WHERE s.user_id = ?`+visibility+` AND v.value > 0)`,
		args...,
	).Scan(&st.SnippetCount, &st.TotalScore)
	if err != nil {
		return model.ProfileStats{}, fmt.Errorf("%s: profile stats of %s: %w", db.dialect, ownerID, err)
	}
	return st, nil
}

// LeaderboardBySnippetCount ranks users by how many snippets they own,
// private ones included. Users without snippets are left out. Ties break by
// username.
func (db *DB) LeaderboardBySnippetCount(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := db.query(ctx,
		`SELECT u.username, u.country, u.role, COUNT(s.id) AS n
		 FROM users u
		 JOIN snippets s ON s.user_id = u.id
		 GROUP BY u.id, u.username, u.country, u.role
		 ORDER BY n DESC, u.username
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: snippet leaderboard: %w", db.dialect, err)
	}
	defer rows.Close()
	return collectLeaderboard(rows, db.dialect)
}

// LeaderboardByReputation ranks users by the sum of every vote value on all
// their snippets, downvotes included. Users without any vote on their
// snippets are left out.
func (db *DB) LeaderboardByReputation(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := db.query(ctx,
		`SELECT u.username, u.country, u.role, SUM(v.value) AS reputation
		 FROM users u
		 JOIN snippets s ON s.user_id = u.id
		 JOIN votes v ON v.snippet_id = s.id
		 GROUP BY u.id, u.username, u.country, u.role
		 ORDER BY reputation DESC, u.username
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: reputation leaderboard: %w", db.dialect, err)
	}
	defer rows.Close()
	return collectLeaderboard(rows, db.dialect)
}

func collectLeaderboard(rows *sql.Rows, d Dialect) ([]model.LeaderboardEntry, error) {
	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var (
			e    model.LeaderboardEntry
			role string
		)
		if err := rows.Scan(&e.Username, &e.Country, &role, &e.Value); err != nil {
			return nil, fmt.Errorf("%s: scanning leaderboard row: %w", d, err)
		}
		e.Role = model.Role(role)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterating leaderboard rows: %w", d, err)
	}
	return entries, nil
}

// CountByCountry groups users by country, largest group first.
func (db *DB) CountByCountry(ctx context.Context) ([]model.CountryCount, error) {
	rows, err := db.query(ctx,
		`SELECT country, COUNT(*) AS n FROM users GROUP BY country ORDER BY n DESC, country`)
	if err != nil {
		return nil, fmt.Errorf("%s: counting users by country: %w", db.dialect, err)
	}
	defer rows.Close()

	counts := []model.CountryCount{}
	for rows.Next() {
		var c model.CountryCount
		if err := rows.Scan(&c.Country, &c.Users); err != nil {
			return nil, fmt.Errorf("%s: scanning country row: %w", db.dialect, err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterating country rows: %w", db.dialect, err)
	}
	return counts, nil
}
