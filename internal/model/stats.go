package model

// ProfileStats aggregates a user's snippets as seen by a particular caller.
//
// TotalScore counts only +1 votes on those snippets. Per-snippet Score and
// leaderboard reputation count -1 votes too.
type ProfileStats struct {
	SnippetCount int64 `json:"snippetCount"`
	TotalScore   int64 `json:"totalScore"`
}

// LeaderboardEntry is one row of a leaderboard. Value is a snippet count or
// a reputation depending on the board.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Country  string `json:"country"`
	Role     Role   `json:"role"`
	Value    int64  `json:"value"`
}

// CountryCount is the number of users registered from one country.
type CountryCount struct {
	Country string `json:"country"`
	Users   int64  `json:"users"`
}

// Profile is everything the profile page shows for one user.
type Profile struct {
	User     *User        `json:"user"`
	Snippets []Snippet    `json:"snippets"`
	Stats    ProfileStats `json:"stats"`
}
