package model

import (
	"fmt"
	"time"
)

// Vote is one user's +1 or -1 on one snippet. The store holds at most one
// row per (UserID, SnippetID).
type Vote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	SnippetID string    `json:"snippetId"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Direction is the button a user pressed.
type Direction int

const (
	Up   Direction = 1
	Down Direction = -1
)

// ParseDirection accepts "up" and "down".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("unknown vote direction %q", s)
}

// Value is the vote value stored for the direction.
func (d Direction) Value() int { return int(d) }

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// VoteAction describes what a toggle-vote did to the stored row.
type VoteAction string

const (
	VoteCreated   VoteAction = "created"
	VoteSwitched  VoteAction = "switched"
	VoteRetracted VoteAction = "retracted"
)

// VoteResult is returned by a vote cast.
//
// Value is the caller's vote after the operation (0 when retracted), Delta
// is the change applied to the snippet's score and Score is the score after
// the transaction committed.
type VoteResult struct {
	SnippetID string     `json:"snippetId"`
	Action    VoteAction `json:"action"`
	Value     int        `json:"value"`
	Delta     int        `json:"delta"`
	Score     int64      `json:"score"`
}
