package model

import "time"

// Snippet is a piece of code owned by exactly one user.
//
// Score and OwnerName are not columns of the snippets table. Repositories
// fill them in from a join when reading, so they are zero on freshly created
// snippets. Score is the sum of every vote value, negatives included.
type Snippet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	OwnerName string    `json:"owner,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	IsPublic  bool      `json:"isPublic"`
	Score     int64     `json:"score"`
	MyVote    int       `json:"myVote"` // caller's vote: 1, -1 or 0
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SnippetInput carries the owner-editable fields of a snippet.
type SnippetInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Language string `json:"language"`
	IsPublic bool   `json:"isPublic"`
}
