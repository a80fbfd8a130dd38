// AngelaMos | 2026
// dto.go

package post

import (
	"time"
)

// SubmitRequest carries no validate tags: emptiness, length and tag are
// all judged by Service.Submit so every rejection is INVALID_CONTENT.
type SubmitRequest struct {
	Content string `json:"content"`
	Tag     string `json:"tag"`
}

type ReviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

type PostResponse struct {
	ID            string     `json:"id"`
	AuthorID      string     `json:"author_id"`
	Content       string     `json:"content"`
	Tag           string     `json:"tag"`
	Status        string     `json:"status"`
	ResonateCount int        `json:"resonate_count"`
	CherishCount  int        `json:"cherish_count"`
	CreatedAt     time.Time  `json:"created_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

type ReactionResponse struct {
	PostID        string `json:"post_id"`
	Kind          string `json:"kind"`
	ResonateCount int    `json:"resonate_count"`
	CherishCount  int    `json:"cherish_count"`
	Applied       bool   `json:"applied"`
}

type MyPostsResponse struct {
	Posts      []PostResponse `json:"posts"`
	Day        string         `json:"day"`
	DailyLimit int            `json:"daily_limit"`
	Remaining  int            `json:"remaining"`
}

func ToPostResponse(p *Post) PostResponse {
	return PostResponse{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		Content:       p.Content,
		Tag:           string(p.Tag),
		Status:        string(p.Status),
		ResonateCount: p.ResonateCount,
		CherishCount:  p.CherishCount,
		CreatedAt:     p.CreatedAt,
		ReviewedAt:    p.ReviewedAt,
	}
}

func ToPostResponseList(posts []Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, ToPostResponse(&posts[i]))
	}
	return out
}
