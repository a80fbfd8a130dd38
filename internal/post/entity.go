// AngelaMos | 2026
// entity.go

package post

import (
	"errors"
	"fmt"
	"time"

	"github.com/notbyai-space/curation-api/internal/core"
)

var (
	ErrInvalidContent  = errors.New("invalid content")
	ErrAlreadyReviewed = errors.New("post already reviewed")
	ErrNotVisible      = errors.New("post not visible")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsDecision reports whether s is a terminal state a reviewer may choose.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

func ParseDecision(s string) (Status, error) {
	d := Status(s)
	if !d.IsDecision() {
		return "", fmt.Errorf("parse decision %q: %w", s, core.ErrInvalidInput)
	}
	return d, nil
}

type Tag string

const (
	TagHuman2Human  Tag = "Human2Human"
	TagInnerWorld   Tag = "InnerWorld"
	TagWitSpark     Tag = "WitSpark"
	TagDeepThought  Tag = "DeepThought"
	TagHeartLed     Tag = "HeartLed"
	TagCulturalSoul Tag = "CulturalSoul"
	TagAdaptFlow    Tag = "AdaptFlow"
)

var tags = []Tag{
	TagHuman2Human,
	TagInnerWorld,
	TagWitSpark,
	TagDeepThought,
	TagHeartLed,
	TagCulturalSoul,
	TagAdaptFlow,
}

func (t Tag) Valid() bool {
	for _, known := range tags {
		if t == known {
			return true
		}
	}
	return false
}

type ReactionKind string

const (
	ReactionResonate ReactionKind = "resonate"
	ReactionCherish  ReactionKind = "cherish"
)

func (k ReactionKind) Valid() bool {
	return k == ReactionResonate || k == ReactionCherish
}

type Post struct {
	ID            string     `db:"id"`
	AuthorID      string     `db:"author_id"`
	Content       string     `db:"content"`
	Tag           Tag        `db:"tag"`
	Status        Status     `db:"status"`
	ResonateCount int        `db:"resonate_count"`
	CherishCount  int        `db:"cherish_count"`
	CreatedAt     time.Time  `db:"created_at"`
	ReviewedAt    *time.Time `db:"reviewed_at"`
	ReviewerID    *string    `db:"reviewer_id"`
}

// Counts is the state of a post's reaction counters after a React call.
// Applied is false when the caller had already reacted with that kind.
type Counts struct {
	Resonate int  `db:"resonate_count"`
	Cherish  int  `db:"cherish_count"`
	Applied  bool `db:"-"`
}

// ApprovedQuery selects curated posts reviewed at or before Cutoff.
type ApprovedQuery struct {
	Cutoff        time.Time
	ExcludeAuthor string
	Limit         int
	Offset        int
}

type StatusCounts struct {
	Pending  int `db:"pending"  json:"pending"`
	Approved int `db:"approved" json:"approved"`
	Rejected int `db:"rejected" json:"rejected"`
}
